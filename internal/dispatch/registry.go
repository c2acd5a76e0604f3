package dispatch

import (
	"fmt"
	"sort"
	"strings"

	"github.com/trebframework/treb/pkg/domain"
)

// DefaultController is the controller name assumed when a path resolves to a
// namespace without naming one.
const DefaultController = "home"

// Registry is the route tree: namespaces mirror what a handler directory
// hierarchy would be, with controllers registered at each node. It is built
// at startup and read-only afterwards.
type Registry struct {
	root *node
}

type node struct {
	children    map[string]*node
	controllers map[string]*Controller
}

func newNode() *node {
	return &node{
		children:    make(map[string]*node),
		controllers: make(map[string]*Controller),
	}
}

// NewRegistry returns an empty route tree.
func NewRegistry() *Registry {
	return &Registry{root: newNode()}
}

// Register places a controller under a namespace path, creating namespaces
// as needed. Registration fails on a missing name, a duplicate, or a
// controller without actions.
func (r *Registry) Register(c *Controller, namespace ...string) error {
	if c == nil || c.Name == "" {
		return fmt.Errorf("controller must have a name")
	}
	if len(c.Actions) == 0 {
		return fmt.Errorf("controller %q declares no actions", c.Name)
	}
	if _, ok := c.Actions[c.DefaultAction()]; !ok {
		return fmt.Errorf("controller %q missing default action %q", c.Name, c.DefaultAction())
	}
	for name, a := range c.Actions {
		if a.Run == nil {
			return fmt.Errorf("controller %q action %q has no function", c.Name, name)
		}
	}

	cur := r.root
	for _, ns := range namespace {
		child, ok := cur.children[ns]
		if !ok {
			child = newNode()
			cur.children[ns] = child
		}
		cur = child
	}
	if _, exists := cur.controllers[c.Name]; exists {
		return fmt.Errorf("controller %q already registered under /%s", c.Name, strings.Join(namespace, "/"))
	}
	cur.controllers[c.Name] = c
	return nil
}

// Match is a resolved route: the controller, the chosen action, and the
// route details including unconsumed extra segments.
type Match struct {
	Controller *Controller
	Action     Action
	Route      domain.Route
}

// Resolve maps a request path to a controller and action.
//
// Segments are consumed left to right: first descending namespaces as long
// as one of that name exists (deepest namespace wins over a same-named
// controller at a shallower level), then a controller name if registered
// (else DefaultController), then an action name if the controller declares
// it (else the controller's default). Whatever remains is extra.
func (r *Registry) Resolve(path string) (*Match, error) {
	segs := domain.SplitPath(path)

	cur := r.root
	var ns []string
	i := 0
	for i < len(segs) {
		child, ok := cur.children[segs[i]]
		if !ok {
			break
		}
		cur = child
		ns = append(ns, segs[i])
		i++
	}

	name := DefaultController
	if i < len(segs) {
		if _, ok := cur.controllers[segs[i]]; ok {
			name = segs[i]
			i++
		}
	}
	ctrl, ok := cur.controllers[name]
	if !ok {
		return nil, domain.ErrRouteNotFound
	}

	actionName := ctrl.DefaultAction()
	if i < len(segs) {
		if _, ok := ctrl.Actions[segs[i]]; ok {
			actionName = segs[i]
			i++
		}
	}
	action, ok := ctrl.Actions[actionName]
	if !ok {
		// Defensive double-check; Register validates the default action.
		return nil, domain.ErrRouteNotFound
	}

	return &Match{
		Controller: ctrl,
		Action:     action,
		Route: domain.Route{
			Namespace:  ns,
			Controller: ctrl.Name,
			Action:     actionName,
			Extra:      segs[i:],
		},
	}, nil
}

// RouteInfo describes one registered action for introspection.
type RouteInfo struct {
	Path       string
	Controller string
	Action     string
	Output     domain.OutputMode
	Session    bool
	AllowExtra bool
}

// Routes lists every registered action in path order.
func (r *Registry) Routes() []RouteInfo {
	var out []RouteInfo
	r.root.walk(nil, &out)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Action < out[j].Action
	})
	return out
}

func (n *node) walk(prefix []string, out *[]RouteInfo) {
	for name, c := range n.controllers {
		base := "/" + strings.Join(append(append([]string{}, prefix...), name), "/")
		for actionName, a := range c.Actions {
			mode := a.Output
			if mode == "" {
				mode = domain.OutputHTML
			}
			*out = append(*out, RouteInfo{
				Path:       base,
				Controller: name,
				Action:     actionName,
				Output:     mode,
				Session:    a.Session,
				AllowExtra: a.AllowExtra,
			})
		}
	}
	for name, child := range n.children {
		child.walk(append(append([]string{}, prefix...), name), out)
	}
}

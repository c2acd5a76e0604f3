/*
Package dispatch implements the front controller: resolving request paths
against the controller registry, running the per-request lifecycle
(sanitize, session, init, action), and rendering the response. It is the
single boundary where framework errors map to HTTP status codes.
*/
package dispatch

import (
	"github.com/trebframework/treb/pkg/domain"
	"github.com/trebframework/treb/pkg/filter"
)

// ActionFunc executes a resolved action against the request context.
type ActionFunc func(c *Context) error

// Action declares one invocable action: its function, the per-source
// sanitization schemas, and its response behavior. Actions are resolved from
// an explicit table rather than by reflected method names.
type Action struct {
	Run ActionFunc

	// Schemas maps an input source name (domain.SourceGet, SourcePost, ...)
	// to the schema applied to it. Sources without a schema never reach the
	// sanitized args.
	Schemas map[string]filter.Schema

	// AllowExtra opts in to trailing path segments left over after route
	// resolution. Without it, leftover segments are a 404.
	AllowExtra bool

	// Session requests session bootstrap before the action runs.
	Session bool

	// Output selects the response encoding; empty means HTML.
	Output domain.OutputMode

	// Cacheable suppresses the default anti-caching headers.
	Cacheable bool
}

// Controller groups a named set of actions registered at one point in the
// route tree. The zero Default means the action named after the controller
// is the default.
type Controller struct {
	Name    string
	Default string
	Init    func(c *Context) error
	Actions map[string]Action
}

// DefaultAction returns the action name used when the path names none.
func (c *Controller) DefaultAction() string {
	if c.Default != "" {
		return c.Default
	}
	return c.Name
}

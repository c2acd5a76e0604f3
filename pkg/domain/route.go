package domain

import "strings"

// Route is the result of resolving a request path: the namespace path that
// was consumed, the controller and action names, and any trailing segments
// left over after resolution.
type Route struct {
	Namespace  []string
	Controller string
	Action     string
	Extra      []string
}

// Path reconstructs the canonical path for the route, without extra segments.
func (r Route) Path() string {
	parts := append(append([]string{}, r.Namespace...), r.Controller)
	if r.Action != r.Controller {
		parts = append(parts, r.Action)
	}
	return "/" + strings.Join(parts, "/")
}

// SplitPath splits a URL path into segments, dropping the empty segments a
// leading or trailing slash produces.
func SplitPath(p string) []string {
	var segs []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

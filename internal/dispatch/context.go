package dispatch

import (
	"bytes"
	"log/slog"
	"net/http"

	"github.com/trebframework/treb/internal/session"
	"github.com/trebframework/treb/pkg/domain"
)

// Context is the per-request state handed to init hooks and actions. It is
// created by the dispatcher after route resolution and discarded when the
// request ends.
type Context struct {
	Request *http.Request
	Route   domain.Route
	Args    domain.Args
	Session *session.Session
	Log     *slog.Logger

	// Mode and Cacheable start from the action declaration; actions may
	// override them before render.
	Mode      domain.OutputMode
	Cacheable bool

	// View names the template the render layer should use for HTML output.
	View string

	// Payload is marshaled as the body for JSON output.
	Payload any

	// Status overrides the 200 default.
	Status int

	body      bytes.Buffer
	headers   http.Header
	redirect  string
	permanent bool
	authRealm string
}

func newContext(r *http.Request, route domain.Route, mode domain.OutputMode, cacheable bool, log *slog.Logger) *Context {
	if mode == "" {
		mode = domain.OutputHTML
	}
	return &Context{
		Request:   r,
		Route:     route,
		Args:      domain.NewArgs(),
		Log:       log,
		Mode:      mode,
		Cacheable: cacheable,
		View:      route.Action,
		headers:   make(http.Header),
	}
}

// Write appends response body bytes.
func (c *Context) Write(p []byte) (int, error) {
	return c.body.Write(p)
}

// WriteString appends a response body string.
func (c *Context) WriteString(s string) {
	c.body.WriteString(s)
}

// Header sets a response header emitted at render time.
func (c *Context) Header(key, value string) {
	c.headers.Set(key, value)
}

// Redirect schedules a 302 (or 301 when permanent) to url; the body is
// skipped.
func (c *Context) Redirect(url string, permanent bool) {
	c.redirect = url
	c.permanent = permanent
}

// Unauthorized schedules a 401 with a WWW-Authenticate realm.
func (c *Context) Unauthorized(realm string) {
	c.authRealm = realm
	c.Status = http.StatusUnauthorized
}

// Forbidden schedules a plain 403.
func (c *Context) Forbidden() {
	c.Status = http.StatusForbidden
}

package dispatch

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/trebframework/treb/internal/config"
	"github.com/trebframework/treb/internal/logging"
	"github.com/trebframework/treb/internal/session"
	"github.com/trebframework/treb/pkg/domain"
	"github.com/trebframework/treb/pkg/filter"
)

// Dispatcher is the front controller. It owns route resolution and the
// request lifecycle; every error surfaces here and nowhere else as an HTTP
// status.
type Dispatcher struct {
	registry *Registry
	filter   *filter.Filter
	sessions *session.Manager
	security config.Security
	loginURL string
	log      *slog.Logger
	metrics  *Metrics
}

// New builds a dispatcher. metrics may be nil.
func New(registry *Registry, f *filter.Filter, sessions *session.Manager,
	security config.Security, loginURL string, log *slog.Logger, metrics *Metrics) *Dispatcher {
	if loginURL == "" {
		loginURL = "/"
	}
	return &Dispatcher{
		registry: registry,
		filter:   f,
		sessions: sessions,
		security: security,
		loginURL: loginURL,
		log:      logging.For(log, "dispatch"),
		metrics:  metrics,
	}
}

// ServeHTTP runs one request through the lifecycle:
// resolve -> sanitize -> (session) -> init -> action -> render.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	match, err := d.registry.Resolve(r.URL.Path)
	if err != nil {
		d.renderNotFound(w)
		d.metrics.observe("", "", http.StatusNotFound, time.Since(start))
		return
	}

	status := d.handle(w, r, match)
	d.metrics.observe(match.Route.Controller, match.Route.Action, status, time.Since(start))
}

func (d *Dispatcher) handle(w http.ResponseWriter, r *http.Request, match *Match) (status int) {
	c := newContext(r, match.Route, match.Action.Output, match.Action.Cacheable, d.log)

	defer func() {
		if p := recover(); p != nil {
			d.log.Error("panic during action",
				"controller", match.Route.Controller,
				"action", match.Route.Action,
				"path", r.URL.Path,
				"panic", p)
			// The stack only ever reaches the response in development mode.
			d.renderError(w, fmt.Errorf("panic: %v\n\n%s", p, debug.Stack()))
			status = http.StatusInternalServerError
		}
	}()

	d.sanitize(c, match)

	if len(match.Route.Extra) > 0 && !match.Action.AllowExtra {
		d.renderNotFound(w)
		return http.StatusNotFound
	}

	if match.Action.Session {
		sess, err := d.sessions.Start(r.Context(), w, r)
		if errors.Is(err, domain.ErrSessionIntegrity) {
			return d.rejectSession(w, c, sess)
		}
		c.Session = sess
	}

	if match.Controller.Init != nil {
		if err := match.Controller.Init(c); err != nil {
			return d.fail(w, c, err)
		}
	}

	if err := match.Action.Run(c); err != nil {
		return d.fail(w, c, err)
	}

	if c.Session != nil {
		if err := d.sessions.Save(r.Context(), c.Session); err != nil {
			d.log.Error("session save failed", "sid", c.Session.ID, "err", err)
		}
	}

	if err := d.render(w, c); err != nil {
		d.log.Error("render failed", "path", r.URL.Path, "err", err)
	}
	if c.Status != 0 {
		return c.Status
	}
	if c.redirect != "" {
		if c.permanent {
			return http.StatusMovedPermanently
		}
		return http.StatusFound
	}
	return http.StatusOK
}

// rejectSession enforces the integrity-violation policy: programmatic
// clients get a plain 403, browsers are redirected. The fresh session's
// cookies are already on the response.
func (d *Dispatcher) rejectSession(w http.ResponseWriter, c *Context, sess *session.Session) int {
	if sess != nil {
		_ = d.sessions.Save(c.Request.Context(), sess)
	}
	if c.Mode.Programmatic() {
		d.writeStandardHeaders(w.Header(), domain.OutputText, false)
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, "forbidden")
		return http.StatusForbidden
	}
	w.Header().Set("Location", d.loginURL)
	w.WriteHeader(http.StatusFound)
	return http.StatusFound
}

func (d *Dispatcher) fail(w http.ResponseWriter, c *Context, err error) int {
	if errors.Is(err, domain.ErrRouteNotFound) {
		d.renderNotFound(w)
		return http.StatusNotFound
	}
	level := slog.LevelError
	if errors.Is(err, domain.ErrPersistence) {
		// Persistence failures were already logged at the data layer.
		level = slog.LevelWarn
	}
	d.log.Log(c.Request.Context(), level, "action failed",
		"controller", c.Route.Controller,
		"action", c.Route.Action,
		"path", c.Request.URL.Path,
		"err", err)
	d.renderError(w, err)
	return http.StatusInternalServerError
}

// sanitize builds the sanitized args: one entry per source the action
// declares a schema for, each the filtered projection of the raw source.
// Undeclared sources and fields never appear.
func (d *Dispatcher) sanitize(c *Context, match *Match) {
	for source, schema := range match.Action.Schemas {
		raw := rawSource(c.Request, source, match.Route.Extra)
		c.Args[source] = d.filter.Apply(raw, schema)
	}
}

// rawSource collects one untrusted input source as a field map.
func rawSource(r *http.Request, source string, extra []string) map[string]any {
	switch source {
	case domain.SourceGet:
		return valuesToMap(r.URL.Query())
	case domain.SourcePost:
		return postData(r)
	case domain.SourceCookie:
		out := make(map[string]any)
		for _, ck := range r.Cookies() {
			out[ck.Name] = ck.Value
		}
		return out
	case domain.SourceEnv:
		out := make(map[string]any)
		for _, kv := range os.Environ() {
			if k, v, ok := strings.Cut(kv, "="); ok {
				out[k] = v
			}
		}
		return out
	case domain.SourceServer:
		return map[string]any{
			"method":      r.Method,
			"host":        r.Host,
			"path":        r.URL.Path,
			"remote_addr": r.RemoteAddr,
			"user_agent":  r.UserAgent(),
			"referer":     r.Referer(),
		}
	case domain.SourceExtra:
		out := make(map[string]any, len(extra))
		for i, seg := range extra {
			out[strconv.Itoa(i)] = seg
		}
		return out
	}
	return map[string]any{}
}

func postData(r *http.Request) map[string]any {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "application/json") {
		out := make(map[string]any)
		if err := json.NewDecoder(r.Body).Decode(&out); err != nil {
			return map[string]any{}
		}
		return out
	}
	if err := r.ParseForm(); err != nil {
		return map[string]any{}
	}
	return valuesToMap(r.PostForm)
}

func valuesToMap(values map[string][]string) map[string]any {
	out := make(map[string]any, len(values))
	for k, vs := range values {
		if len(vs) == 1 {
			out[k] = vs[0]
			continue
		}
		many := make([]any, len(vs))
		for i, v := range vs {
			many[i] = v
		}
		out[k] = many
	}
	return out
}

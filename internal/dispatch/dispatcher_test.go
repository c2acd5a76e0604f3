package dispatch_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebframework/treb/internal/adapters/memory"
	"github.com/trebframework/treb/internal/config"
	"github.com/trebframework/treb/internal/dispatch"
	"github.com/trebframework/treb/internal/logging"
	"github.com/trebframework/treb/internal/session"
	"github.com/trebframework/treb/pkg/domain"
	"github.com/trebframework/treb/pkg/filter"
)

type harness struct {
	dispatcher *dispatch.Dispatcher
	sessions   *session.Manager
}

func newHarness(t *testing.T, security config.Security, register func(*dispatch.Registry)) *harness {
	t.Helper()
	reg := dispatch.NewRegistry()
	register(reg)

	sessCfg := config.Session{
		CookieName:  "treb_sid",
		TokenCookie: "treb_tok",
		TTL:         time.Hour,
		LoginURL:    "/login",
	}
	sessions := session.NewManager(memory.NewCache(), sessCfg, logging.NewNop())

	metrics := dispatch.NewMetrics(prometheus.NewRegistry())
	d := dispatch.New(reg, filter.New(), sessions, security, sessCfg.LoginURL, logging.NewNop(), metrics)
	return &harness{dispatcher: d, sessions: sessions}
}

func get(h *harness, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.dispatcher.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestDispatch_OK(t *testing.T) {
	h := newHarness(t, config.Security{}, func(r *dispatch.Registry) {
		require.NoError(t, r.Register(&dispatch.Controller{
			Name: "home",
			Actions: map[string]dispatch.Action{
				"home": {Run: func(c *dispatch.Context) error {
					c.WriteString("welcome")
					return nil
				}},
			},
		}))
	})

	w := get(h, "/")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "welcome", w.Body.String())
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	// Anti-caching headers are on by default.
	assert.Contains(t, w.Header().Get("Cache-Control"), "no-store")
}

func TestDispatch_NotFound(t *testing.T) {
	h := newHarness(t, config.Security{}, func(r *dispatch.Registry) {
		require.NoError(t, r.Register(controller("home")))
	})

	w := get(h, "/unknown/path")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "404")
}

func TestDispatch_ExtraSegments(t *testing.T) {
	h := newHarness(t, config.Security{}, func(r *dispatch.Registry) {
		require.NoError(t, r.Register(&dispatch.Controller{
			Name: "home",
			Actions: map[string]dispatch.Action{
				"home": {Run: noop},
				"show": {
					AllowExtra: true,
					Schemas: map[string]filter.Schema{
						domain.SourceExtra: {"0": "integer"},
					},
					Run: func(c *dispatch.Context) error {
						assert.Equal(t, 42, c.Args.Int(domain.SourceExtra, "0"))
						return nil
					},
				},
			},
		}))
	})

	t.Run("without opt-in", func(t *testing.T) {
		w := get(h, "/home/foo")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("with opt-in, sanitized as a source", func(t *testing.T) {
		w := get(h, "/home/show/42")
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestDispatch_Sanitization(t *testing.T) {
	var got domain.Args
	h := newHarness(t, config.Security{}, func(r *dispatch.Registry) {
		require.NoError(t, r.Register(&dispatch.Controller{
			Name: "search",
			Actions: map[string]dispatch.Action{
				"search": {
					Schemas: map[string]filter.Schema{
						domain.SourceGet: {
							"q":    "string:10",
							"page": "integer",
							"sort": "enum:recent,top",
						},
					},
					Run: func(c *dispatch.Context) error {
						got = c.Args
						return nil
					},
				},
			},
		}))
	})

	q := url.Values{"q": {"<b>go routing</b>"}, "sort": {"bogus"}, "sneaky": {"x"}}
	w := get(h, "/search?"+q.Encode())
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, "go routing", got.String(domain.SourceGet, "q"))
	// Declared-but-absent fields are present with their default.
	assert.Equal(t, 0, got.Int(domain.SourceGet, "page"))
	// Enum fallback to the first option.
	assert.Equal(t, "recent", got.String(domain.SourceGet, "sort"))
	// Undeclared fields never leak.
	assert.NotContains(t, got.Source(domain.SourceGet), "sneaky")
}

func TestDispatch_PostBody(t *testing.T) {
	var name any
	h := newHarness(t, config.Security{}, func(r *dispatch.Registry) {
		require.NoError(t, r.Register(&dispatch.Controller{
			Name: "home",
			Actions: map[string]dispatch.Action{
				"home": {
					Schemas: map[string]filter.Schema{
						domain.SourcePost: {"name": "string"},
					},
					Run: func(c *dispatch.Context) error {
						name = c.Args.Value(domain.SourcePost, "name")
						return nil
					},
				},
			},
		}))
	})

	form := url.Values{"name": {"  Bob  "}}
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.dispatcher.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Bob", name)
}

func TestDispatch_InitHookRunsBeforeAction(t *testing.T) {
	var order []string
	h := newHarness(t, config.Security{}, func(r *dispatch.Registry) {
		require.NoError(t, r.Register(&dispatch.Controller{
			Name: "home",
			Init: func(c *dispatch.Context) error {
				order = append(order, "init")
				return nil
			},
			Actions: map[string]dispatch.Action{
				"home": {Run: func(c *dispatch.Context) error {
					order = append(order, "action")
					return nil
				}},
			},
		}))
	})

	get(h, "/")
	assert.Equal(t, []string{"init", "action"}, order)
}

func TestDispatch_ActionErrorIs500(t *testing.T) {
	h := newHarness(t, config.Security{}, func(r *dispatch.Registry) {
		require.NoError(t, r.Register(&dispatch.Controller{
			Name: "home",
			Actions: map[string]dispatch.Action{
				"home": {Run: func(c *dispatch.Context) error {
					return assert.AnError
				}},
			},
		}))
	})

	w := get(h, "/")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	// No development flag: no detail leaks.
	assert.NotContains(t, w.Body.String(), assert.AnError.Error())
}

func TestDispatch_DevelopmentDetail(t *testing.T) {
	h := newHarness(t, config.Security{Development: true}, func(r *dispatch.Registry) {
		require.NoError(t, r.Register(&dispatch.Controller{
			Name: "home",
			Actions: map[string]dispatch.Action{
				"home": {Run: func(c *dispatch.Context) error {
					return assert.AnError
				}},
			},
		}))
	})

	w := get(h, "/")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), assert.AnError.Error())
}

func TestDispatch_PanicRecovered(t *testing.T) {
	h := newHarness(t, config.Security{}, func(r *dispatch.Registry) {
		require.NoError(t, r.Register(&dispatch.Controller{
			Name: "home",
			Actions: map[string]dispatch.Action{
				"home": {Run: func(c *dispatch.Context) error {
					panic("boom")
				}},
			},
		}))
	})

	w := get(h, "/")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestDispatch_ActionNotFoundError(t *testing.T) {
	h := newHarness(t, config.Security{}, func(r *dispatch.Registry) {
		require.NoError(t, r.Register(&dispatch.Controller{
			Name: "home",
			Actions: map[string]dispatch.Action{
				"home": {Run: func(c *dispatch.Context) error {
					return domain.ErrRouteNotFound
				}},
			},
		}))
	})

	w := get(h, "/")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDispatch_Redirect(t *testing.T) {
	h := newHarness(t, config.Security{}, func(r *dispatch.Registry) {
		require.NoError(t, r.Register(&dispatch.Controller{
			Name: "home",
			Actions: map[string]dispatch.Action{
				"home": {Run: func(c *dispatch.Context) error {
					c.Redirect("/elsewhere", false)
					return nil
				}},
				"moved": {Run: func(c *dispatch.Context) error {
					c.Redirect("/new-home", true)
					return nil
				}},
			},
		}))
	})

	w := get(h, "/")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/elsewhere", w.Header().Get("Location"))

	w = get(h, "/home/moved")
	assert.Equal(t, http.StatusMovedPermanently, w.Code)
	assert.Equal(t, "/new-home", w.Header().Get("Location"))
}

func TestDispatch_OutputModes(t *testing.T) {
	h := newHarness(t, config.Security{FrameOptions: "SAMEORIGIN"}, func(r *dispatch.Registry) {
		require.NoError(t, r.Register(&dispatch.Controller{
			Name: "api",
			Actions: map[string]dispatch.Action{
				"api": {
					Output: domain.OutputJSON,
					Run: func(c *dispatch.Context) error {
						c.Payload = map[string]any{"ok": true}
						return nil
					},
				},
				"feed": {
					Output:    domain.OutputRSS,
					Cacheable: true,
					Run: func(c *dispatch.Context) error {
						c.WriteString("<rss/>")
						return nil
					},
				},
			},
		}))
	})

	w := get(h, "/api")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())
	assert.Equal(t, "SAMEORIGIN", w.Header().Get("X-Frame-Options"))

	w = get(h, "/api/feed")
	assert.Equal(t, "application/rss+xml; charset=utf-8", w.Header().Get("Content-Type"))
	// Cacheable output skips the anti-caching headers.
	assert.Empty(t, w.Header().Get("Cache-Control"))
}

func TestDispatch_Unauthorized(t *testing.T) {
	h := newHarness(t, config.Security{}, func(r *dispatch.Registry) {
		require.NoError(t, r.Register(&dispatch.Controller{
			Name: "admin",
			Actions: map[string]dispatch.Action{
				"admin": {Run: func(c *dispatch.Context) error {
					c.Unauthorized("treb admin")
					return nil
				}},
			},
		}))
	})

	w := get(h, "/admin")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Header().Get("WWW-Authenticate"), "treb admin")
}

func TestDispatch_SessionLifecycle(t *testing.T) {
	h := newHarness(t, config.Security{}, func(r *dispatch.Registry) {
		require.NoError(t, r.Register(&dispatch.Controller{
			Name: "account",
			Actions: map[string]dispatch.Action{
				"account": {
					Session: true,
					Run: func(c *dispatch.Context) error {
						require.NotNil(t, c.Session)
						c.Session.Values["seen"] = true
						return nil
					},
				},
			},
		}))
	})

	w := get(h, "/account")
	assert.Equal(t, http.StatusOK, w.Code)

	var sid string
	for _, ck := range w.Result().Cookies() {
		if ck.Name == "treb_sid" {
			sid = ck.Value
		}
	}
	assert.NotEmpty(t, sid, "session cookie issued")
}

func TestDispatch_SessionIntegrity(t *testing.T) {
	register := func(mode domain.OutputMode) func(*dispatch.Registry) {
		return func(r *dispatch.Registry) {
			require.NoError(t, r.Register(&dispatch.Controller{
				Name: "account",
				Actions: map[string]dispatch.Action{
					"account": {Session: true, Output: mode, Run: noop},
				},
			}))
		}
	}

	forge := func(t *testing.T, h *harness, path string) *httptest.ResponseRecorder {
		t.Helper()
		// Establish a real session, then replay its ID with a forged token.
		seed := httptest.NewRecorder()
		s, err := h.sessions.Start(context.Background(), seed, httptest.NewRequest(http.MethodGet, "/", nil))
		require.NoError(t, err)
		require.NoError(t, h.sessions.Save(context.Background(), s))

		r := httptest.NewRequest(http.MethodGet, path, nil)
		r.AddCookie(&http.Cookie{Name: "treb_sid", Value: s.ID})
		r.AddCookie(&http.Cookie{Name: "treb_tok", Value: "forged"})
		w := httptest.NewRecorder()
		h.dispatcher.ServeHTTP(w, r)
		return w
	}

	t.Run("browser clients are redirected", func(t *testing.T) {
		h := newHarness(t, config.Security{}, register(domain.OutputHTML))
		w := forge(t, h, "/account")
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/login", w.Header().Get("Location"))
	})

	t.Run("programmatic clients get 403", func(t *testing.T) {
		h := newHarness(t, config.Security{}, register(domain.OutputJSON))
		w := forge(t, h, "/account")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

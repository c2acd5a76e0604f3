/*
Package session manages request sessions backed by the shared cache.

A session is identified by an ID cookie and protected by a separate integrity
token cookie. A token mismatch forces a fresh session and surfaces
domain.ErrSessionIntegrity so the dispatch boundary can emit a 403 or a
redirect depending on the client.
*/
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/trebframework/treb/internal/config"
	"github.com/trebframework/treb/pkg/domain"
	"github.com/trebframework/treb/pkg/ports"
)

// Session is the per-request session state. Values mutated during the
// request are persisted by Manager.Save at render time.
type Session struct {
	ID     string
	Token  string
	Values map[string]any
	fresh  bool
}

// Fresh reports whether the session was created during this request.
func (s *Session) Fresh() bool {
	return s.fresh
}

type stored struct {
	Token  string         `json:"token"`
	Values map[string]any `json:"values"`
}

// Manager loads and persists sessions.
type Manager struct {
	cache ports.Cache
	cfg   config.Session
	log   *slog.Logger
}

// NewManager builds a session manager over the shared cache.
func NewManager(cache ports.Cache, cfg config.Session, log *slog.Logger) *Manager {
	return &Manager{cache: cache, cfg: cfg, log: log}
}

func (m *Manager) key(id string) string {
	return "session:" + id
}

// Start resolves the request's session. A missing or expired session yields
// a fresh one. An integrity-token mismatch also yields a fresh session, but
// additionally returns domain.ErrSessionIntegrity; the returned session is
// valid either way.
func (m *Manager) Start(ctx context.Context, w http.ResponseWriter, r *http.Request) (*Session, error) {
	sid := cookieValue(r, m.cfg.CookieName)
	token := cookieValue(r, m.cfg.TokenCookie)

	if sid == "" {
		return m.create(w), nil
	}

	data, err := m.cache.Get(ctx, m.key(sid))
	if err != nil {
		// Unknown or expired ID: start over silently.
		return m.create(w), nil
	}

	var st stored
	if err := json.Unmarshal(data, &st); err != nil {
		m.log.Warn("discarding undecodable session", "sid", sid, "err", err)
		return m.create(w), nil
	}

	if token == "" || token != st.Token {
		m.log.Warn("session token mismatch, forcing new session", "sid", sid)
		_ = m.cache.Delete(ctx, m.key(sid))
		return m.create(w), domain.ErrSessionIntegrity
	}

	return &Session{ID: sid, Token: st.Token, Values: st.Values}, nil
}

func (m *Manager) create(w http.ResponseWriter) *Session {
	s := &Session{
		ID:     uuid.NewString(),
		Token:  uuid.NewString(),
		Values: make(map[string]any),
		fresh:  true,
	}
	m.setCookie(w, m.cfg.CookieName, s.ID)
	m.setCookie(w, m.cfg.TokenCookie, s.Token)
	return s
}

func (m *Manager) setCookie(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   m.cfg.Domain,
		MaxAge:   int(m.cfg.TTL.Seconds()),
		Secure:   m.cfg.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Save persists the session to the cache with the configured TTL.
func (m *Manager) Save(ctx context.Context, s *Session) error {
	data, err := json.Marshal(stored{Token: s.Token, Values: s.Values})
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	return m.cache.Set(ctx, m.key(s.ID), data, m.cfg.TTL)
}

// Destroy removes the session from the cache and expires its cookies.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, s *Session) error {
	for _, name := range []string{m.cfg.CookieName, m.cfg.TokenCookie} {
		http.SetCookie(w, &http.Cookie{Name: name, Value: "", Path: "/", MaxAge: -1})
	}
	return m.cache.Delete(ctx, m.key(s.ID))
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

package session_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebframework/treb/internal/adapters/memory"
	"github.com/trebframework/treb/internal/config"
	"github.com/trebframework/treb/internal/logging"
	"github.com/trebframework/treb/internal/session"
	"github.com/trebframework/treb/pkg/domain"
)

func newManager() (*session.Manager, *memory.Cache) {
	cache := memory.NewCache()
	cfg := config.Session{
		CookieName:  "treb_sid",
		TokenCookie: "treb_tok",
		TTL:         time.Hour,
	}
	return session.NewManager(cache, cfg, logging.NewNop()), cache
}

func carryCookies(t *testing.T, w *httptest.ResponseRecorder, r *http.Request) {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		r.AddCookie(c)
	}
}

func TestStart_FreshSession(t *testing.T) {
	m, _ := newManager()
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	s, err := m.Start(context.Background(), w, r)
	require.NoError(t, err)
	assert.True(t, s.Fresh())
	assert.NotEmpty(t, s.ID)
	assert.NotEmpty(t, s.Token)

	cookies := w.Result().Cookies()
	names := map[string]bool{}
	for _, c := range cookies {
		names[c.Name] = true
		assert.True(t, c.HttpOnly)
	}
	assert.True(t, names["treb_sid"])
	assert.True(t, names["treb_tok"])
}

func TestStart_RoundTrip(t *testing.T) {
	m, _ := newManager()
	ctx := context.Background()

	w1 := httptest.NewRecorder()
	s1, err := m.Start(ctx, w1, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	s1.Values["user"] = "bob"
	require.NoError(t, m.Save(ctx, s1))

	r2 := httptest.NewRequest(http.MethodGet, "/", nil)
	carryCookies(t, w1, r2)

	s2, err := m.Start(ctx, httptest.NewRecorder(), r2)
	require.NoError(t, err)
	assert.False(t, s2.Fresh())
	assert.Equal(t, s1.ID, s2.ID)
	assert.Equal(t, "bob", s2.Values["user"])
}

func TestStart_TokenMismatchForcesNewSession(t *testing.T) {
	m, _ := newManager()
	ctx := context.Background()

	w1 := httptest.NewRecorder()
	s1, err := m.Start(ctx, w1, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.NoError(t, m.Save(ctx, s1))

	r2 := httptest.NewRequest(http.MethodGet, "/", nil)
	r2.AddCookie(&http.Cookie{Name: "treb_sid", Value: s1.ID})
	r2.AddCookie(&http.Cookie{Name: "treb_tok", Value: "forged"})

	w2 := httptest.NewRecorder()
	s2, err := m.Start(ctx, w2, r2)
	assert.ErrorIs(t, err, domain.ErrSessionIntegrity)
	require.NotNil(t, s2, "a fresh session is issued despite the violation")
	assert.True(t, s2.Fresh())
	assert.NotEqual(t, s1.ID, s2.ID)

	// The compromised session is gone; replaying its cookies starts clean.
	r3 := httptest.NewRequest(http.MethodGet, "/", nil)
	r3.AddCookie(&http.Cookie{Name: "treb_sid", Value: s1.ID})
	r3.AddCookie(&http.Cookie{Name: "treb_tok", Value: s1.Token})
	s3, err := m.Start(ctx, httptest.NewRecorder(), r3)
	require.NoError(t, err)
	assert.True(t, s3.Fresh())
}

func TestStart_UnknownIDSilentlyRestarts(t *testing.T) {
	m, _ := newManager()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: "treb_sid", Value: "gone"})
	r.AddCookie(&http.Cookie{Name: "treb_tok", Value: "whatever"})

	s, err := m.Start(context.Background(), httptest.NewRecorder(), r)
	require.NoError(t, err)
	assert.True(t, s.Fresh())
}

func TestDestroy(t *testing.T) {
	m, _ := newManager()
	ctx := context.Background()

	w1 := httptest.NewRecorder()
	s, err := m.Start(ctx, w1, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.NoError(t, m.Save(ctx, s))

	w2 := httptest.NewRecorder()
	require.NoError(t, m.Destroy(ctx, w2, s))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	carryCookies(t, w1, r)
	again, err := m.Start(ctx, httptest.NewRecorder(), r)
	require.NoError(t, err)
	assert.True(t, again.Fresh())
}

package domain

import "errors"

// ErrRouteNotFound is returned when no controller or action resolves for a
// request path, or when unconsumed path segments remain without opt-in.
var ErrRouteNotFound = errors.New("route not found")

// ErrSessionIntegrity is returned when a session cookie's integrity token
// does not match the stored session.
var ErrSessionIntegrity = errors.New("session integrity violation")

// ErrPersistence wraps underlying data-store failures. Callers match it with
// errors.Is; the dispatch boundary maps it to a 500 response.
var ErrPersistence = errors.New("persistence failure")

// ErrCacheMiss is returned by cache implementations when a key is absent.
var ErrCacheMiss = errors.New("cache miss")

// ErrLockNotAcquired is returned when the advisory cache lock could not be
// acquired within its fixed retry budget. It is best-effort: callers decide
// whether to proceed without the lock.
var ErrLockNotAcquired = errors.New("lock not acquired")

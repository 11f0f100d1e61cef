package authstate

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
)

// Strategy selects how the code verifier crosses the redirect boundary.
// The strategy is fixed by configuration; the gateway never branches on
// request shape.
type Strategy string

const (
	// StrategyStateless carries the verifier inside the public state
	// parameter itself. No server-side storage, horizontally scalable,
	// but the verifier is visible to anyone who can observe the redirect
	// URL. The code is still useless without intercepting it too, and the
	// provider enforces single use of the code.
	StrategyStateless Strategy = "stateless"

	// StrategySession keeps the verifier server-side in a TTL-bounded
	// store; only an opaque random handle rides in the state parameter.
	// Confidential, but requires the callback to land on a process that
	// shares the store.
	StrategySession Strategy = "session"
)

// Valid reports whether s names a known strategy.
func (s Strategy) Valid() bool {
	return s == StrategyStateless || s == StrategySession
}

// Transport issues an opaque state parameter for an authorization attempt and
// redeems it on the callback. Redeem consumes the state: in session mode a
// second redemption fails, in stateless mode replay is left to the provider's
// single-use authorization code.
type Transport interface {
	Issue(st AuthState) (string, error)
	Redeem(state string) (AuthState, error)
}

// NewTransport builds the transport for the configured strategy. ttl bounds
// the server-side lifetime of pending attempts in session mode and is ignored
// in stateless mode.
func NewTransport(strategy Strategy, ttl time.Duration) (Transport, error) {
	switch strategy {
	case StrategyStateless:
		return &StatelessTransport{}, nil
	case StrategySession:
		return NewSessionTransport(ttl), nil
	default:
		return nil, fmt.Errorf("unknown state strategy: %q", strategy)
	}
}

// StatelessTransport encodes the full state, verifier included, into the
// state parameter.
type StatelessTransport struct{}

func (t *StatelessTransport) Issue(st AuthState) (string, error) {
	return Encode(st), nil
}

func (t *StatelessTransport) Redeem(state string) (AuthState, error) {
	return Decode(state)
}

// SessionTransport stores pending states in memory keyed by a random handle,
// each entry expiring after the configured TTL. Entries are deleted on
// redemption, so a state handle is single use.
type SessionTransport struct {
	pending *cache.Cache
}

// DefaultTTL bounds how long an authorization attempt may stay pending
// before the user is forced to start over.
const DefaultTTL = 10 * time.Minute

// NewSessionTransport creates a session transport with the given TTL.
// A non-positive ttl falls back to DefaultTTL.
func NewSessionTransport(ttl time.Duration) *SessionTransport {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &SessionTransport{
		pending: cache.New(ttl, ttl),
	}
}

func (t *SessionTransport) Issue(st AuthState) (string, error) {
	handle, err := newHandle()
	if err != nil {
		return "", fmt.Errorf("failed to generate state handle: %w", err)
	}
	t.pending.SetDefault(handle, st)
	return handle, nil
}

func (t *SessionTransport) Redeem(state string) (AuthState, error) {
	v, ok := t.pending.Get(state)
	if !ok {
		return AuthState{}, ErrStateNotFound
	}
	t.pending.Delete(state)

	st, ok := v.(AuthState)
	if !ok || st.CodeVerifier == "" {
		return AuthState{}, ErrMissingVerifier
	}
	return st, nil
}

// newHandle generates a cryptographically random, unguessable state handle.
func newHandle() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

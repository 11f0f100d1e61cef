package authstate

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adres-gov/adres-gateway/pkg/errors"
	"github.com/adres-gov/adres-gateway/pkg/pkce"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	verifier, err := pkce.GenerateVerifier()
	require.NoError(t, err)

	tests := []struct {
		name      string
		returnURL string
	}{
		{"Simple path", "/dashboard"},
		{"Absolute URL", "https://app.example.com/payments?tab=pending"},
		{"Query with reserved characters", "/search?q=a b&lang=es#frag"},
		{"Empty return URL", ""},
		{"Unicode", "/perfil/María"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := AuthState{ReturnURL: tt.returnURL, CodeVerifier: verifier}
			opaque := Encode(st)

			// Must survive a URL query string untouched.
			assert.NotContains(t, opaque, "+")
			assert.NotContains(t, opaque, "/")
			assert.NotContains(t, opaque, "=")

			got, err := Decode(opaque)
			require.NoError(t, err)
			assert.Equal(t, st, got)
		})
	}
}

func TestDecodeMalformed(t *testing.T) {
	_, err := Decode("not base64!!!")
	assert.ErrorIs(t, err, ErrMalformedState)

	// Valid base64 but not JSON.
	garbage := base64.RawURLEncoding.EncodeToString([]byte("not-json"))
	_, err = Decode(garbage)
	assert.ErrorIs(t, err, ErrMalformedState)
	assert.True(t, errors.IsCode(err, errors.ErrCodeMalformedState))
}

func TestDecodeMissingVerifier(t *testing.T) {
	opaque := base64.RawURLEncoding.EncodeToString([]byte(`{"return_url":"/home"}`))
	_, err := Decode(opaque)
	assert.ErrorIs(t, err, ErrMissingVerifier)
}

func TestStatelessTransportRoundTrip(t *testing.T) {
	tr := &StatelessTransport{}
	st := AuthState{ReturnURL: "/pagos", CodeVerifier: strings.Repeat("v", 43)}

	state, err := tr.Issue(st)
	require.NoError(t, err)

	got, err := tr.Redeem(state)
	require.NoError(t, err)
	assert.Equal(t, st, got)
}

func TestSessionTransportSingleUse(t *testing.T) {
	tr := NewSessionTransport(time.Minute)
	st := AuthState{ReturnURL: "/pagos", CodeVerifier: strings.Repeat("v", 43)}

	state, err := tr.Issue(st)
	require.NoError(t, err)

	// The handle must be opaque: the verifier never appears in it.
	assert.NotContains(t, state, st.CodeVerifier)

	got, err := tr.Redeem(state)
	require.NoError(t, err)
	assert.Equal(t, st, got)

	// Second redemption must fail: state is single use.
	_, err = tr.Redeem(state)
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestSessionTransportExpiry(t *testing.T) {
	tr := NewSessionTransport(20 * time.Millisecond)
	st := AuthState{ReturnURL: "/", CodeVerifier: strings.Repeat("v", 43)}

	state, err := tr.Issue(st)
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)

	_, err = tr.Redeem(state)
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestSessionTransportHandlesAreUnique(t *testing.T) {
	tr := NewSessionTransport(time.Minute)
	st := AuthState{ReturnURL: "/", CodeVerifier: strings.Repeat("v", 43)}

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		state, err := tr.Issue(st)
		require.NoError(t, err)
		require.False(t, seen[state], "duplicate state handle")
		seen[state] = true
	}
}

func TestStrategyValid(t *testing.T) {
	assert.True(t, StrategyStateless.Valid())
	assert.True(t, StrategySession.Valid())
	assert.False(t, Strategy("cookie").Valid())
	assert.False(t, Strategy("").Valid())
}

func TestNewTransport(t *testing.T) {
	tr, err := NewTransport(StrategyStateless, 0)
	require.NoError(t, err)
	assert.IsType(t, &StatelessTransport{}, tr)

	tr, err = NewTransport(StrategySession, time.Minute)
	require.NoError(t, err)
	assert.IsType(t, &SessionTransport{}, tr)

	_, err = NewTransport("cookie", 0)
	assert.Error(t, err)
}

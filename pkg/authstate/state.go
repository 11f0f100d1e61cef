package authstate

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/adres-gov/adres-gateway/pkg/errors"
)

// AuthState is the payload carried across the authorization redirect
// round-trip: where to send the user afterwards, and the PKCE verifier the
// callback needs for the code exchange.
type AuthState struct {
	ReturnURL    string `json:"return_url"`
	CodeVerifier string `json:"code_verifier"`
}

var (
	// ErrMalformedState is returned when the opaque state is not valid
	// base64url-encoded JSON.
	ErrMalformedState = errors.New(errors.ErrCodeMalformedState, "state parameter is malformed")

	// ErrMissingVerifier is returned when the decoded state lacks the
	// code verifier field.
	ErrMissingVerifier = errors.New(errors.ErrCodeMissingVerifier, "state is missing the code verifier")

	// ErrStateNotFound is returned by the session store when a handle is
	// unknown, already consumed, or past its TTL. The caller must force
	// re-authentication.
	ErrStateNotFound = errors.New(errors.ErrCodeStateExpired, "state not found or expired")
)

// Encode packs the state into an opaque, URL-safe token: base64url of compact
// JSON, no padding. The encoding is a transparent container, not a secret:
// anyone holding the token can read the verifier. Only the stateless transport
// puts it on the wire.
func Encode(st AuthState) string {
	raw, err := json.Marshal(st)
	if err != nil {
		// AuthState has only string fields; Marshal cannot fail on it.
		panic(fmt.Sprintf("authstate: marshal: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(raw)
}

// Decode unpacks an opaque state token produced by Encode.
func Decode(opaque string) (AuthState, error) {
	raw, err := base64.RawURLEncoding.DecodeString(opaque)
	if err != nil {
		return AuthState{}, fmt.Errorf("%w: %v", ErrMalformedState, err)
	}

	var st AuthState
	if err := json.Unmarshal(raw, &st); err != nil {
		return AuthState{}, fmt.Errorf("%w: %v", ErrMalformedState, err)
	}

	if st.CodeVerifier == "" {
		return AuthState{}, ErrMissingVerifier
	}

	return st, nil
}

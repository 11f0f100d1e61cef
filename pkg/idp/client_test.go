package idp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adres-gov/adres-gateway/pkg/errors"
)

// fakeProvider is a minimal in-process IdP covering the endpoints the client
// talks to. Codes are single use, like the real provider.
type fakeProvider struct {
	t             *testing.T
	validCode     string
	validVerifier string
	consumedCodes map[string]bool
	revoked       []string
	sawSecret     bool
}

func newFakeProvider(t *testing.T) *fakeProvider {
	return &fakeProvider{
		t:             t,
		validCode:     "code-123",
		validVerifier: "verifier-abc",
		consumedCodes: map[string]bool{},
	}
}

func (p *fakeProvider) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/connect/token", p.token)
	mux.HandleFunc("/connect/revocation", p.revoke)
	mux.HandleFunc("/connect/introspect", p.introspect)
	mux.HandleFunc("/connect/userinfo", p.userinfo)
	mux.HandleFunc("/.well-known/jwks.json", p.jwks)
	return mux
}

func (p *fakeProvider) oauthError(w http.ResponseWriter, status int, code, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: code, ErrorDescription: description})
}

func (p *fakeProvider) token(w http.ResponseWriter, r *http.Request) {
	require.NoError(p.t, r.ParseForm())
	if r.PostFormValue("client_secret") != "" {
		p.sawSecret = true
	}

	switch r.PostFormValue("grant_type") {
	case "authorization_code":
		code := r.PostFormValue("code")
		if code != p.validCode || p.consumedCodes[code] {
			p.oauthError(w, http.StatusBadRequest, "invalid_grant", "authorization code is invalid or already redeemed")
			return
		}
		if r.PostFormValue("code_verifier") != p.validVerifier {
			p.oauthError(w, http.StatusBadRequest, "invalid_grant", "PKCE verification failed")
			return
		}
		p.consumedCodes[code] = true
	case "refresh_token":
		if r.PostFormValue("refresh_token") != "refresh-xyz" {
			p.oauthError(w, http.StatusBadRequest, "invalid_grant", "refresh token is invalid")
			return
		}
	case "password":
		if r.PostFormValue("password") != "s3cret" {
			p.oauthError(w, http.StatusBadRequest, "invalid_grant", "invalid credentials")
			return
		}
	default:
		p.oauthError(w, http.StatusBadRequest, "unsupported_grant_type", "unsupported grant type")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(TokenSet{
		AccessToken:  "access-token",
		TokenType:    "Bearer",
		ExpiresIn:    3600,
		RefreshToken: "refresh-xyz",
		IDToken:      "id-token",
		Scope:        "openid extended_profile",
	})
}

func (p *fakeProvider) revoke(w http.ResponseWriter, r *http.Request) {
	require.NoError(p.t, r.ParseForm())
	p.revoked = append(p.revoked, r.PostFormValue("token"))
	w.WriteHeader(http.StatusOK)
}

func (p *fakeProvider) introspect(w http.ResponseWriter, r *http.Request) {
	require.NoError(p.t, r.ParseForm())
	w.Header().Set("Content-Type", "application/json")
	if r.PostFormValue("token") != "access-token" {
		json.NewEncoder(w).Encode(Introspection{Active: false})
		return
	}
	// aud as a bare string, the form most providers emit.
	w.Write([]byte(`{
		"active": true,
		"sub": "d8213788-117a-4a1d-877b-32d47bdb2b1e",
		"preferred_username": "analista1",
		"email": "analista1@example.gov.co",
		"scope": "openid extended_profile",
		"aud": "adres-gateway"
	}`))
}

func (p *fakeProvider) userinfo(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer access-token" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(UserInfo{
		Subject:           "d8213788-117a-4a1d-877b-32d47bdb2b1e",
		PreferredUsername: "analista1",
		Email:             "analista1@example.gov.co",
	})
}

func (p *fakeProvider) jwks(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"keys":[{"kty":"RSA","kid":"test-key","n":"abc","e":"AQAB"}]}`))
}

func newTestClient(t *testing.T, serverURL string, opts ...Option) *Client {
	t.Helper()
	client, err := NewClient(Config{
		ServerURL: serverURL,
		ClientID:  "adres-gateway",
	}, opts...)
	require.NoError(t, err)
	return client
}

func TestExchangeCode(t *testing.T) {
	provider := newFakeProvider(t)
	srv := httptest.NewServer(provider.handler())
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	tokens, err := client.ExchangeCode(context.Background(), "code-123", "http://localhost/callback", "verifier-abc")
	require.NoError(t, err)
	assert.Equal(t, "access-token", tokens.AccessToken)
	assert.Equal(t, "Bearer", tokens.TokenType)
	assert.Equal(t, "refresh-xyz", tokens.RefreshToken)

	// Public client: no secret configured, none must be sent.
	assert.False(t, provider.sawSecret)
}

func TestExchangeCodeSendsSecretWhenConfigured(t *testing.T) {
	provider := newFakeProvider(t)
	srv := httptest.NewServer(provider.handler())
	defer srv.Close()

	client, err := NewClient(Config{
		ServerURL:    srv.URL,
		ClientID:     "adres-gateway",
		ClientSecret: "confidential",
	})
	require.NoError(t, err)

	_, err = client.ExchangeCode(context.Background(), "code-123", "http://localhost/callback", "verifier-abc")
	require.NoError(t, err)
	assert.True(t, provider.sawSecret)
}

func TestExchangeCodeVerifierMismatch(t *testing.T) {
	provider := newFakeProvider(t)
	srv := httptest.NewServer(provider.handler())
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	_, err := client.ExchangeCode(context.Background(), "code-123", "http://localhost/callback", "wrong-verifier")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidGrant))
}

func TestExchangeCodeSingleUse(t *testing.T) {
	provider := newFakeProvider(t)
	srv := httptest.NewServer(provider.handler())
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	_, err := client.ExchangeCode(context.Background(), "code-123", "http://localhost/callback", "verifier-abc")
	require.NoError(t, err)

	// The same code a second time is terminal, never a retry candidate.
	_, err = client.ExchangeCode(context.Background(), "code-123", "http://localhost/callback", "verifier-abc")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidGrant))
}

func TestExchangeCodeTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client, err := NewClient(Config{
		ServerURL: srv.URL,
		ClientID:  "adres-gateway",
		Timeout:   20 * time.Millisecond,
	}, WithHTTPClient(&http.Client{}))
	require.NoError(t, err)

	_, err = client.ExchangeCode(context.Background(), "code-123", "http://localhost/callback", "verifier-abc")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUpstreamTimeout))
}

func TestExchangeCodeProviderDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	_, err := client.ExchangeCode(context.Background(), "code-123", "http://localhost/callback", "verifier-abc")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUpstreamUnavailable))
}

func TestRefresh(t *testing.T) {
	provider := newFakeProvider(t)
	srv := httptest.NewServer(provider.handler())
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	tokens, err := client.Refresh(context.Background(), "refresh-xyz")
	require.NoError(t, err)
	assert.Equal(t, "access-token", tokens.AccessToken)

	_, err = client.Refresh(context.Background(), "stale-token")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidGrant))
}

func TestPasswordCredentials(t *testing.T) {
	provider := newFakeProvider(t)
	srv := httptest.NewServer(provider.handler())
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	tokens, err := client.PasswordCredentials(context.Background(), "analista1", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "access-token", tokens.AccessToken)

	_, err = client.PasswordCredentials(context.Background(), "analista1", "wrong")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidGrant))
}

func TestRevoke(t *testing.T) {
	provider := newFakeProvider(t)
	srv := httptest.NewServer(provider.handler())
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	err := client.Revoke(context.Background(), "access-token")
	require.NoError(t, err)
	assert.Equal(t, []string{"access-token"}, provider.revoked)
}

func TestRevokeUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	err := client.Revoke(context.Background(), "access-token")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUpstreamUnavailable))
}

func TestIntrospect(t *testing.T) {
	provider := newFakeProvider(t)
	srv := httptest.NewServer(provider.handler())
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	result, err := client.Introspect(context.Background(), "access-token")
	require.NoError(t, err)
	assert.True(t, result.Active)
	assert.Equal(t, "d8213788-117a-4a1d-877b-32d47bdb2b1e", result.Subject)
	assert.Equal(t, audience{"adres-gateway"}, result.Audience)

	result, err = client.Introspect(context.Background(), "unknown-token")
	require.NoError(t, err)
	assert.False(t, result.Active)
}

func TestGetUserInfo(t *testing.T) {
	provider := newFakeProvider(t)
	srv := httptest.NewServer(provider.handler())
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	info, err := client.GetUserInfo(context.Background(), "access-token")
	require.NoError(t, err)
	assert.Equal(t, "analista1", info.PreferredUsername)

	_, err = client.GetUserInfo(context.Background(), "bad-token")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeTokenInvalid))
}

func TestGetJwks(t *testing.T) {
	provider := newFakeProvider(t)
	srv := httptest.NewServer(provider.handler())
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	raw, err := client.GetJwks(context.Background())
	require.NoError(t, err)

	var doc struct {
		Keys []map[string]any `json:"keys"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Len(t, doc.Keys, 1)
	assert.Equal(t, "test-key", doc.Keys[0]["kid"])
}

func TestGetJwksEmptyKeySet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"keys":[]}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	_, err := client.GetJwks(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUpstreamUnavailable))
}

func TestAudienceUnmarshal(t *testing.T) {
	var single Introspection
	require.NoError(t, json.Unmarshal([]byte(`{"aud":"one"}`), &single))
	assert.Equal(t, audience{"one"}, single.Audience)

	var multi Introspection
	require.NoError(t, json.Unmarshal([]byte(`{"aud":["one","two"]}`), &multi))
	assert.Equal(t, audience{"one", "two"}, multi.Audience)
}

func TestConfigValidation(t *testing.T) {
	_, err := NewClient(Config{ClientID: "x"})
	assert.Error(t, err)

	_, err = NewClient(Config{ServerURL: "http://idp.example.com"})
	assert.Error(t, err)
}

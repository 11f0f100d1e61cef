package authflow

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"

	"github.com/adres-gov/adres-gateway/pkg/authstate"
	"github.com/adres-gov/adres-gateway/pkg/errors"
	"github.com/adres-gov/adres-gateway/pkg/idp"
	"github.com/adres-gov/adres-gateway/pkg/pkce"
)

// Service orchestrates the authorization code flow: it builds the outbound
// authorize redirect, carries the PKCE verifier across the redirect boundary
// via the configured state transport, and drives the code exchange.
type Service struct {
	idp       *idp.Client
	transport authstate.Transport

	// redirectURI is the gateway's own callback URL registered at the
	// provider. The same value must be sent on the authorize redirect and
	// on the code exchange or the provider rejects the grant.
	redirectURI string
}

// NewService creates the flow service.
func NewService(client *idp.Client, transport authstate.Transport, redirectURI string) *Service {
	return &Service{
		idp:         client,
		transport:   transport,
		redirectURI: redirectURI,
	}
}

// ProviderConfig exposes the provider settings for the bootstrap endpoint.
func (s *Service) ProviderConfig() idp.Config {
	return s.idp.Config()
}

// RedirectURI returns the callback URL the flow is bound to.
func (s *Service) RedirectURI() string {
	return s.redirectURI
}

// BuildAuthorizeURL starts an authorization attempt: generates a fresh PKCE
// pair, issues the state for it, and assembles the provider authorize URL.
// The verifier never appears in the URL; only the derived challenge does.
func (s *Service) BuildAuthorizeURL(returnURL string) (string, error) {
	pair, err := pkce.NewPair()
	if err != nil {
		// No entropy, no login. Fatal for this attempt.
		return "", errors.Wrap(err, errors.ErrCodeInternal, "failed to generate PKCE pair")
	}

	state, err := s.transport.Issue(authstate.AuthState{
		ReturnURL:    returnURL,
		CodeVerifier: pair.Verifier,
	})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInternal, "failed to issue authorization state")
	}

	cfg := s.idp.Config()
	query := url.Values{}
	query.Set("client_id", cfg.ClientID)
	query.Set("redirect_uri", s.redirectURI)
	query.Set("response_type", "code")
	query.Set("scope", cfg.Scope())
	query.Set("code_challenge", pair.Challenge)
	query.Set("code_challenge_method", string(pair.Method))
	query.Set("state", state)

	authorizeURL := cfg.AuthorizeURL() + "?" + query.Encode()
	slog.Info("Authorization redirect built", "client_id", cfg.ClientID, "return_url", returnURL)
	return authorizeURL, nil
}

// HandleCallback completes the flow from the provider redirect: redeems the
// state (single use), recovers the verifier, and exchanges the code. Returns
// the token set and the return URL the user should land on.
func (s *Service) HandleCallback(ctx context.Context, code, state string) (*idp.TokenSet, string, error) {
	if code == "" {
		return nil, "", errors.InvalidRequest("missing authorization code")
	}
	if state == "" {
		return nil, "", errors.InvalidRequest("missing state parameter")
	}

	st, err := s.transport.Redeem(state)
	if err != nil {
		return nil, "", err
	}

	tokens, err := s.ExchangeToken(ctx, code, st.CodeVerifier)
	if err != nil {
		return nil, "", err
	}
	return tokens, st.ReturnURL, nil
}

// ExchangeToken exchanges a code using an explicitly supplied verifier, for
// clients that held the verifier themselves instead of using the state
// transport.
func (s *Service) ExchangeToken(ctx context.Context, code, codeVerifier string) (*idp.TokenSet, error) {
	if code == "" {
		return nil, errors.InvalidRequest("missing authorization code")
	}
	if codeVerifier == "" {
		return nil, errors.InvalidRequest("missing code verifier")
	}
	return s.idp.ExchangeCode(ctx, code, s.redirectURI, codeVerifier)
}

// Refresh exchanges a refresh token for a fresh token set.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*idp.TokenSet, error) {
	if refreshToken == "" {
		return nil, errors.InvalidRequest("missing refresh token")
	}
	return s.idp.Refresh(ctx, refreshToken)
}

// Login authenticates with the legacy password grant.
//
// Deprecated: kept for clients that predate the authorization code flow.
func (s *Service) Login(ctx context.Context, username, password string) (*idp.TokenSet, error) {
	if username == "" || password == "" {
		return nil, errors.InvalidRequest("missing username or password")
	}
	return s.idp.PasswordCredentials(ctx, username, password)
}

// Revoke invalidates a token at the provider.
func (s *Service) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return errors.InvalidRequest("missing token")
	}
	return s.idp.Revoke(ctx, token)
}

// Logout revokes the presented token best-effort. Revocation failure is
// logged and swallowed so client-side session teardown always proceeds.
func (s *Service) Logout(ctx context.Context, token string) {
	if token == "" {
		return
	}
	if err := s.idp.Revoke(ctx, token); err != nil {
		slog.Warn("Token revocation failed during logout", "error", err)
	}
}

// Jwks returns the provider's key set for the passthrough endpoint.
func (s *Service) Jwks(ctx context.Context) (json.RawMessage, error) {
	return s.idp.GetJwks(ctx)
}

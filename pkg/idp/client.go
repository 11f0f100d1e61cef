package idp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/adres-gov/adres-gateway/pkg/errors"
)

// Client performs the outbound OAuth2/OIDC calls against the external
// identity provider: code exchange, refresh, the legacy password grant,
// revocation, introspection, userinfo and the JWKS passthrough.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option is a function that configures a Client
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for provider calls
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a provider client from the given configuration.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Config returns the provider configuration the client was built with.
func (c *Client) Config() Config {
	return c.cfg
}

// ExchangeCode redeems an authorization code for a token set, proving
// possession of the PKCE verifier. A code is redeemable exactly once; the
// provider rejects a second attempt with invalid_grant, which callers must
// treat as terminal, never retried.
func (c *Client) ExchangeCode(ctx context.Context, code, redirectURI, codeVerifier string) (*TokenSet, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", redirectURI)
	form.Set("client_id", c.cfg.ClientID)
	form.Set("code_verifier", codeVerifier)
	c.addClientSecret(form)

	tokens, err := c.postGrant(ctx, form)
	if err != nil {
		return nil, err
	}

	slog.Info("Authorization code exchanged", "token_type", tokens.TokenType, "expires_in", tokens.ExpiresIn)
	return tokens, nil
}

// Refresh redeems a refresh token for a fresh token set.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenSet, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", c.cfg.ClientID)
	c.addClientSecret(form)

	tokens, err := c.postGrant(ctx, form)
	if err != nil {
		return nil, err
	}

	slog.Info("Token refreshed", "token_type", tokens.TokenType, "expires_in", tokens.ExpiresIn)
	return tokens, nil
}

// PasswordCredentials authenticates with the resource-owner password grant.
//
// Deprecated: kept only for clients that predate the authorization code flow.
// New integrations must use ExchangeCode.
func (c *Client) PasswordCredentials(ctx context.Context, username, password string) (*TokenSet, error) {
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", username)
	form.Set("password", password)
	form.Set("client_id", c.cfg.ClientID)
	form.Set("scope", c.cfg.Scope())
	c.addClientSecret(form)

	tokens, err := c.postGrant(ctx, form)
	if err != nil {
		return nil, err
	}

	slog.Info("Password grant succeeded", "username", username)
	return tokens, nil
}

// Revoke invalidates a token at the provider. Best effort: callers on a
// logout path log the error and proceed rather than failing the logout.
func (c *Client) Revoke(ctx context.Context, token string) error {
	form := url.Values{}
	form.Set("token", token)
	form.Set("client_id", c.cfg.ClientID)
	c.addClientSecret(form)

	resp, err := c.postForm(ctx, c.cfg.RevokeURL(), form)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return errors.Newf(errors.ErrCodeUpstreamUnavailable,
			"revocation endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// Introspect asks the provider whether a token is active and for its claims
// (RFC 7662).
func (c *Client) Introspect(ctx context.Context, token string) (*Introspection, error) {
	form := url.Values{}
	form.Set("token", token)
	form.Set("client_id", c.cfg.ClientID)
	c.addClientSecret(form)

	resp, err := c.postForm(ctx, c.cfg.IntrospectURL(), form)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeUpstreamUnavailable, "failed to read introspection response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf(errors.ErrCodeUpstreamUnavailable,
			"introspection endpoint returned status %d", resp.StatusCode)
	}

	var result Introspection
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeUpstreamUnavailable, "failed to parse introspection response")
	}
	return &result, nil
}

// GetUserInfo retrieves the OIDC userinfo claims for an access token.
func (c *Client) GetUserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.UserInfoURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeUpstreamUnavailable, "failed to read userinfo response")
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, errors.New(errors.ErrCodeTokenInvalid, "userinfo endpoint rejected the access token")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf(errors.ErrCodeUpstreamUnavailable,
			"userinfo endpoint returned status %d", resp.StatusCode)
	}

	var info UserInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeUpstreamUnavailable, "failed to parse userinfo response")
	}
	return &info, nil
}

// GetJwks fetches the provider's published key set, unparsed. Served through
// the gateway so frontends never talk to the provider directly.
func (c *Client) GetJwks(ctx context.Context) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.JwksURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWKS request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeUpstreamUnavailable, "failed to read JWKS response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf(errors.ErrCodeUpstreamUnavailable,
			"JWKS endpoint returned status %d", resp.StatusCode)
	}

	var probe struct {
		Keys []json.RawMessage `json:"keys"`
	}
	if err := json.Unmarshal(body, &probe); err != nil || len(probe.Keys) == 0 {
		return nil, errors.New(errors.ErrCodeUpstreamUnavailable, "JWKS response contains no keys")
	}

	return json.RawMessage(body), nil
}

// addClientSecret includes the client secret only when one is configured;
// public clients authenticate with PKCE alone.
func (c *Client) addClientSecret(form url.Values) {
	if c.cfg.ClientSecret != "" {
		form.Set("client_secret", c.cfg.ClientSecret)
	}
}

// postGrant posts a grant request to the token endpoint and maps the
// provider's verdict into the gateway error taxonomy.
func (c *Client) postGrant(ctx context.Context, form url.Values) (*TokenSet, error) {
	resp, err := c.postForm(ctx, c.cfg.TokenURL(), form)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeUpstreamUnavailable, "failed to read token response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, grantError(resp.StatusCode, body)
	}

	var tokens TokenSet
	if err := json.Unmarshal(body, &tokens); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeUpstreamUnavailable, "failed to parse token response")
	}
	if tokens.AccessToken == "" {
		return nil, errors.New(errors.ErrCodeUpstreamUnavailable, "token response is missing access_token")
	}
	return &tokens, nil
}

// postForm sends a form-encoded POST with the configured timeout applied.
func (c *Client) postForm(ctx context.Context, endpoint string, form url.Values) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	return resp, nil
}

// grantError maps a non-200 token endpoint response onto the error taxonomy.
// invalid_grant is surfaced distinctly so callers can tell "log in again"
// apart from "the provider is down".
func grantError(status int, body []byte) error {
	var oauthErr ErrorResponse
	if err := json.Unmarshal(body, &oauthErr); err == nil && oauthErr.Error != "" {
		description := oauthErr.ErrorDescription
		if description == "" {
			description = oauthErr.Error
		}
		switch oauthErr.Error {
		case "invalid_grant":
			return errors.InvalidGrant(description)
		case "invalid_request", "invalid_scope", "unsupported_grant_type":
			return errors.New(errors.ErrCodeInvalidRequest, description)
		case "invalid_client", "unauthorized_client":
			return errors.New(errors.ErrCodeInvalidGrant, description)
		}
	}

	if status >= http.StatusInternalServerError {
		return errors.Newf(errors.ErrCodeUpstreamUnavailable,
			"token endpoint returned status %d", status)
	}
	return errors.Newf(errors.ErrCodeInvalidGrant,
		"token endpoint rejected the request with status %d", status)
}

// transportError distinguishes a timed-out provider call from other
// transport failures.
func transportError(ctx context.Context, err error) error {
	if ctx.Err() == context.DeadlineExceeded {
		return errors.Wrap(err, errors.ErrCodeUpstreamTimeout, "identity provider call timed out")
	}
	return errors.Wrap(err, errors.ErrCodeUpstreamUnavailable, "identity provider unreachable")
}

// audience accepts both the string and array forms of the aud claim.
type audience []string

func (a *audience) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = audience{s}
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		return err
	}
	*a = audience(list)
	return nil
}

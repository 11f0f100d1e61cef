package idp

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config describes the external identity provider the gateway fronts.
// Endpoint fields are paths resolved against ServerURL, matching how the
// provider publishes them.
type Config struct {
	ServerURL string

	ClientID string
	// ClientSecret is optional. Empty means a public client authenticating
	// with PKCE alone; the secret is only sent when configured.
	ClientSecret string

	Scopes []string

	AuthorizeEndpoint  string
	TokenEndpoint      string
	RevokeEndpoint     string
	IntrospectEndpoint string
	UserInfoEndpoint   string
	JwksEndpoint       string

	// Timeout bounds every outbound call to the provider.
	Timeout time.Duration
}

// Endpoint path defaults, matching the provider's published OIDC layout.
const (
	DefaultAuthorizeEndpoint  = "/connect/authorize"
	DefaultTokenEndpoint      = "/connect/token"
	DefaultRevokeEndpoint     = "/connect/revocation"
	DefaultIntrospectEndpoint = "/connect/introspect"
	DefaultUserInfoEndpoint   = "/connect/userinfo"
	DefaultJwksEndpoint       = "/.well-known/jwks.json"

	DefaultTimeout = 10 * time.Second
)

// withDefaults returns a copy of the config with unset fields filled in.
func (c Config) withDefaults() Config {
	if c.AuthorizeEndpoint == "" {
		c.AuthorizeEndpoint = DefaultAuthorizeEndpoint
	}
	if c.TokenEndpoint == "" {
		c.TokenEndpoint = DefaultTokenEndpoint
	}
	if c.RevokeEndpoint == "" {
		c.RevokeEndpoint = DefaultRevokeEndpoint
	}
	if c.IntrospectEndpoint == "" {
		c.IntrospectEndpoint = DefaultIntrospectEndpoint
	}
	if c.UserInfoEndpoint == "" {
		c.UserInfoEndpoint = DefaultUserInfoEndpoint
	}
	if c.JwksEndpoint == "" {
		c.JwksEndpoint = DefaultJwksEndpoint
	}
	if len(c.Scopes) == 0 {
		c.Scopes = []string{"openid", "extended_profile"}
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// Validate checks the provider configuration
func (c Config) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("provider server URL is required")
	}
	if _, err := url.Parse(c.ServerURL); err != nil {
		return fmt.Errorf("invalid provider server URL: %w", err)
	}
	if c.ClientID == "" {
		return fmt.Errorf("client ID is required")
	}
	return nil
}

// IsPublicClient reports whether the gateway acts as a public client,
// relying on PKCE alone instead of a client secret.
func (c Config) IsPublicClient() bool {
	return c.ClientSecret == ""
}

// Scope returns the space-joined scope string for grant requests.
func (c Config) Scope() string {
	return strings.Join(c.Scopes, " ")
}

// endpoint resolves an endpoint path against the provider base URL.
func (c Config) endpoint(path string) string {
	return strings.TrimRight(c.ServerURL, "/") + path
}

// AuthorizeURL returns the absolute authorization endpoint URL.
func (c Config) AuthorizeURL() string { return c.endpoint(c.AuthorizeEndpoint) }

// TokenURL returns the absolute token endpoint URL.
func (c Config) TokenURL() string { return c.endpoint(c.TokenEndpoint) }

// RevokeURL returns the absolute revocation endpoint URL.
func (c Config) RevokeURL() string { return c.endpoint(c.RevokeEndpoint) }

// IntrospectURL returns the absolute introspection endpoint URL.
func (c Config) IntrospectURL() string { return c.endpoint(c.IntrospectEndpoint) }

// UserInfoURL returns the absolute userinfo endpoint URL.
func (c Config) UserInfoURL() string { return c.endpoint(c.UserInfoEndpoint) }

// JwksURL returns the absolute JWKS endpoint URL.
func (c Config) JwksURL() string { return c.endpoint(c.JwksEndpoint) }

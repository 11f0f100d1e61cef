package idp

// TokenSet represents the OAuth2 token response issued by the provider.
// Immutable once issued; the access token is only valid for ExpiresIn seconds.
type TokenSet struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// ErrorResponse is the OAuth2 error body returned by the provider.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	ErrorURI         string `json:"error_uri,omitempty"`
}

// Introspection is the RFC 7662 introspection response. Claims beyond the
// registered set are kept raw for the enrichment pipeline.
type Introspection struct {
	Active            bool     `json:"active"`
	Subject           string   `json:"sub,omitempty"`
	PreferredUsername string   `json:"preferred_username,omitempty"`
	Email             string   `json:"email,omitempty"`
	Name              string   `json:"name,omitempty"`
	Scope             string   `json:"scope,omitempty"`
	ClientID          string   `json:"client_id,omitempty"`
	TokenType         string   `json:"token_type,omitempty"`
	IssuedAt          int64    `json:"iat,omitempty"`
	ExpiresAt         int64    `json:"exp,omitempty"`
	Issuer            string   `json:"iss,omitempty"`
	Audience          audience `json:"aud,omitempty"`
}

// UserInfo is the OIDC userinfo response from the provider.
type UserInfo struct {
	Subject           string `json:"sub"`
	PreferredUsername string `json:"preferred_username,omitempty"`
	Email             string `json:"email,omitempty"`
	EmailVerified     bool   `json:"email_verified,omitempty"`
	Name              string `json:"name,omitempty"`
	GivenName         string `json:"given_name,omitempty"`
	FamilyName        string `json:"family_name,omitempty"`
}

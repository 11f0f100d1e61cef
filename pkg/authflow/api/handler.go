package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/adres-gov/adres-gateway/pkg/authflow"
	"github.com/adres-gov/adres-gateway/pkg/claims"
	"github.com/adres-gov/adres-gateway/pkg/errors"
	"github.com/adres-gov/adres-gateway/pkg/idp"
)

// Handler handles the public authentication endpoints.
type Handler struct {
	flow *authflow.Service
}

// NewHandler creates the auth flow handler.
func NewHandler(flow *authflow.Service) *Handler {
	return &Handler{flow: flow}
}

// RegisterRoutes registers the authentication routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/authorize", h.Authorize)
	r.Get("/callback", h.Callback)
	r.Post("/token", h.Token)
	r.Post("/login", h.Login)
	r.Post("/refresh", h.Refresh)
	r.Post("/revoke", h.Revoke)
	r.Post("/logout", h.Logout)
	r.Get("/jwks", h.Jwks)
	r.Get("/config", h.Config)
}

// Authorize starts the authorization code flow: 302 to the provider's
// authorize endpoint with the PKCE challenge and state attached.
func (h *Handler) Authorize(w http.ResponseWriter, r *http.Request) {
	returnURL := r.URL.Query().Get("return_url")
	if returnURL == "" {
		// Older frontends send camelCase.
		returnURL = r.URL.Query().Get("returnUrl")
	}

	authorizeURL, err := h.flow.BuildAuthorizeURL(returnURL)
	if err != nil {
		errors.RenderHTTP(w, r, err)
		return
	}

	http.Redirect(w, r, authorizeURL, http.StatusFound)
}

// tokenResponse is the JSON body for every endpoint that yields tokens,
// shaped like the OAuth2 token response. ReturnURL tells the frontend where
// the user wanted to go before authentication interrupted them.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
	ReturnURL    string `json:"return_url,omitempty"`
}

// Callback completes the flow when the provider redirects back with a code.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	// The provider reports user-denied consent and its own failures here.
	if oauthErr := query.Get("error"); oauthErr != "" {
		errors.RenderHTTP(w, r, errors.InvalidGrant(query.Get("error_description")))
		return
	}

	tokens, returnURL, err := h.flow.HandleCallback(r.Context(), query.Get("code"), query.Get("state"))
	if err != nil {
		errors.RenderHTTP(w, r, err)
		return
	}

	render.JSON(w, r, tokenResponse{
		AccessToken:  tokens.AccessToken,
		TokenType:    tokens.TokenType,
		ExpiresIn:    tokens.ExpiresIn,
		RefreshToken: tokens.RefreshToken,
		IDToken:      tokens.IDToken,
		Scope:        tokens.Scope,
		ReturnURL:    returnURL,
	})
}

type tokenRequest struct {
	Code         string `json:"code"`
	State        string `json:"state,omitempty"`
	CodeVerifier string `json:"code_verifier,omitempty"`
}

// Token exchanges a code submitted by the frontend. The request carries
// either the state (transport-managed verifier) or the verifier itself.
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		errors.RenderHTTP(w, r, errors.InvalidRequest("invalid request body"))
		return
	}

	var tokens *idp.TokenSet
	var returnURL string
	var err error

	if req.CodeVerifier != "" {
		tokens, err = h.flow.ExchangeToken(r.Context(), req.Code, req.CodeVerifier)
	} else {
		tokens, returnURL, err = h.flow.HandleCallback(r.Context(), req.Code, req.State)
	}
	if err != nil {
		errors.RenderHTTP(w, r, err)
		return
	}

	render.JSON(w, r, tokenResponse{
		AccessToken:  tokens.AccessToken,
		TokenType:    tokens.TokenType,
		ExpiresIn:    tokens.ExpiresIn,
		RefreshToken: tokens.RefreshToken,
		IDToken:      tokens.IDToken,
		Scope:        tokens.Scope,
		ReturnURL:    returnURL,
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login handles the legacy password grant.
//
// Deprecated: new frontends use the authorization code flow.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		errors.RenderHTTP(w, r, errors.InvalidRequest("invalid request body"))
		return
	}

	tokens, err := h.flow.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		errors.RenderHTTP(w, r, err)
		return
	}

	render.JSON(w, r, tokenResponse{
		AccessToken:  tokens.AccessToken,
		TokenType:    tokens.TokenType,
		ExpiresIn:    tokens.ExpiresIn,
		RefreshToken: tokens.RefreshToken,
		IDToken:      tokens.IDToken,
		Scope:        tokens.Scope,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh exchanges a refresh token for a fresh token set.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		errors.RenderHTTP(w, r, errors.InvalidRequest("invalid request body"))
		return
	}

	tokens, err := h.flow.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		errors.RenderHTTP(w, r, err)
		return
	}

	render.JSON(w, r, tokenResponse{
		AccessToken:  tokens.AccessToken,
		TokenType:    tokens.TokenType,
		ExpiresIn:    tokens.ExpiresIn,
		RefreshToken: tokens.RefreshToken,
		IDToken:      tokens.IDToken,
		Scope:        tokens.Scope,
	})
}

type revokeRequest struct {
	Token string `json:"token"`
}

// Revoke invalidates a token at the provider.
func (h *Handler) Revoke(w http.ResponseWriter, r *http.Request) {
	var req revokeRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		errors.RenderHTTP(w, r, errors.InvalidRequest("invalid request body"))
		return
	}

	if err := h.flow.Revoke(r.Context(), req.Token); err != nil {
		errors.RenderHTTP(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// Logout revokes the presented bearer token best-effort and always succeeds
// so the client can tear down its session regardless of provider health.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token := claims.TokenFromHeader(r)
	if token == "" {
		token = claims.TokenFromCookie(r)
	}

	h.flow.Logout(r.Context(), token)
	render.NoContent(w, r)
}

// Jwks serves the provider's key set so frontends never talk to the
// provider directly.
func (h *Handler) Jwks(w http.ResponseWriter, r *http.Request) {
	keys, err := h.flow.Jwks(r.Context())
	if err != nil {
		errors.RenderHTTP(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(keys)
}

type configResponse struct {
	AuthorizeEndpoint string `json:"authorize_endpoint"`
	ClientID          string `json:"client_id"`
	RedirectURI       string `json:"redirect_uri"`
	Scope             string `json:"scope"`
}

// Config serves the frontend bootstrap settings. No secrets here, only what
// a public client needs to start the flow.
func (h *Handler) Config(w http.ResponseWriter, r *http.Request) {
	cfg := h.flow.ProviderConfig()
	render.JSON(w, r, configResponse{
		AuthorizeEndpoint: cfg.AuthorizeURL(),
		ClientID:          cfg.ClientID,
		RedirectURI:       h.flow.RedirectURI(),
		Scope:             cfg.Scope(),
	})
}

package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/jinzhu/copier"

	"github.com/adres-gov/adres-gateway/pkg/authz"
	"github.com/adres-gov/adres-gateway/pkg/claims"
	"github.com/adres-gov/adres-gateway/pkg/errors"
)

// Handler serves the authenticated profile endpoints. The claims middleware
// must wrap these routes; every request here carries an enriched principal.
type Handler struct {
	policies *authz.Registry
}

// NewHandler creates the profile handler.
func NewHandler(policies *authz.Registry) *Handler {
	return &Handler{policies: policies}
}

// RegisterRoutes registers the protected profile routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/me", h.Me)
	r.With(h.policies.Require("RequiresLegalRepresentative")).
		Get("/secure/solo-rl", h.SoloRepresentanteLegal)
}

// meResponse is the profile projection returned by /me.
type meResponse struct {
	Subject               string   `json:"subject"`
	PreferredUsername     string   `json:"preferred_username,omitempty"`
	Email                 string   `json:"email,omitempty"`
	FullName              string   `json:"full_name,omitempty"`
	InDirectory           bool     `json:"in_directory"`
	Roles                 []string `json:"roles"`
	Permissions           []string `json:"permissions"`
	IsLegalRepresentative bool     `json:"is_legal_representative"`
}

// Me returns the enriched principal for the presented token.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := claims.FromContext(r.Context())
	if !ok {
		errors.RenderHTTP(w, r, errors.New(errors.ErrCodeTokenInvalid, "missing authenticated principal"))
		return
	}

	var resp meResponse
	if err := copier.Copy(&resp, principal); err != nil {
		slog.Error("Failed to project principal", "error", err)
		errors.RenderHTTP(w, r, errors.Internal("failed to build profile response"))
		return
	}
	if resp.Roles == nil {
		resp.Roles = []string{}
	}
	if resp.Permissions == nil {
		resp.Permissions = []string{}
	}

	render.JSON(w, r, resp)
}

type soloRLResponse struct {
	Message string `json:"message"`
	Subject string `json:"subject"`
}

// SoloRepresentanteLegal is the policy-gated resource: the Require
// middleware has already allowed this request through.
func (h *Handler) SoloRepresentanteLegal(w http.ResponseWriter, r *http.Request) {
	principal, _ := claims.FromContext(r.Context())

	resp := soloRLResponse{Message: "Acceso concedido: representante legal verificado"}
	if principal != nil {
		resp.Subject = principal.Subject
	}
	render.JSON(w, r, resp)
}

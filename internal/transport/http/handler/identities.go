package handler

import (
	"context"
	"net/http"

	"github.com/go-otp-auth/internal/domain"
	"github.com/go-otp-auth/internal/transport/http/middleware"
)

// IdentityReader is the minimal read access the identity endpoints need.
type IdentityReader interface {
	Get(ctx context.Context, identityID string) (*domain.Identity, error)
}

// IdentityHandler serves the authenticated identity endpoints.
type IdentityHandler struct {
	repo IdentityReader
}

func NewIdentityHandler(repo IdentityReader) *IdentityHandler {
	return &IdentityHandler{repo: repo}
}

// Me returns the identity record of the bearer's subject.
func (h *IdentityHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	ident, err := h.repo.Get(r.Context(), claims.ID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ident)
}

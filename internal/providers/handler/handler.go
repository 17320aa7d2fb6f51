// Package handler exposes the provider directory lookup over HTTP for
// support tooling. The same resolution path the correlation engine uses.
package handler

import (
	"net/http"

	"pedidos_backend/internal/providers/repository"
	"pedidos_backend/internal/providers/service"
	"pedidos_backend/internal/providers/transport"
	"pedidos_backend/platform/httpkit"
	"pedidos_backend/platform/phone"
	"pedidos_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// Handler handles provider directory HTTP requests.
type Handler struct {
	service *service.Service
	val     *validator.Validator
}

// New creates a new providers handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{service: svc, val: val}
}

// Lookup resolves a provider by phone number, scoped to the caller.
// GET /api/v1/providers/lookup?phone=...
func (h *Handler) Lookup(c *gin.Context) {
	var req transport.LookupRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid query", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation error", err.Error())
		return
	}

	normalized, err := phone.Normalize(req.Phone)
	if httpkit.HandleError(c, err) {
		return
	}

	userID, ok := httpkit.UserID(c)
	if !ok {
		httpkit.Error(c, http.StatusUnauthorized, "missing identity", nil)
		return
	}

	provider, err := h.service.FindByPhone(c.Request.Context(), &userID, normalized)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, toResponse(provider))
}

func toResponse(p repository.Provider) transport.ProviderResponse {
	return transport.ProviderResponse{
		ID:             p.ID,
		UserID:         p.UserID,
		DisplayName:    p.DisplayName,
		PhoneCanonical: p.PhoneCanonical,
		PaymentTerms:   p.PaymentTerms,
	}
}

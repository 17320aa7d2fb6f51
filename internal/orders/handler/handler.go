// Package handler exposes pending-order operations over HTTP: sending the
// order notification, listing outstanding orders, cancelling, and reading
// the notification audit trail.
package handler

import (
	"net/http"

	"pedidos_backend/internal/orders/repository"
	"pedidos_backend/internal/orders/service"
	"pedidos_backend/internal/orders/transport"
	"pedidos_backend/platform/httpkit"
	"pedidos_backend/platform/phone"
	"pedidos_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler handles pending order HTTP requests.
type Handler struct {
	service *service.Service
	val     *validator.Validator
}

// New creates a new orders handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{service: svc, val: val}
}

// Notify sends an order message to a provider and registers the pending order.
// POST /api/v1/orders/notify
func (h *Handler) Notify(c *gin.Context) {
	var req transport.NotifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation error", err.Error())
		return
	}

	userID, ok := httpkit.UserID(c)
	if !ok {
		httpkit.Error(c, http.StatusUnauthorized, "missing identity", nil)
		return
	}
	providerID, err := uuid.Parse(req.ProviderID)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid provider id", nil)
		return
	}

	result, err := h.service.Notify(c.Request.Context(), userID, providerID, service.NotifyRequest{
		OrderID: req.OrderID,
		Summary: req.Summary,
		Payload: req.Payload,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, transport.NotifyResponse{
		PendingOrderID:   result.PendingOrderID,
		Channel:          string(result.Channel),
		RequiresFollowUp: result.RequiresFollowUp,
	})
}

// List returns the caller's pending orders.
// GET /api/v1/orders/pending
func (h *Handler) List(c *gin.Context) {
	var q transport.ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid query", nil)
		return
	}
	if err := h.val.Struct(q); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation error", err.Error())
		return
	}

	userID, ok := httpkit.UserID(c)
	if !ok {
		httpkit.Error(c, http.StatusUnauthorized, "missing identity", nil)
		return
	}

	params := repository.ListParams{
		UserID: userID,
		Status: repository.Status(q.Status),
		Limit:  q.Limit,
	}
	if q.Phone != "" {
		normalized, err := phone.Normalize(q.Phone)
		if httpkit.HandleError(c, err) {
			return
		}
		params.MatchKey = normalized.MatchKey
	}

	orders, err := h.service.ListPending(c.Request.Context(), params)
	if httpkit.HandleError(c, err) {
		return
	}

	out := make([]transport.PendingOrderResponse, 0, len(orders))
	for _, po := range orders {
		out = append(out, toOrderResponse(po))
	}
	httpkit.OK(c, out)
}

// Cancel performs an explicit operator cancel of an awaiting order.
// POST /api/v1/orders/pending/:id/cancel
func (h *Handler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid pending order id", nil)
		return
	}

	var req transport.CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation error", err.Error())
		return
	}

	userID, ok := httpkit.UserID(c)
	if !ok {
		httpkit.Error(c, http.StatusUnauthorized, "missing identity", nil)
		return
	}

	if err := h.service.Cancel(c.Request.Context(), userID, id, req.Reason); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"status": "cancelled"})
}

// Attempts returns the notification audit trail for an order id.
// GET /api/v1/orders/:orderId/attempts
func (h *Handler) Attempts(c *gin.Context) {
	orderID := c.Param("orderId")
	if orderID == "" {
		httpkit.Error(c, http.StatusBadRequest, "missing order id", nil)
		return
	}

	attempts, err := h.service.Attempts(c.Request.Context(), orderID)
	if httpkit.HandleError(c, err) {
		return
	}

	out := make([]transport.AttemptResponse, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, transport.AttemptResponse{
			ID:             a.ID,
			OrderID:        a.OrderID,
			PendingOrderID: a.PendingOrderID,
			Channel:        string(a.Channel),
			Outcome:        string(a.Outcome),
			ReasonCode:     a.ReasonCode,
			CreatedAt:      a.CreatedAt,
		})
	}
	httpkit.OK(c, out)
}

func toOrderResponse(po repository.PendingOrder) transport.PendingOrderResponse {
	return transport.PendingOrderResponse{
		ID:               po.ID,
		OrderID:          po.OrderID,
		ProviderID:       po.ProviderID,
		PhoneCanonical:   po.PhoneCanonical,
		Status:           string(po.Status),
		RequiresFollowUp: po.RequiresFollowUp,
		Payload:          po.Payload,
		CreatedAt:        po.CreatedAt,
		UpdatedAt:        po.UpdatedAt,
	}
}

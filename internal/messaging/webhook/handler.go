package webhook

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"pedidos_backend/internal/messaging/ingest"
	"pedidos_backend/platform/apperr"
	"pedidos_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// inboundPayload is the BSP delivery callback wire format.
type inboundPayload struct {
	Messages []inboundMessage `json:"messages" binding:"required"`
}

type inboundMessage struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Timestamp string `json:"timestamp"` // unix seconds, decimal string
	Type      string `json:"type"`
	Text      struct {
		Body string `json:"body"`
	} `json:"text"`
}

// deliveryResponse acknowledges a callback batch.
type deliveryResponse struct {
	Accepted   int `json:"accepted"`
	Duplicates int `json:"duplicates"`
	Rejected   int `json:"rejected"`
}

// Ingestor is the single entry point all delivery paths feed.
// Satisfied by the ingest service.
type Ingestor interface {
	Ingest(ctx context.Context, ev ingest.RawInboundEvent) (ingest.IngestResult, error)
}

// Handler handles BSP webhook HTTP requests.
type Handler struct {
	ingestor Ingestor
	log      *logger.Logger
}

// NewHandler creates a new webhook handler.
func NewHandler(ingestor Ingestor, log *logger.Logger) *Handler {
	return &Handler{ingestor: ingestor, log: log}
}

// HandleInbound processes a batch of inbound message callbacks.
// POST /api/v1/webhook/messages
// Authenticated via X-Webhook-API-Key header (set by middleware).
//
// Duplicates are acknowledged with 200: the BSP retries anything else, and
// a redelivered batch is the normal case, not an error.
func (h *Handler) HandleInbound(c *gin.Context) {
	var payload inboundPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if len(payload.Messages) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "payload contains no messages"})
		return
	}

	var resp deliveryResponse
	for _, m := range payload.Messages {
		result, err := h.ingestor.Ingest(c.Request.Context(), toEvent(m))
		switch {
		case err == nil && result.Accepted:
			resp.Accepted++
		case err == nil:
			resp.Duplicates++
		case apperr.Is(err, apperr.KindBadRequest):
			resp.Rejected++
			if h.log != nil {
				h.log.Warn("rejected malformed webhook message", "message_id", m.ID, "error", err)
			}
		default:
			// Storage failure: let the BSP redeliver the whole batch.
			// Dedup absorbs the messages already accepted.
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ingestion failed"})
			return
		}
	}

	if resp.Rejected == len(payload.Messages) {
		c.JSON(http.StatusBadRequest, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// toEvent parses one wire message into a domain event.
func toEvent(m inboundMessage) ingest.RawInboundEvent {
	ev := ingest.RawInboundEvent{
		ProviderMessageID: m.ID,
		SenderPhone:       m.From,
		Body:              m.Text.Body,
		DeliveryPath:      ingest.PathWebhook,
	}
	if secs, err := strconv.ParseInt(m.Timestamp, 10, 64); err == nil && secs > 0 {
		ev.ReceivedAt = time.Unix(secs, 0)
	}
	return ev
}

package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pedidos_backend/internal/messaging/ingest"
	"pedidos_backend/platform/apperr"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type fakeIngestor struct {
	seen map[string]bool
}

func newFakeIngestor() *fakeIngestor {
	return &fakeIngestor{seen: make(map[string]bool)}
}

func (f *fakeIngestor) Ingest(_ context.Context, ev ingest.RawInboundEvent) (ingest.IngestResult, error) {
	if strings.TrimSpace(ev.ProviderMessageID) == "" || strings.TrimSpace(ev.SenderPhone) == "" {
		return ingest.IngestResult{}, apperr.BadRequest("malformed event")
	}
	if f.seen[ev.ProviderMessageID] {
		return ingest.IngestResult{Accepted: false}, nil
	}
	f.seen[ev.ProviderMessageID] = true
	return ingest.IngestResult{Accepted: true, MessageID: uuid.New()}, nil
}

func newTestRouter(ingestor Ingestor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/webhook/messages", NewHandler(ingestor, nil).HandleInbound)
	return r
}

func postJSON(t *testing.T, r *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook/messages", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

const batch = `{"messages":[
	{"id":"wamid.1","from":"+5491135562673","timestamp":"1756723200","type":"text","text":{"body":"sí, confirmo"}}
]}`

func TestHandleInboundAccepts(t *testing.T) {
	r := newTestRouter(newFakeIngestor())

	w := postJSON(t, r, batch)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp deliveryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Accepted != 1 || resp.Duplicates != 0 || resp.Rejected != 0 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestHandleInboundRedeliveryIsOK(t *testing.T) {
	ingestor := newFakeIngestor()
	r := newTestRouter(ingestor)

	postJSON(t, r, batch)
	w := postJSON(t, r, batch)
	if w.Code != http.StatusOK {
		t.Fatalf("redelivery status = %d, want 200", w.Code)
	}

	var resp deliveryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Accepted != 0 || resp.Duplicates != 1 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestHandleInboundMalformed(t *testing.T) {
	r := newTestRouter(newFakeIngestor())

	cases := []struct {
		name string
		body string
	}{
		{"invalid json", `{"messages":`},
		{"empty batch", `{"messages":[]}`},
		{"missing identity", `{"messages":[{"from":"","text":{"body":"hola"}}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if w := postJSON(t, r, tc.body); w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
		})
	}
}

type staticKeys struct {
	hash string
}

func (s staticKeys) GetByHash(_ context.Context, keyHash string) (APIKey, error) {
	if keyHash != s.hash {
		return APIKey{}, apperr.Unauthorized("webhook api key not found")
	}
	return APIKey{ID: uuid.New(), IsActive: true}, nil
}

func TestAPIKeyAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	const plaintext = "whk_test_key"

	r := gin.New()
	r.POST("/hook", APIKeyAuthMiddleware(staticKeys{hash: HashKey(plaintext)}), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	send := func(key string) int {
		req := httptest.NewRequest(http.MethodPost, "/hook", nil)
		if key != "" {
			req.Header.Set("X-Webhook-API-Key", key)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	if code := send(plaintext); code != http.StatusNoContent {
		t.Errorf("valid key status = %d, want 204", code)
	}
	if code := send("whk_wrong"); code != http.StatusUnauthorized {
		t.Errorf("wrong key status = %d, want 401", code)
	}
	if code := send(""); code != http.StatusUnauthorized {
		t.Errorf("missing key status = %d, want 401", code)
	}
}

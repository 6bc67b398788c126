package controller

import (
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"
)

const testSinkCapacity = 50

// ReceivedWebhook is one delivery captured by the test sink.
type ReceivedWebhook struct {
	EventType  string          `json:"event_type,omitempty"`
	Body       json.RawMessage `json:"body"`
	ReceivedAt time.Time       `json:"received_at"`
}

// WebhookTestController is a test sink for webhook deliveries during local
// development. It keeps a bounded history per controller instance; oldest
// entries are dropped once the capacity is reached.
type WebhookTestController struct {
	mu      sync.Mutex
	history []ReceivedWebhook
}

// NewWebhookTestController creates a new WebhookTestController.
func NewWebhookTestController() *WebhookTestController {
	return &WebhookTestController{}
}

// Receive handles POST /api/v1/webhooks/test
func (h *WebhookTestController) Receive(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil || len(body) == 0 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "empty request body", Code: "validation_error"})
		return
	}
	if !json.Valid(body) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "body must be valid JSON", Code: "validation_error"})
		return
	}

	entry := ReceivedWebhook{
		EventType:  r.Header.Get("X-Webhook-Event"),
		Body:       json.RawMessage(body),
		ReceivedAt: time.Now(),
	}

	h.mu.Lock()
	h.history = append(h.history, entry)
	if len(h.history) > testSinkCapacity {
		h.history = h.history[len(h.history)-testSinkCapacity:]
	}
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

// History handles GET /api/v1/webhooks/test/history
func (h *WebhookTestController) History(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	history := make([]ReceivedWebhook, len(h.history))
	copy(history, h.history)
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, history)
}

// ClearHistory handles DELETE /api/v1/webhooks/test/history
func (h *WebhookTestController) ClearHistory(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	h.history = nil
	h.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

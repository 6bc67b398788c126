package controller

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookTestController_Receive(t *testing.T) {
	h := NewWebhookTestController()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/test", strings.NewReader(`{"event_type":"payment.completed","status":"SUCCESS"}`))
	req.Header.Set("X-Webhook-Event", "payment.completed")
	rec := httptest.NewRecorder()

	h.Receive(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received":true}`, rec.Body.String())
}

func TestWebhookTestController_Receive_EmptyBody(t *testing.T) {
	h := NewWebhookTestController()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/test", nil)
	rec := httptest.NewRecorder()

	h.Receive(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookTestController_Receive_InvalidJSON(t *testing.T) {
	h := NewWebhookTestController()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/test", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()

	h.Receive(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookTestController_History(t *testing.T) {
	h := NewWebhookTestController()

	for i := 0; i < 3; i++ {
		body := fmt.Sprintf(`{"seq":%d}`, i)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/test", strings.NewReader(body))
		req.Header.Set("X-Webhook-Event", "payment.completed")
		h.Receive(httptest.NewRecorder(), req)
	}

	rec := httptest.NewRecorder()
	h.History(rec, httptest.NewRequest(http.MethodGet, "/api/v1/webhooks/test/history", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var history []ReceivedWebhook
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&history))
	require.Len(t, history, 3)
	assert.Equal(t, "payment.completed", history[0].EventType)
	assert.JSONEq(t, `{"seq":0}`, string(history[0].Body))
	assert.JSONEq(t, `{"seq":2}`, string(history[2].Body))
}

func TestWebhookTestController_History_DropsOldestBeyondCapacity(t *testing.T) {
	h := NewWebhookTestController()

	for i := 0; i < testSinkCapacity+10; i++ {
		body := fmt.Sprintf(`{"seq":%d}`, i)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/test", strings.NewReader(body))
		h.Receive(httptest.NewRecorder(), req)
	}

	rec := httptest.NewRecorder()
	h.History(rec, httptest.NewRequest(http.MethodGet, "/api/v1/webhooks/test/history", nil))

	var history []ReceivedWebhook
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&history))
	require.Len(t, history, testSinkCapacity)
	// Oldest entries were evicted
	assert.JSONEq(t, `{"seq":10}`, string(history[0].Body))
	assert.JSONEq(t, fmt.Sprintf(`{"seq":%d}`, testSinkCapacity+9), string(history[testSinkCapacity-1].Body))
}

func TestWebhookTestController_ClearHistory(t *testing.T) {
	h := NewWebhookTestController()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/test", strings.NewReader(`{"a":1}`))
	h.Receive(httptest.NewRecorder(), req)

	rec := httptest.NewRecorder()
	h.ClearHistory(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/webhooks/test/history", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	histRec := httptest.NewRecorder()
	h.History(histRec, httptest.NewRequest(http.MethodGet, "/api/v1/webhooks/test/history", nil))

	var history []ReceivedWebhook
	require.NoError(t, json.NewDecoder(histRec.Body).Decode(&history))
	assert.Empty(t, history)
}

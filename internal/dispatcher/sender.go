package dispatcher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cassiomorais/gateway/internal/domain/webhook"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HTTPSender posts webhook payloads over HTTP. Each target host gets its
// own circuit breaker so one dead endpoint cannot burn delivery attempts
// budgeted for healthy ones.
type HTTPSender struct {
	client         *http.Client
	attemptTimeout time.Duration

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[int]
}

func NewHTTPSender(attemptTimeout time.Duration) *HTTPSender {
	return &HTTPSender{
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		attemptTimeout: attemptTimeout,
		breakers:       make(map[string]*gobreaker.CircuitBreaker[int]),
	}
}

func (s *HTTPSender) Send(ctx context.Context, event *webhook.Event) error {
	target, err := url.Parse(event.TargetURL)
	if err != nil {
		return fmt.Errorf("invalid target url: %w", err)
	}

	_, err = s.breaker(target.Host).Execute(func() (int, error) {
		return s.post(ctx, event)
	})
	return err
}

func (s *HTTPSender) post(ctx context.Context, event *webhook.Event) (int, error) {
	reqCtx, cancel := context.WithTimeout(ctx, s.attemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, event.TargetURL, bytes.NewReader(event.Payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Event", event.EventType)
	req.Header.Set("X-Webhook-Event-Id", event.ID.String())
	req.Header.Set("X-Webhook-Attempt", fmt.Sprintf("%d", event.Attempts+1))

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for connection reuse

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("target responded with status %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}

func (s *HTTPSender) breaker(host string) *gobreaker.CircuitBreaker[int] {
	s.mu.Lock()
	defer s.mu.Unlock()
	cb, ok := s.breakers[host]
	if !ok {
		cb = gobreaker.NewCircuitBreaker[int](gobreaker.Settings{
			Name:        "webhook:" + host,
			MaxRequests: 3,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 5 && failureRatio >= 0.8
			},
		})
		s.breakers[host] = cb
	}
	return cb
}

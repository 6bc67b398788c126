package gateway

import (
	"fmt"
	"time"

	domainErrors "github.com/cassiomorais/gateway/internal/domain/errors"
	"github.com/sony/gobreaker/v2"
)

// Factory holds the registered processors, each wrapped in its own circuit
// breaker so a flapping acquirer cannot drag settlement latency down.
type Factory struct {
	processors      map[string]Processor
	circuitBreakers map[string]*gobreaker.CircuitBreaker[*Result]
}

func NewFactory(processors ...Processor) *Factory {
	f := &Factory{
		processors:      make(map[string]Processor),
		circuitBreakers: make(map[string]*gobreaker.CircuitBreaker[*Result]),
	}

	if len(processors) == 0 {
		f.Register(NewMockProcessor("mock", WithLatency(100*time.Millisecond)))
	} else {
		for _, p := range processors {
			f.Register(p)
		}
	}

	return f
}

func (f *Factory) Register(p Processor) {
	f.processors[p.Name()] = p
	f.circuitBreakers[p.Name()] = gobreaker.NewCircuitBreaker[*Result](gobreaker.Settings{
		Name:        p.Name(),
		MaxRequests: 10,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.6
		},
	})
}

func (f *Factory) Get(name string) (Processor, *gobreaker.CircuitBreaker[*Result], error) {
	p, ok := f.processors[name]
	if !ok {
		return nil, nil, fmt.Errorf("unknown processor %q: %w", name, domainErrors.ErrProcessorNotFound)
	}
	return p, f.circuitBreakers[name], nil
}

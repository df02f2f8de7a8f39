package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/fundhive/identity-api/internal/core/domain"
	"github.com/fundhive/identity-api/internal/pkg/metrics"
)

// BreakerTransport stops calling a failing transport for a while so workers
// do not pile up behind a dead broker.
type BreakerTransport struct {
	next Transport
	cb   *gobreaker.CircuitBreaker[struct{}]
}

// NewBreakerTransport trips once at least 5 sends were made in the current
// interval and half of them failed, then lets a trial request through after 30 seconds.
func NewBreakerTransport(next Transport, log zerolog.Logger) *BreakerTransport {
	name := "notify_" + next.Name()
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.BreakerState.WithLabelValues(name).Set(stateToFloat(to))
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	}
	metrics.BreakerState.WithLabelValues(name).Set(0)

	return &BreakerTransport{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[struct{}](settings),
	}
}

func (b *BreakerTransport) Name() string { return b.next.Name() }

func (b *BreakerTransport) Send(ctx context.Context, n domain.Notification) error {
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, b.next.Send(ctx, n)
	})
	return err
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

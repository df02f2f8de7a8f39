package notify

import (
	"context"
	"errors"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/fundhive/identity-api/internal/core/domain"
	"github.com/fundhive/identity-api/internal/pkg/metrics"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// ErrQueueFull is returned when the recipient's worker cannot take more work.
var ErrQueueFull = errors.New("notification queue full")

// Dispatcher routes notifications to a fixed set of workers using consistent
// hashing on the recipient, so messages to one address are sent in order.
type Dispatcher struct {
	workers   []chan domain.Notification
	transport Transport
	log       zerolog.Logger
	wg        sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, transport Transport, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers:   make([]chan domain.Notification, numWorkers),
		transport: transport,
		log:       log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.Notification, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Close stops intake. Workers exit once their queues are drained. Notify
// must not be called after Close.
func (d *Dispatcher) Close() {
	for _, ch := range d.workers {
		close(ch)
	}
}

// Notify enqueues n without blocking. A full shard drops the message.
func (d *Dispatcher) Notify(_ context.Context, n domain.Notification) error {
	idx := d.shardIndex(n.To)
	select {
	case d.workers[idx] <- n:
		metrics.NotificationQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
		return nil
	default:
		metrics.NotificationsTotal.WithLabelValues(string(n.Kind), "dropped").Inc()
		return ErrQueueFull
	}
}

// shardIndex maps a recipient deterministically to a worker index.
func (d *Dispatcher) shardIndex(recipient string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(recipient))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.Notification) {
	defer d.wg.Done()
	workerID := strconv.Itoa(id)

	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-ch:
			if !ok {
				return
			}
			metrics.NotificationQueueDepth.WithLabelValues(workerID).Set(float64(len(ch)))

			start := time.Now()
			err := d.transport.Send(ctx, n)
			metrics.NotificationDeliveryDuration.WithLabelValues(string(n.Kind)).Observe(time.Since(start).Seconds())

			if err != nil {
				metrics.NotificationsTotal.WithLabelValues(string(n.Kind), "failed").Inc()
				d.log.Error().Err(err).
					Str("kind", string(n.Kind)).
					Str("transport", d.transport.Name()).
					Int("worker_id", id).
					Msg("notification delivery failed")
				continue
			}
			metrics.NotificationsTotal.WithLabelValues(string(n.Kind), "sent").Inc()
		}
	}
}

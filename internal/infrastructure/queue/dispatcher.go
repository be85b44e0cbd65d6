package queue

import (
	"context"
	"hash/fnv"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/civicfix/municipal-reports/internal/api/metrics"
	"github.com/civicfix/municipal-reports/internal/core/domain"
	"github.com/civicfix/municipal-reports/internal/core/ports"
)

const (
	defaultWorkers = 8
	channelBuffer  = 256
)

// Dedup abstracts the delivery idempotency store (Redis).
type Dedup interface {
	IsDuplicate(ctx context.Context, link, recipientID, title string) (bool, error)
	Mark(ctx context.Context, link, recipientID, title string) error
}

// Dispatcher routes notifications to a fixed set of workers using consistent
// hashing on the recipient id, guaranteeing per-recipient delivery ordering.
// Delivery is fire-and-forget: a failed send is logged and counted, never
// surfaced to the transition that produced it.
type Dispatcher struct {
	workers []chan domain.Notification
	channel ports.NotificationChannel
	dedup   Dedup
	log     zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, channel ports.NotificationChannel, dedup Dedup, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.Notification, numWorkers),
		channel: channel,
		dedup:   dedup,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.Notification, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Enqueue sends a notification to the worker responsible for its recipient.
// The call is non-blocking up to channelBuffer capacity.
func (d *Dispatcher) Enqueue(n domain.Notification) {
	i := d.shardIndex(n.RecipientID)
	d.workers[i] <- n
	metrics.NotificationsEnqueuedTotal.Inc()
	metrics.NotificationQueueDepth.WithLabelValues(strconv.Itoa(i)).Set(float64(len(d.workers[i])))
}

// EnqueueBatch enqueues multiple notifications preserving per-recipient ordering.
func (d *Dispatcher) EnqueueBatch(ns []domain.Notification) {
	for _, n := range ns {
		d.Enqueue(n)
	}
}

// shardIndex maps a recipient id deterministically to a worker index.
func (d *Dispatcher) shardIndex(recipientID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(recipientID))
	return int(h.Sum32()) % len(d.workers)
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.Notification) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-ch:
			if !ok {
				return
			}
			d.deliver(ctx, id, n)
			metrics.NotificationQueueDepth.WithLabelValues(strconv.Itoa(id)).Set(float64(len(ch)))
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, workerID int, n domain.Notification) {
	if d.dedup != nil {
		isDup, err := d.dedup.IsDuplicate(ctx, n.Link, n.RecipientID, n.Title)
		if err != nil {
			d.log.Warn().Err(err).Str("delivery_id", n.DeliveryID).Msg("dedup check failed, delivering anyway")
		} else if isDup {
			d.log.Debug().Str("delivery_id", n.DeliveryID).Str("recipient", n.RecipientID).Msg("duplicate notification skipped")
			return
		}
	}

	if err := d.channel.Send(ctx, n); err != nil {
		metrics.NotificationFailuresTotal.WithLabelValues("send_failed").Inc()
		d.log.Error().Err(err).
			Str("delivery_id", n.DeliveryID).
			Str("recipient", n.RecipientID).
			Int("worker_id", workerID).
			Msg("notification delivery failed")
		return
	}

	if d.dedup != nil {
		if err := d.dedup.Mark(ctx, n.Link, n.RecipientID, n.Title); err != nil {
			d.log.Warn().Err(err).Str("delivery_id", n.DeliveryID).Msg("failed to set dedup key")
		}
	}
}

// LogChannel is the development NotificationChannel: it writes deliveries to
// the log instead of an external push/email provider.
type LogChannel struct {
	log zerolog.Logger
}

func NewLogChannel(log zerolog.Logger) *LogChannel {
	return &LogChannel{log: log}
}

func (c *LogChannel) Send(_ context.Context, n domain.Notification) error {
	c.log.Info().
		Str("delivery_id", n.DeliveryID).
		Str("recipient", n.RecipientID).
		Str("title", n.Title).
		Str("priority", string(n.Priority)).
		Str("link", n.Link).
		Msg("notification delivered")
	return nil
}

package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/civicfix/municipal-reports/internal/core/domain"
)

type recordingChannel struct {
	mu        sync.Mutex
	attempts  int
	delivered []domain.Notification
	sendErr   error
}

func (c *recordingChannel) Send(_ context.Context, n domain.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempts++
	if c.sendErr != nil {
		return c.sendErr
	}
	c.delivered = append(c.delivered, n)
	return nil
}

func (c *recordingChannel) snapshot() []domain.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Notification, len(c.delivered))
	copy(out, c.delivered)
	return out
}

type stubDedup struct {
	mu     sync.Mutex
	marked map[string]bool
}

func newStubDedup() *stubDedup {
	return &stubDedup{marked: make(map[string]bool)}
}

func (d *stubDedup) key(link, recipientID, title string) string {
	return link + "|" + recipientID + "|" + title
}

func (d *stubDedup) IsDuplicate(_ context.Context, link, recipientID, title string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.marked[d.key(link, recipientID, title)], nil
}

func (d *stubDedup) Mark(_ context.Context, link, recipientID, title string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.marked[d.key(link, recipientID, title)] = true
	return nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}

func TestDispatcher_DeliversEnqueuedNotifications(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	channel := &recordingChannel{}
	d := NewDispatcher(4, channel, newStubDedup(), zerolog.Nop())
	d.Start(ctx)

	d.EnqueueBatch([]domain.Notification{
		{DeliveryID: "d1", RecipientID: "u1", Title: "Report RPT-1 is now assigned", Link: "/reports/r1"},
		{DeliveryID: "d2", RecipientID: "u2", Title: "Report RPT-1 is now assigned", Link: "/reports/r1"},
	})

	waitFor(t, func() bool { return len(channel.snapshot()) == 2 })
}

func TestDispatcher_SkipsDuplicates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	channel := &recordingChannel{}
	dedup := newStubDedup()
	d := NewDispatcher(1, channel, dedup, zerolog.Nop())
	d.Start(ctx)

	n := domain.Notification{DeliveryID: "d1", RecipientID: "u1", Title: "t", Link: "/reports/r1"}
	d.Enqueue(n)
	waitFor(t, func() bool { return len(channel.snapshot()) == 1 })

	// Same link/recipient/title again: suppressed by the dedup store.
	n.DeliveryID = "d2"
	d.Enqueue(n)

	// A distinct title goes through.
	d.Enqueue(domain.Notification{DeliveryID: "d3", RecipientID: "u1", Title: "other", Link: "/reports/r1"})
	waitFor(t, func() bool { return len(channel.snapshot()) == 2 })

	for _, got := range channel.snapshot() {
		if got.DeliveryID == "d2" {
			t.Error("duplicate delivery d2 must have been suppressed")
		}
	}
}

func TestDispatcher_SendFailureDoesNotMark(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	channel := &recordingChannel{sendErr: errors.New("push provider down")}
	dedup := newStubDedup()
	d := NewDispatcher(1, channel, dedup, zerolog.Nop())
	d.Start(ctx)

	d.Enqueue(domain.Notification{DeliveryID: "d1", RecipientID: "u1", Title: "t", Link: "/reports/r1"})
	waitFor(t, func() bool {
		channel.mu.Lock()
		defer channel.mu.Unlock()
		return channel.attempts == 1
	})

	// The failed delivery must not set the dedup key, so a retry can deliver.
	dedup.mu.Lock()
	if len(dedup.marked) != 0 {
		t.Error("failed delivery must not mark the dedup key")
	}
	dedup.mu.Unlock()

	channel.mu.Lock()
	channel.sendErr = nil
	channel.mu.Unlock()

	d.Enqueue(domain.Notification{DeliveryID: "d2", RecipientID: "u1", Title: "t", Link: "/reports/r1"})
	waitFor(t, func() bool { return len(channel.snapshot()) == 1 })
}

func TestDispatcher_ShardingIsStablePerRecipient(t *testing.T) {
	d := NewDispatcher(8, &recordingChannel{}, nil, zerolog.Nop())
	first := d.shardIndex("user_42")
	for i := 0; i < 10; i++ {
		if d.shardIndex("user_42") != first {
			t.Fatal("shard index must be deterministic for a recipient")
		}
	}
}

package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const dedupTTL = time.Hour

// NotificationDedup suppresses duplicate notification sends backed by Redis.
// A retried transition re-enqueues the same recipient set; the dedup key
// keeps each recipient from being pinged twice for one (report, status).
// Key format: notif:<link>:<recipient_id>:<title>
type NotificationDedup struct {
	client *redis.Client
}

// NewNotificationDedup creates a NotificationDedup wrapping the given Redis client.
func NewNotificationDedup(client *redis.Client) *NotificationDedup {
	return &NotificationDedup{client: client}
}

// IsDuplicate reports whether this notification was already delivered recently.
func (d *NotificationDedup) IsDuplicate(ctx context.Context, link, recipientID, title string) (bool, error) {
	n, err := d.client.Exists(ctx, d.key(link, recipientID, title)).Result()
	if err != nil {
		return false, fmt.Errorf("dedup check: %w", err)
	}
	return n > 0, nil
}

// Mark records that this notification has been delivered (expires after dedupTTL).
func (d *NotificationDedup) Mark(ctx context.Context, link, recipientID, title string) error {
	return d.client.Set(ctx, d.key(link, recipientID, title), "1", dedupTTL).Err()
}

func (d *NotificationDedup) key(link, recipientID, title string) string {
	return fmt.Sprintf("notif:%s:%s:%s", link, recipientID, title)
}

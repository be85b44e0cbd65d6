package ports

import (
	"context"

	"github.com/civicfix/municipal-reports/internal/core/domain"
)

// NotificationChannel delivers a single notification to its recipient.
// Implementations are external (push, email); failures are logged and never
// surfaced to the caller that committed the transition.
type NotificationChannel interface {
	Send(ctx context.Context, n domain.Notification) error
}

// Notifier accepts notifications for asynchronous, fire-and-forget delivery.
type Notifier interface {
	Enqueue(n domain.Notification)
	EnqueueBatch(ns []domain.Notification)
}

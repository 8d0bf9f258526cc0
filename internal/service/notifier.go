package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"expensetracker/internal/events"
	"expensetracker/internal/log"
)

// notifier publishes lifecycle events on behalf of the services. A failed
// publish is logged and never fails the caller.
type notifier struct {
	publisher events.Publisher
	logger    *log.Logger
}

func newNotifier(publisher events.Publisher, logger *log.Logger) notifier {
	return notifier{publisher: publisher, logger: logger.WithComponent(log.ComponentEvents)}
}

func (n notifier) notify(ctx context.Context, eventType events.Type, expenseID, owner uuid.UUID, at time.Time) {
	event := events.Event{
		Type:       eventType,
		ExpenseID:  expenseID,
		UserID:     owner,
		OccurredAt: at,
	}
	if err := n.publisher.Publish(ctx, event); err != nil {
		n.logger.WarnContext(ctx, "failed to publish expense event",
			"type", eventType,
			"expense_id", expenseID,
			"error", err)
	}
}

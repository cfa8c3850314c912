package ports

import (
	"context"

	"github.com/meridianpay/payment-engine/internal/domain"
)

// EventPublisher hands domain events to downstream notification/audit
// collaborators. Publish must not fail the unit of work that emits the event.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event)
}

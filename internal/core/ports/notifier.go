package ports

import (
	"context"

	"github.com/fundhive/identity-api/internal/core/domain"
)

// Notifier triggers user-facing emails. Delivery failures are reported but
// must never fail the flow that triggered them.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}

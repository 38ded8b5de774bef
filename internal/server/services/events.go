package services

import (
	"context"

	"github.com/dmitrijs2005/godex/internal/logging"
	"github.com/dmitrijs2005/godex/internal/server/events"
	"github.com/dmitrijs2005/godex/internal/server/observability"
)

// publish hands an event to the broker after the owning transaction has
// committed. A failed publish is logged and counted; it never fails the
// request.
func publish(ctx context.Context, p events.Publisher, logger logging.Logger, subject string, payload any) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, subject, payload); err != nil {
		observability.EventsPublished.WithLabelValues(subject, "error").Inc()
		logger.Warn(ctx, "event publish failed", "subject", subject, "error", err)
		return
	}
	observability.EventsPublished.WithLabelValues(subject, "ok").Inc()
}

package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/kirillkom/contractor-compliance/internal/core/domain"
	"github.com/kirillkom/contractor-compliance/internal/core/ports"
)

type nopPublisher struct{}

func (nopPublisher) PublishPercentageChanged(context.Context, []domain.PercentageEvent) error {
	return nil
}

type nopRecorder struct{}

func (nopRecorder) ObserveRecompute(domain.PercentageKind, domain.OutcomeStatus, time.Duration) {}
func (nopRecorder) ObserveTransition(domain.DocumentState, domain.DocumentState)              {}

func publisherOrNop(p ports.EventPublisher) ports.EventPublisher {
	if p == nil {
		return nopPublisher{}
	}
	return p
}

// publishReport notifies collaborators after commit. Delivery is best effort.
func publishReport(ctx context.Context, publisher ports.EventPublisher, report domain.Report) {
	events := report.Events()
	if len(events) == 0 {
		return
	}
	if err := publisher.PublishPercentageChanged(ctx, events); err != nil {
		slog.Warn("percentage_event_publish_failed", "events", len(events), "error", err)
	}
}

package worker

import (
	"context"
	"time"

	"github.com/eckinger/uchomp/internal/repository"
	"github.com/eckinger/uchomp/pkg/events"
	"github.com/eckinger/uchomp/pkg/logger"
)

// ExpiryWatcher periodically scans for open groups nearing expiration and
// publishes a one-shot expiring event for each. It never deletes anything;
// expiration only gates joins and listing.
type ExpiryWatcher struct {
	groupRepo repository.GroupRepository
	bus       events.Publisher
	warning   time.Duration
	interval  time.Duration

	// notified is per-process dedupe; a restart may re-warn, which is
	// acceptable for a best-effort reminder.
	notified map[int64]struct{}
}

func NewExpiryWatcher(groupRepo repository.GroupRepository, bus events.Publisher, warning, interval time.Duration) *ExpiryWatcher {
	return &ExpiryWatcher{
		groupRepo: groupRepo,
		bus:       bus,
		warning:   warning,
		interval:  interval,
		notified:  make(map[int64]struct{}),
	}
}

func (w *ExpiryWatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *ExpiryWatcher) sweep(ctx context.Context) {
	now := time.Now()
	groups, err := w.groupRepo.ListExpiring(ctx, now, now.Add(w.warning))
	if err != nil {
		logger.ErrorContext(ctx, "Failed to scan for expiring groups", "error", err)
		return
	}

	for _, g := range groups {
		if _, seen := w.notified[g.ID]; seen {
			continue
		}

		event := events.GroupExpiringEvent{
			OrderID:      g.ID,
			Restaurant:   g.Restaurant,
			Expiration:   g.Expiration,
			MemberEmails: g.MemberEmails,
		}
		if err := w.bus.Publish(ctx, events.GroupExpiring, event); err != nil {
			logger.ErrorContext(ctx, "Failed to publish expiring event", "error", err, "order_id", g.ID)
			continue
		}
		w.notified[g.ID] = struct{}{}
	}
}

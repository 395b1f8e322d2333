package app

import (
	"context"
	"log/slog"

	"github.com/ayusman/gesturepi/internal/plugin"
	"github.com/ayusman/gesturepi/internal/store"
)

// StoreTransition converts a loop transition into a history row.
func StoreTransition(tr Transition) *store.Transition {
	area := 0.0
	if tr.Observation.Contour != nil {
		area = tr.Observation.Contour.Area
	}
	return &store.Transition{
		From:        tr.From,
		To:          tr.To,
		Initial:     tr.Initial,
		ContourArea: area,
		FingerGaps:  tr.Observation.FingerGaps,
		Source:      store.SourceCamera,
		CreatedAt:   tr.At,
	}
}

// RecordTransitions returns an observer that appends every transition to the
// history. Write failures are logged and do not affect the loop.
func RecordTransitions(repo *store.TransitionRepository, logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return func(tr Transition) {
		if err := repo.Create(StoreTransition(tr)); err != nil {
			logger.Error("recording transition", "state", tr.To, "error", err)
		}
	}
}

// FireHooks returns an observer that starts the subscribed plugins for every
// transition. The plugins run in the background under ctx.
func FireHooks(ctx context.Context, hooks *plugin.Hooks) Observer {
	return func(tr Transition) {
		hooks.Fire(ctx, plugin.Event{
			State:    tr.To,
			Previous: tr.From,
			Initial:  tr.Initial,
			At:       tr.At,
		})
	}
}

package plugin

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ayusman/gesturepi/internal/gesture"
)

// Event is a published state change as seen by hooks.
type Event struct {
	State    gesture.State
	Previous gesture.State
	// Initial marks the first publication of a run; Previous is unset then.
	Initial bool
	At      time.Time
}

// NewRequest builds the request sent to p for ev.
func NewRequest(ev Event, p *Plugin) *Request {
	req := &Request{
		Event:     EventTransition,
		State:     ev.State.String(),
		Code:      string(ev.State.Code()),
		Timestamp: ev.At.UnixMilli(),
		Config:    p.Manifest.Config,
	}
	if !ev.Initial {
		req.Previous = ev.Previous.String()
	}
	return req
}

// Hooks runs every subscribed plugin for a state change, each in its own
// goroutine. Results are only logged.
type Hooks struct {
	manager  *Manager
	executor *Executor
	logger   *slog.Logger
	wg       sync.WaitGroup
}

// NewHooks creates a dispatcher over the manager's discovered plugins.
func NewHooks(manager *Manager, executor *Executor, logger *slog.Logger) *Hooks {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hooks{
		manager:  manager,
		executor: executor,
		logger:   logger,
	}
}

// Fire starts the plugins subscribed to ev.State and returns how many were
// started. It does not wait for them.
func (h *Hooks) Fire(ctx context.Context, ev Event) int {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	plugins := h.manager.ForState(ev.State)
	for _, p := range plugins {
		h.wg.Add(1)
		go func(p *Plugin) {
			defer h.wg.Done()
			h.run(ctx, p, ev)
		}(p)
	}
	return len(plugins)
}

// Wait blocks until every started plugin has finished.
func (h *Hooks) Wait() {
	h.wg.Wait()
}

func (h *Hooks) run(ctx context.Context, p *Plugin, ev Event) {
	log := h.logger.With("plugin", p.Manifest.Name, "state", ev.State)

	resp, err := h.executor.Execute(ctx, p, NewRequest(ev, p))
	if err != nil {
		log.Error("hook failed", "error", err)
		return
	}
	if !resp.Success {
		log.Warn("hook reported failure", "error", resp.Error)
		return
	}
	log.Debug("hook completed")
}

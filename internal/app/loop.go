package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ayusman/gesturepi/internal/detector"
)

// Run opens the camera and iterates until ctx is cancelled or the camera
// fails. Cancellation is checked between iterations only and returns nil;
// a camera failure ends the loop with an error.
func (a *App) Run(ctx context.Context) error {
	defer a.setPhase(PhaseStopped)

	if err := a.config.Camera.Open(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	defer func() {
		if err := a.config.Camera.Close(); err != nil {
			a.logger.Warn("closing camera", "error", err)
		}
	}()

	a.logger.Info("detection loop started", "poll_interval", a.config.PollInterval)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("detection loop stopped")
			return nil
		case <-timer.C:
		}
		if ctx.Err() != nil {
			a.logger.Info("detection loop stopped")
			return nil
		}

		if err := a.Step(ctx); err != nil {
			return err
		}

		a.setPhase(PhaseIdle)
		timer.Reset(a.config.PollInterval)
	}
}

// Step runs exactly one capture, detect, classify and publish-on-change
// iteration. Only a frame acquisition failure is returned; detection and
// publication failures are logged and the iteration completes.
func (a *App) Step(ctx context.Context) error {
	a.setPhase(PhaseCapturing)
	frame, err := a.config.Camera.ReadFrame()
	if err != nil {
		return fmt.Errorf("read frame: %w", err)
	}

	a.setPhase(PhaseDetecting)
	obs, err := a.config.Detector.Detect(frame)
	frame.Close()
	if err != nil {
		a.logger.Warn("detection failed, treating frame as empty", "error", err)
		obs = detector.Observation{}
	}

	a.setPhase(PhaseClassifying)
	state := a.config.Classifier.Classify(obs.HandFound(), obs.FingerGaps)

	if a.hasLast && state == a.last {
		a.setPhase(PhaseSkipping)
		a.logger.Debug("state unchanged", "state", state, "finger_gaps", obs.FingerGaps)
		return nil
	}

	a.setPhase(PhasePublishing)

	// A publication that already holds the lock must complete even when the
	// loop is being cancelled.
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.config.LockTimeout)
	defer cancel()

	if err := a.config.Publisher.Publish(pctx, state); err != nil {
		a.logger.Error("publish failed", "state", state, "error", err)
		return nil
	}

	tr := Transition{
		From:        a.last,
		To:          state,
		Initial:     !a.hasLast,
		Observation: obs,
		At:          time.Now(),
	}
	a.last, a.hasLast = state, true

	if tr.Initial {
		a.logger.Info("published state", "state", state, "finger_gaps", obs.FingerGaps, "area", obs.LargestArea)
	} else {
		a.logger.Info("published state", "from", tr.From, "state", state, "finger_gaps", obs.FingerGaps, "area", obs.LargestArea)
	}

	a.notify(tr)
	return nil
}

// Package app runs the gesturepi detection loop: capture a frame, detect the
// hand, classify it and publish the state whenever it changes.
package app

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ayusman/gesturepi/internal/capture"
	"github.com/ayusman/gesturepi/internal/detector"
	"github.com/ayusman/gesturepi/internal/gesture"
	"github.com/ayusman/gesturepi/internal/publish"
)

// DefaultPollInterval is the pause between two iterations.
const DefaultPollInterval = 500 * time.Millisecond

// Phase is the loop's current activity.
type Phase int32

const (
	// PhaseIdle is the state before Run and while sleeping between iterations.
	PhaseIdle Phase = iota
	// PhaseCapturing waits for a camera frame.
	PhaseCapturing
	// PhaseDetecting segments the frame, selects the contour and counts gaps.
	PhaseDetecting
	// PhaseClassifying maps the observation onto a gesture state.
	PhaseClassifying
	// PhasePublishing writes a changed state to the publisher.
	PhasePublishing
	// PhaseSkipping ends an iteration whose state was already published.
	PhaseSkipping
	// PhaseStopped is terminal; Run has returned.
	PhaseStopped
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseCapturing:
		return "capturing"
	case PhaseDetecting:
		return "detecting"
	case PhaseClassifying:
		return "classifying"
	case PhasePublishing:
		return "publishing"
	case PhaseSkipping:
		return "skipping"
	case PhaseStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Transition describes a successfully published state change.
type Transition struct {
	From gesture.State
	To   gesture.State
	// Initial marks the first publication of a run; From is unset then.
	Initial     bool
	Observation detector.Observation
	At          time.Time
}

// Observer is notified after every successful publication. Observers run on
// the loop goroutine and must not block.
type Observer func(Transition)

// Config holds the collaborators and timing of the loop.
type Config struct {
	Camera     capture.Camera
	Detector   detector.Detector
	Classifier *gesture.Classifier
	Publisher  publish.StatePublisher

	// PollInterval is the sleep between iterations; zero selects DefaultPollInterval.
	PollInterval time.Duration
	// LockTimeout bounds a single publication; zero selects publish.DefaultLockTimeout.
	LockTimeout time.Duration

	Observers []Observer
	Logger    *slog.Logger
}

// App is the loop controller. Run drives it; Step runs a single iteration.
type App struct {
	config Config
	logger *slog.Logger
	phase  atomic.Int32

	// last is owned by the goroutine calling Run or Step.
	last    gesture.State
	hasLast bool

	mu        sync.Mutex
	observers []Observer
}

// New validates the configuration and creates an App.
func New(config Config) (*App, error) {
	var errs []error
	if config.Camera == nil {
		errs = append(errs, errors.New("camera is required"))
	}
	if config.Detector == nil {
		errs = append(errs, errors.New("detector is required"))
	}
	if config.Classifier == nil {
		errs = append(errs, errors.New("classifier is required"))
	}
	if config.Publisher == nil {
		errs = append(errs, errors.New("publisher is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	if config.LockTimeout <= 0 {
		config.LockTimeout = publish.DefaultLockTimeout
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &App{
		config:    config,
		logger:    logger,
		observers: append([]Observer(nil), config.Observers...),
	}, nil
}

// Observe registers an observer for published transitions.
func (a *App) Observe(o Observer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.observers = append(a.observers, o)
}

// Phase returns the loop's current activity.
func (a *App) Phase() Phase {
	return Phase(a.phase.Load())
}

func (a *App) setPhase(p Phase) {
	a.phase.Store(int32(p))
}

// LastPublished returns the last successfully published state. ok is false
// until the first publication. Only safe from the loop goroutine.
func (a *App) LastPublished() (state gesture.State, ok bool) {
	return a.last, a.hasLast
}

func (a *App) notify(tr Transition) {
	a.mu.Lock()
	observers := append([]Observer(nil), a.observers...)
	a.mu.Unlock()

	for _, o := range observers {
		o(tr)
	}
}

package detector

import (
	"sync"

	"github.com/ayusman/gesturepi/internal/vision"
	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu     sync.Mutex
	queue  []Observation
	last   Observation
	err    error
	calls  int
	closed bool
}

// NewMockDetector creates a new MockDetector that reports no hand.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetObservation sets the observation returned by every following Detect.
func (m *MockDetector) SetObservation(obs Observation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = nil
	m.last = obs
}

// Queue makes Detect return the given observations in order. Once exhausted
// the last one is repeated.
func (m *MockDetector) Queue(obs ...Observation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, obs...)
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Detect returns the pre-configured observation or error.
func (m *MockDetector) Detect(frame *gocv.Mat) (Observation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return Observation{}, m.err
	}
	if len(m.queue) > 0 {
		m.last = m.queue[0]
		m.queue = m.queue[1:]
	}
	return m.last, nil
}

// Calls returns how many times Detect was invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Close marks the detector closed.
func (m *MockDetector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// NoHandObservation is an observation without a selected region.
func NoHandObservation() Observation {
	return Observation{}
}

// FistObservation is a large region without finger gaps.
func FistObservation() Observation {
	return Observation{
		Contour:     &vision.Contour{Area: 10000},
		LargestArea: 10000,
		FingerGaps:  0,
	}
}

// OpenHandObservation is a large region with four finger gaps.
func OpenHandObservation() Observation {
	return Observation{
		Contour:     &vision.Contour{Area: 15840},
		LargestArea: 15840,
		FingerGaps:  4,
	}
}

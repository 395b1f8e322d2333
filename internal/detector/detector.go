// Package detector turns camera frames into hand observations by chaining the
// segmentation, contour selection and convexity stages.
package detector

import (
	"errors"
	"fmt"
	"image"

	"github.com/ayusman/gesturepi/internal/vision"
	"gocv.io/x/gocv"
)

// ErrEmptyFrame is returned when Detect receives a nil or empty frame.
var ErrEmptyFrame = errors.New("empty frame")

// Observation is the per-frame result of hand detection.
type Observation struct {
	// Contour is the dominant foreground region, nil when none qualified.
	Contour *vision.Contour
	// LargestArea is the area of the largest region, even when it was rejected.
	LargestArea float64
	// FingerGaps is the number of qualifying convexity defects of Contour.
	FingerGaps int
}

// HandFound reports whether a sufficiently large region was selected.
func (o Observation) HandFound() bool {
	return o.Contour != nil
}

// Detector defines the interface for hand detection implementations.
type Detector interface {
	// Detect analyzes a video frame. A frame without a hand is not an error;
	// it yields an Observation with a nil Contour.
	Detect(frame *gocv.Mat) (Observation, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for contour based hand detection.
type Config struct {
	Segment vision.SegmentParams

	// MinContourArea rejects regions smaller than this many square pixels.
	MinContourArea float64

	Fingers vision.CountParams
}

// DefaultConfig returns the grayscale Otsu pipeline with depth based counting.
func DefaultConfig() Config {
	return Config{
		Segment: vision.SegmentParams{
			Strategy:   vision.StrategyIntensity,
			ROI:        image.Rect(60, 60, 240, 240),
			BlurKernel: vision.DefaultIntensityBlurKernel,
			SkinLower:  vision.DefaultSkinLower,
			SkinUpper:  vision.DefaultSkinUpper,
		},
		MinContourArea: 2500,
		Fingers: vision.CountParams{
			Rule:     vision.RuleDepth,
			MaxAngle: vision.DefaultMaxAngle,
			MinDepth: vision.DefaultMinDepth,
		},
	}
}

// Validate checks every stage's parameters.
func (c Config) Validate() error {
	if err := c.Segment.Validate(); err != nil {
		return err
	}
	if c.MinContourArea < 0 {
		return fmt.Errorf("min contour area must not be negative, got %v", c.MinContourArea)
	}
	return c.Fingers.Validate()
}

// ContourDetector implements Detector with classic contour analysis.
type ContourDetector struct {
	config Config
}

// NewContourDetector creates a ContourDetector after validating the config.
func NewContourDetector(config Config) (*ContourDetector, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("detector config: %w", err)
	}
	return &ContourDetector{config: config}, nil
}

// Config returns the detector configuration.
func (d *ContourDetector) Config() Config {
	return d.config
}

// Detect segments the frame, keeps the largest region and counts its finger gaps.
func (d *ContourDetector) Detect(frame *gocv.Mat) (Observation, error) {
	if frame == nil || frame.Empty() {
		return Observation{}, ErrEmptyFrame
	}

	mask, err := vision.Segment(*frame, d.config.Segment)
	if err != nil {
		return Observation{}, err
	}
	defer mask.Close()

	largest, selected := vision.SelectContour(mask, d.config.MinContourArea)
	if largest == nil {
		return Observation{}, nil
	}

	obs := Observation{LargestArea: largest.Area}
	if !selected {
		return obs, nil
	}

	obs.Contour = largest
	obs.FingerGaps = vision.CountFingerGaps(largest, d.config.Fingers)
	return obs, nil
}

// Close is a no-op; the detector holds no native resources between frames.
func (d *ContourDetector) Close() error {
	return nil
}

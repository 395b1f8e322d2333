// Package config loads gesturepi settings from YAML on top of a named preset.
package config

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/gesturepi/internal/capture"
	"github.com/ayusman/gesturepi/internal/detector"
	"github.com/ayusman/gesturepi/internal/gesture"
	"github.com/ayusman/gesturepi/internal/logging"
	"github.com/ayusman/gesturepi/internal/publish"
	"github.com/ayusman/gesturepi/internal/vision"
)

// Preset names. Each one reproduces a complete, internally consistent pipeline.
const (
	// PresetIntensityDepth is the grayscale Otsu pipeline with depth based counting.
	PresetIntensityDepth = "intensity-depth"
	// PresetSkinAngle is the HSV skin pipeline with angle based counting.
	PresetSkinAngle = "skin-angle"
)

// DefaultPollInterval is the pause between two loop iterations.
const DefaultPollInterval = 500 * time.Millisecond

// Config is the complete application configuration.
type Config struct {
	Preset       string        `yaml:"preset"`
	StateFile    string        `yaml:"state_file"`
	PollInterval time.Duration `yaml:"poll_interval"`
	LockTimeout  time.Duration `yaml:"lock_timeout"`

	Camera       CameraConfig       `yaml:"camera"`
	Segmentation SegmentationConfig `yaml:"segmentation"`
	Contour      ContourConfig      `yaml:"contour"`
	Fingers      FingersConfig      `yaml:"fingers"`
	Classifier   ClassifierConfig   `yaml:"classifier"`

	Store   StoreConfig   `yaml:"store"`
	Server  ServerConfig  `yaml:"server"`
	Plugins PluginsConfig `yaml:"plugins"`
	Log     LogConfig     `yaml:"log"`
}

// CameraConfig selects and configures the capture device.
type CameraConfig struct {
	Device int  `yaml:"device"`
	Width  int  `yaml:"width"`
	Height int  `yaml:"height"`
	FPS    int  `yaml:"fps"`
	Mirror bool `yaml:"mirror"` // flip frames horizontally
}

// RectConfig is a rectangle given by origin and size.
type RectConfig struct {
	X      int `yaml:"x"`
	Y      int `yaml:"y"`
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Rect converts to an image.Rectangle; a zero size means the whole frame.
func (r RectConfig) Rect() image.Rectangle {
	if r.Width <= 0 || r.Height <= 0 {
		return image.Rectangle{}
	}
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// SegmentationConfig configures the foreground mask.
type SegmentationConfig struct {
	Strategy   vision.Strategy `yaml:"strategy"`
	ROI        RectConfig      `yaml:"roi"`
	BlurKernel int             `yaml:"blur_kernel"`
	SkinLower  [3]float64      `yaml:"skin_lower"`
	SkinUpper  [3]float64      `yaml:"skin_upper"`
}

// ContourConfig configures dominant region selection.
type ContourConfig struct {
	MinArea float64 `yaml:"min_area"`
}

// FingersConfig configures finger gap counting.
type FingersConfig struct {
	Rule     vision.FingerRule `yaml:"rule"`
	MaxAngle float64           `yaml:"max_angle"`
	MinDepth float64           `yaml:"min_depth"`
}

// ClassifierConfig configures the gesture decision.
type ClassifierConfig struct {
	MinGapsForOpenHand int `yaml:"min_gaps_for_open_hand"`
}

// StoreConfig configures the transition history database.
type StoreConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// ServerConfig configures the status HTTP server. An empty Addr disables it.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// PluginsConfig configures transition hooks. An empty Dir disables them.
type PluginsConfig struct {
	Dir     string        `yaml:"dir"`
	Timeout time.Duration `yaml:"timeout"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the intensity-depth preset.
func Default() Config {
	cfg, _ := Preset(PresetIntensityDepth)
	return cfg
}

// Preset returns the configuration for a named preset.
func Preset(name string) (Config, error) {
	cfg := Config{
		Preset:       name,
		StateFile:    publish.DefaultPath,
		PollInterval: DefaultPollInterval,
		LockTimeout:  publish.DefaultLockTimeout,
		Camera: CameraConfig{
			Width:  320,
			Height: 240,
			FPS:    capture.DefaultFPS,
		},
		Segmentation: SegmentationConfig{
			SkinLower: vision.DefaultSkinLower,
			SkinUpper: vision.DefaultSkinUpper,
		},
		Fingers: FingersConfig{
			MaxAngle: vision.DefaultMaxAngle,
			MinDepth: vision.DefaultMinDepth,
		},
		Store:   StoreConfig{Path: defaultStorePath()},
		Plugins: PluginsConfig{Timeout: 5 * time.Second},
		Log:     LogConfig{Level: "info"},
	}

	switch name {
	case PresetIntensityDepth:
		cfg.Segmentation.Strategy = vision.StrategyIntensity
		cfg.Segmentation.ROI = RectConfig{X: 60, Y: 60, Width: 180, Height: 180}
		cfg.Segmentation.BlurKernel = vision.DefaultIntensityBlurKernel
		cfg.Contour.MinArea = 2500
		cfg.Fingers.Rule = vision.RuleDepth
		cfg.Classifier.MinGapsForOpenHand = gesture.DepthRuleMinGaps
	case PresetSkinAngle:
		cfg.Camera.Width = 640
		cfg.Camera.Height = 480
		cfg.Camera.Mirror = true
		cfg.Segmentation.Strategy = vision.StrategySkin
		cfg.Segmentation.BlurKernel = vision.DefaultSkinBlurKernel
		cfg.Contour.MinArea = 5000
		cfg.Fingers.Rule = vision.RuleAngle
		cfg.Classifier.MinGapsForOpenHand = gesture.AngleRuleMinGaps
	default:
		return Config{}, fmt.Errorf("unknown preset %q", name)
	}

	return cfg, nil
}

// Load reads a YAML file. The file's preset key (default intensity-depth)
// selects the base values, and every key present in the file overrides them.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration data; see Load.
func Parse(data []byte) (Config, error) {
	var head struct {
		Preset string `yaml:"preset"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if head.Preset == "" {
		head.Preset = PresetIntensityDepth
	}

	cfg, err := Preset(head.Preset)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	var errs []error

	if c.StateFile == "" {
		errs = append(errs, errors.New("state_file must not be empty"))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll_interval must be positive, got %v", c.PollInterval))
	}
	if c.LockTimeout <= 0 {
		errs = append(errs, fmt.Errorf("lock_timeout must be positive, got %v", c.LockTimeout))
	}
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		errs = append(errs, fmt.Errorf("camera resolution must be positive, got %dx%d", c.Camera.Width, c.Camera.Height))
	}
	if c.Classifier.MinGapsForOpenHand < 1 {
		errs = append(errs, fmt.Errorf("min_gaps_for_open_hand must be at least 1, got %d", c.Classifier.MinGapsForOpenHand))
	}
	if c.Store.Enabled && c.Store.Path == "" {
		errs = append(errs, errors.New("store.path must be set when the store is enabled"))
	}
	if err := c.Detector().Validate(); err != nil {
		errs = append(errs, err)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Detector converts the pipeline sections into detector parameters.
func (c Config) Detector() detector.Config {
	return detector.Config{
		Segment: vision.SegmentParams{
			Strategy:   c.Segmentation.Strategy,
			ROI:        c.Segmentation.ROI.Rect(),
			BlurKernel: c.Segmentation.BlurKernel,
			SkinLower:  c.Segmentation.SkinLower,
			SkinUpper:  c.Segmentation.SkinUpper,
		},
		MinContourArea: c.Contour.MinArea,
		Fingers: vision.CountParams{
			Rule:     c.Fingers.Rule,
			MaxAngle: c.Fingers.MaxAngle,
			MinDepth: c.Fingers.MinDepth,
		},
	}
}

// CameraOptions converts the camera section into capture options.
func (c Config) CameraOptions() capture.Options {
	return capture.Options{
		DeviceID: c.Camera.Device,
		Width:    c.Camera.Width,
		Height:   c.Camera.Height,
		FPS:      c.Camera.FPS,
		Mirror:   c.Camera.Mirror,
	}
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "gesturepi.db"
	}
	return filepath.Join(home, ".gesturepi", "gesturepi.db")
}

package slam

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// MatchingAlgorithm is for algorithm type for resolving competing keypoint matches
type MatchingAlgorithm string

const (
	// MatchingAlgorithmGreedy keeps the closest claimant of every keypoint; displaced claimants are dropped
	MatchingAlgorithmGreedy MatchingAlgorithm = "greedy"
	// MatchingAlgorithmHungarian solves global assignment (Kuhn-Munkres) over accepted candidates
	MatchingAlgorithmHungarian MatchingAlgorithm = "hungarian"
)

// GridConfig describes keypoint grid
type GridConfig struct {
	Cols      int     `yaml:"cols"`
	Rows      int     `yaml:"rows"`
	MinWidth  float64 `yaml:"min_width"`
	MinHeight float64 `yaml:"min_height"`
	MaxWidth  float64 `yaml:"max_width"`
	MaxHeight float64 `yaml:"max_height"`
}

// Config is read-only configuration of GuidedMatcher
type Config struct {
	Grid GridConfig `yaml:"grid"`
	// Scale factor between consecutive pyramid levels. Ignored when ScaleFactors is set
	ScaleFactor float64 `yaml:"scale_factor"`
	// Number of pyramid levels. Ignored when ScaleFactors is set
	NumScaleLevels int `yaml:"num_scale_levels"`
	// Explicit per-level scale factors table
	ScaleFactors []float64 `yaml:"scale_factors,omitempty"`
	// Max Hamming distance accepted when matching keypoints to keypoints
	HammingThresholdLow int `yaml:"hamming_threshold_low"`
	// Max Hamming distance accepted when matching landmarks to keypoints
	HammingThresholdHigh int `yaml:"hamming_threshold_high"`
	// Lowe's ratio for rejecting ambiguous matches
	LoweRatio float64 `yaml:"lowe_ratio"`
	// Default search window half-width in pixels
	DefaultMargin float64 `yaml:"default_margin"`
	// Reject matches with inconsistent orientation
	CheckOrientation bool `yaml:"check_orientation"`
	// Number of orientation histogram bins
	OrientationBins int `yaml:"orientation_bins"`
	// Number of most populated orientation bins considered valid
	OrientationKeptBins int `yaml:"orientation_kept_bins"`
	// Minimal population of a secondary orientation bin relative to the most populated one
	OrientationMinBinRatio float64 `yaml:"orientation_min_bin_ratio"`
	// Algorithm resolving competing keypoint matches
	Algorithm MatchingAlgorithm `yaml:"algorithm"`
}

// DefaultConfig returns configuration for 640x480 images and ORB-like 8 level pyramid
func DefaultConfig() Config {
	return Config{
		Grid: GridConfig{
			Cols:      64,
			Rows:      48,
			MinWidth:  0,
			MinHeight: 0,
			MaxWidth:  640,
			MaxHeight: 480,
		},
		ScaleFactor:            1.2,
		NumScaleLevels:         8,
		HammingThresholdLow:    50,
		HammingThresholdHigh:   100,
		LoweRatio:              0.9,
		DefaultMargin:          10,
		CheckOrientation:       true,
		OrientationBins:        DefaultHistogramLength,
		OrientationKeptBins:    DefaultNumBinsThreshold,
		OrientationMinBinRatio: DefaultMinBinRatio,
		Algorithm:              MatchingAlgorithmGreedy,
	}
}

// GridParameters builds grid parameters
func (cfg Config) GridParameters() (GridParameters, error) {
	return NewGridParameters(cfg.Grid.Cols, cfg.Grid.Rows, cfg.Grid.MinWidth, cfg.Grid.MinHeight, cfg.Grid.MaxWidth, cfg.Grid.MaxHeight)
}

// ScalePyramid builds scale pyramid
func (cfg Config) ScalePyramid() (ScalePyramid, error) {
	if len(cfg.ScaleFactors) > 0 {
		return NewScalePyramidFromFactors(cfg.ScaleFactors)
	}
	return NewScalePyramid(cfg.NumScaleLevels, cfg.ScaleFactor)
}

// Validate checks configuration consistency
func (cfg Config) Validate() error {
	if _, err := cfg.GridParameters(); err != nil {
		return errors.Wrap(err, "grid")
	}
	if _, err := cfg.ScalePyramid(); err != nil {
		return errors.Wrap(err, "scale pyramid")
	}
	if cfg.HammingThresholdLow < 0 || cfg.HammingThresholdLow > MaxHammingDistance {
		return errors.Wrapf(ErrInvalidConfig, "hamming_threshold_low must be in [0, %d], got %d", MaxHammingDistance, cfg.HammingThresholdLow)
	}
	if cfg.HammingThresholdHigh < 0 || cfg.HammingThresholdHigh > MaxHammingDistance {
		return errors.Wrapf(ErrInvalidConfig, "hamming_threshold_high must be in [0, %d], got %d", MaxHammingDistance, cfg.HammingThresholdHigh)
	}
	if cfg.LoweRatio <= 0 || cfg.LoweRatio > 1 {
		return errors.Wrapf(ErrInvalidConfig, "lowe_ratio must be in (0, 1], got %f", cfg.LoweRatio)
	}
	if cfg.DefaultMargin <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "default_margin must be positive, got %f", cfg.DefaultMargin)
	}
	if cfg.OrientationBins <= 0 || cfg.OrientationKeptBins <= 0 || cfg.OrientationKeptBins > cfg.OrientationBins {
		return errors.Wrapf(ErrInvalidConfig, "orientation bins %d / kept %d", cfg.OrientationBins, cfg.OrientationKeptBins)
	}
	if cfg.OrientationMinBinRatio < 0 || cfg.OrientationMinBinRatio > 1 {
		return errors.Wrapf(ErrInvalidConfig, "orientation_min_bin_ratio must be in [0, 1], got %f", cfg.OrientationMinBinRatio)
	}
	switch cfg.Algorithm {
	case MatchingAlgorithmGreedy, MatchingAlgorithmHungarian:
	default:
		return errors.Wrapf(ErrInvalidConfig, "unknown algorithm '%s'", cfg.Algorithm)
	}
	return nil
}

// LoadConfig reads YAML configuration. Missing fields keep their default values
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "Can't read config file %s", path)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "Can't parse config YAML")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SaveConfig writes configuration as YAML
func SaveConfig(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "Can't marshal config YAML")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, "Can't write config file %s", path)
	}
	return nil
}

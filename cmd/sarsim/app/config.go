package app

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/joshuahellier/sarsolver/internal/geom"
	"github.com/joshuahellier/sarsolver/internal/scene"
)

const (
	SpectrumFlat SpectrumType = "flat"
	SpectrumHann SpectrumType = "hann"

	WeightingUniform WeightingType = "uniform"
	WeightingHann    WeightingType = "hann"
)

// LogLevel is a slog level parsed from its yaml text form.
type LogLevel slog.Level

func (l *LogLevel) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}
	*l = LogLevel(level)
	return nil
}

// Level returns the slog form of the level.
func (l LogLevel) Level() slog.Level { return slog.Level(l) }

// SpectrumType selects the transmitted-waveform spectrum shape.
type SpectrumType string

func (t *SpectrumType) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}

	switch SpectrumType(s) {
	case SpectrumFlat, SpectrumHann:
		*t = SpectrumType(s)
		return nil
	}
	return fmt.Errorf("unknown spectrum type '%s'", s)
}

// WeightingType selects the slow-time weighting window.
type WeightingType string

func (t *WeightingType) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}

	switch WeightingType(s) {
	case WeightingUniform, WeightingHann:
		*t = WeightingType(s)
		return nil
	}
	return fmt.Errorf("unknown weighting type '%s'", s)
}

// Config represents the main application configuration
type Config struct {
	Settings Settings       `yaml:"settings"`
	Aperture ApertureConfig `yaml:"aperture"`
	Waveform WaveformConfig `yaml:"waveform"`
	Operator OperatorConfig `yaml:"operator"`
	Scene    SceneConfig    `yaml:"scene"`
	Noise    NoiseConfig    `yaml:"noise"`
	Storage  StorageConfig  `yaml:"storage"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel LogLevel `yaml:"logLevel"`
	Workers  int      `yaml:"workers"`
	Seed     int64    `yaml:"seed"`
}

// ApertureConfig represents the collection track
type ApertureConfig struct {
	Pulses      int     `yaml:"pulses"`
	Standoff    float64 `yaml:"standoff"`
	TrackLength float64 `yaml:"trackLength"`
	Altitude    float64 `yaml:"altitude"`
	Baseline    float64 `yaml:"baseline"`
}

// WaveformConfig represents the transmitted waveform and its sampling
type WaveformConfig struct {
	FastTimes        int           `yaml:"fastTimes"`
	CentreFrequency  float64       `yaml:"centreFrequency"`
	SampleFrequency  float64       `yaml:"sampleFrequency"`
	PropagationSpeed float64       `yaml:"propagationSpeed"`
	Spectrum         SpectrumType  `yaml:"spectrum"`
	Weighting        WeightingType `yaml:"weighting"`
}

// OperatorConfig represents the operator model parameters
type OperatorConfig struct {
	UpsampleRatio  float64 `yaml:"upsampleRatio"`
	SignMultiplier float64 `yaml:"signMultiplier"`
}

// SceneConfig represents the simulated target layout: an optional regular
// grid plus explicit targets
type SceneConfig struct {
	Grid    *GridConfig    `yaml:"grid"`
	Targets []TargetConfig `yaml:"targets"`
}

// GridConfig represents a regular grid of unit targets. Spacing defaults
// to the collection's range cell size.
type GridConfig struct {
	NumX      int       `yaml:"numX"`
	NumY      int       `yaml:"numY"`
	Spacing   float64   `yaml:"spacing"`
	Amplitude []float64 `yaml:"amplitude"`
}

// TargetConfig represents a single scatterer
type TargetConfig struct {
	Position  []float64 `yaml:"position"`
	Amplitude []float64 `yaml:"amplitude"`
}

// NoiseConfig represents additive measurement noise
type NoiseConfig struct {
	Enabled           bool    `yaml:"enabled"`
	StandardDeviation float64 `yaml:"standardDeviation"`
}

// StorageConfig represents storage settings
type StorageConfig struct {
	DataDirectory   string `yaml:"dataDirectory"`
	SessionLabel    string `yaml:"sessionLabel"`
	CollectionLabel string `yaml:"collectionLabel"`
}

// LoadConfig reads, defaults and validates a simulator configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration: %w", err)
	}

	var config Config
	if err = yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	config.applyDefaults()
	if err = config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Settings.Workers <= 0 {
		c.Settings.Workers = runtime.NumCPU()
	}
	if c.Waveform.PropagationSpeed == 0 {
		c.Waveform.PropagationSpeed = geom.SpeedOfLight
	}
	if c.Waveform.Spectrum == "" {
		c.Waveform.Spectrum = SpectrumFlat
	}
	if c.Waveform.Weighting == "" {
		c.Waveform.Weighting = WeightingUniform
	}
	if c.Operator.UpsampleRatio == 0 {
		c.Operator.UpsampleRatio = 1
	}
	if c.Operator.SignMultiplier == 0 {
		c.Operator.SignMultiplier = -1
	}
	if c.Scene.Grid != nil && c.Scene.Grid.Spacing == 0 && c.Waveform.SampleFrequency > 0 {
		c.Scene.Grid.Spacing = scene.RangeResolution(c.Waveform.PropagationSpeed, c.Waveform.SampleFrequency)
	}
	if c.Storage.SessionLabel == "" {
		c.Storage.SessionLabel = "sarsim"
	}
	if c.Storage.CollectionLabel == "" {
		c.Storage.CollectionLabel = "collection"
	}
}

func (c *Config) validate() error {
	if c.Aperture.Pulses < 1 {
		return fmt.Errorf("aperture needs at least one pulse, got %d", c.Aperture.Pulses)
	}
	if c.Aperture.Standoff <= 0 {
		return fmt.Errorf("aperture standoff must be positive, got %g m", c.Aperture.Standoff)
	}
	if c.Waveform.FastTimes < 1 {
		return fmt.Errorf("waveform needs at least one fast-time bin, got %d", c.Waveform.FastTimes)
	}
	if c.Waveform.CentreFrequency <= 0 {
		return fmt.Errorf("centre frequency must be positive, got %g Hz", c.Waveform.CentreFrequency)
	}
	if c.Waveform.SampleFrequency <= 0 {
		return fmt.Errorf("sample frequency must be positive, got %g Hz", c.Waveform.SampleFrequency)
	}
	if c.Waveform.PropagationSpeed <= 0 {
		return fmt.Errorf("propagation speed must be positive, got %g m/s", c.Waveform.PropagationSpeed)
	}
	if c.Operator.UpsampleRatio < 1 {
		return fmt.Errorf("upsample ratio must be at least 1, got %g", c.Operator.UpsampleRatio)
	}
	if c.Operator.SignMultiplier != 1 && c.Operator.SignMultiplier != -1 {
		return fmt.Errorf("sign multiplier must be +1 or -1, got %g", c.Operator.SignMultiplier)
	}
	if c.Scene.Grid == nil && len(c.Scene.Targets) == 0 {
		return fmt.Errorf("scene has no targets")
	}
	if c.Scene.Grid != nil && len(c.Scene.Grid.Amplitude) > 2 {
		return fmt.Errorf("grid amplitude has %d components, want re or re,im", len(c.Scene.Grid.Amplitude))
	}
	for i, target := range c.Scene.Targets {
		if len(target.Position) != 3 {
			return fmt.Errorf("target %d position has %d coordinates, want x,y,z", i, len(target.Position))
		}
		if len(target.Amplitude) > 2 {
			return fmt.Errorf("target %d amplitude has %d components, want re or re,im", i, len(target.Amplitude))
		}
	}
	if c.Noise.Enabled && c.Noise.StandardDeviation <= 0 {
		return fmt.Errorf("noise standard deviation must be positive, got %g", c.Noise.StandardDeviation)
	}
	return nil
}

// complexFromPair reads an amplitude written as [re] or [re, im]; an empty
// list means a unit scatterer.
func complexFromPair(v []float64) complex128 {
	switch len(v) {
	case 0:
		return 1
	case 1:
		return complex(v[0], 0)
	default:
		return complex(v[0], v[1])
	}
}

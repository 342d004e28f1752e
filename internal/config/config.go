package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Transition identifies how consecutive video clips are joined.
type Transition string

const (
	TransitionNone      Transition = "none"
	TransitionFade      Transition = "fade"
	TransitionCrossfade Transition = "crossfade"
)

// ParseTransition validates a transition name.
func ParseTransition(value string) (Transition, error) {
	switch Transition(strings.ToLower(strings.TrimSpace(value))) {
	case TransitionNone:
		return TransitionNone, nil
	case TransitionFade:
		return TransitionFade, nil
	case TransitionCrossfade:
		return TransitionCrossfade, nil
	default:
		return "", fmt.Errorf("unknown transition %q (expected none, fade or crossfade)", value)
	}
}

// Reencode reports whether joining clips under this transition requires a
// re-encode instead of a stream copy.
func (t Transition) Reencode() bool {
	return t != TransitionNone
}

// QuoteStyle selects the quote overlay placement preset.
type QuoteStyle string

const (
	StyleMinimal  QuoteStyle = "minimal"
	StyleCentered QuoteStyle = "centered"
	StyleTop      QuoteStyle = "top"
	StyleBottom   QuoteStyle = "bottom"
)

// ParseQuoteStyle validates a quote style name.
func ParseQuoteStyle(value string) (QuoteStyle, error) {
	switch QuoteStyle(strings.ToLower(strings.TrimSpace(value))) {
	case StyleMinimal:
		return StyleMinimal, nil
	case StyleCentered:
		return StyleCentered, nil
	case StyleTop:
		return StyleTop, nil
	case StyleBottom:
		return StyleBottom, nil
	default:
		return "", fmt.Errorf("unknown quote style %q (expected minimal, centered, top or bottom)", value)
	}
}

// Fixed processing constants. Named here rather than inlined so they can be
// tuned without touching algorithm logic.
const (
	// DefaultBatchSize bounds how many segments a single concat invocation
	// receives, keeping open file handles and argument lists within OS limits.
	DefaultBatchSize = 25

	// MusicFadeSeconds is the fade-in/fade-out applied to the music bed.
	MusicFadeSeconds = 2.0

	// QuoteFadeSeconds is the fade envelope on each quote overlay.
	QuoteFadeSeconds = 0.5
)

// Config captures every knob of a build run.
type Config struct {
	Duration   float64    `yaml:"duration"`
	Output     string     `yaml:"output"`
	FPS        int        `yaml:"fps"`
	Resolution string     `yaml:"resolution"`
	Transition Transition `yaml:"transition"`
	BatchSize  int        `yaml:"batch_size"`
	Seed       int64      `yaml:"seed"`

	Quotes QuotesConfig `yaml:"quotes"`
	Music  MusicConfig  `yaml:"music"`
	Sounds SoundsConfig `yaml:"sounds"`
	Dirs   DirsConfig   `yaml:"dirs"`

	Verbose bool `yaml:"verbose"`
	DryRun  bool `yaml:"dry_run"`
}

// QuotesConfig controls quote scheduling and styling.
type QuotesConfig struct {
	Duration   float64    `yaml:"duration_s"`
	MinBetween float64    `yaml:"min_between_s"`
	MaxBetween float64    `yaml:"max_between_s"`
	Shuffle    bool       `yaml:"shuffle"`
	Style      QuoteStyle `yaml:"style"`
}

// MusicConfig controls the background music track. Shuffle also governs the
// video clip order, matching the behaviour of the original builder.
type MusicConfig struct {
	Volume  float64 `yaml:"volume"`
	Shuffle bool    `yaml:"shuffle"`
}

// SoundsConfig controls ambient sound-effect loops.
type SoundsConfig struct {
	Volume float64 `yaml:"volume"`
}

// DirsConfig holds source directory overrides relative to the run root.
type DirsConfig struct {
	Videos string `yaml:"videos"`
	Music  string `yaml:"music"`
	Sounds string `yaml:"sounds"`
	Quotes string `yaml:"quotes"`
	Temp   string `yaml:"temp"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Output:     "output.mp4",
		FPS:        30,
		Resolution: "1920x1080",
		Transition: TransitionCrossfade,
		BatchSize:  DefaultBatchSize,
		Quotes: QuotesConfig{
			Duration:   5.0,
			MinBetween: 10.0,
			MaxBetween: 30.0,
			Style:      StyleCentered,
		},
		Music: MusicConfig{
			Volume: 0.7,
		},
		Sounds: SoundsConfig{
			Volume: 0.5,
		},
		Dirs: DirsConfig{
			Videos: "videos",
			Music:  "music",
			Sounds: "sounds",
			Quotes: "quotes",
			Temp:   ".tmp",
		},
	}
}

// Load reads the YAML configuration from disk if it exists, otherwise returns
// the default configuration.
func Load(path string) (Config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			cfg.ApplyDefaults()
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults backfills fields whose zero value is never valid. Fields
// where zero is meaningful, such as volumes and the quote spacing bounds,
// are left alone: Load unmarshals over Default(), so a key omitted from the
// YAML keeps its default while an explicit zero survives.
func (c *Config) ApplyDefaults() {
	defaults := Default()

	if c.Output == "" {
		c.Output = defaults.Output
	}
	if c.FPS == 0 {
		c.FPS = defaults.FPS
	}
	if c.Resolution == "" {
		c.Resolution = defaults.Resolution
	}
	if c.Transition == "" {
		c.Transition = defaults.Transition
	}
	if c.BatchSize == 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.Quotes.Duration == 0 {
		c.Quotes.Duration = defaults.Quotes.Duration
	}
	if c.Quotes.Style == "" {
		c.Quotes.Style = defaults.Quotes.Style
	}
	if c.Dirs.Videos == "" {
		c.Dirs.Videos = defaults.Dirs.Videos
	}
	if c.Dirs.Music == "" {
		c.Dirs.Music = defaults.Dirs.Music
	}
	if c.Dirs.Sounds == "" {
		c.Dirs.Sounds = defaults.Dirs.Sounds
	}
	if c.Dirs.Quotes == "" {
		c.Dirs.Quotes = defaults.Dirs.Quotes
	}
	if c.Dirs.Temp == "" {
		c.Dirs.Temp = defaults.Dirs.Temp
	}
}

// ResolutionSize parses the "WIDTHxHEIGHT" resolution string.
func (c Config) ResolutionSize() (int, int, error) {
	parts := strings.SplitN(strings.ToLower(strings.TrimSpace(c.Resolution)), "x", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid resolution %q (expected WIDTHxHEIGHT)", c.Resolution)
	}
	width, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid resolution width %q", parts[0])
	}
	height, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid resolution height %q", parts[1])
	}
	return width, height, nil
}

// Marshal returns the YAML encoding of the configuration.
func (c Config) Marshal() ([]byte, error) {
	buf, err := yaml.Marshal(&c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return buf, nil
}

package config

import (
	"os"
	"strconv"
	"strings"
)

// EnvPrefix is prepended to every environment override key, e.g.
// LOOPBUILDER_DURATION=600 or LOOPBUILDER_MUSIC_SHUFFLE=true.
const EnvPrefix = "LOOPBUILDER_"

// ApplyEnv overlays environment variable overrides onto the config.
// CLI flags are applied after this, so flags win over the environment.
func (c *Config) ApplyEnv() {
	envFloat("DURATION", &c.Duration)
	envString("OUTPUT", &c.Output)
	envInt("FPS", &c.FPS)
	envString("RESOLUTION", &c.Resolution)
	envInt("BATCH_SIZE", &c.BatchSize)
	envInt64("SEED", &c.Seed)

	if v, ok := lookup("TRANSITION"); ok {
		if t, err := ParseTransition(v); err == nil {
			c.Transition = t
		}
	}
	if v, ok := lookup("QUOTE_STYLE"); ok {
		if s, err := ParseQuoteStyle(v); err == nil {
			c.Quotes.Style = s
		}
	}

	envFloat("QUOTES_DURATION", &c.Quotes.Duration)
	envFloat("QUOTES_MIN_BETWEEN", &c.Quotes.MinBetween)
	envFloat("QUOTES_MAX_BETWEEN", &c.Quotes.MaxBetween)
	envBool("QUOTES_SHUFFLE", &c.Quotes.Shuffle)

	envFloat("MUSIC_VOLUME", &c.Music.Volume)
	envBool("MUSIC_SHUFFLE", &c.Music.Shuffle)
	envFloat("SOUNDS_VOLUME", &c.Sounds.Volume)

	envBool("VERBOSE", &c.Verbose)
	envBool("DRY_RUN", &c.DryRun)
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func envString(key string, dst *string) {
	if v, ok := lookup(key); ok {
		*dst = v
	}
}

func envFloat(key string, dst *float64) {
	if v, ok := lookup(key); ok {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = parsed
		}
	}
}

func envInt(key string, dst *int) {
	if v, ok := lookup(key); ok {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		}
	}
}

func envInt64(key string, dst *int64) {
	if v, ok := lookup(key); ok {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = parsed
		}
	}
}

func envBool(key string, dst *bool) {
	if v, ok := lookup(key); ok {
		switch strings.ToLower(v) {
		case "true", "1", "yes", "on":
			*dst = true
		case "false", "0", "no", "off":
			*dst = false
		}
	}
}

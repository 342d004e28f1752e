package config

import (
	"fmt"
	"strings"
)

// ValidationError reports invalid configuration values. It is fatal before
// any processing starts.
type ValidationError struct {
	Findings []string
}

func (e *ValidationError) Error() string {
	if len(e.Findings) == 1 {
		return "invalid config: " + e.Findings[0]
	}
	return fmt.Sprintf("invalid config (%d findings):\n  %s", len(e.Findings), strings.Join(e.Findings, "\n  "))
}

// Validate checks every configuration value before the pipeline runs.
// It returns a *ValidationError listing all findings, or nil.
func (c Config) Validate() error {
	var findings []string

	if c.Duration <= 0 {
		findings = append(findings, fmt.Sprintf("duration must be positive, got %v", c.Duration))
	}
	if c.Quotes.Duration <= 0 {
		findings = append(findings, fmt.Sprintf("quote duration must be positive, got %v", c.Quotes.Duration))
	}
	if c.Quotes.MinBetween < 0 {
		findings = append(findings, fmt.Sprintf("quotes min-between must be non-negative, got %v", c.Quotes.MinBetween))
	}
	if c.Quotes.MaxBetween < c.Quotes.MinBetween {
		findings = append(findings, fmt.Sprintf("quotes max-between (%v) must be >= min-between (%v)", c.Quotes.MaxBetween, c.Quotes.MinBetween))
	}
	if c.Music.Volume < 0 || c.Music.Volume > 1 {
		findings = append(findings, fmt.Sprintf("music volume must be between 0.0 and 1.0, got %v", c.Music.Volume))
	}
	if c.Sounds.Volume < 0 || c.Sounds.Volume > 1 {
		findings = append(findings, fmt.Sprintf("sounds volume must be between 0.0 and 1.0, got %v", c.Sounds.Volume))
	}
	if c.FPS <= 0 {
		findings = append(findings, fmt.Sprintf("fps must be positive, got %d", c.FPS))
	}
	if c.BatchSize <= 0 {
		findings = append(findings, fmt.Sprintf("batch size must be positive, got %d", c.BatchSize))
	}

	if width, height, err := c.ResolutionSize(); err != nil {
		findings = append(findings, err.Error())
	} else if width <= 0 || height <= 0 {
		findings = append(findings, fmt.Sprintf("resolution must have positive dimensions, got %dx%d", width, height))
	}

	if _, err := ParseTransition(string(c.Transition)); err != nil {
		findings = append(findings, err.Error())
	}
	if _, err := ParseQuoteStyle(string(c.Quotes.Style)); err != nil {
		findings = append(findings, err.Error())
	}
	if strings.TrimSpace(c.Output) == "" {
		findings = append(findings, "output path must not be empty")
	}

	if len(findings) > 0 {
		return &ValidationError{Findings: findings}
	}
	return nil
}

package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"loopbuilder/internal/config"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestInitScaffoldsRunDirectory(t *testing.T) {
	dir := t.TempDir()

	out, err := runCommand(t, "init", "--root", dir)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if !strings.Contains(out, "Initialized") {
		t.Errorf("unexpected output: %s", out)
	}

	for _, sub := range []string{"videos", "music", "sounds", "quotes"} {
		if _, err := os.Stat(filepath.Join(dir, sub)); err != nil {
			t.Errorf("missing %s: %v", sub, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "loopbuilder.yaml")); err != nil {
		t.Errorf("missing config: %v", err)
	}
}

func TestInitRefusesExistingConfig(t *testing.T) {
	dir := t.TempDir()
	if _, err := runCommand(t, "init", "--root", dir); err != nil {
		t.Fatal(err)
	}
	if _, err := runCommand(t, "init", "--root", dir); err == nil {
		t.Error("second init should fail")
	}
}

func TestBuildDryRun(t *testing.T) {
	dir := t.TempDir()
	if _, err := runCommand(t, "init", "--root", dir); err != nil {
		t.Fatal(err)
	}

	out, err := runCommand(t, "build", "--root", dir, "--duration", "600", "--dry-run")
	if err != nil {
		t.Fatalf("build --dry-run: %v", err)
	}
	if !strings.Contains(out, "Build plan") {
		t.Errorf("missing plan header: %s", out)
	}
	if !strings.Contains(out, "10m0s") {
		t.Errorf("missing target duration: %s", out)
	}
	if !strings.Contains(out, "dry run") {
		t.Errorf("missing dry run notice: %s", out)
	}
}

func TestBuildDryRunFromEnv(t *testing.T) {
	dir := t.TempDir()
	if _, err := runCommand(t, "init", "--root", dir); err != nil {
		t.Fatal(err)
	}
	t.Setenv(config.EnvPrefix+"DRY_RUN", "true")

	out, err := runCommand(t, "build", "--root", dir, "--duration", "600")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !strings.Contains(out, "dry run") {
		t.Errorf("environment dry run override ignored: %s", out)
	}
}

func TestBuildQuoteSchedulingFlags(t *testing.T) {
	cmd := newBuildCmd()
	args := []string{
		"--quote-duration", "8",
		"--quote-min-between", "0",
		"--quote-max-between", "0",
		"--quote-shuffle",
	}
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	if err := applyBuildFlags(cmd, &cfg); err != nil {
		t.Fatalf("applyBuildFlags: %v", err)
	}
	if cfg.Quotes.Duration != 8 || !cfg.Quotes.Shuffle {
		t.Errorf("Quotes = %+v", cfg.Quotes)
	}
	// An explicit zero on a changed flag overrides the default spacing.
	if cfg.Quotes.MinBetween != 0 || cfg.Quotes.MaxBetween != 0 {
		t.Errorf("quote spacing = %v/%v, want 0/0",
			cfg.Quotes.MinBetween, cfg.Quotes.MaxBetween)
	}
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	if _, err := runCommand(t, "init", "--root", dir); err != nil {
		t.Fatal(err)
	}

	if _, err := runCommand(t, "build", "--root", dir, "--duration", "-10", "--dry-run"); err == nil {
		t.Error("negative duration should fail validation")
	}
	if _, err := runCommand(t, "build", "--root", dir, "--duration", "600", "--transition", "wipe", "--dry-run"); err == nil {
		t.Error("unknown transition should fail")
	}
}

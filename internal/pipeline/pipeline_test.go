package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"loopbuilder/internal/config"
	"loopbuilder/internal/engine"
	"loopbuilder/internal/paths"
)

type fakeRunner struct {
	probeDuration string
	calls         [][]string
}

func (f *fakeRunner) Run(ctx context.Context, command string, args []string) (engine.RunResult, error) {
	f.calls = append(f.calls, append([]string{command}, args...))
	if command == "ffprobe" {
		return engine.RunResult{Stdout: []byte(f.probeDuration + "\n")}, nil
	}
	// Output path is always the last argument.
	if err := os.WriteFile(args[len(args)-1], []byte("data"), 0o644); err != nil {
		return engine.RunResult{}, err
	}
	return engine.RunResult{}, nil
}

func testRun(t *testing.T, mutate func(*config.Config)) (*Pipeline, *fakeRunner, paths.RunPaths) {
	t.Helper()
	root := t.TempDir()

	cfg := config.Default()
	cfg.Duration = 120
	cfg.Seed = 42
	if mutate != nil {
		mutate(&cfg)
	}

	rp, err := paths.Resolve(root)
	if err != nil {
		t.Fatal(err)
	}
	rp = paths.ApplyConfig(rp, cfg)

	for _, dir := range []string{rp.VideosDir, rp.MusicDir, rp.SoundsDir, rp.QuotesDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}

	runner := &fakeRunner{probeDuration: "60.0"}
	eng := engine.NewWithPaths(zerolog.Nop(), rp.TempDir, runner, "ffmpeg", "ffprobe")
	return New(cfg, rp, eng, zerolog.Nop()), runner, rp
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRunFullBuild(t *testing.T) {
	p, runner, rp := testRun(t, nil)
	writeFile(t, filepath.Join(rp.VideosDir, "a.mp4"), "x")
	writeFile(t, filepath.Join(rp.VideosDir, "b.mp4"), "x")
	writeFile(t, filepath.Join(rp.MusicDir, "song.mp3"), "x")
	writeFile(t, filepath.Join(rp.QuotesDir, "q1.txt"), "stay a while")

	var stages []string
	p.OnProgress(func(stage string) { stages = append(stages, stage) })

	result, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Output != rp.OutputFile {
		t.Errorf("output %q, want %q", result.Output, rp.OutputFile)
	}
	if !result.HasAudio {
		t.Error("expected audio in result")
	}
	if result.Quotes == 0 {
		t.Error("expected at least one quote window")
	}

	want := []string{StagePreflight, StageVideo, StageAudio, StageQuotes, StageRender, StageDone}
	if len(stages) != len(want) {
		t.Fatalf("stages %v, want %v", stages, want)
	}
	for i := range want {
		if stages[i] != want[i] {
			t.Errorf("stage %d = %q, want %q", i, stages[i], want[i])
		}
	}

	// The render call maps both streams and carries the drawtext overlay.
	final := runner.calls[len(runner.calls)-1]
	joined := strings.Join(final, " ")
	if !strings.Contains(joined, "drawtext=") {
		t.Errorf("final render missing overlay: %s", joined)
	}
	if !strings.Contains(joined, "-shortest") {
		t.Errorf("final render missing -shortest: %s", joined)
	}

	// Scratch space is removed after a successful run.
	if _, err := os.Stat(rp.TempDir); !os.IsNotExist(err) {
		t.Errorf("temp dir should be removed, stat err = %v", err)
	}
}

func TestRunSilentWithoutAudioSources(t *testing.T) {
	p, _, rp := testRun(t, nil)
	writeFile(t, filepath.Join(rp.VideosDir, "a.mp4"), "x")

	result, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.HasAudio {
		t.Error("no audio sources should yield a silent result")
	}
}

func TestRunKeepsTempOnFailure(t *testing.T) {
	p, _, rp := testRun(t, nil)
	// No video clips at all: the video stage fails.

	_, err := p.Run(context.Background())
	if err == nil {
		t.Fatal("expected failure with empty clip library")
	}
	if _, statErr := os.Stat(rp.TempDir); statErr != nil {
		t.Errorf("temp dir should survive a failed run: %v", statErr)
	}
}

func TestRunRejectsImpossibleDiskDemand(t *testing.T) {
	p, runner, rp := testRun(t, func(cfg *config.Config) {
		// Petabytes of estimated output.
		cfg.Duration = 1e12
	})
	writeFile(t, filepath.Join(rp.VideosDir, "a.mp4"), "x")

	_, err := p.Run(context.Background())
	var resErr *ResourceError
	if !errors.As(err, &resErr) {
		t.Fatalf("want ResourceError, got %v", err)
	}
	if len(runner.calls) != 0 {
		t.Errorf("engine invoked %d times before preflight failure", len(runner.calls))
	}
	if !strings.Contains(resErr.Error(), "disk space") {
		t.Errorf("unexpected message: %s", resErr.Error())
	}
}

func TestEstimateRunBytes(t *testing.T) {
	tests := []struct {
		name   string
		height int
		mbps   float64
	}{
		{"1080p", 1080, mbps1080},
		{"1440p", 1440, mbps1080},
		{"720p", 720, mbps720},
		{"480p", 480, mbpsSD},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := estimateRunBytes(600, tc.height)
			want := uint64(600 * tc.mbps / 8 * 1e6 * scratchMultiple * freeSpaceHeadroom)
			if got != want {
				t.Errorf("estimate = %d, want %d", got, want)
			}
		})
	}
}

func TestSeedReproducesQuoteSchedule(t *testing.T) {
	run := func() int {
		p, _, rp := testRun(t, func(cfg *config.Config) {
			cfg.Seed = 7
			cfg.Duration = 300
		})
		writeFile(t, filepath.Join(rp.VideosDir, "a.mp4"), "x")
		writeFile(t, filepath.Join(rp.QuotesDir, "q.txt"), "hello")

		result, err := p.Run(context.Background())
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		return result.Quotes
	}

	if first, second := run(), run(); first != second {
		t.Errorf("same seed produced %d and %d quote windows", first, second)
	}
}

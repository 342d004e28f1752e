package pipeline

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"loopbuilder/internal/assemble"
	"loopbuilder/internal/audio"
	"loopbuilder/internal/config"
	"loopbuilder/internal/engine"
	"loopbuilder/internal/mux"
	"loopbuilder/internal/paths"
	"loopbuilder/internal/quotes"
)

// Stage names reported through the progress callback, in run order.
const (
	StagePreflight = "preflight"
	StageVideo     = "video"
	StageAudio     = "audio"
	StageQuotes    = "quotes"
	StageRender    = "render"
	StageDone      = "done"
)

// ProgressFunc receives the name of each stage as it starts.
type ProgressFunc func(stage string)

// Result summarizes a completed run.
type Result struct {
	Output   string
	Duration float64
	Quotes   int
	HasAudio bool
	Elapsed  time.Duration
}

// Pipeline drives a full build: fit the clips, build the audio mix, schedule
// the quotes and render the final file.
type Pipeline struct {
	cfg      config.Config
	rp       paths.RunPaths
	eng      *engine.Engine
	log      zerolog.Logger
	rng      *rand.Rand
	progress ProgressFunc
}

// New wires a pipeline for one run. The random source is seeded from the
// config seed when set, so runs can be reproduced.
func New(cfg config.Config, rp paths.RunPaths, eng *engine.Engine, log zerolog.Logger) *Pipeline {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	// Downstream stages scan by directory, so point the config at the
	// resolved run locations.
	cfg.Dirs.Videos = rp.VideosDir
	cfg.Dirs.Music = rp.MusicDir
	cfg.Dirs.Sounds = rp.SoundsDir
	cfg.Dirs.Quotes = rp.QuotesDir
	cfg.Dirs.Temp = rp.TempDir

	return &Pipeline{
		cfg:      cfg,
		rp:       rp,
		eng:      eng,
		log:      log,
		rng:      rand.New(rand.NewSource(seed)),
		progress: func(string) {},
	}
}

// OnProgress registers a callback invoked at the start of every stage.
func (p *Pipeline) OnProgress(fn ProgressFunc) {
	if fn != nil {
		p.progress = fn
	}
}

// Run executes the full build and returns the finished output location. The
// scratch directory is removed on success and kept on failure for inspection.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	started := time.Now()

	p.progress(StagePreflight)
	width, height, err := p.cfg.ResolutionSize()
	if err != nil {
		return Result{}, err
	}
	if err := checkDiskSpace(p.rp.Root, p.cfg.Duration, height); err != nil {
		return Result{}, err
	}
	if err := p.rp.EnsureTempDirs(); err != nil {
		return Result{}, err
	}
	p.writeRunManifest()
	p.log.Info().
		Float64("duration", p.cfg.Duration).
		Int("width", width).
		Int("height", height).
		Msg("starting build")

	p.progress(StageVideo)
	video, err := p.BuildVideoTimeline(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("build video track: %w", err)
	}

	p.progress(StageAudio)
	audioTrack, err := p.BuildAudioTimeline(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("build audio track: %w", err)
	}

	p.progress(StageQuotes)
	windows, err := p.ScheduleQuotes()
	if err != nil {
		return Result{}, fmt.Errorf("load quotes: %w", err)
	}

	p.progress(StageRender)
	if err := p.Finalize(ctx, video, audioTrack, windows); err != nil {
		return Result{}, fmt.Errorf("render output: %w", err)
	}

	if err := p.rp.CleanupTemp(); err != nil {
		p.log.Warn().Err(err).Msg("temp cleanup failed")
	}

	p.progress(StageDone)
	result := Result{
		Output:   p.rp.OutputFile,
		Duration: p.cfg.Duration,
		Quotes:   len(windows),
		HasAudio: audioTrack != "",
		Elapsed:  time.Since(started),
	}
	p.log.Info().
		Str("output", result.Output).
		Dur("elapsed", result.Elapsed).
		Msg("build finished")
	return result, nil
}

// writeRunManifest snapshots the resolved configuration next to the run
// logs, so a failed run's scratch dir records exactly what was asked for.
func (p *Pipeline) writeRunManifest() {
	data, err := p.cfg.Marshal()
	if err != nil {
		p.log.Warn().Err(err).Msg("run manifest not written")
		return
	}
	manifest := filepath.Join(p.rp.LogsDir, "config.yaml")
	if err := os.WriteFile(manifest, data, 0o644); err != nil {
		p.log.Warn().Err(err).Msg("run manifest not written")
	}
}

// BuildVideoTimeline produces the silent video track covering the target
// duration.
func (p *Pipeline) BuildVideoTimeline(ctx context.Context) (string, error) {
	return assemble.New(p.eng, p.cfg, p.log, p.rng).BuildVideoTrack(ctx)
}

// BuildAudioTimeline produces the mixed audio track, or "" when no music and
// no sounds exist.
func (p *Pipeline) BuildAudioTimeline(ctx context.Context) (string, error) {
	return audio.NewBuilder(p.eng, p.cfg, p.log, p.rng).BuildAudioTrack(ctx)
}

// ScheduleQuotes loads the quote pool and builds the display schedule.
func (p *Pipeline) ScheduleQuotes() ([]quotes.Window, error) {
	pool, err := quotes.LoadPool(p.rp.QuotesDir, p.log)
	if err != nil {
		return nil, err
	}
	return quotes.Schedule(pool, p.cfg, p.rng), nil
}

// Finalize renders the overlay and muxes the tracks into the output file.
func (p *Pipeline) Finalize(ctx context.Context, video, audioTrack string, windows []quotes.Window) error {
	return mux.New(p.eng, p.log).Finalize(ctx, video, audioTrack, windows, p.cfg.Quotes.Style, p.rp.OutputFile)
}

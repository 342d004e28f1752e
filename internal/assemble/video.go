package assemble

import (
	"context"
	"math/rand"

	"github.com/rs/zerolog"

	"loopbuilder/internal/config"
	"loopbuilder/internal/engine"
	"loopbuilder/internal/media"
	"loopbuilder/internal/timeline"
)

// Assembler turns the clip library into one continuous video track of the
// configured duration.
type Assembler struct {
	eng *engine.Engine
	cfg config.Config
	log zerolog.Logger
	rng *rand.Rand
}

func New(eng *engine.Engine, cfg config.Config, log zerolog.Logger, rng *rand.Rand) *Assembler {
	return &Assembler{eng: eng, cfg: cfg, log: log, rng: rng}
}

// BuildVideoTrack scans the clip directory, fits the clips to the target
// duration, normalizes each distinct source once, and concatenates the
// resulting sequence in batches. The returned path is the silent video track
// ready for muxing.
func (a *Assembler) BuildVideoTrack(ctx context.Context) (string, error) {
	items, err := a.probeClips(ctx)
	if err != nil {
		return "", err
	}

	plan, err := timeline.Fit(items, a.cfg.Duration, a.cfg.Music.Shuffle, a.rng)
	if err != nil {
		return "", err
	}
	a.log.Info().
		Int("segments", len(plan.Items)).
		Float64("total", plan.TotalDuration()).
		Float64("trim", plan.TrimLastBy).
		Msg("video timeline planned")

	segments, err := a.normalizeSegments(ctx, plan.Items)
	if err != nil {
		return "", err
	}

	if len(segments) == 1 && plan.TrimLastBy == 0 {
		return segments[0], nil
	}

	track, err := concatBatches(ctx, a.eng, segments, a.cfg.BatchSize, a.cfg.Transition.Reencode())
	if err != nil {
		return "", err
	}

	if plan.TrimLastBy > 0 {
		track, err = a.eng.Trim(ctx, track, a.cfg.Duration)
		if err != nil {
			return "", err
		}
	}
	return track, nil
}

// probeClips scans and durations the clip library, dropping anything the
// engine cannot probe.
func (a *Assembler) probeClips(ctx context.Context) ([]timeline.Item, error) {
	scan, err := media.Scan(a.cfg.Dirs.Videos, media.VideoFormats)
	if err != nil {
		return nil, err
	}
	if scan.Dropped > 0 {
		a.log.Warn().Int("dropped", scan.Dropped).Msg("skipped unreadable video files")
	}

	var items []timeline.Item
	for _, clip := range scan.Items {
		duration, err := a.eng.ProbeDuration(ctx, clip.Path)
		if err != nil {
			a.log.Warn().Str("file", clip.Path).Err(err).Msg("skipping clip, probe failed")
			continue
		}
		if duration <= 0 {
			a.log.Warn().Str("file", clip.Path).Msg("skipping clip, zero duration")
			continue
		}
		items = append(items, timeline.Item{Path: clip.Path, Duration: duration})
	}
	if len(items) == 0 {
		return nil, &media.IntegrityError{
			Dir:    a.cfg.Dirs.Videos,
			Reason: "no usable video clips",
		}
	}
	return items, nil
}

// normalizeSegments maps each planned segment to a scaled, padded, fps-locked
// artifact. A source appearing multiple times in the plan is normalized once
// and its artifact reused.
func (a *Assembler) normalizeSegments(ctx context.Context, items []timeline.Item) ([]string, error) {
	width, height, err := a.cfg.ResolutionSize()
	if err != nil {
		return nil, err
	}

	normalized := make(map[string]string, len(items))
	segments := make([]string, 0, len(items))
	for _, item := range items {
		artifact, ok := normalized[item.Path]
		if !ok {
			artifact, err = a.eng.ScaleAndPad(ctx, item.Path, width, height, a.cfg.FPS)
			if err != nil {
				return nil, err
			}
			normalized[item.Path] = artifact
		}
		segments = append(segments, artifact)
	}
	return segments, nil
}

package audio

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"loopbuilder/internal/config"
	"loopbuilder/internal/engine"
	"loopbuilder/internal/media"
	"loopbuilder/internal/timeline"
)

// Builder assembles the mixed audio track: background music fitted to the
// target duration plus ambient sound loops, mixed with the music as the
// duration reference.
type Builder struct {
	eng *engine.Engine
	cfg config.Config
	log zerolog.Logger
	rng *rand.Rand
}

func NewBuilder(eng *engine.Engine, cfg config.Config, log zerolog.Logger, rng *rand.Rand) *Builder {
	return &Builder{eng: eng, cfg: cfg, log: log, rng: rng}
}

// BuildAudioTrack returns the path of the mixed audio track, or "" when no
// music and no sounds are available. The video is muxed silent in that case.
func (b *Builder) BuildAudioTrack(ctx context.Context) (string, error) {
	music, err := b.buildMusic(ctx)
	if err != nil {
		return "", err
	}

	sounds, err := b.buildSounds(ctx)
	if err != nil {
		return "", err
	}

	inputs := make([]string, 0, len(sounds)+1)
	if music != "" {
		inputs = append(inputs, music)
	}
	inputs = append(inputs, sounds...)

	if len(inputs) == 0 {
		b.log.Info().Msg("no audio sources, output will be silent")
		return "", nil
	}

	// Music, when present, sits at index 0 and anchors the mix duration.
	return b.eng.MixTracks(ctx, inputs, 0)
}

// buildMusic fits the music library to the target duration and applies volume
// and edge fades. Returns "" when the library is empty.
func (b *Builder) buildMusic(ctx context.Context) (string, error) {
	scan, err := media.Scan(b.cfg.Dirs.Music, media.AudioFormats)
	if err != nil {
		return "", err
	}
	if len(scan.Items) == 0 {
		return "", nil
	}

	var items []timeline.Item
	for _, track := range scan.Items {
		duration, err := b.eng.ProbeDuration(ctx, track.Path)
		if err != nil {
			b.log.Warn().Str("file", track.Path).Err(err).Msg("skipping track, probe failed")
			continue
		}
		if duration <= 0 {
			continue
		}
		items = append(items, timeline.Item{Path: track.Path, Duration: duration})
	}
	if len(items) == 0 {
		return "", nil
	}

	plan, err := timeline.Fit(items, b.cfg.Duration, b.cfg.Music.Shuffle, b.rng)
	if err != nil {
		return "", err
	}
	b.log.Info().Int("tracks", len(plan.Items)).Msg("music timeline planned")

	var track string
	if len(plan.Items) == 1 {
		track, err = b.eng.NormalizeAudio(ctx, plan.Items[0].Path)
	} else {
		paths := make([]string, len(plan.Items))
		for i, item := range plan.Items {
			paths[i] = item.Path
		}
		track, err = b.eng.ConcatAudio(ctx, paths)
	}
	if err != nil {
		return "", err
	}

	track, err = b.eng.LoopToDuration(ctx, track, b.cfg.Duration)
	if err != nil {
		return "", err
	}
	return b.eng.ApplyAudioFilter(ctx, track, musicFilter(b.cfg.Music.Volume, b.cfg.Duration))
}

// buildSounds loops every ambient sound file to the full duration at the
// configured volume.
func (b *Builder) buildSounds(ctx context.Context) ([]string, error) {
	scan, err := media.Scan(b.cfg.Dirs.Sounds, media.AudioFormats)
	if err != nil {
		return nil, err
	}

	var tracks []string
	for _, sound := range scan.Items {
		looped, err := b.eng.LoopToDuration(ctx, sound.Path, b.cfg.Duration)
		if err != nil {
			return nil, err
		}
		filtered, err := b.eng.ApplyAudioFilter(ctx, looped, soundFilter(b.cfg.Sounds.Volume))
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, filtered)
	}
	return tracks, nil
}

// musicFilter scales the track volume and fades the edges in and out over
// the standard fade length.
func musicFilter(volume, duration float64) string {
	fade := config.MusicFadeSeconds
	fadeOutStart := math.Max(0, duration-fade)
	return strings.Join([]string{
		"volume=" + formatFloat(volume),
		fmt.Sprintf("afade=t=in:st=0:d=%s", formatFloat(fade)),
		fmt.Sprintf("afade=t=out:st=%s:d=%s", formatFloat(fadeOutStart), formatFloat(fade)),
	}, ",")
}

func soundFilter(volume float64) string {
	return "volume=" + formatFloat(volume)
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

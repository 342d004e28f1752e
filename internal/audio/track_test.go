package audio

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"loopbuilder/internal/config"
	"loopbuilder/internal/engine"
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
	return engine.RunResult{}, nil
}

func (f *fakeRunner) find(substr string) []string {
	for _, call := range f.calls {
		if strings.Contains(strings.Join(call, " "), substr) {
			return call
		}
	}
	return nil
}

func testBuilder(t *testing.T, runner engine.Runner, mutate func(*config.Config)) *Builder {
	t.Helper()
	cfg := config.Default()
	cfg.Duration = 600
	cfg.Dirs.Music = filepath.Join(t.TempDir(), "music")
	cfg.Dirs.Sounds = filepath.Join(t.TempDir(), "sounds")
	if mutate != nil {
		mutate(&cfg)
	}
	eng := engine.NewWithPaths(zerolog.Nop(), t.TempDir(), runner, "ffmpeg", "ffprobe")
	return NewBuilder(eng, cfg, zerolog.Nop(), rand.New(rand.NewSource(1)))
}

func writeAudio(t *testing.T, dir string, names ...string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestMusicFilter(t *testing.T) {
	got := musicFilter(0.7, 600)
	want := "volume=0.7,afade=t=in:st=0:d=2,afade=t=out:st=598:d=2"
	if got != want {
		t.Errorf("musicFilter = %q, want %q", got, want)
	}
}

func TestMusicFilterShortTrack(t *testing.T) {
	// A track shorter than the fade length fades out from the start
	// instead of a negative offset.
	got := musicFilter(1.0, 1)
	if !strings.Contains(got, "afade=t=out:st=0:d=2") {
		t.Errorf("fade-out start should clamp to 0: %q", got)
	}
}

func TestSoundFilter(t *testing.T) {
	if got := soundFilter(0.5); got != "volume=0.5" {
		t.Errorf("soundFilter = %q", got)
	}
}

func TestBuildAudioTrackNoSources(t *testing.T) {
	runner := &fakeRunner{probeDuration: "100.0"}
	b := testBuilder(t, runner, nil)

	track, err := b.BuildAudioTrack(context.Background())
	if err != nil {
		t.Fatalf("BuildAudioTrack: %v", err)
	}
	if track != "" {
		t.Errorf("no sources should yield empty track, got %q", track)
	}
	if len(runner.calls) != 0 {
		t.Errorf("engine invoked %d times with no sources", len(runner.calls))
	}
}

func TestBuildAudioTrackMusicOnly(t *testing.T) {
	runner := &fakeRunner{probeDuration: "400.0"}
	b := testBuilder(t, runner, nil)
	writeAudio(t, b.cfg.Dirs.Music, "a.mp3", "b.mp3")

	track, err := b.BuildAudioTrack(context.Background())
	if err != nil {
		t.Fatalf("BuildAudioTrack: %v", err)
	}
	if track == "" {
		t.Fatal("empty track path")
	}

	// Two 400s tracks fit a 600s target as a two-entry plan, so a concat
	// runs before the loop and filter stages.
	if call := runner.find("-f concat"); call == nil {
		t.Error("expected audio concat call")
	}
	if call := runner.find("-stream_loop -1"); call == nil {
		t.Error("expected loop call")
	} else if !strings.Contains(strings.Join(call, " "), "-t 600") {
		t.Errorf("loop should cut at 600s: %v", call)
	}
	if call := runner.find("afade=t=out:st=598:d=2"); call == nil {
		t.Error("expected music fade filter call")
	}
	// Music alone mixes down to a single-input normalization.
	if call := runner.find("amix"); call != nil {
		t.Errorf("single track should not amix: %v", call)
	}
}

func TestBuildAudioTrackMixesMusicAndSounds(t *testing.T) {
	runner := &fakeRunner{probeDuration: "700.0"}
	b := testBuilder(t, runner, nil)
	writeAudio(t, b.cfg.Dirs.Music, "song.mp3")
	writeAudio(t, b.cfg.Dirs.Sounds, "rain.mp3", "wind.mp3")

	track, err := b.BuildAudioTrack(context.Background())
	if err != nil {
		t.Fatalf("BuildAudioTrack: %v", err)
	}
	if track == "" {
		t.Fatal("empty track path")
	}

	call := runner.find("amix")
	if call == nil {
		t.Fatal("expected amix call")
	}
	joined := strings.Join(call, " ")
	if !strings.Contains(joined, "amix=inputs=3:duration=first:dropout_transition=2") {
		t.Errorf("mix filter wrong: %s", joined)
	}

	// Both sounds are looped to the full duration at the ambient volume.
	var soundFilters int
	for _, c := range runner.calls {
		if strings.Contains(strings.Join(c, " "), "-filter:a volume=0.5") {
			soundFilters++
		}
	}
	if soundFilters != 2 {
		t.Errorf("sound volume filters = %d, want 2", soundFilters)
	}
}

func TestBuildAudioTrackSoundsOnly(t *testing.T) {
	runner := &fakeRunner{probeDuration: "60.0"}
	b := testBuilder(t, runner, nil)
	writeAudio(t, b.cfg.Dirs.Sounds, "rain.mp3")

	track, err := b.BuildAudioTrack(context.Background())
	if err != nil {
		t.Fatalf("BuildAudioTrack: %v", err)
	}
	if track == "" {
		t.Fatal("empty track path")
	}
	if call := runner.find("amix"); call != nil {
		t.Errorf("single sound should not amix: %v", call)
	}
}

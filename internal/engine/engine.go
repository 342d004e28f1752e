package engine

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Encoding parameters shared by every re-encoding operation.
const (
	videoCodec   = "libx264"
	videoPreset  = "medium"
	videoCRF     = "23"
	audioCodec   = "libmp3lame"
	muxCodec     = "aac"
	audioBitrate = "192k"
)

// Engine wraps ffmpeg/ffprobe as an opaque transcode capability. All
// intermediate artifacts are written to the run's temp directory under
// uuid names and discarded with it.
type Engine struct {
	log     zerolog.Logger
	runner  Runner
	ffmpeg  string
	ffprobe string
	tempDir string
}

// New locates ffmpeg and ffprobe on PATH and binds the engine to a temp
// directory for intermediate artifacts.
func New(logger zerolog.Logger, tempDir string, runner Runner) (*Engine, error) {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}
	ffprobePath, err := exec.LookPath("ffprobe")
	if err != nil {
		return nil, fmt.Errorf("ffprobe not found in PATH: %w", err)
	}
	if runner == nil {
		runner = CmdRunner{}
	}

	return &Engine{
		log:     logger.With().Str("component", "engine").Logger(),
		runner:  runner,
		ffmpeg:  ffmpegPath,
		ffprobe: ffprobePath,
		tempDir: tempDir,
	}, nil
}

// NewWithPaths binds the engine to explicit ffmpeg and ffprobe binaries,
// bypassing the PATH lookup.
func NewWithPaths(logger zerolog.Logger, tempDir string, runner Runner, ffmpeg, ffprobe string) *Engine {
	if runner == nil {
		runner = CmdRunner{}
	}
	return &Engine{
		log:     logger.With().Str("component", "engine").Logger(),
		runner:  runner,
		ffmpeg:  ffmpeg,
		ffprobe: ffprobe,
		tempDir: tempDir,
	}
}

// TempFile returns a unique scratch path with the given extension.
func (e *Engine) TempFile(ext string) string {
	return filepath.Join(e.tempDir, "tmp_"+uuid.NewString()+ext)
}

// ProbeDuration returns the container duration of a media file in seconds.
func (e *Engine) ProbeDuration(ctx context.Context, path string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}

	result, err := e.runner.Run(ctx, e.ffprobe, args)
	if err != nil {
		return 0, &ProbeError{Path: path, Err: fmt.Errorf("%w: %s", err, tailLines(string(result.Stderr), 5))}
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(result.Stdout)), 64)
	if err != nil {
		return 0, &ProbeError{Path: path, Err: fmt.Errorf("parse duration: %w", err)}
	}
	return duration, nil
}

// ScaleAndPad normalizes a video to the target resolution and frame rate:
// scale preserving aspect ratio, center-pad the remainder, resample fps and
// strip the audio stream.
func (e *Engine) ScaleAndPad(ctx context.Context, path string, width, height, fps int) (string, error) {
	out := e.TempFile(".mp4")
	filter := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2",
		width, height, width, height,
	)
	args := []string{
		"-i", path,
		"-vf", filter,
		"-r", strconv.Itoa(fps),
		"-c:v", videoCodec,
		"-preset", videoPreset,
		"-crf", videoCRF,
		"-an",
	}
	if err := e.run(ctx, "scale "+filepath.Base(path), args, out); err != nil {
		return "", err
	}
	return out, nil
}

// Concat joins videos with the concat demuxer. Stream copy when reencode is
// false (inputs must share codec parameters); otherwise re-encode.
func (e *Engine) Concat(ctx context.Context, inputs []string, reencode bool) (string, error) {
	list, err := e.writeConcatList(inputs)
	if err != nil {
		return "", err
	}
	defer os.Remove(list)

	out := e.TempFile(".mp4")
	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", list,
	}
	if reencode {
		args = append(args, "-c:v", videoCodec, "-preset", videoPreset, "-crf", videoCRF)
	} else {
		args = append(args, "-c", "copy")
	}
	if err := e.run(ctx, fmt.Sprintf("concat %d inputs", len(inputs)), args, out); err != nil {
		return "", err
	}
	return out, nil
}

// ConcatAudio joins audio files with a plain (non-crossfaded) join.
func (e *Engine) ConcatAudio(ctx context.Context, inputs []string) (string, error) {
	list, err := e.writeConcatList(inputs)
	if err != nil {
		return "", err
	}
	defer os.Remove(list)

	out := e.TempFile(".mp3")
	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", list,
		"-c:a", audioCodec,
		"-b:a", audioBitrate,
	}
	if err := e.run(ctx, fmt.Sprintf("concat %d audio inputs", len(inputs)), args, out); err != nil {
		return "", err
	}
	return out, nil
}

// NormalizeAudio re-encodes a single audio file into the working format.
func (e *Engine) NormalizeAudio(ctx context.Context, path string) (string, error) {
	out := e.TempFile(".mp3")
	args := []string{
		"-i", path,
		"-c:a", audioCodec,
		"-b:a", audioBitrate,
	}
	if err := e.run(ctx, "normalize "+filepath.Base(path), args, out); err != nil {
		return "", err
	}
	return out, nil
}

// LoopToDuration loops an audio file to exactly the given duration.
func (e *Engine) LoopToDuration(ctx context.Context, path string, seconds float64) (string, error) {
	out := e.TempFile(".mp3")
	args := []string{
		"-stream_loop", "-1",
		"-i", path,
		"-t", formatSeconds(seconds),
		"-c:a", audioCodec,
		"-b:a", audioBitrate,
	}
	if err := e.run(ctx, "loop "+filepath.Base(path), args, out); err != nil {
		return "", err
	}
	return out, nil
}

// ApplyAudioFilter runs an -filter:a expression over an audio file.
func (e *Engine) ApplyAudioFilter(ctx context.Context, path, filterExpr string) (string, error) {
	out := e.TempFile(".mp3")
	args := []string{
		"-i", path,
		"-filter:a", filterExpr,
		"-c:a", audioCodec,
		"-b:a", audioBitrate,
	}
	if err := e.run(ctx, "filter "+filepath.Base(path), args, out); err != nil {
		return "", err
	}
	return out, nil
}

// MixTracks overlays audio tracks with a weighted mix. The track at
// referenceIndex defines the output duration; a 2-second dropout transition
// smooths the boundary where shorter tracks end.
func (e *Engine) MixTracks(ctx context.Context, inputs []string, referenceIndex int) (string, error) {
	if len(inputs) == 0 {
		return "", fmt.Errorf("mix: no inputs")
	}
	if referenceIndex < 0 || referenceIndex >= len(inputs) {
		return "", fmt.Errorf("mix: reference index %d out of range", referenceIndex)
	}
	if len(inputs) == 1 {
		return e.NormalizeAudio(ctx, inputs[0])
	}

	// amix can only reference the first input's duration, so move the
	// reference track to the front.
	ordered := make([]string, 0, len(inputs))
	ordered = append(ordered, inputs[referenceIndex])
	for i, in := range inputs {
		if i != referenceIndex {
			ordered = append(ordered, in)
		}
	}

	args := make([]string, 0, 2*len(ordered)+8)
	var labels strings.Builder
	for i, in := range ordered {
		args = append(args, "-i", in)
		fmt.Fprintf(&labels, "[%d:a]", i)
	}
	filter := fmt.Sprintf("%samix=inputs=%d:duration=first:dropout_transition=2[aout]", labels.String(), len(ordered))

	out := e.TempFile(".mp3")
	args = append(args,
		"-filter_complex", filter,
		"-map", "[aout]",
		"-c:a", audioCodec,
		"-b:a", audioBitrate,
	)
	if err := e.run(ctx, fmt.Sprintf("mix %d tracks", len(ordered)), args, out); err != nil {
		return "", err
	}
	return out, nil
}

// Trim cuts a file down to the given duration with a stream copy.
func (e *Engine) Trim(ctx context.Context, path string, seconds float64) (string, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		ext = ".mp4"
	}
	out := e.TempFile(ext)
	args := []string{
		"-i", path,
		"-t", formatSeconds(seconds),
		"-c", "copy",
	}
	if err := e.run(ctx, "trim "+filepath.Base(path), args, out); err != nil {
		return "", err
	}
	return out, nil
}

// RenderOverlayAndMux combines the video, the optional audio track and the
// optional overlay filter chain into the final output file, truncated to the
// shortest mapped stream.
func (e *Engine) RenderOverlayAndMux(ctx context.Context, video, audio, overlayFilter, output string) error {
	args := []string{"-i", video}
	if audio != "" {
		args = append(args, "-i", audio)
	}
	if overlayFilter != "" {
		args = append(args, "-vf", overlayFilter)
	}
	args = append(args, "-map", "0:v")
	if audio != "" {
		args = append(args, "-map", "1:a")
	}
	args = append(args, "-c:v", videoCodec, "-preset", videoPreset, "-crf", videoCRF)
	if audio != "" {
		args = append(args, "-c:a", muxCodec, "-b:a", audioBitrate)
	}
	args = append(args, "-shortest")

	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return fmt.Errorf("prepare output dir: %w", err)
	}
	return e.run(ctx, "mux", args, output)
}

func (e *Engine) run(ctx context.Context, op string, args []string, output string) error {
	full := append([]string{"-hide_banner", "-y"}, args...)
	full = append(full, output)

	e.log.Debug().Str("op", op).Strs("args", full).Msg("ffmpeg")

	result, err := e.runner.Run(ctx, e.ffmpeg, full)
	if err != nil {
		return newEngineError(op, err, result.Stderr)
	}
	return nil
}

// writeConcatList writes an ffmpeg concat demuxer list next to the temp
// artifacts, escaping single quotes in paths.
func (e *Engine) writeConcatList(inputs []string) (string, error) {
	if len(inputs) == 0 {
		return "", fmt.Errorf("concat: no inputs")
	}
	list := e.TempFile(".txt")
	f, err := os.Create(list)
	if err != nil {
		return "", fmt.Errorf("create concat list: %w", err)
	}
	defer f.Close()

	for _, in := range inputs {
		abs, err := filepath.Abs(in)
		if err != nil {
			abs = in
		}
		escaped := strings.ReplaceAll(abs, "'", "'\\''")
		if _, err := fmt.Fprintf(f, "file '%s'\n", escaped); err != nil {
			return "", fmt.Errorf("write concat list: %w", err)
		}
	}
	return list, nil
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', -1, 64)
}

package paths

import (
	"fmt"
	"os"
	"path/filepath"

	"loopbuilder/internal/config"
)

// RunPaths captures canonical locations for a single build run.
type RunPaths struct {
	Root       string
	ConfigFile string
	VideosDir  string
	MusicDir   string
	SoundsDir  string
	QuotesDir  string
	TempDir    string
	LogsDir    string
	OutputFile string
}

// Resolve determines the run root using the optional --root flag or the
// current working directory when the flag is empty.
func Resolve(rootFlag string) (RunPaths, error) {
	var (
		root string
		err  error
	)

	if rootFlag != "" {
		root, err = filepath.Abs(rootFlag)
	} else {
		root, err = os.Getwd()
	}
	if err != nil {
		return RunPaths{}, fmt.Errorf("resolve run root: %w", err)
	}

	return RunPaths{
		Root:       root,
		ConfigFile: filepath.Join(root, "loopbuilder.yaml"),
	}, nil
}

// ApplyConfig fills in the source, temp and output locations from the loaded
// configuration. Relative paths are resolved against the run root.
func ApplyConfig(rp RunPaths, cfg config.Config) RunPaths {
	rp.VideosDir = resolveRunPath(rp.Root, cfg.Dirs.Videos)
	rp.MusicDir = resolveRunPath(rp.Root, cfg.Dirs.Music)
	rp.SoundsDir = resolveRunPath(rp.Root, cfg.Dirs.Sounds)
	rp.QuotesDir = resolveRunPath(rp.Root, cfg.Dirs.Quotes)
	rp.TempDir = resolveRunPath(rp.Root, cfg.Dirs.Temp)
	rp.LogsDir = filepath.Join(rp.TempDir, "logs")
	rp.OutputFile = resolveRunPath(rp.Root, cfg.Output)
	return rp
}

func resolveRunPath(root, value string) string {
	if filepath.IsAbs(value) {
		return filepath.Clean(value)
	}
	return filepath.Join(root, value)
}

// EnsureTempDirs creates the scratch hierarchy used during a run.
func (p RunPaths) EnsureTempDirs() error {
	for _, dir := range []string{p.TempDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// CleanupTemp removes the scratch hierarchy. Failures are returned so callers
// can log them, but a run's output is already final by the time this runs.
func (p RunPaths) CleanupTemp() error {
	if p.TempDir == "" {
		return nil
	}
	if err := os.RemoveAll(p.TempDir); err != nil {
		return fmt.Errorf("remove temp directory: %w", err)
	}
	return nil
}

// FileExists reports whether a path exists and is a regular file.
func FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// DirExists reports whether a path exists and is a directory.
func DirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}

package pipeline

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"
)

// ResourceError reports insufficient disk space for a run before any engine
// work starts.
type ResourceError struct {
	Path      string
	Required  uint64
	Available uint64
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("not enough disk space in %s: need about %s, %s available",
		e.Path, humanize.Bytes(e.Required), humanize.Bytes(e.Available))
}

// Bitrate estimates per resolution tier, in megabits per second. Intermediate
// artifacts roughly triple the footprint of the final file.
const (
	mbps1080          = 5.0
	mbps720           = 2.5
	mbpsSD            = 1.5
	scratchMultiple   = 3
	freeSpaceHeadroom = 1.1
)

func estimateRunBytes(duration float64, height int) uint64 {
	var mbps float64
	switch {
	case height >= 1080:
		mbps = mbps1080
	case height >= 720:
		mbps = mbps720
	default:
		mbps = mbpsSD
	}
	outputBytes := duration * mbps / 8 * 1e6
	return uint64(outputBytes * scratchMultiple * freeSpaceHeadroom)
}

func availableBytes(path string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", path, err)
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}

// checkDiskSpace verifies the run root has room for the output plus the
// intermediate artifacts.
func checkDiskSpace(root string, duration float64, height int) error {
	required := estimateRunBytes(duration, height)
	available, err := availableBytes(root)
	if err != nil {
		return err
	}
	if available < required {
		return &ResourceError{Path: root, Required: required, Available: available}
	}
	return nil
}

package media

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Supported file formats per source category.
var (
	VideoFormats = map[string]bool{".mp4": true, ".mov": true, ".avi": true, ".mkv": true}
	AudioFormats = map[string]bool{".mp3": true, ".wav": true, ".m4a": true, ".aac": true, ".ogg": true}
	QuoteFormats = map[string]bool{".txt": true}
)

// IntegrityError signals that a required source category has no usable files
// after integrity filtering.
type IntegrityError struct {
	Dir    string
	Reason string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("no usable files in %s: %s", e.Dir, e.Reason)
}

// Item is a source media file discovered by scanning. Duration is filled in
// by the probing stage; an Item is never mutated afterwards.
type Item struct {
	Path     string
	Duration float64
}

// ScanResult reports what a directory scan found.
type ScanResult struct {
	Items   []Item
	Dropped int
}

// Scan lists files in dir matching the given extension set, sorted by path,
// dropping entries that fail the integrity check (missing or zero-byte).
// A missing directory yields an empty result, not an error; required
// categories are enforced by the caller.
func Scan(dir string, formats map[string]bool) (ScanResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return ScanResult{}, nil
		}
		return ScanResult{}, fmt.Errorf("scan %s: %w", dir, err)
	}

	var result ScanResult
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !formats[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if !ValidateIntegrity(path) {
			result.Dropped++
			continue
		}
		result.Items = append(result.Items, Item{Path: path})
	}

	sort.Slice(result.Items, func(i, j int) bool {
		return result.Items[i].Path < result.Items[j].Path
	})
	return result, nil
}

// ValidateIntegrity reports whether a media file exists and is non-empty.
func ValidateIntegrity(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Size() > 0
}

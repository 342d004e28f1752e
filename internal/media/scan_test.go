package media

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.mp4", "data")
	writeFile(t, dir, "a.MOV", "data")
	writeFile(t, dir, "notes.txt", "data")
	writeFile(t, dir, "empty.mp4", "")
	if err := os.Mkdir(filepath.Join(dir, "sub.mp4"), 0o755); err != nil {
		t.Fatal(err)
	}

	result, err := Scan(dir, VideoFormats)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(result.Items) != 2 {
		t.Fatalf("got %d items, want 2: %+v", len(result.Items), result.Items)
	}
	// Sorted by path, extension matching is case-insensitive.
	if filepath.Base(result.Items[0].Path) != "a.MOV" || filepath.Base(result.Items[1].Path) != "b.mp4" {
		t.Errorf("unexpected order: %+v", result.Items)
	}
	if result.Dropped != 1 {
		t.Errorf("Dropped = %d, want 1 (zero-byte file)", result.Dropped)
	}
}

func TestScanMissingDir(t *testing.T) {
	result, err := Scan(filepath.Join(t.TempDir(), "absent"), AudioFormats)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(result.Items) != 0 || result.Dropped != 0 {
		t.Errorf("missing dir should yield empty result, got %+v", result)
	}
}

func TestValidateIntegrity(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.mp3", "audio")
	empty := writeFile(t, dir, "empty.mp3", "")

	if !ValidateIntegrity(good) {
		t.Error("good file rejected")
	}
	if ValidateIntegrity(empty) {
		t.Error("zero-byte file accepted")
	}
	if ValidateIntegrity(filepath.Join(dir, "missing.mp3")) {
		t.Error("missing file accepted")
	}
}

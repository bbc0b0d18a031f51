package store

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEnsureRunCreatesLayout(t *testing.T) {
	root := t.TempDir()
	s := New(root)

	if err := s.EnsureRun("run1"); err != nil {
		t.Fatalf("EnsureRun: %v", err)
	}
	for _, dir := range []string{
		filepath.Join(root, "image", "run1"),
		filepath.Join(root, "audio", "run1"),
		filepath.Join(root, "video", "run1"),
	} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("missing %s: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("%s is not a directory", dir)
		}
	}
}

func TestPathsAreNamespacedByRun(t *testing.T) {
	s := New("/media")

	if got := s.AudioPath("run1", 2); got != filepath.Join("/media", "audio", "run1", "2.mp3") {
		t.Fatalf("audio path %q", got)
	}
	if got := s.ImagePath("run1", 2); got != filepath.Join("/media", "image", "run1", "2.jpg") {
		t.Fatalf("image path %q", got)
	}
	if got := s.CoverImagePath("run1"); got != filepath.Join("/media", "image", "run1", "cover.jpg") {
		t.Fatalf("cover path %q", got)
	}
	if got := s.FinalVideoPath("run1"); got != filepath.Join("/media", "video", "run1", "final.mp4") {
		t.Fatalf("final path %q", got)
	}

	if s.AudioPath("run1", 0) == s.AudioPath("run2", 0) {
		t.Fatal("runs must not share asset paths")
	}
}

func TestWriteFileRejectsEmptyPayload(t *testing.T) {
	root := t.TempDir()
	s := New(root)

	path := filepath.Join(root, "out.bin")
	if err := s.WriteFile(path, nil); err == nil {
		t.Fatal("expected error for empty payload")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("empty payload must not create a file")
	}

	if err := s.WriteFile(path, []byte("data")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestPromoteFinal(t *testing.T) {
	s := New(t.TempDir())
	if err := s.EnsureRun("run1"); err != nil {
		t.Fatalf("EnsureRun: %v", err)
	}

	// Nothing rendered yet: promotion fails, canonical path stays absent.
	if _, err := s.PromoteFinal("run1"); err == nil {
		t.Fatal("expected error when temp render is absent")
	}
	if _, err := os.Stat(s.FinalVideoPath("run1")); !os.IsNotExist(err) {
		t.Fatal("final path must stay absent")
	}

	if err := os.WriteFile(s.TempVideoPath("run1"), []byte("video"), 0644); err != nil {
		t.Fatalf("seed temp render: %v", err)
	}
	final, err := s.PromoteFinal("run1")
	if err != nil {
		t.Fatalf("PromoteFinal: %v", err)
	}
	if final != s.FinalVideoPath("run1") {
		t.Fatalf("promoted to %q", final)
	}
	if _, err := os.Stat(s.TempVideoPath("run1")); !os.IsNotExist(err) {
		t.Fatal("temp render must be gone after promotion")
	}
	data, err := os.ReadFile(final)
	if err != nil || string(data) != "video" {
		t.Fatalf("final content %q err %v", data, err)
	}
}

// Package store is the filesystem asset store. Every artifact of one run
// lives under the media root, namespaced by execution id, so concurrent
// stage writes never collide and runs never share files.
package store

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	imageDir = "image"
	audioDir = "audio"
	videoDir = "video"

	finalName = "final.mp4"
)

type Store struct {
	root string
}

func New(mediaRoot string) *Store {
	return &Store{root: mediaRoot}
}

// EnsureRun creates the image/audio/video directories for an execution.
func (s *Store) EnsureRun(executionID string) error {
	for _, dir := range []string{
		s.imageRunDir(executionID),
		s.audioRunDir(executionID),
		s.VideoDir(executionID),
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create dir %s: %w", dir, err)
		}
	}
	return nil
}

func (s *Store) imageRunDir(executionID string) string {
	return filepath.Join(s.root, imageDir, executionID)
}

func (s *Store) audioRunDir(executionID string) string {
	return filepath.Join(s.root, audioDir, executionID)
}

// VideoDir is the run's video work area: intermediate segments, the temp
// render and the canonical final video all live here.
func (s *Store) VideoDir(executionID string) string {
	return filepath.Join(s.root, videoDir, executionID)
}

func (s *Store) ImagePath(executionID string, stageIndex int) string {
	return filepath.Join(s.imageRunDir(executionID), fmt.Sprintf("%d.jpg", stageIndex))
}

func (s *Store) CoverImagePath(executionID string) string {
	return filepath.Join(s.imageRunDir(executionID), "cover.jpg")
}

func (s *Store) AudioPath(executionID string, stageIndex int) string {
	return filepath.Join(s.audioRunDir(executionID), fmt.Sprintf("%d.mp3", stageIndex))
}

// FinalVideoPath is the canonical output path. A file only ever appears
// here via PromoteFinal.
func (s *Store) FinalVideoPath(executionID string) string {
	return filepath.Join(s.VideoDir(executionID), finalName)
}

// TempVideoPath is where the composer renders before promotion.
func (s *Store) TempVideoPath(executionID string) string {
	return filepath.Join(s.VideoDir(executionID), "final.tmp.mp4")
}

// WriteFile persists asset bytes, rejecting empty payloads so a truncated
// remote response never reaches composition.
func (s *Store) WriteFile(path string, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("refusing to write empty file %s", path)
	}
	return os.WriteFile(path, data, 0644)
}

// PromoteFinal atomically moves the temp render onto the canonical final
// path. On any earlier failure the canonical path stays absent.
func (s *Store) PromoteFinal(executionID string) (string, error) {
	tmp := s.TempVideoPath(executionID)
	final := s.FinalVideoPath(executionID)
	if err := os.Rename(tmp, final); err != nil {
		return "", fmt.Errorf("promote final video: %w", err)
	}
	return final, nil
}

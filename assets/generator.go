// Package assets fans out per-stage narration audio and image generation,
// persists the results in the asset store, and measures the true audio
// duration of every produced file.
package assets

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"

	"timeline-pipeline/config"
	"timeline-pipeline/store"
	"timeline-pipeline/types"
)

// SpeechService renders narration text to audio bytes.
type SpeechService interface {
	Synthesize(ctx context.Context, text, language string) ([]byte, error)
}

// ImageService renders a prompt to image bytes.
type ImageService interface {
	Generate(ctx context.Context, prompt string) ([]byte, error)
}

// DurationProber measures the playable duration of a media file.
type DurationProber interface {
	ProbeDuration(ctx context.Context, path string) (float64, error)
}

type Generator struct {
	cfg    *config.Config
	store  *store.Store
	speech SpeechService
	image  ImageService
	prober DurationProber
}

func New(cfg *config.Config, st *store.Store, speech SpeechService, image ImageService, prober DurationProber) *Generator {
	return &Generator{cfg: cfg, store: st, speech: speech, image: image, prober: prober}
}

// GenerateAssets produces audio and an image for every stage. Work across
// stages (and audio/image within a stage) runs concurrently, bounded by the
// configured maximum in-flight remote-call count. A failure in one stage
// never aborts the others; after everything settles, any failure at all
// yields an AssetGenerationError naming the failed stages, because a gap in
// the timeline would break video continuity.
func (g *Generator) GenerateAssets(ctx context.Context, stages []types.StageSpec, executionID, language string) ([]types.StageAssets, error) {
	log.Printf("[assets] Generating assets for %d stages (max %d concurrent calls)...",
		len(stages), g.cfg.Generation.MaxConcurrent)

	results := make([]types.StageAssets, len(stages))
	for i, stage := range stages {
		results[i] = types.StageAssets{StageIndex: stage.Index}
	}

	sem := make(chan struct{}, g.cfg.Generation.MaxConcurrent)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var failures []types.StageFailure

	fail := func(stageIndex int, asset string, err error) {
		mu.Lock()
		failures = append(failures, types.StageFailure{StageIndex: stageIndex, Asset: asset, Err: err})
		mu.Unlock()
	}

	for i := range stages {
		stage := stages[i]
		slot := &results[i]

		wg.Add(2)

		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			audioPath, dur, err := g.generateAudio(ctx, stage, executionID, language)
			if err != nil {
				fail(stage.Index, "audio", err)
				return
			}
			slot.AudioPath = audioPath
			slot.AudioDurationSec = dur
			log.Printf("[assets] Stage %d audio: %.2fs → %s", stage.Index, dur, audioPath)
		}()

		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			imagePath, err := g.generateImage(ctx, stage, executionID)
			if err != nil {
				fail(stage.Index, "image", err)
				return
			}
			slot.ImagePath = imagePath
			log.Printf("[assets] Stage %d image: %s", stage.Index, imagePath)
		}()
	}

	wg.Wait()

	if len(failures) > 0 {
		sort.Slice(failures, func(i, j int) bool {
			if failures[i].StageIndex != failures[j].StageIndex {
				return failures[i].StageIndex < failures[j].StageIndex
			}
			return failures[i].Asset < failures[j].Asset
		})
		return nil, &types.AssetGenerationError{Failures: failures}
	}

	log.Printf("[assets] All %d stages generated", len(stages))
	return results, nil
}

func (g *Generator) generateAudio(ctx context.Context, stage types.StageSpec, executionID, language string) (string, float64, error) {
	audio, err := g.speech.Synthesize(ctx, stage.NarrationScript, language)
	if err != nil {
		return "", 0, err
	}

	path := g.store.AudioPath(executionID, stage.Index)
	if err := g.store.WriteFile(path, audio); err != nil {
		return "", 0, err
	}

	// Timing correctness downstream depends on the decoded duration of the
	// actual file, so probe it rather than estimating from the script.
	dur, err := g.prober.ProbeDuration(ctx, path)
	if err != nil {
		return "", 0, fmt.Errorf("measure audio duration: %w", err)
	}
	if dur <= 0 {
		return "", 0, fmt.Errorf("audio has zero duration")
	}
	return path, dur, nil
}

func (g *Generator) generateImage(ctx context.Context, stage types.StageSpec, executionID string) (string, error) {
	img, err := g.image.Generate(ctx, stage.ImagePrompt)
	if err != nil {
		return "", err
	}
	path := g.store.ImagePath(executionID, stage.Index)
	if err := g.store.WriteFile(path, img); err != nil {
		return "", err
	}
	return path, nil
}

// GenerateCover renders the intro cover image. Unlike stage assets this is
// best-effort: on failure the composer falls back to a plain title card, so
// only the path and an ok flag are returned.
func (g *Generator) GenerateCover(ctx context.Context, coverPrompt, executionID string) (string, bool) {
	if coverPrompt == "" {
		return "", false
	}
	img, err := g.image.Generate(ctx, coverPrompt)
	if err != nil {
		log.Printf("[assets] Cover image failed: %v — intro will use a plain title card", err)
		return "", false
	}
	path := g.store.CoverImagePath(executionID)
	if err := g.store.WriteFile(path, img); err != nil {
		log.Printf("[assets] Cover image write failed: %v — intro will use a plain title card", err)
		return "", false
	}
	log.Printf("[assets] Cover image: %s", path)
	return path, true
}

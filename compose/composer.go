// Package compose assembles the final video: one segment per stage in index
// order, a fixed intro in front, an optional music bed underneath, and an
// atomic promotion onto the canonical output path.
package compose

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"timeline-pipeline/config"
	"timeline-pipeline/media"
	"timeline-pipeline/store"
	"timeline-pipeline/types"
)

// VideoTool is the rendering surface the composer drives. media.Tool is the
// real implementation.
type VideoTool interface {
	StillSegment(ctx context.Context, spec media.SegmentSpec) error
	Concat(ctx context.Context, segmentPaths []string, outPath string) error
	DuckMusic(ctx context.Context, videoPath, musicPath string, volume float64, outPath string) error
}

// Inputs carries everything one composition needs beyond the stage data.
type Inputs struct {
	Plan          *types.Plan
	AssetsByIndex map[int]types.StageAssets
	ExecutionID   string
	CoverPath     string // optional; "" renders a plain title card
	MusicPath     string // optional; "" skips the music bed
}

type Composer struct {
	cfg   *config.Config
	store *store.Store
	tool  VideoTool
}

func New(cfg *config.Config, st *store.Store, tool VideoTool) *Composer {
	return &Composer{cfg: cfg, store: st, tool: tool}
}

// ComposeVideo renders every segment, concatenates them gaplessly in index
// order and promotes the result atomically. On any failure the canonical
// final path is left untouched and a CompositionError is returned.
func (c *Composer) ComposeVideo(ctx context.Context, in Inputs) (string, error) {
	segments, err := c.buildSegments(in)
	if err != nil {
		return "", err
	}

	total := TotalDuration(c.cfg.Video.IntroDurationSec, in.Plan.Stages, in.AssetsByIndex)
	log.Printf("[compose] Rendering %d segments (total %.1fs)...", len(segments), total)

	videoDir := c.store.VideoDir(in.ExecutionID)
	segmentPaths := make([]string, len(segments))
	for i, seg := range segments {
		outPath := filepath.Join(videoDir, fmt.Sprintf("segment_%03d.mp4", i))
		spec := media.SegmentSpec{
			ImagePath:   seg.ImagePath,
			AudioPath:   seg.AudioPath,
			Caption:     seg.Caption,
			DurationSec: seg.DurationSec,
			OutPath:     outPath,
		}
		if err := c.tool.StillSegment(ctx, spec); err != nil {
			return "", &types.CompositionError{Step: fmt.Sprintf("render segment %d", i), Err: err}
		}
		segmentPaths[i] = outPath
	}

	tmpPath := c.store.TempVideoPath(in.ExecutionID)

	if in.MusicPath != "" {
		programPath := filepath.Join(videoDir, "program.mp4")
		if err := c.tool.Concat(ctx, segmentPaths, programPath); err != nil {
			return "", &types.CompositionError{Step: "concatenate segments", Err: err}
		}
		if err := c.tool.DuckMusic(ctx, programPath, in.MusicPath, c.cfg.Video.MusicVolume, tmpPath); err != nil {
			return "", &types.CompositionError{Step: "mix music bed", Err: err}
		}
	} else {
		if err := c.tool.Concat(ctx, segmentPaths, tmpPath); err != nil {
			return "", &types.CompositionError{Step: "concatenate segments", Err: err}
		}
	}

	finalPath, err := c.store.PromoteFinal(in.ExecutionID)
	if err != nil {
		return "", &types.CompositionError{Step: "promote final video", Err: err}
	}
	log.Printf("[compose] Final video: %s", finalPath)
	return finalPath, nil
}

// buildSegments validates stage assets and lays out the timeline: the intro
// first, then every stage strictly by index, never by generation completion
// order.
func (c *Composer) buildSegments(in Inputs) ([]types.TimelineSegment, error) {
	if in.Plan == nil || len(in.Plan.Stages) == 0 {
		return nil, &types.CompositionError{Step: "layout", Err: fmt.Errorf("zero-length stage list")}
	}

	stages := make([]types.StageSpec, len(in.Plan.Stages))
	copy(stages, in.Plan.Stages)
	sort.Slice(stages, func(i, j int) bool { return stages[i].Index < stages[j].Index })

	segments := make([]types.TimelineSegment, 0, len(stages)+1)
	segments = append(segments, types.TimelineSegment{
		Caption:     in.Plan.Title,
		ImagePath:   in.CoverPath,
		DurationSec: c.cfg.Video.IntroDurationSec,
	})

	for _, stage := range stages {
		asset, ok := in.AssetsByIndex[stage.Index]
		if !ok {
			return nil, &types.CompositionError{
				Step: "layout",
				Err:  fmt.Errorf("no assets for stage %d", stage.Index),
			}
		}
		if asset.AudioDurationSec <= 0 {
			return nil, &types.CompositionError{
				Step: "layout",
				Err:  fmt.Errorf("stage %d audio duration is %v", stage.Index, asset.AudioDurationSec),
			}
		}
		for _, p := range []string{asset.AudioPath, asset.ImagePath} {
			if err := checkFile(p); err != nil {
				return nil, &types.CompositionError{
					Step: "layout",
					Err:  fmt.Errorf("stage %d: %w", stage.Index, err),
				}
			}
		}
		segments = append(segments, types.TimelineSegment{
			Caption:     stage.Explanation,
			ImagePath:   asset.ImagePath,
			AudioPath:   asset.AudioPath,
			DurationSec: asset.AudioDurationSec,
		})
	}
	return segments, nil
}

// TotalDuration is the expected length of the final video: intro plus every
// stage's measured audio duration, back to back with no gaps or overlaps.
func TotalDuration(introSec float64, stages []types.StageSpec, assetsByIndex map[int]types.StageAssets) float64 {
	total := introSec
	for _, stage := range stages {
		total += assetsByIndex[stage.Index].AudioDurationSec
	}
	return total
}

func checkFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("missing asset file %s", path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("empty asset file %s", path)
	}
	return nil
}

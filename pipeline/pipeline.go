// Package pipeline sequences one execution: Plan, Generate, Compose. It
// owns the execution id, drives the phase state machine and propagates each
// component's typed failure without attempting recovery.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"timeline-pipeline/compose"
	"timeline-pipeline/config"
	"timeline-pipeline/store"
	"timeline-pipeline/types"
)

// State is one phase of an execution. Done and Failed are terminal.
type State string

const (
	StateCreated    State = "created"
	StatePlanning   State = "planning"
	StateGenerating State = "generating"
	StateComposing  State = "composing"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// StagePlanner plans the timeline for a topic.
type StagePlanner interface {
	PlanTimeline(ctx context.Context, topic, language string) (*types.Plan, error)
}

// AssetGenerator produces per-stage audio and images plus the optional
// intro cover.
type AssetGenerator interface {
	GenerateAssets(ctx context.Context, stages []types.StageSpec, executionID, language string) ([]types.StageAssets, error)
	GenerateCover(ctx context.Context, coverPrompt, executionID string) (string, bool)
}

// VideoComposer renders the final video from the plan and its assets.
type VideoComposer interface {
	ComposeVideo(ctx context.Context, in compose.Inputs) (string, error)
}

// MusicPicker supplies an optional background bed for a topic.
type MusicPicker interface {
	Pick(topic string) (string, bool)
}

type Orchestrator struct {
	cfg       *config.Config
	store     *store.Store
	planner   StagePlanner
	generator AssetGenerator
	composer  VideoComposer
	music     MusicPicker
}

func New(cfg *config.Config, st *store.Store, planner StagePlanner, generator AssetGenerator, composer VideoComposer, music MusicPicker) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		store:     st,
		planner:   planner,
		generator: generator,
		composer:  composer,
		music:     music,
	}
}

// Run executes the whole pipeline for one topic and returns the run state,
// whose VideoFile points at the final video on success. The returned error,
// when non-nil, is the typed failure of whichever phase ended the run.
func (o *Orchestrator) Run(ctx context.Context, topic, language string) (*types.RunState, error) {
	executionID := newExecutionID()
	state := &types.RunState{
		ExecutionID: executionID,
		Topic:       topic,
		Language:    language,
		StartedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	o.transition(state, StateCreated)

	if err := o.store.EnsureRun(executionID); err != nil {
		return o.fail(state, fmt.Errorf("prepare asset store: %w", err))
	}

	log.Printf("[pipeline] Run %s: topic %q (%s)", executionID, topic, language)

	// Planning
	o.transition(state, StatePlanning)
	plan, err := o.planner.PlanTimeline(ctx, topic, language)
	if err != nil {
		return o.fail(state, err)
	}
	state.Plan = plan

	// Generating
	o.transition(state, StateGenerating)
	stageAssets, err := o.generator.GenerateAssets(ctx, plan.Stages, executionID, language)
	if err != nil {
		return o.fail(state, err)
	}
	state.Assets = stageAssets
	coverPath, _ := o.generator.GenerateCover(ctx, plan.CoverPrompt, executionID)

	// Composing
	o.transition(state, StateComposing)
	assetsByIndex := make(map[int]types.StageAssets, len(stageAssets))
	for _, a := range stageAssets {
		assetsByIndex[a.StageIndex] = a
	}
	musicPath, _ := o.music.Pick(topic)
	videoPath, err := o.composer.ComposeVideo(ctx, compose.Inputs{
		Plan:          plan,
		AssetsByIndex: assetsByIndex,
		ExecutionID:   executionID,
		CoverPath:     coverPath,
		MusicPath:     musicPath,
	})
	if err != nil {
		return o.fail(state, err)
	}

	state.VideoFile = videoPath
	o.transition(state, StateDone)
	o.finish(state)
	log.Printf("[pipeline] Run %s done: %s", executionID, videoPath)
	return state, nil
}

func (o *Orchestrator) transition(state *types.RunState, next State) {
	state.Phases = append(state.Phases, string(next))
}

func (o *Orchestrator) fail(state *types.RunState, err error) (*types.RunState, error) {
	state.Error = err.Error()
	o.transition(state, StateFailed)
	o.finish(state)
	log.Printf("[pipeline] Run %s failed: %v", state.ExecutionID, err)
	return state, err
}

// finish stamps the completion time and persists the run state next to the
// video artifacts.
func (o *Orchestrator) finish(state *types.RunState) {
	state.CompletedAt = time.Now().UTC().Format(time.RFC3339)
	path := filepath.Join(o.store.VideoDir(state.ExecutionID), "pipeline_state.json")
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		log.Printf("[pipeline] Warning: could not marshal run state: %v", err)
		return
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		log.Printf("[pipeline] Warning: could not save run state: %v", err)
	}
}

// newExecutionID builds the run namespace key: a UTC timestamp for humans,
// a short uuid suffix so two runs in the same second never collide.
func newExecutionID() string {
	return time.Now().UTC().Format("20060102-150405") + "-" + uuid.NewString()[:8]
}

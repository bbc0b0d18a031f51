package types

import (
	"fmt"
	"sort"
	"strings"
)

// PlanningError means the narrative service returned a plan the pipeline
// cannot build a timeline from: undecodable JSON, missing fields, zero
// stages, or a broken stage order.
type PlanningError struct {
	Reason string
	Err    error
}

func (e *PlanningError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("planning: %s: %v", e.Reason, e.Err)
	}
	return "planning: " + e.Reason
}

func (e *PlanningError) Unwrap() error { return e.Err }

// StageFailure records why one stage's asset could not be produced.
type StageFailure struct {
	StageIndex int
	Asset      string // "audio", "image" or "cover"
	Err        error
}

func (f StageFailure) Error() string {
	return fmt.Sprintf("stage %d %s: %v", f.StageIndex, f.Asset, f.Err)
}

func (f StageFailure) Unwrap() error { return f.Err }

// AssetGenerationError aggregates every stage that failed after exhausting
// retries. A single failed stage fails the whole run: a gap in the timeline
// would break narrative continuity, so there is no silent skip.
type AssetGenerationError struct {
	Failures []StageFailure
}

func (e *AssetGenerationError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.Error()
	}
	return fmt.Sprintf("asset generation: %d stage(s) failed: %s",
		len(e.Failures), strings.Join(parts, "; "))
}

// FailedStages returns the distinct stage indices that failed, sorted.
func (e *AssetGenerationError) FailedStages() []int {
	seen := map[int]bool{}
	var out []int
	for _, f := range e.Failures {
		if !seen[f.StageIndex] {
			seen[f.StageIndex] = true
			out = append(out, f.StageIndex)
		}
	}
	sort.Ints(out)
	return out
}

// CompositionError means rendering or concatenation failed. The canonical
// output path is left untouched when this is returned.
type CompositionError struct {
	Step string
	Err  error
}

func (e *CompositionError) Error() string {
	return fmt.Sprintf("composition: %s: %v", e.Step, e.Err)
}

func (e *CompositionError) Unwrap() error { return e.Err }

package types

// Plan is the full timeline breakdown returned by the narrative service
// for one topic.
type Plan struct {
	Topic       string      `json:"topic"`
	Title       string      `json:"title"`
	CoverPrompt string      `json:"cover_prompt"`
	Stages      []StageSpec `json:"stages"`
}

// StageSpec is one point in the topic's historical timeline. Index is
// 0-based and contiguous; it defines the final segment order regardless of
// the order asset generation completes in.
type StageSpec struct {
	Index           int    `json:"index"`
	Title           string `json:"title"`
	Explanation     string `json:"explanation"`
	NarrationScript string `json:"narration_script"`
	ImagePrompt     string `json:"image_prompt"`
}

// StageAssets holds the generated artifacts for one stage. AudioDurationSec
// is measured from the produced file with ffprobe, never estimated from the
// script text.
type StageAssets struct {
	StageIndex       int     `json:"stage_index"`
	AudioPath        string  `json:"audio_path"`
	AudioDurationSec float64 `json:"audio_duration_sec"`
	ImagePath        string  `json:"image_path"`
}

// TimelineSegment is one renderable unit of the final video: a still image
// held for DurationSec with the caption burned in and the audio track (if
// any) starting at zero offset. Consumed by the composer, never persisted.
type TimelineSegment struct {
	Caption     string
	ImagePath   string
	AudioPath   string
	DurationSec float64
}

// RunState tracks one pipeline execution, persisted as JSON in the run's
// video directory.
type RunState struct {
	ExecutionID string        `json:"execution_id"`
	Topic       string        `json:"topic"`
	Language    string        `json:"language"`
	StartedAt   string        `json:"started_at"`
	CompletedAt string        `json:"completed_at"`
	Phases      []string      `json:"phases"`
	Plan        *Plan         `json:"plan,omitempty"`
	Assets      []StageAssets `json:"assets,omitempty"`
	VideoFile   string        `json:"video_file,omitempty"`
	YouTubeID   string        `json:"youtube_id,omitempty"`
	YouTubeURL  string        `json:"youtube_url,omitempty"`
	Error       string        `json:"error,omitempty"`
}

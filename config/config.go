package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Planner    PlannerConfig    `yaml:"planner"`
	Speech     SpeechConfig     `yaml:"speech"`
	Image      ImageConfig      `yaml:"image"`
	Generation GenerationConfig `yaml:"generation"`
	Video      VideoConfig      `yaml:"video"`
	Music      MusicConfig      `yaml:"music"`
	Research   ResearchConfig   `yaml:"research"`
	Publish    PublishConfig    `yaml:"publish"`
	Paths      PathsConfig      `yaml:"paths"`
}

type PlannerConfig struct {
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	Temperature float64 `yaml:"temperature"`
}

// Voice selects the TTS voice for one language.
type Voice struct {
	Name         string `yaml:"name"`
	LanguageCode string `yaml:"language_code"`
}

type SpeechConfig struct {
	Voices       map[string]Voice `yaml:"voices"`
	SpeakingRate float64          `yaml:"speaking_rate"`
}

type ImageConfig struct {
	Model       string `yaml:"model"`
	BaseURL     string `yaml:"base_url"`
	AspectRatio string `yaml:"aspect_ratio"`
}

type GenerationConfig struct {
	MaxConcurrent    int     `yaml:"max_concurrent"`
	RetryAttempts    int     `yaml:"retry_attempts"`
	SpeechBackoffSec float64 `yaml:"speech_backoff_sec"`
	ImageBackoffSec  float64 `yaml:"image_backoff_sec"`
}

type VideoConfig struct {
	Width            int     `yaml:"width"`
	Height           int     `yaml:"height"`
	FPS              int     `yaml:"fps"`
	IntroDurationSec float64 `yaml:"intro_duration_sec"`
	CaptionFontSize  int     `yaml:"caption_font_size"`
	MusicVolume      float64 `yaml:"music_volume"`
	FFmpegPath       string  `yaml:"ffmpeg_path"`
	FFprobePath      string  `yaml:"ffprobe_path"`
}

type MusicConfig struct {
	Enabled    bool   `yaml:"enabled"`
	LibraryDir string `yaml:"library_dir"`
	TagsFile   string `yaml:"tags_file"`
}

type ResearchConfig struct {
	Subreddits []string `yaml:"subreddits"`
	TimeWindow string   `yaml:"time_window"`
	MinScore   int      `yaml:"min_score"`
}

type PublishConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Visibility      string `yaml:"visibility"`
	CategoryID      string `yaml:"category_id"`
	DefaultLanguage string `yaml:"default_language"`
}

type PathsConfig struct {
	MediaRoot string `yaml:"media_root"`
	Logs      string `yaml:"logs"`
}

// SupportedLanguages are the locale codes the planner and speech service
// accept.
var SupportedLanguages = []string{"en", "es"}

// Load reads the yaml config file and fills in defaults for anything the
// file leaves unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a Config with every default applied, for callers that run
// without a config file.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.Planner.Model == "" {
		c.Planner.Model = "gemini-2.0-pro-exp-02-05"
	}
	if c.Planner.BaseURL == "" {
		c.Planner.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if c.Planner.Temperature == 0 {
		c.Planner.Temperature = 0.7
	}
	if c.Speech.Voices == nil {
		c.Speech.Voices = map[string]Voice{
			"en": {Name: "en-US-Chirp-HD-D", LanguageCode: "en-US"},
			"es": {Name: "es-US-Chirp-HD-D", LanguageCode: "es-US"},
		}
	}
	if c.Speech.SpeakingRate == 0 {
		c.Speech.SpeakingRate = 1.0
	}
	if c.Image.Model == "" {
		c.Image.Model = "imagen-3.0-generate-002"
	}
	if c.Image.BaseURL == "" {
		c.Image.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if c.Image.AspectRatio == "" {
		c.Image.AspectRatio = "9:16"
	}
	if c.Generation.MaxConcurrent == 0 {
		c.Generation.MaxConcurrent = 4
	}
	if c.Generation.RetryAttempts == 0 {
		c.Generation.RetryAttempts = 3
	}
	if c.Generation.SpeechBackoffSec == 0 {
		c.Generation.SpeechBackoffSec = 2
	}
	if c.Generation.ImageBackoffSec == 0 {
		c.Generation.ImageBackoffSec = 3
	}
	if c.Video.Width == 0 {
		c.Video.Width = 1080
	}
	if c.Video.Height == 0 {
		c.Video.Height = 1920
	}
	if c.Video.FPS == 0 {
		c.Video.FPS = 24
	}
	if c.Video.IntroDurationSec == 0 {
		c.Video.IntroDurationSec = 2.0
	}
	if c.Video.CaptionFontSize == 0 {
		c.Video.CaptionFontSize = 50
	}
	if c.Video.MusicVolume == 0 {
		c.Video.MusicVolume = 0.2
	}
	if c.Video.FFmpegPath == "" {
		c.Video.FFmpegPath = "ffmpeg"
	}
	if c.Video.FFprobePath == "" {
		c.Video.FFprobePath = "ffprobe"
	}
	if len(c.Research.Subreddits) == 0 {
		c.Research.Subreddits = []string{"history", "AskHistorians"}
	}
	if c.Research.TimeWindow == "" {
		c.Research.TimeWindow = "week"
	}
	if c.Research.MinScore == 0 {
		c.Research.MinScore = 100
	}
	if c.Publish.Visibility == "" {
		c.Publish.Visibility = "private"
	}
	if c.Publish.CategoryID == "" {
		c.Publish.CategoryID = "27" // Education
	}
	if c.Publish.DefaultLanguage == "" {
		c.Publish.DefaultLanguage = "en"
	}
	if c.Paths.MediaRoot == "" {
		c.Paths.MediaRoot = "media"
	}
	if c.Paths.Logs == "" {
		c.Paths.Logs = "logs"
	}
}

func (c *Config) validate() error {
	if c.Video.Width <= 0 || c.Video.Height <= 0 {
		return fmt.Errorf("video dimensions must be positive, got %dx%d", c.Video.Width, c.Video.Height)
	}
	if c.Video.FPS <= 0 {
		return fmt.Errorf("video fps must be positive, got %d", c.Video.FPS)
	}
	if c.Video.MusicVolume < 0 || c.Video.MusicVolume >= 1 {
		return fmt.Errorf("music volume must be in [0,1), got %v", c.Video.MusicVolume)
	}
	if c.Generation.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1, got %d", c.Generation.MaxConcurrent)
	}
	return nil
}

// LanguageSupported reports whether lang is one of the supported locale
// codes.
func LanguageSupported(lang string) bool {
	for _, l := range SupportedLanguages {
		if l == lang {
			return true
		}
	}
	return false
}

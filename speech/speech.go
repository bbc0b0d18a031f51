// Package speech renders narration text to audio via the Google Cloud
// Text-to-Speech API.
package speech

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"timeline-pipeline/config"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	texttospeech "google.golang.org/api/texttospeech/v1"
)

// Client is the TTS client. One instance is shared across concurrent stage
// generation; the underlying service is safe for concurrent use.
type Client struct {
	cfg *config.Config
	svc *texttospeech.Service
}

func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	var opts []option.ClientOption
	if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		opts = append(opts, option.WithAPIKey(key))
	}
	svc, err := texttospeech.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("texttospeech service: %w", err)
	}
	return &Client{cfg: cfg, svc: svc}, nil
}

// Synthesize converts text to MP3 bytes using the configured voice for the
// language. Empty text is a permanent error and is never retried; transient
// API failures are retried with linear backoff.
func (c *Client) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("narration text is empty")
	}
	voice, ok := c.cfg.Speech.Voices[language]
	if !ok {
		return nil, fmt.Errorf("no voice configured for language %q", language)
	}

	req := &texttospeech.SynthesizeSpeechRequest{
		Input: &texttospeech.SynthesisInput{Text: text},
		Voice: &texttospeech.VoiceSelectionParams{
			LanguageCode: voice.LanguageCode,
			Name:         voice.Name,
		},
		AudioConfig: &texttospeech.AudioConfig{
			AudioEncoding: "MP3",
			SpeakingRate:  c.cfg.Speech.SpeakingRate,
		},
	}

	attempts := c.cfg.Generation.RetryAttempts
	backoff := time.Duration(c.cfg.Generation.SpeechBackoffSec * float64(time.Second))

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := c.svc.Text.Synthesize(req).Context(ctx).Do()
		if err == nil {
			audio, decErr := base64.StdEncoding.DecodeString(resp.AudioContent)
			if decErr != nil {
				return nil, fmt.Errorf("decode audio content: %w", decErr)
			}
			if len(audio) == 0 {
				return nil, fmt.Errorf("tts returned empty audio")
			}
			return audio, nil
		}
		if !retryable(err) {
			return nil, fmt.Errorf("tts synthesize: %w", err)
		}
		lastErr = err
		log.Printf("[speech] Attempt %d failed: %v — retrying...", attempt, err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * backoff):
		}
	}
	return nil, fmt.Errorf("tts synthesize after %d attempts: %w", attempts, lastErr)
}

// retryable reports whether the error looks transient: rate limiting,
// server-side failures, or transport problems. Client-side request errors
// (invalid text, bad voice) are permanent.
func retryable(err error) bool {
	if apiErr, ok := err.(*googleapi.Error); ok {
		return apiErr.Code == 429 || apiErr.Code >= 500
	}
	// Non-API errors are transport-level: timeouts, resets.
	return true
}

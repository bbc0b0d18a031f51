// Package visuals generates still images for timeline stages via the
// Imagen API.
package visuals

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"timeline-pipeline/config"
)

// ImagenClient generates images from text prompts.
type ImagenClient struct {
	cfg        *config.Config
	httpClient *http.Client
}

func NewImagenClient(cfg *config.Config) *ImagenClient {
	return &ImagenClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

type predictRequest struct {
	Instances  []predictInstance `json:"instances"`
	Parameters predictParameters `json:"parameters"`
}

type predictInstance struct {
	Prompt string `json:"prompt"`
}

type predictParameters struct {
	SampleCount int    `json:"sampleCount"`
	AspectRatio string `json:"aspectRatio"`
}

type predictResponse struct {
	Predictions []struct {
		BytesBase64Encoded string `json:"bytesBase64Encoded"`
	} `json:"predictions"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate renders a prompt to image bytes. Transient failures are retried
// with linear backoff; an empty prompt is permanent and fails immediately.
func (c *ImagenClient) Generate(ctx context.Context, prompt string) ([]byte, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("image prompt is empty")
	}

	attempts := c.cfg.Generation.RetryAttempts
	backoff := time.Duration(c.cfg.Generation.ImageBackoffSec * float64(time.Second))

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		img, err := c.predict(ctx, prompt)
		if err == nil {
			return img, nil
		}
		if permanent(err) {
			return nil, err
		}
		lastErr = err
		log.Printf("[visuals] Attempt %d failed: %v — retrying...", attempt, err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * backoff):
		}
	}
	return nil, fmt.Errorf("image generation after %d attempts: %w", attempts, lastErr)
}

type statusError struct {
	code int
	msg  string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("imagen HTTP %d: %s", e.code, e.msg)
}

func permanent(err error) bool {
	if se, ok := err.(*statusError); ok {
		return se.code >= 400 && se.code < 500 && se.code != 429
	}
	return false
}

func (c *ImagenClient) predict(ctx context.Context, prompt string) ([]byte, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, &statusError{code: 401, msg: "GEMINI_API_KEY not set"}
	}

	reqBody := predictRequest{
		Instances: []predictInstance{{Prompt: prompt}},
		Parameters: predictParameters{
			SampleCount: 1,
			AspectRatio: c.cfg.Image.AspectRatio,
		},
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:predict?key=%s",
		c.cfg.Image.BaseURL, c.cfg.Image.Model, apiKey)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("imagen request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode, msg: snippet(respBytes)}
	}

	var pr predictResponse
	if err := json.Unmarshal(respBytes, &pr); err != nil {
		return nil, fmt.Errorf("parse imagen response: %w", err)
	}
	if pr.Error != nil {
		return nil, &statusError{code: pr.Error.Code, msg: pr.Error.Message}
	}
	if len(pr.Predictions) == 0 {
		return nil, fmt.Errorf("imagen returned no predictions")
	}

	img, err := base64.StdEncoding.DecodeString(pr.Predictions[0].BytesBase64Encoded)
	if err != nil {
		return nil, fmt.Errorf("decode image data: %w", err)
	}
	// Guard against error pages or truncated payloads sneaking through.
	if len(img) < 100 {
		return nil, fmt.Errorf("image payload too small (%d bytes)", len(img))
	}
	return img, nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

// Package planner turns a topic into an ordered list of timeline stages by
// asking the narrative model for a structured breakdown.
package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"timeline-pipeline/config"
	"timeline-pipeline/types"
)

const enPromptTemplate = `Act as an expert in history and social media content creation. Your task is to plan a concise and engaging historical timeline for a short vertical video (TikTok or Instagram Reels style) about the topic: %q.

Respond with ONLY a valid JSON object — no preamble, no markdown, no explanation — with this structure:

{
  "title": "A short, catchy title for the video, suitable for social media.",
  "cover_prompt": "A 2-4 sentence English prompt for an AI image generator describing a cover image that represents the whole historical evolution of the topic.",
  "stages": [
    {
      "order": 1,
      "name": "Short name for the stage (maximum 5 words, ideally 3). Shown as the on-screen caption.",
      "description": "Description of this historical stage (50-80 words). Key developments, changes or milestones, with dates only when easy to grasp.",
      "narration": "The exact voiceover text for this stage, 30-45 words, conversational tone, readable aloud in 10-15 seconds. Plain sentences with punctuation, nothing that should not be spoken.",
      "image_prompt": "A detailed 2-4 sentence English prompt for an AI image generator depicting this stage. Historically accurate era, clothing, architecture and technology. No text, no watermarks."
    }
  ]
}

Rules:
- Include exactly 4 stages, in strict chronological order, with "order" numbered 1 through 4.
- The information must be historically accurate. Engaging, but truthful.
- For stages after the first, open the narration with a brief transition ("Then...", "Later..."). For stages before the last, end with a hook that invites the viewer onward.
- Write narration in the video language; write image prompts in English regardless.`

const esPromptTemplate = `Actúa como un experto en historia y en creación de contenido para redes sociales. Tu tarea es planear una cronología histórica concisa y atractiva para un video corto vertical (estilo TikTok o Instagram Reels) sobre el tema: %q.

Responde SOLO con un objeto JSON válido — sin preámbulo, sin markdown, sin explicación — con esta estructura:

{
  "title": "Un título corto y llamativo para el video, adecuado para redes sociales.",
  "cover_prompt": "Un prompt en inglés de 2-4 oraciones para una IA generadora de imágenes que describa una portada representando toda la evolución histórica del tema.",
  "stages": [
    {
      "order": 1,
      "name": "Nombre corto de la etapa (máximo 5 palabras, idealmente 3). Aparece como pie de página en el video.",
      "description": "Descripción de esta etapa histórica (50-80 palabras). Desarrollos, cambios o hitos clave, con fechas solo si son fáciles de entender.",
      "narration": "El texto exacto de la voz en off para esta etapa, 30-45 palabras, tono conversacional, legible en voz alta en 10-15 segundos. Oraciones simples con puntuación, nada que no deba ser leído.",
      "image_prompt": "Un prompt detallado en inglés de 2-4 oraciones para una IA generadora de imágenes que represente esta etapa. Época, vestimenta, arquitectura y tecnología históricamente precisas. Sin texto, sin marcas de agua."
    }
  ]
}

Reglas:
- Incluye exactamente 4 etapas, en estricto orden cronológico, con "order" numerado del 1 al 4.
- La información debe ser históricamente precisa. Atractiva, pero veraz.
- En las etapas posteriores a la primera, abre la narración con una transición breve ("Luego...", "Más tarde..."). En las etapas anteriores a la última, cierra con un gancho que invite a seguir viendo.
- Escribe la narración en el idioma del video; los prompts de imagen siempre en inglés.`

// Planner requests timeline plans from the Gemini API.
type Planner struct {
	cfg        *config.Config
	httpClient *http.Client
}

func New(cfg *config.Config) *Planner {
	return &Planner{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 90 * time.Second},
	}
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig geminiGenConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenConfig struct {
	Temperature float64 `json:"temperature"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// planJSON is the raw shape the narrative model is asked to return.
type planJSON struct {
	Title       string      `json:"title"`
	CoverPrompt string      `json:"cover_prompt"`
	Stages      []stageJSON `json:"stages"`
}

type stageJSON struct {
	Order       int    `json:"order"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Narration   string `json:"narration"`
	ImagePrompt string `json:"image_prompt"`
}

// PlanTimeline calls the narrative service once and validates the result
// into a Plan. Any malformed or partial response yields a PlanningError.
func (p *Planner) PlanTimeline(ctx context.Context, topic, language string) (*types.Plan, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, &types.PlanningError{Reason: "topic is empty"}
	}
	if !config.LanguageSupported(language) {
		return nil, &types.PlanningError{Reason: fmt.Sprintf("unsupported language %q", language)}
	}

	log.Printf("[planner] Planning timeline for %q (%s)...", topic, language)

	content, err := p.generate(ctx, buildPrompt(topic, language))
	if err != nil {
		return nil, &types.PlanningError{Reason: "narrative service call failed", Err: err}
	}

	var raw planJSON
	if err := json.Unmarshal([]byte(cleanJSON(content)), &raw); err != nil {
		return nil, &types.PlanningError{Reason: "response is not valid JSON", Err: err}
	}

	plan, err := convertPlan(topic, raw)
	if err != nil {
		return nil, err
	}
	log.Printf("[planner] Plan ready: %q, %d stages", plan.Title, len(plan.Stages))
	return plan, nil
}

func buildPrompt(topic, language string) string {
	if language == "es" {
		return fmt.Sprintf(esPromptTemplate, topic)
	}
	return fmt.Sprintf(enPromptTemplate, topic)
}

func (p *Planner) generate(ctx context.Context, prompt string) (string, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return "", fmt.Errorf("GEMINI_API_KEY not set")
	}

	reqBody := geminiRequest{
		Contents:         []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: geminiGenConfig{Temperature: p.cfg.Planner.Temperature},
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		p.cfg.Planner.BaseURL, p.cfg.Planner.Model, apiKey)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var gr geminiResponse
	if err := json.Unmarshal(respBytes, &gr); err != nil {
		return "", fmt.Errorf("parse gemini response: %w", err)
	}
	if gr.Error != nil {
		return "", fmt.Errorf("gemini error: %s", gr.Error.Message)
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}
	return gr.Candidates[0].Content.Parts[0].Text, nil
}

// convertPlan validates the raw plan and maps the model's 1-based "order"
// onto contiguous 0-based stage indices.
func convertPlan(topic string, raw planJSON) (*types.Plan, error) {
	if len(raw.Stages) == 0 {
		return nil, &types.PlanningError{Reason: "plan contains zero stages"}
	}
	if raw.Title == "" {
		return nil, &types.PlanningError{Reason: "plan is missing a title"}
	}

	stages := make([]types.StageSpec, len(raw.Stages))
	seen := make(map[int]bool, len(raw.Stages))
	for _, s := range raw.Stages {
		idx := s.Order - 1
		if idx < 0 || idx >= len(raw.Stages) || seen[idx] {
			return nil, &types.PlanningError{
				Reason: fmt.Sprintf("stage order %d is out of sequence", s.Order),
			}
		}
		seen[idx] = true
		if s.Name == "" || s.Description == "" || s.Narration == "" || s.ImagePrompt == "" {
			return nil, &types.PlanningError{
				Reason: fmt.Sprintf("stage %d is missing required fields", s.Order),
			}
		}
		stages[idx] = types.StageSpec{
			Index:           idx,
			Title:           s.Name,
			Explanation:     s.Description,
			NarrationScript: s.Narration,
			ImagePrompt:     s.ImagePrompt,
		}
	}

	return &types.Plan{
		Topic:       topic,
		Title:       raw.Title,
		CoverPrompt: raw.CoverPrompt,
		Stages:      stages,
	}, nil
}

// cleanJSON strips markdown fences if the model wraps its response in
// ```json ... ```
func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

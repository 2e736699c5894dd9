package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/artyomia/marketingganttai/internal/model"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// DefaultEndpoint is the Generative Language API base URL.
const DefaultEndpoint = "https://generativelanguage.googleapis.com/v1beta"

// requestTimeout bounds one generateContent call.
const requestTimeout = 120 * time.Second

// GeminiConfig configures the Gemini generator.
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
	// Endpoint overrides the API base URL.
	Endpoint string `mapstructure:"endpoint"`
}

// Gemini generates plans with the Generative Language API.
type Gemini struct {
	apiKey     string
	endpoint   string
	model      string
	client     *http.Client
	categories []string
	roster     []string
}

// Gemini API request/response structures
type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	ResponseMimeType string        `json:"responseMimeType,omitempty"`
	ResponseSchema   *geminiSchema `json:"responseSchema,omitempty"`
}

type geminiSchema struct {
	Type        string                   `json:"type"`
	Description string                   `json:"description,omitempty"`
	Items       *geminiSchema            `json:"items,omitempty"`
	Properties  map[string]*geminiSchema `json:"properties,omitempty"`
	Required    []string                 `json:"required,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason,omitempty"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// NewGemini builds a generator. roster is the list of people the model may
// assign tasks to; an empty roster uses model.DefaultAssignees.
func NewGemini(cfg GeminiConfig, roster []string) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is not configured (set gemini.api_key or MKT_GEMINI_API_KEY)")
	}
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	name := cfg.Model
	if name == "" {
		name = DefaultModel
	}
	if len(roster) == 0 {
		roster = model.DefaultAssignees
	}
	return &Gemini{
		apiKey:     cfg.APIKey,
		endpoint:   endpoint,
		model:      name,
		client:     &http.Client{Timeout: requestTimeout},
		categories: model.DefaultCategories,
		roster:     roster,
	}, nil
}

// Generate implements Generator.
func (g *Gemini) Generate(ctx context.Context, description string, start model.Date) ([]model.PlanDraft, error) {
	text, err := g.generateContent(ctx, Prompt(description, start, g.categories, g.roster))
	if err != nil {
		slog.Error("gemini request failed", "model", g.model, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	if text == "" {
		return nil, fmt.Errorf("%w: %w: empty response", ErrGeneration, ErrMalformedResponse)
	}
	drafts, err := ParseDrafts([]byte(text))
	if err != nil {
		slog.Warn("gemini returned an unusable plan", "model", g.model, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	slog.Debug("gemini plan generated", "model", g.model, "tasks", len(drafts))
	return drafts, nil
}

// generateContent sends one prompt and returns the text of the first
// candidate.
func (g *Gemini) generateContent(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: &geminiGenerationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   draftSchema(g.roster),
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", g.endpoint, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini API error (status %d): %s", resp.StatusCode, respBody)
	}

	var parsed geminiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("gemini API error: %s (code: %d)", parsed.Error.Message, parsed.Error.Code)
	}
	return responseText(&parsed), nil
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *geminiResponse) string {
	if len(resp.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return strings.TrimSpace(b.String())
}

// draftSchema constrains the model output to an array of drafts.
func draftSchema(roster []string) *geminiSchema {
	return &geminiSchema{
		Type: "ARRAY",
		Items: &geminiSchema{
			Type: "OBJECT",
			Properties: map[string]*geminiSchema{
				"name":            {Type: "STRING", Description: "Actionable name of the task"},
				"startOffsetDays": {Type: "INTEGER", Description: "Number of days from project start date this task begins"},
				"durationDays":    {Type: "INTEGER", Description: "Duration of the task in days"},
				"category":        {Type: "STRING", Description: "Category of the task"},
				"assignees": {
					Type:        "ARRAY",
					Items:       &geminiSchema{Type: "STRING"},
					Description: fmt.Sprintf("List of assignees (%s)", strings.Join(roster, ", ")),
				},
			},
			Required: []string{"name", "startOffsetDays", "durationDays", "category", "assignees"},
		},
	}
}

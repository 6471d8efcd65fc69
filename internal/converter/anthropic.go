// Package converter turns free text into todo suggestions using the
// Anthropic Messages API.
package converter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Tiliavir/trivial-focus-tracker/internal/model"
	"github.com/Tiliavir/trivial-focus-tracker/internal/tagparse"
)

const (
	anthropicAPI = "https://api.anthropic.com/v1/messages"
	DefaultModel = "claude-sonnet-4-20250514"
)

// ErrUnavailable is returned when no API key is configured.
var ErrUnavailable = errors.New("converter unavailable: no API key")

// Anthropic implements tagparse.Converter.
type Anthropic struct {
	apiKey     string
	model      string
	endpoint   string
	httpClient *http.Client
	logger     zerolog.Logger
}

// Option configures an Anthropic converter.
type Option func(*Anthropic)

// WithEndpoint overrides the Messages API URL.
func WithEndpoint(url string) Option {
	return func(a *Anthropic) { a.endpoint = url }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Anthropic) { a.httpClient = c }
}

// New returns a converter. An empty model selects DefaultModel.
func New(apiKey, model string, logger zerolog.Logger, opts ...Option) *Anthropic {
	if model == "" {
		model = DefaultModel
	}
	a := &Anthropic{
		apiKey:     apiKey,
		model:      model,
		endpoint:   anthropicAPI,
		httpClient: http.DefaultClient,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Convert asks the model to structure text.
func (a *Anthropic) Convert(ctx context.Context, text string, today model.Date) (tagparse.Suggestion, error) {
	if a.apiKey == "" {
		return tagparse.Suggestion{}, ErrUnavailable
	}
	resp, err := a.callAPI(ctx, buildPrompt(text, today))
	if err != nil {
		a.logger.Warn().Err(err).Msg("converter call failed")
		return tagparse.Suggestion{}, fmt.Errorf("api call: %w", err)
	}
	return parseResponse(resp)
}

func buildPrompt(text string, today model.Date) string {
	var sb strings.Builder

	sb.WriteString("Turn this todo entry into structured data. Return JSON only.\n\n")
	sb.WriteString("Entry:\n")
	sb.WriteString(text)
	sb.WriteString("\n\nToday is ")
	sb.WriteString(today.String())
	sb.WriteString(".\n\n")

	sb.WriteString(`Return a JSON object with this structure:
{
  "text": "the task without tags or date words",
  "priority": "low|medium|high|urgent",
  "category": "default|work|life|study",
  "deadline": "YYYY-MM-DD or null",
  "estimated_time": minutes or null,
  "notes": "extra details or null"
}

Rules:
- Tags such as #work, #明天 or #urgent are hints; remove them from "text"
- Resolve relative dates (tomorrow, 后天, next Friday) against today
- Use "medium" priority and "default" category when nothing indicates otherwise

Return ONLY the JSON, no other text.`)

	return sb.String()
}

type apiRequest struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens"`
	Messages  []apiMessage `json:"messages"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (a *Anthropic) callAPI(ctx context.Context, prompt string) (string, error) {
	reqBody := apiRequest{
		Model:     a.model,
		MaxTokens: 512,
		Messages: []apiMessage{
			{Role: "user", Content: prompt},
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("api error (status %d): %s", resp.StatusCode, string(body))
	}

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if apiResp.Error != nil {
		return "", fmt.Errorf("api error: %s", apiResp.Error.Message)
	}

	if len(apiResp.Content) == 0 {
		return "", errors.New("empty response")
	}

	return apiResp.Content[0].Text, nil
}

// suggestionJSON is the shape the model is asked to return.
type suggestionJSON struct {
	Text          string         `json:"text"`
	Priority      model.Priority `json:"priority"`
	Category      model.Category `json:"category"`
	Deadline      model.Date     `json:"deadline"`
	EstimatedTime *int           `json:"estimated_time"`
	Notes         *string        `json:"notes"`
}

func parseResponse(resp string) (tagparse.Suggestion, error) {
	// Clean up response - remove markdown code blocks if present
	resp = strings.TrimSpace(resp)
	resp = strings.TrimPrefix(resp, "```json")
	resp = strings.TrimPrefix(resp, "```")
	resp = strings.TrimSuffix(resp, "```")
	resp = strings.TrimSpace(resp)

	raw := suggestionJSON{Priority: model.PriorityMedium, Category: model.CategoryDefault}
	if err := json.Unmarshal([]byte(resp), &raw); err != nil {
		return tagparse.Suggestion{}, fmt.Errorf("parse json: %w (response: %s)", err, resp)
	}

	s := tagparse.Suggestion{
		Text:     strings.TrimSpace(raw.Text),
		Priority: raw.Priority,
		Category: raw.Category,
		Deadline: raw.Deadline,
	}
	if raw.EstimatedTime != nil && *raw.EstimatedTime > 0 {
		s.EstimatedMinutes = *raw.EstimatedTime
	}
	if raw.Notes != nil {
		s.Notes = strings.TrimSpace(*raw.Notes)
	}
	return s, nil
}

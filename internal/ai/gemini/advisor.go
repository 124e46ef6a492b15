package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/staffkit/staff-matcher/internal/ai"
	"github.com/staffkit/staff-matcher/internal/matching"
	"github.com/staffkit/staff-matcher/internal/util"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Advisor generates placement notes for suggestion lists via Gemini.
type Advisor struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

//go:embed prompt.md
var promptTemplate string

const defaultMaxLogLength = 200

func NewAdvisor(generator contentGenerator, logger *zap.Logger, maxLogLength int) *Advisor {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Advisor{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

func (a *Advisor) Advise(ctx context.Context, placement *ai.Placement, suggestions []*matching.Suggestion) (*ai.Recommendation, error) {
	if placement == nil {
		return nil, fmt.Errorf("placement is required")
	}
	if len(suggestions) == 0 {
		return nil, fmt.Errorf("at least one suggestion is required")
	}

	placementJSON, err := json.MarshalIndent(map[string]any{
		"employee":      placement.EmployeeName,
		"potential":     placement.Potential,
		"communication": placement.Communication,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal placement payload: %w", err)
	}

	suggestionsJSON, err := json.MarshalIndent(suggestions, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal suggestions payload: %w", err)
	}

	prompt := buildPrompt(string(placementJSON), string(suggestionsJSON))

	a.logger.Debug("gemini generate content request",
		zap.String("employee", placement.EmployeeName),
		zap.Int("suggestions", len(suggestions)),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", util.TruncateForLog(prompt, a.maxLogLen)),
	)

	raw, err := a.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("gemini generate content response",
		zap.String("employee", placement.EmployeeName),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", util.TruncateForLog(raw, a.maxLogLen)),
	)

	recommendation, err := parseResponse(raw)
	if err != nil {
		return nil, err
	}

	recommendation.Raw = raw
	return recommendation, nil
}

func buildPrompt(placementJSON, suggestionsJSON string) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Employee:\n{{PLACEMENT_JSON}}\n\nSuggestions:\n{{SUGGESTIONS_JSON}}\n\nJSON Response:"
	}
	prompt := strings.ReplaceAll(template, "{{PLACEMENT_JSON}}", placementJSON)
	prompt = strings.ReplaceAll(prompt, "{{SUGGESTIONS_JSON}}", suggestionsJSON)
	return prompt
}

func parseResponse(raw string) (*ai.Recommendation, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	note := coerceString(data["note"])
	if note == "" {
		return nil, fmt.Errorf("gemini response has no note")
	}

	confidence := coerceFloat(data["confidence"])
	if math.IsNaN(confidence) {
		confidence = 0
	}

	return &ai.Recommendation{
		Note:       note,
		Confidence: confidence,
	}, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}

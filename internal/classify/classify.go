/*
Package classify sends extracted disclosure text plus financial context to
the Gemini API and parses a structured impact verdict.

The service is instructed to emit a typed "impact" enum alongside the
free-text "impact_note"; the note scan (BIG before MEDIUM before SMALL) is
kept only as a fallback parser for malformed output. Any transport or parse
failure yields an UNKNOWN verdict and never aborts the pipeline.
*/
package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/kpraghav/orderwatch/internal/config"
	"github.com/kpraghav/orderwatch/internal/types"
)

const classifyTemperature = 0.3

// Classifier calls the reasoning service and parses impact verdicts.
type Classifier struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	logger  zerolog.Logger
}

// NewClassifier creates a Gemini-backed classifier.
func NewClassifier(ctx context.Context, cfg config.GeminiConfig, logger zerolog.Logger) (*Classifier, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &Classifier{
		client:  client,
		model:   cfg.Model,
		timeout: config.MustDuration(cfg.Timeout),
		logger:  logger,
	}, nil
}

// Classify builds the context payload from the document text and the rounded
// snapshot and invokes the reasoning service. It always returns a verdict;
// on any failure the verdict is UNKNOWN with zero note and token count.
func (c *Classifier) Classify(ctx context.Context, text string, snapshot types.FinancialSnapshot) types.ImpactVerdict {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	prompt := buildUserPrompt(text, int(math.Round(snapshot.Revenue)), int(math.Round(snapshot.MarketCap)))

	contents := []*genai.Content{
		{Role: "user", Parts: []*genai.Part{{Text: prompt}}},
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemInstruction}}},
		Temperature:       genai.Ptr[float32](classifyTemperature),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    responseSchema(),
	})
	if err != nil {
		c.logger.Warn().Err(err).Msg("gemini API call failed")
		return types.ImpactVerdict{Label: types.ImpactUnknown}
	}

	tokensUsed := 0
	if resp.UsageMetadata != nil {
		tokensUsed = int(resp.UsageMetadata.TotalTokenCount)
	}

	verdict := parseVerdict(resp.Text(), tokensUsed)
	if verdict.Label == types.ImpactUnknown && verdict.Note == "" {
		c.logger.Warn().Str("raw", resp.Text()).Msg("unparseable classifier response")
	}

	return verdict
}

func responseSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"impact": {
				Type:        genai.TypeString,
				Enum:        []string{"BIG", "MEDIUM", "SMALL"},
				Description: "The categorical impact verdict.",
			},
			"impact_note": {
				Type:        genai.TypeString,
				Description: "Impact label, order amount, percent of revenue, duration and a short remark.",
			},
		},
		Required: []string{"impact", "impact_note"},
	}
}

type verdictPayload struct {
	Impact     string `json:"impact"`
	ImpactNote string `json:"impact_note"`
}

// parseVerdict trusts the typed impact field when it carries a known label
// and falls back to scanning the note for label tokens otherwise. An
// unparseable response yields a zero UNKNOWN verdict.
func parseVerdict(raw string, tokensUsed int) types.ImpactVerdict {
	var payload verdictPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return types.ImpactVerdict{Label: types.ImpactUnknown}
	}

	label := types.ImpactUnknown
	switch types.ImpactLabel(payload.Impact) {
	case types.ImpactBig, types.ImpactMedium, types.ImpactSmall:
		label = types.ImpactLabel(payload.Impact)
	default:
		label = scanNoteForLabel(payload.ImpactNote)
	}

	return types.ImpactVerdict{
		Label:      label,
		Note:       payload.ImpactNote,
		TokensUsed: tokensUsed,
	}
}

// scanNoteForLabel checks for the literal label tokens in priority order:
// BIG, then MEDIUM, then SMALL.
func scanNoteForLabel(note string) types.ImpactLabel {
	upper := strings.ToUpper(note)
	switch {
	case strings.Contains(upper, "BIG"):
		return types.ImpactBig
	case strings.Contains(upper, "MEDIUM"):
		return types.ImpactMedium
	case strings.Contains(upper, "SMALL"):
		return types.ImpactSmall
	default:
		return types.ImpactUnknown
	}
}

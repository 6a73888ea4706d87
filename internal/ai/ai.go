/*
Package ai wraps the Gemini API to produce executive summaries of normativos
for a Pix product team.
*/
package ai

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"pixmonitor/internal/config"
	"pixmonitor/internal/types"
)

// Summarizer generates a structured executive summary for one regulation.
type Summarizer struct {
	apiKey          string
	model           string
	maxOutputTokens int32
	logger          *zap.Logger
}

func NewSummarizer(cfg config.GeminiConfig, logger *zap.Logger) *Summarizer {
	return &Summarizer{
		apiKey:          cfg.APIKey,
		model:           cfg.Model,
		maxOutputTokens: cfg.MaxOutputTokens,
		logger:          logger,
	}
}

// Summarize builds the prompt from the item's metadata plus either the
// extracted full text or, when extraction came up empty, the ementa, and
// asks the model for the fixed-template summary. A generation failure is a
// hard error for this item; the orchestrator decides whether to continue.
func (s *Summarizer) Summarize(ctx context.Context, item types.Regulation, fullText string) (string, error) {
	if s.apiKey == "" {
		return "", fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  s.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create gemini client: %w", err)
	}

	prompt := buildPrompt(item, fullText)

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, s.model, contents, &genai.GenerateContentConfig{
		MaxOutputTokens: s.maxOutputTokens,
	})
	if err != nil {
		return "", fmt.Errorf("gemini API call failed: %w", err)
	}

	summary := strings.TrimSpace(resp.Text())
	if summary == "" {
		return "", fmt.Errorf("gemini returned an empty summary for %s", item.ID)
	}

	s.logger.Debug("summary generated", zap.String("id", item.ID), zap.Int("length", len(summary)))
	return summary, nil
}

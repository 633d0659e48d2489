package explain

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"google.golang.org/genai"

	"impulse-sim/internal/waveform"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

// contentGenerator is the subset of *genai.Models used here.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiExplainer asks a Gemini model for the explanation.
type GeminiExplainer struct {
	models contentGenerator
	model  string
	logger *slog.Logger
}

// NewGeminiExplainer creates a client for apiKey. An empty model selects DefaultModel.
func NewGeminiExplainer(ctx context.Context, apiKey, model string, logger *slog.Logger) (*GeminiExplainer, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return newGeminiExplainer(client.Models, model, logger), nil
}

func newGeminiExplainer(models contentGenerator, model string, logger *slog.Logger) *GeminiExplainer {
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GeminiExplainer{models: models, model: model, logger: logger}
}

// Explain sends the rendered prompt and returns the concatenated text reply.
func (g *GeminiExplainer) Explain(ctx context.Context, p waveform.Parameters, r waveform.Result) (string, error) {
	prompt, err := Prompt(p, r)
	if err != nil {
		return "", err
	}
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		g.logger.Error("gemini call failed", "model", g.model, "error", err)
		return "", fmt.Errorf("%w: %v", ErrCommunication, err)
	}
	text := responseText(resp)
	if text == "" {
		g.logger.Warn("gemini returned no text", "model", g.model)
		return "", fmt.Errorf("%w: empty reply", ErrCommunication)
	}
	return text, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(sb.String())
}

func formatFixed(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

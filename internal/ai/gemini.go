// Package ai rewrites and reviews resumes and cover letters with Gemini.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"flacroncv-backend-go/internal/core"
	"flacroncv-backend-go/internal/models"
)

const (
	DefaultModel    = "gemini-1.5-flash"
	temperature     = 0.7
	maxOutputTokens = 2000
)

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("model returned no content")

// TextGenerator produces a completion for a system instruction and a prompt.
type TextGenerator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// GeminiGenerator calls a Gemini model.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator creates a Gemini client for apiKey.
func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if model == "" {
		model = DefaultModel
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(temperature)
	model.SetMaxOutputTokens(maxOutputTokens)
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}

// Close releases the underlying client.
func (g *GeminiGenerator) Close() error {
	return g.client.Close()
}

// Enhancer implements core.ContentEnhancer on top of a TextGenerator.
type Enhancer struct {
	gen    TextGenerator
	logger *zap.Logger
}

var _ core.ContentEnhancer = (*Enhancer)(nil)

// NewEnhancer creates an enhancer.
func NewEnhancer(gen TextGenerator, logger *zap.Logger) *Enhancer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enhancer{gen: gen, logger: logger}
}

func language(lang string) string {
	if lang == "fr" {
		return "fr"
	}
	return "en"
}

func (e *Enhancer) EnhanceResume(ctx context.Context, data map[string]interface{}, lang string) (map[string]interface{}, error) {
	lang = language(lang)
	summary, err := e.gen.Generate(ctx, pick(resumeSummarySystem, lang), resumePrompt(data, lang, false))
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"summary": summary}, nil
}

func (e *Enhancer) EnhanceResumeSummary(ctx context.Context, data map[string]interface{}, lang string) (map[string]interface{}, error) {
	lang = language(lang)
	summary, err := e.gen.Generate(ctx, pick(resumeSummarySystem, lang), resumePrompt(data, lang, true))
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"summary": summary}, nil
}

// EnhanceCoverLetter returns the generated body as both closing and
// enhancedContent, keeping the previous content under originalContent.
func (e *Enhancer) EnhanceCoverLetter(ctx context.Context, data map[string]interface{}, lang string) (map[string]interface{}, error) {
	lang = language(lang)
	content, err := e.gen.Generate(ctx, pick(coverLetterSystem, lang), coverLetterPrompt(data, lang))
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"experience":      str(data, "experience"),
		"skills":          str(data, "skills"),
		"motivation":      str(data, "motivation"),
		"closing":         content,
		"originalContent": str(data, "content"),
		"enhancedContent": content,
	}, nil
}

func (e *Enhancer) Feedback(ctx context.Context, kind models.DocumentKind, data map[string]interface{}, lang string) (string, error) {
	lang = language(lang)
	prompt, err := feedbackPrompt(kind, data, lang)
	if err != nil {
		return "", err
	}
	feedback, err := e.gen.Generate(ctx, pick(feedbackSystem, lang), prompt)
	if err != nil {
		e.logger.Warn("AI feedback failed", zap.String("kind", string(kind)), zap.Error(err))
		return "", err
	}
	return feedback, nil
}

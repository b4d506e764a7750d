package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/vbonduro/platelens/internal/vision"
)

type GeminiAnalyzer struct {
	client *genai.Client
	model  string
	prompt string
}

// NewGeminiAnalyzer dials the Gemini API. Callers must Close the analyzer.
func NewGeminiAnalyzer(ctx context.Context, apiKey, model, prompt string, opts ...option.ClientOption) (*GeminiAnalyzer, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiAnalyzer{client: client, model: model, prompt: prompt}, nil
}

func (a *GeminiAnalyzer) Close() error {
	return a.client.Close()
}

func (a *GeminiAnalyzer) Analyze(ctx context.Context, r io.Reader, mimeType string) (*vision.AnalysisResult, error) {
	imageData, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	model := a.client.GenerativeModel(a.model)
	resp, err := model.GenerateContent(ctx, genai.Text(a.prompt), genai.ImageData(imageFormat(mimeType), imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to call gemini: %w", err)
	}

	text, err := responseText(resp)
	if err != nil {
		return nil, err
	}

	return &vision.AnalysisResult{
		RawResponse: strings.TrimSpace(text),
		Model:       a.model,
	}, nil
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("empty gemini response")
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return sb.String(), nil
}

// imageFormat converts a MIME type to the short format genai.ImageData expects.
func imageFormat(mimeType string) string {
	if format, ok := strings.CutPrefix(mimeType, "image/"); ok && format != "" {
		return format
	}
	return "jpeg"
}

package ai

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"
)

var _ ChatClient = (*GeminiClient)(nil)

type GeminiClient struct {
	client *genai.Client
	model  string
	maxOut int
}

// NewGeminiClient creates a Gemini chat client using the official SDK.
func NewGeminiClient(ctx context.Context, apiKey, baseURL, model string, maxOut int) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	return &GeminiClient{client: c, model: model, maxOut: maxOut}, nil
}

func (g *GeminiClient) Chat(ctx context.Context, system, user string) (string, error) {
	cfg := &genai.GenerateContentConfig{}
	if g.maxOut > 0 {
		cfg.MaxOutputTokens = int32(g.maxOut)
	}
	if strings.TrimSpace(system) != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		}
	}

	contents := []*genai.Content{{
		Role:  genai.RoleUser,
		Parts: []*genai.Part{{Text: user}},
	}}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("gemini: empty response")
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}

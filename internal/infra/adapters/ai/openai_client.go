package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var _ ChatClient = (*OpenAIClient)(nil)

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// OpenAIClient talks to the Chat Completions API.
type OpenAIClient struct {
	apiKey string
	base   string // e.g., https://api.openai.com/v1
	model  string
	client *http.Client
}

func NewOpenAIClient(apiKey, model string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIClient{
		apiKey: apiKey,
		base:   "https://api.openai.com/v1",
		model:  model,
		client: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (o *OpenAIClient) Chat(ctx context.Context, system, user string) (string, error) {
	reqBody := struct {
		Model    string    `json:"model"`
		Messages []message `json:"messages"`
	}{
		Model: o.model,
		Messages: []message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}

	b, _ := json.Marshal(reqBody)
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, o.base+"/chat/completions", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("openai http %d", resp.StatusCode)
	}

	var payload struct {
		Choices []struct {
			Message message `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	for _, c := range payload.Choices {
		if c.Message.Content != "" {
			return c.Message.Content, nil
		}
	}
	return "", errors.New("no choice content")
}

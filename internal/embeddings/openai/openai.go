// Package openai provides an embedding provider for OpenAI-compatible
// /v1/embeddings endpoints.
package openai

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultBaseURL = "https://api.openai.com"

// Provider calls an OpenAI-compatible embeddings endpoint.
type Provider struct {
	client *resty.Client
	model  string
}

// New constructs a Provider. baseURL may be empty for the hosted API.
func New(baseURL, apiKey, model string) *Provider {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetHeader("Content-Type", "application/json")
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}
	return &Provider{client: client, model: model}
}

type embeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *Provider) Embed(ctx context.Context, text string) ([]float64, error) {
	if text == "" {
		return []float64{0}, nil
	}

	var out embeddingResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(embeddingRequest{Model: p.model, Input: text}).
		SetResult(&out).
		SetError(&out).
		Post("/v1/embeddings")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		if out.Error != nil {
			return nil, fmt.Errorf("embeddings api: %s", out.Error.Message)
		}
		return nil, fmt.Errorf("embeddings api status %d", resp.StatusCode())
	}
	if len(out.Data) == 0 {
		return nil, fmt.Errorf("embeddings api returned no data")
	}
	return out.Data[0].Embedding, nil
}

// HealthPing verifies the endpoint accepts a minimal request.
func (p *Provider) HealthPing(ctx context.Context) error {
	vec, err := p.Embed(ctx, "health-check")
	if err != nil {
		return err
	}
	if len(vec) == 0 {
		return fmt.Errorf("embeddings api returned empty vector")
	}
	return nil
}

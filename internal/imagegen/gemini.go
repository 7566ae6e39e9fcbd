package imagegen

import (
	"context"
	"fmt"

	"whitecoat/internal/llm"
)

// GeminiProvider generates images with the Gemini image model. It is the
// primary (and cheapest) provider.
type GeminiProvider struct {
	client *llm.Client
}

// NewGeminiProvider creates an image provider backed by the Gemini client
func NewGeminiProvider(client *llm.Client) *GeminiProvider {
	return &GeminiProvider{client: client}
}

func (p *GeminiProvider) Name() string { return "gemini" }

// Generate produces one image as an inline data URI
func (p *GeminiProvider) Generate(ctx context.Context, prompt string) (string, error) {
	imageURL, err := p.client.GenerateImage(ctx, fmt.Sprintf("Generate an image: %s", prompt))
	if err != nil {
		return "", err
	}
	return imageURL, nil
}

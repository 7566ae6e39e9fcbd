// Package imagegen generates ad images in rate-limited batches, with a
// primary provider and a fallback.
package imagegen

import (
	"context"

	"whitecoat/internal/logger"
)

// Provider generates a single image for a prompt. Implementations return
// either a durable image URL or an inline data URI.
type Provider interface {
	// Name identifies the provider in logs
	Name() string

	// Generate produces one image for the prompt
	Generate(ctx context.Context, prompt string) (string, error)
}

// fallbackProvider tries the primary provider and falls back to the
// secondary when the primary fails for any reason.
type fallbackProvider struct {
	primary  Provider
	fallback Provider
}

// WithFallback wraps a primary provider so that failures are retried on the
// fallback provider before giving up. A nil fallback returns the primary
// unchanged.
func WithFallback(primary, fallback Provider) Provider {
	if fallback == nil {
		return primary
	}
	return &fallbackProvider{primary: primary, fallback: fallback}
}

func (p *fallbackProvider) Name() string {
	return p.primary.Name() + "+" + p.fallback.Name()
}

func (p *fallbackProvider) Generate(ctx context.Context, prompt string) (string, error) {
	imageURL, err := p.primary.Generate(ctx, prompt)
	if err == nil {
		return imageURL, nil
	}
	if ctx.Err() != nil {
		return "", err
	}

	logger.Get().Warn("Primary image provider failed, trying fallback",
		"primary", p.primary.Name(), "fallback", p.fallback.Name(), "error", err)

	return p.fallback.Generate(ctx, prompt)
}

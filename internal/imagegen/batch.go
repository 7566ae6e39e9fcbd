package imagegen

import (
	"context"
	"sync"
	"time"

	"whitecoat/internal/core"
	"whitecoat/internal/logger"
)

// ProgressFunc is called after each completed item with the running count,
// the total, and the item's result.
type ProgressFunc func(completed, total int, result core.ImageResult)

// Batcher runs image generation over a prompt list in fixed-size concurrent
// batches with an inter-batch delay. One item's failure never affects its
// siblings; every failure collapses into the item's Error field.
type Batcher struct {
	provider   Provider
	batchSize  int
	batchDelay time.Duration
}

// NewBatcher creates a batch runner over the given provider
func NewBatcher(provider Provider, batchSize int, batchDelay time.Duration) *Batcher {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Batcher{
		provider:   provider,
		batchSize:  batchSize,
		batchDelay: batchDelay,
	}
}

// Generate processes all prompts and returns results in the same order as
// the input. onProgress may be nil.
func (b *Batcher) Generate(ctx context.Context, prompts []core.ImagePrompt, onProgress ProgressFunc) []core.ImageResult {
	log := logger.Get()
	results := make([]core.ImageResult, len(prompts))
	completed := 0

	for start := 0; start < len(prompts); start += b.batchSize {
		end := start + b.batchSize
		if end > len(prompts) {
			end = len(prompts)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				results[idx] = b.generateOne(ctx, prompts[idx])
			}(i)
		}
		wg.Wait()

		for i := start; i < end; i++ {
			completed++
			if onProgress != nil {
				onProgress(completed, len(prompts), results[i])
			}
		}

		if end < len(prompts) && b.batchDelay > 0 {
			select {
			case <-time.After(b.batchDelay):
			case <-ctx.Done():
				log.Warn("Image generation cancelled mid-run", "completed", completed, "total", len(prompts))
				// Mark everything not yet attempted as failed
				for i := end; i < len(prompts); i++ {
					results[i] = failedResult(prompts[i], ctx.Err().Error())
				}
				return results
			}
		}
	}

	return results
}

func (b *Batcher) generateOne(ctx context.Context, prompt core.ImagePrompt) core.ImageResult {
	imageURL, err := b.provider.Generate(ctx, prompt.Prompt)
	if err != nil {
		logger.Get().Warn("Image generation failed",
			"provider", b.provider.Name(),
			"ad_number", prompt.AdNumber,
			"image_number", prompt.ImageNumber,
			"error", err)
		return failedResult(prompt, err.Error())
	}
	return core.ImageResult{
		Prompt:      prompt.Prompt,
		ImageURL:    imageURL,
		AdNumber:    prompt.AdNumber,
		ImageNumber: prompt.ImageNumber,
	}
}

func failedResult(prompt core.ImagePrompt, errMsg string) core.ImageResult {
	return core.ImageResult{
		Prompt:      prompt.Prompt,
		Error:       errMsg,
		AdNumber:    prompt.AdNumber,
		ImageNumber: prompt.ImageNumber,
	}
}

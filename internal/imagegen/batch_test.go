package imagegen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"whitecoat/internal/core"
)

// stubProvider returns a canned URL per prompt, failing prompts that match
// the failOn substring.
type stubProvider struct {
	mu     sync.Mutex
	calls  int
	failOn string
	delay  time.Duration
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Generate(ctx context.Context, prompt string) (string, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()

	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if p.failOn != "" && strings.Contains(prompt, p.failOn) {
		return "", errors.New("provider rejected prompt")
	}
	return "https://images.example.com/" + prompt, nil
}

func makePrompts(n int) []core.ImagePrompt {
	prompts := make([]core.ImagePrompt, n)
	for i := range prompts {
		prompts[i] = core.ImagePrompt{
			Prompt:      fmt.Sprintf("prompt-%d", i),
			AdNumber:    i/3 + 1,
			ImageNumber: i%3 + 1,
		}
	}
	return prompts
}

func TestBatcherPreservesOrder(t *testing.T) {
	provider := &stubProvider{}
	batcher := NewBatcher(provider, 2, 0)
	prompts := makePrompts(7)

	results := batcher.Generate(context.Background(), prompts, nil)

	if len(results) != len(prompts) {
		t.Fatalf("Expected %d results, got %d", len(prompts), len(results))
	}
	for i, result := range results {
		if result.AdNumber != prompts[i].AdNumber || result.ImageNumber != prompts[i].ImageNumber {
			t.Errorf("Result %d: identity mismatch, got (ad=%d, image=%d), want (ad=%d, image=%d)",
				i, result.AdNumber, result.ImageNumber, prompts[i].AdNumber, prompts[i].ImageNumber)
		}
		if !result.Succeeded() {
			t.Errorf("Result %d: unexpected failure: %s", i, result.Error)
		}
		if result.ImageURL != "https://images.example.com/"+prompts[i].Prompt {
			t.Errorf("Result %d: URL does not match its prompt: %s", i, result.ImageURL)
		}
	}
}

func TestBatcherIsolatesItemFailures(t *testing.T) {
	provider := &stubProvider{failOn: "prompt-3"}
	batcher := NewBatcher(provider, 3, 0)
	prompts := makePrompts(6)

	results := batcher.Generate(context.Background(), prompts, nil)

	succeeded := 0
	failed := 0
	for _, result := range results {
		if result.Succeeded() {
			succeeded++
		} else {
			failed++
		}
	}
	if succeeded != 5 || failed != 1 {
		t.Errorf("Expected 5 successes and 1 failure, got %d/%d", succeeded, failed)
	}
	if results[3].Succeeded() || results[3].Error == "" {
		t.Error("Failing prompt should carry its error message")
	}
}

func TestBatcherProgressCallback(t *testing.T) {
	provider := &stubProvider{}
	batcher := NewBatcher(provider, 2, 0)
	prompts := makePrompts(5)

	var counts []int
	results := batcher.Generate(context.Background(), prompts, func(completed, total int, _ core.ImageResult) {
		if total != len(prompts) {
			t.Errorf("Progress total = %d, want %d", total, len(prompts))
		}
		counts = append(counts, completed)
	})

	if len(results) != len(prompts) {
		t.Fatalf("Expected %d results, got %d", len(prompts), len(results))
	}
	if len(counts) != len(prompts) {
		t.Fatalf("Expected %d progress calls, got %d", len(prompts), len(counts))
	}
	for i, c := range counts {
		if c != i+1 {
			t.Errorf("Progress call %d reported completed=%d, want %d", i, c, i+1)
		}
	}
}

func TestBatcherCancellationMarksRemaining(t *testing.T) {
	provider := &stubProvider{}
	batcher := NewBatcher(provider, 2, 500*time.Millisecond)
	prompts := makePrompts(6)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	results := batcher.Generate(ctx, prompts, nil)

	if len(results) != len(prompts) {
		t.Fatalf("Expected %d results, got %d", len(prompts), len(results))
	}

	// The first batch completes before the cancel lands in the inter-batch
	// delay; everything after it is marked failed.
	if !results[0].Succeeded() || !results[1].Succeeded() {
		t.Error("First batch should have completed before cancellation")
	}
	for i := 2; i < len(results); i++ {
		if results[i].Succeeded() {
			t.Errorf("Result %d should be marked failed after cancellation", i)
		}
	}
}

func TestBatcherEmptyInput(t *testing.T) {
	batcher := NewBatcher(&stubProvider{}, 3, 0)

	results := batcher.Generate(context.Background(), nil, nil)
	if len(results) != 0 {
		t.Errorf("Expected no results for empty input, got %d", len(results))
	}
}

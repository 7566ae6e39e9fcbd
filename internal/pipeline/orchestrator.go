// Package pipeline orchestrates a full brief generation run: website
// insight extraction, ad concept generation, image generation, and brief
// compilation, with the submission status machine driven around them.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"whitecoat/internal/brief"
	"whitecoat/internal/config"
	"whitecoat/internal/core"
	"whitecoat/internal/imagegen"
	"whitecoat/internal/logger"
	"whitecoat/internal/persistence"
)

// ErrRunInProgress is returned when a generation run is requested for a
// submission that already has one running in this process.
var ErrRunInProgress = errors.New("generation already in progress for this submission")

// ConceptGenerator produces ad concepts for a submission. Implemented by
// concepts.Generator; declared here so tests can substitute a fake.
type ConceptGenerator interface {
	Generate(ctx context.Context, submission *core.Submission, insights *core.WebsiteInsights) ([]core.AdConcept, error)
}

// InsightExtractor analyzes a brand website. A nil result means extraction
// failed or the submission has no website; the run proceeds without insights.
type InsightExtractor interface {
	GetWebsiteInsights(ctx context.Context, websiteURL string) *core.WebsiteInsights
}

// ImageGenerator turns prompts into image results, one result per prompt in
// input order. Implemented by imagegen.Batcher.
type ImageGenerator interface {
	Generate(ctx context.Context, prompts []core.ImagePrompt, onProgress imagegen.ProgressFunc) []core.ImageResult
}

// RunSummary reports the outcome of a completed generation run.
type RunSummary struct {
	Submission      *core.Submission `json:"submission"`
	ConceptsCount   int              `json:"conceptsCount"`
	ImagesGenerated int              `json:"imagesGenerated"`
	ImagesFailed    int              `json:"imagesFailed"`
	ImageErrors     []string         `json:"imageErrors,omitempty"`
}

// RunStatus is the polling payload exposed while a run is in flight.
type RunStatus struct {
	Status          core.SubmissionStatus `json:"status"`
	HasBrief        bool                  `json:"hasBrief"`
	ConceptsCount   int                   `json:"conceptsCount"`
	ImagesCompleted int                   `json:"imagesCompleted"`
	ImagesTotal     int                   `json:"imagesTotal"`
	Progress        int                   `json:"progress"`
}

// Orchestrator runs the brief generation pipeline for submissions. At most
// one run per submission may be active in a process at a time.
type Orchestrator struct {
	db        persistence.Database
	extractor InsightExtractor
	generator ConceptGenerator
	images    ImageGenerator
	cfg       config.Pipeline
	now       func() time.Time

	mu     sync.Mutex
	active map[string]bool
}

// NewOrchestrator assembles an orchestrator from its collaborators. The
// extractor may be nil when no website analysis is available (for example
// when the LLM client could not be constructed); runs then proceed without
// insights.
func NewOrchestrator(db persistence.Database, extractor InsightExtractor, generator ConceptGenerator, images ImageGenerator, cfg config.Pipeline) *Orchestrator {
	return &Orchestrator{
		db:        db,
		extractor: extractor,
		generator: generator,
		images:    images,
		cfg:       cfg,
		now:       time.Now,
		active:    make(map[string]bool),
	}
}

// Run executes the full generation pipeline for the submission. It sets the
// status to generating, clears any previously generated images, extracts
// website insights (best effort), generates concepts (fatal on failure, with
// the status reverted to new), generates images (per-item best effort),
// compiles the brief, and marks the submission generated.
func (o *Orchestrator) Run(ctx context.Context, submissionID string) (*RunSummary, error) {
	if !o.acquire(submissionID) {
		return nil, ErrRunInProgress
	}
	defer o.release(submissionID)

	submission, err := o.db.Submissions().Get(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("loading submission: %w", err)
	}

	logger.Info("starting brief generation run",
		"submission_id", submission.ID,
		"brand", submission.BrandName,
		"previous_status", submission.Status)

	if err := o.db.Submissions().UpdateStatus(ctx, submission.ID, core.StatusGenerating); err != nil {
		return nil, fmt.Errorf("marking submission generating: %w", err)
	}
	submission.Status = core.StatusGenerating

	// Regeneration replaces the image set wholesale.
	if err := o.db.GeneratedImages().DeleteBySubmission(ctx, submission.ID); err != nil {
		o.revertStatus(submission.ID)
		return nil, fmt.Errorf("clearing previous images: %w", err)
	}

	var insights *core.WebsiteInsights
	if o.extractor != nil && submission.Website != "" {
		insights = o.extractor.GetWebsiteInsights(ctx, submission.Website)
		if insights == nil {
			logger.Warn("website analysis unavailable, continuing without insights",
				"submission_id", submission.ID, "website", submission.Website)
		}
	}

	adConcepts, err := o.generator.Generate(ctx, submission, insights)
	if err != nil {
		o.revertStatus(submission.ID)
		return nil, fmt.Errorf("generating ad concepts: %w", err)
	}

	// Persist concepts before the image stage so a later failure does not
	// lose them.
	submission.AdConcepts = adConcepts
	if err := o.db.Submissions().Update(ctx, submission); err != nil {
		o.revertStatus(submission.ID)
		return nil, fmt.Errorf("saving ad concepts: %w", err)
	}

	prompts := brief.DeriveAllPrompts(adConcepts, submission.BrandName, brief.StyleContextFromInsights(insights))

	results := o.generateImages(ctx, submission.ID, prompts)

	images, imageErrors := o.persistImages(ctx, submission.ID, results)

	photos, err := o.db.ProductPhotos().ListBySubmission(ctx, submission.ID)
	if err != nil {
		logger.Warn("loading product photos failed, compiling brief without them",
			"submission_id", submission.ID, "error", err)
		photos = nil
	}

	generatedAt := o.now().UTC()
	html, err := brief.Compile(brief.CompileInput{
		Submission:    submission,
		Concepts:      adConcepts,
		Images:        images,
		ProductPhotos: photos,
		GeneratedAt:   generatedAt,
	})
	if err != nil {
		o.revertStatus(submission.ID)
		return nil, fmt.Errorf("compiling brief: %w", err)
	}

	submission.BriefHTML = html
	submission.BriefGeneratedAt = &generatedAt
	submission.Status = core.StatusGenerated
	if err := o.db.Submissions().Update(ctx, submission); err != nil {
		o.revertStatus(submission.ID)
		return nil, fmt.Errorf("saving generated brief: %w", err)
	}

	summary := &RunSummary{
		Submission:      submission,
		ConceptsCount:   len(adConcepts),
		ImagesGenerated: len(images),
		ImagesFailed:    len(prompts) - len(images),
		ImageErrors:     imageErrors,
	}

	logger.Info("brief generation run complete",
		"submission_id", submission.ID,
		"concepts", summary.ConceptsCount,
		"images_generated", summary.ImagesGenerated,
		"images_failed", summary.ImagesFailed)

	return summary, nil
}

// Status reports generation progress for the polling endpoint.
func (o *Orchestrator) Status(ctx context.Context, submissionID string) (*RunStatus, error) {
	submission, err := o.db.Submissions().Get(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	images, err := o.db.GeneratedImages().ListBySubmission(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("loading generated images: %w", err)
	}

	perAd := o.cfg.ImagesPerAd
	if perAd <= 0 {
		perAd = brief.ImagesPerConcept
	}

	status := &RunStatus{
		Status:          submission.Status,
		HasBrief:        submission.BriefHTML != "",
		ConceptsCount:   len(submission.AdConcepts),
		ImagesCompleted: len(images),
		ImagesTotal:     len(submission.AdConcepts) * perAd,
	}
	if status.ImagesTotal > 0 {
		status.Progress = status.ImagesCompleted * 100 / status.ImagesTotal
	}
	return status, nil
}

// generateImages runs the image stage. A panic or a nil image generator is
// treated as zero images produced rather than a fatal run error.
func (o *Orchestrator) generateImages(ctx context.Context, submissionID string, prompts []core.ImagePrompt) (results []core.ImageResult) {
	if o.images == nil || len(prompts) == 0 {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Error("image generation stage panicked", fmt.Errorf("%v", r),
				"submission_id", submissionID)
			results = nil
		}
	}()

	var progress imagegen.ProgressFunc
	if o.cfg.ProgressLogging {
		total := len(prompts)
		progress = func(completed, _ int, result core.ImageResult) {
			logger.Info("image generation progress",
				"submission_id", submissionID,
				"completed", completed,
				"total", total,
				"ad_number", result.AdNumber,
				"image_number", result.ImageNumber,
				"succeeded", result.Succeeded())
		}
	}

	return o.images.Generate(ctx, prompts, progress)
}

// persistImages stores each successful result and collects error messages
// from the failures. A persistence failure demotes that image to a failure
// rather than aborting the run.
func (o *Orchestrator) persistImages(ctx context.Context, submissionID string, results []core.ImageResult) ([]core.GeneratedImage, []string) {
	var images []core.GeneratedImage
	var errs []string

	for _, result := range results {
		if !result.Succeeded() {
			msg := result.Error
			if msg == "" {
				msg = "image generation failed"
			}
			errs = append(errs, fmt.Sprintf("ad %d image %d: %s", result.AdNumber, result.ImageNumber, msg))
			continue
		}

		image := core.GeneratedImage{
			ID:           uuid.NewString(),
			SubmissionID: submissionID,
			AdNumber:     result.AdNumber,
			ImageNumber:  result.ImageNumber,
			Prompt:       result.Prompt,
			ImageURL:     result.ImageURL,
			CreatedAt:    o.now().UTC(),
		}
		if err := o.db.GeneratedImages().Create(ctx, &image); err != nil {
			logger.Error("persisting generated image failed", err,
				"submission_id", submissionID,
				"ad_number", result.AdNumber,
				"image_number", result.ImageNumber)
			errs = append(errs, fmt.Sprintf("ad %d image %d: %v", result.AdNumber, result.ImageNumber, err))
			continue
		}
		images = append(images, image)
	}

	return images, errs
}

// revertStatus is the best-effort error recovery path: put the submission
// back to new so the run can be retried. Uses a fresh context because the
// request context may already be cancelled.
func (o *Orchestrator) revertStatus(submissionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := o.db.Submissions().UpdateStatus(ctx, submissionID, core.StatusNew); err != nil {
		logger.Error("reverting submission status failed", err, "submission_id", submissionID)
	}
}

func (o *Orchestrator) acquire(submissionID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active[submissionID] {
		return false
	}
	o.active[submissionID] = true
	return true
}

func (o *Orchestrator) release(submissionID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.active, submissionID)
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"whitecoat/internal/config"
	"whitecoat/internal/core"
	"whitecoat/internal/imagegen"
	"whitecoat/internal/persistence"
)

// fakeDB is an in-memory persistence.Database for orchestrator tests.
type fakeDB struct {
	mu          sync.Mutex
	submissions map[string]*core.Submission
	images      map[string][]core.GeneratedImage
	photos      map[string][]core.ProductPhoto

	updateErr       error
	imageCreateErr  error
	statusHistory   []core.SubmissionStatus
	deleteImageCall int
}

func newFakeDB(subs ...*core.Submission) *fakeDB {
	db := &fakeDB{
		submissions: make(map[string]*core.Submission),
		images:      make(map[string][]core.GeneratedImage),
		photos:      make(map[string][]core.ProductPhoto),
	}
	for _, s := range subs {
		copied := *s
		db.submissions[s.ID] = &copied
	}
	return db
}

func (d *fakeDB) Submissions() persistence.SubmissionRepository        { return (*fakeSubmissions)(d) }
func (d *fakeDB) GeneratedImages() persistence.GeneratedImageRepository { return (*fakeImages)(d) }
func (d *fakeDB) ProductPhotos() persistence.ProductPhotoRepository     { return (*fakePhotos)(d) }
func (d *fakeDB) Close() error                                          { return nil }
func (d *fakeDB) Ping(ctx context.Context) error                        { return nil }
func (d *fakeDB) BeginTx(ctx context.Context) (persistence.Transaction, error) {
	return nil, errors.New("transactions not supported in fake")
}

type fakeSubmissions fakeDB

func (r *fakeSubmissions) Create(ctx context.Context, s *core.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *s
	r.submissions[s.ID] = &copied
	return nil
}

func (r *fakeSubmissions) Get(ctx context.Context, id string) (*core.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.submissions[id]
	if !ok {
		return nil, persistence.ErrNotFound
	}
	copied := *s
	return &copied, nil
}

func (r *fakeSubmissions) List(ctx context.Context, opts persistence.ListOptions) ([]core.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []core.Submission
	for _, s := range r.submissions {
		out = append(out, *s)
	}
	return out, nil
}

func (r *fakeSubmissions) Update(ctx context.Context, s *core.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.submissions[s.ID]; !ok {
		return persistence.ErrNotFound
	}
	copied := *s
	r.submissions[s.ID] = &copied
	r.statusHistory = append(r.statusHistory, s.Status)
	return nil
}

func (r *fakeSubmissions) UpdateStatus(ctx context.Context, id string, status core.SubmissionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.submissions[id]
	if !ok {
		return persistence.ErrNotFound
	}
	s.Status = status
	r.statusHistory = append(r.statusHistory, status)
	return nil
}

func (r *fakeSubmissions) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.submissions, id)
	return nil
}

type fakeImages fakeDB

func (r *fakeImages) Create(ctx context.Context, image *core.GeneratedImage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.imageCreateErr != nil {
		return r.imageCreateErr
	}
	r.images[image.SubmissionID] = append(r.images[image.SubmissionID], *image)
	return nil
}

func (r *fakeImages) ListBySubmission(ctx context.Context, submissionID string) ([]core.GeneratedImage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]core.GeneratedImage(nil), r.images[submissionID]...), nil
}

func (r *fakeImages) DeleteBySubmission(ctx context.Context, submissionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleteImageCall++
	delete(r.images, submissionID)
	return nil
}

type fakePhotos fakeDB

func (r *fakePhotos) Create(ctx context.Context, photo *core.ProductPhoto) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.photos[photo.SubmissionID] = append(r.photos[photo.SubmissionID], *photo)
	return nil
}

func (r *fakePhotos) Get(ctx context.Context, id string) (*core.ProductPhoto, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, photos := range r.photos {
		for _, p := range photos {
			if p.ID == id {
				copied := p
				return &copied, nil
			}
		}
	}
	return nil, persistence.ErrNotFound
}

func (r *fakePhotos) ListBySubmission(ctx context.Context, submissionID string) ([]core.ProductPhoto, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]core.ProductPhoto(nil), r.photos[submissionID]...), nil
}

func (r *fakePhotos) Delete(ctx context.Context, id string) error {
	return nil
}

// fakeConceptGen returns canned concepts or an error.
type fakeConceptGen struct {
	concepts []core.AdConcept
	err      error
	calls    int
}

func (g *fakeConceptGen) Generate(ctx context.Context, submission *core.Submission, insights *core.WebsiteInsights) ([]core.AdConcept, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return g.concepts, nil
}

// fakeExtractor records whether it was called.
type fakeExtractor struct {
	insights *core.WebsiteInsights
	calls    int
}

func (e *fakeExtractor) GetWebsiteInsights(ctx context.Context, websiteURL string) *core.WebsiteInsights {
	e.calls++
	return e.insights
}

// fakeImageGen succeeds for every prompt except those whose index is listed
// in failIndexes.
type fakeImageGen struct {
	failIndexes map[int]bool
	block       chan struct{}
}

func (g *fakeImageGen) Generate(ctx context.Context, prompts []core.ImagePrompt, onProgress imagegen.ProgressFunc) []core.ImageResult {
	if g.block != nil {
		<-g.block
	}
	results := make([]core.ImageResult, len(prompts))
	for i, p := range prompts {
		results[i] = core.ImageResult{
			Prompt:      p.Prompt,
			AdNumber:    p.AdNumber,
			ImageNumber: p.ImageNumber,
		}
		if g.failIndexes[i] {
			results[i].Error = "image generation failed"
		} else {
			results[i].ImageURL = fmt.Sprintf("https://images.example.com/%d-%d.png", p.AdNumber, p.ImageNumber)
		}
		if onProgress != nil {
			onProgress(i+1, len(prompts), results[i])
		}
	}
	return results
}

func testConcepts(n int) []core.AdConcept {
	concepts := make([]core.AdConcept, n)
	for i := range concepts {
		concepts[i] = core.AdConcept{
			AdNumber: i + 1,
			Title:    fmt.Sprintf("Concept %d", i+1),
			HookType: "Authority",
			VisualAsset: core.VisualAsset{
				Description: "Doctor with product",
				Style:       "Lifestyle",
				KeyElements: []string{"product"},
			},
			TargetEmotion: "Trust",
		}
	}
	return concepts
}

func pipelineConfig() config.Pipeline {
	return config.Pipeline{
		BatchSize:   3,
		ImagesPerAd: 3,
	}
}

func newTestSubmission() *core.Submission {
	return &core.Submission{
		ID:        "sub-1",
		BrandName: "GlowMD",
		Website:   "https://glowmd.example.com",
		Status:    core.StatusNew,
		CreatedAt: time.Now().UTC(),
	}
}

func TestRunHappyPath(t *testing.T) {
	db := newFakeDB(newTestSubmission())
	extractor := &fakeExtractor{}
	generator := &fakeConceptGen{concepts: testConcepts(2)}
	images := &fakeImageGen{}

	o := NewOrchestrator(db, extractor, generator, images, pipelineConfig())
	o.now = func() time.Time { return time.Date(2025, time.March, 14, 10, 0, 0, 0, time.UTC) }

	summary, err := o.Run(context.Background(), "sub-1")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.ConceptsCount != 2 {
		t.Errorf("Expected 2 concepts, got %d", summary.ConceptsCount)
	}
	if summary.ImagesGenerated != 6 || summary.ImagesFailed != 0 {
		t.Errorf("Expected 6 images and 0 failures, got %d/%d", summary.ImagesGenerated, summary.ImagesFailed)
	}
	if extractor.calls != 1 {
		t.Errorf("Extractor should be called once, got %d", extractor.calls)
	}

	final, _ := db.Submissions().Get(context.Background(), "sub-1")
	if final.Status != core.StatusGenerated {
		t.Errorf("Expected status generated, got %s", final.Status)
	}
	if final.BriefHTML == "" {
		t.Error("Brief HTML should be persisted")
	}
	if final.BriefGeneratedAt == nil {
		t.Error("Brief generation timestamp should be set")
	}
	if len(final.AdConcepts) != 2 {
		t.Errorf("Concepts should be persisted, got %d", len(final.AdConcepts))
	}

	stored, _ := db.GeneratedImages().ListBySubmission(context.Background(), "sub-1")
	if len(stored) != 6 {
		t.Errorf("Expected 6 persisted images, got %d", len(stored))
	}
	if db.deleteImageCall != 1 {
		t.Errorf("Previous images should be cleared exactly once, got %d", db.deleteImageCall)
	}
}

func TestRunConceptFailureRevertsStatus(t *testing.T) {
	db := newFakeDB(newTestSubmission())
	generator := &fakeConceptGen{err: errors.New("model returned garbage")}

	o := NewOrchestrator(db, &fakeExtractor{}, generator, &fakeImageGen{}, pipelineConfig())

	_, err := o.Run(context.Background(), "sub-1")
	if err == nil {
		t.Fatal("Expected run to fail")
	}
	if !strings.Contains(err.Error(), "model returned garbage") {
		t.Errorf("Error should carry the underlying cause: %v", err)
	}

	final, _ := db.Submissions().Get(context.Background(), "sub-1")
	if final.Status != core.StatusNew {
		t.Errorf("Status should revert to new, got %s", final.Status)
	}
}

func TestRunPartialImageFailures(t *testing.T) {
	db := newFakeDB(newTestSubmission())
	generator := &fakeConceptGen{concepts: testConcepts(10)}
	// Indexes 3,4,5 are all three images of concept 2, so that concept
	// renders the placeholder.
	images := &fakeImageGen{failIndexes: map[int]bool{3: true, 4: true, 5: true}}

	o := NewOrchestrator(db, &fakeExtractor{}, generator, images, pipelineConfig())

	summary, err := o.Run(context.Background(), "sub-1")
	if err != nil {
		t.Fatalf("Partial image failures should not fail the run: %v", err)
	}

	if summary.ImagesGenerated != 27 || summary.ImagesFailed != 3 {
		t.Errorf("Expected 27/3, got %d/%d", summary.ImagesGenerated, summary.ImagesFailed)
	}
	if len(summary.ImageErrors) != 3 {
		t.Errorf("Expected 3 error messages, got %d", len(summary.ImageErrors))
	}

	final, _ := db.Submissions().Get(context.Background(), "sub-1")
	if final.Status != core.StatusGenerated {
		t.Errorf("Run should still complete, got status %s", final.Status)
	}
	if !strings.Contains(final.BriefHTML, "Images generating...") {
		t.Error("Brief should render the placeholder for the all-failed concept")
	}
}

func TestRunWithoutWebsiteSkipsExtraction(t *testing.T) {
	sub := newTestSubmission()
	sub.Website = ""
	db := newFakeDB(sub)
	extractor := &fakeExtractor{}

	o := NewOrchestrator(db, extractor, &fakeConceptGen{concepts: testConcepts(1)}, &fakeImageGen{}, pipelineConfig())

	if _, err := o.Run(context.Background(), "sub-1"); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if extractor.calls != 0 {
		t.Error("Extractor should not run when the submission has no website")
	}
}

func TestRunUnknownSubmission(t *testing.T) {
	db := newFakeDB()

	o := NewOrchestrator(db, &fakeExtractor{}, &fakeConceptGen{concepts: testConcepts(1)}, &fakeImageGen{}, pipelineConfig())

	if _, err := o.Run(context.Background(), "missing"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestRunConcurrentConflict(t *testing.T) {
	db := newFakeDB(newTestSubmission())
	block := make(chan struct{})
	images := &fakeImageGen{block: block}

	o := NewOrchestrator(db, &fakeExtractor{}, &fakeConceptGen{concepts: testConcepts(1)}, images, pipelineConfig())

	done := make(chan error, 1)
	go func() {
		_, err := o.Run(context.Background(), "sub-1")
		done <- err
	}()

	// Wait until the first run holds the lock inside the image stage.
	deadline := time.After(2 * time.Second)
	for {
		o.mu.Lock()
		held := o.active["sub-1"]
		o.mu.Unlock()
		if held {
			break
		}
		select {
		case <-deadline:
			t.Fatal("First run never acquired the lock")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if _, err := o.Run(context.Background(), "sub-1"); !errors.Is(err, ErrRunInProgress) {
		t.Errorf("Second run should conflict, got %v", err)
	}

	close(block)
	if err := <-done; err != nil {
		t.Errorf("First run should complete: %v", err)
	}

	// Lock released, a new run is allowed again.
	if _, err := o.Run(context.Background(), "sub-1"); err != nil {
		t.Errorf("Run after release failed: %v", err)
	}
}

func TestRunUpdateFailureReverts(t *testing.T) {
	db := newFakeDB(newTestSubmission())
	db.updateErr = errors.New("disk full")

	o := NewOrchestrator(db, &fakeExtractor{}, &fakeConceptGen{concepts: testConcepts(1)}, &fakeImageGen{}, pipelineConfig())

	if _, err := o.Run(context.Background(), "sub-1"); err == nil {
		t.Fatal("Expected run to fail when persistence fails")
	}

	final, _ := db.Submissions().Get(context.Background(), "sub-1")
	if final.Status != core.StatusNew {
		t.Errorf("Status should revert to new, got %s", final.Status)
	}
}

func TestStatus(t *testing.T) {
	sub := newTestSubmission()
	sub.Status = core.StatusGenerating
	sub.AdConcepts = testConcepts(10)
	db := newFakeDB(sub)

	for i := 0; i < 12; i++ {
		_ = db.GeneratedImages().Create(context.Background(), &core.GeneratedImage{
			ID:           fmt.Sprintf("img-%d", i),
			SubmissionID: "sub-1",
			AdNumber:     i/3 + 1,
			ImageNumber:  i%3 + 1,
		})
	}

	o := NewOrchestrator(db, &fakeExtractor{}, &fakeConceptGen{}, &fakeImageGen{}, pipelineConfig())

	status, err := o.Status(context.Background(), "sub-1")
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}

	if status.Status != core.StatusGenerating {
		t.Errorf("Expected generating, got %s", status.Status)
	}
	if status.ConceptsCount != 10 {
		t.Errorf("Expected 10 concepts, got %d", status.ConceptsCount)
	}
	if status.ImagesTotal != 30 {
		t.Errorf("Expected imagesTotal=30, got %d", status.ImagesTotal)
	}
	if status.ImagesCompleted != 12 {
		t.Errorf("Expected imagesCompleted=12, got %d", status.ImagesCompleted)
	}
	if status.Progress != 40 {
		t.Errorf("Expected progress=40, got %d", status.Progress)
	}
	if status.HasBrief {
		t.Error("HasBrief should be false before compilation")
	}
}

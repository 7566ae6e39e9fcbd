// Package persistence provides database abstraction interfaces for storing
// submissions, generated images, and product photos.
package persistence

import (
	"context"
	"errors"

	"whitecoat/internal/core"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// SubmissionRepository handles questionnaire submission persistence operations
type SubmissionRepository interface {
	// Create inserts a new submission
	Create(ctx context.Context, submission *core.Submission) error

	// Get retrieves a submission by ID
	Get(ctx context.Context, id string) (*core.Submission, error)

	// List retrieves submissions with pagination and filtering
	List(ctx context.Context, opts ListOptions) ([]core.Submission, error)

	// Update updates an existing submission
	Update(ctx context.Context, submission *core.Submission) error

	// UpdateStatus updates only the lifecycle status of a submission
	UpdateStatus(ctx context.Context, id string, status core.SubmissionStatus) error

	// Delete removes a submission by ID along with its dependent records
	Delete(ctx context.Context, id string) error
}

// GeneratedImageRepository handles generated image persistence operations
type GeneratedImageRepository interface {
	// Create inserts a new generated image
	Create(ctx context.Context, image *core.GeneratedImage) error

	// ListBySubmission retrieves images for a submission ordered by
	// (ad_number, image_number)
	ListBySubmission(ctx context.Context, submissionID string) ([]core.GeneratedImage, error)

	// DeleteBySubmission removes all images belonging to a submission
	DeleteBySubmission(ctx context.Context, submissionID string) error
}

// ProductPhotoRepository handles uploaded product photo persistence operations
type ProductPhotoRepository interface {
	// Create inserts a new product photo record
	Create(ctx context.Context, photo *core.ProductPhoto) error

	// Get retrieves a product photo by ID
	Get(ctx context.Context, id string) (*core.ProductPhoto, error)

	// ListBySubmission retrieves photos for a submission, oldest first
	ListBySubmission(ctx context.Context, submissionID string) ([]core.ProductPhoto, error)

	// Delete removes a product photo by ID
	Delete(ctx context.Context, id string) error
}

// ListOptions provides common filtering and pagination options
type ListOptions struct {
	Limit  int               // Maximum number of results (0 for default)
	Offset int               // Number of results to skip
	Filter map[string]string // Key-value filters (e.g. "status" -> "new")
}

// Database represents the main database interface that aggregates all repositories
type Database interface {
	// Submissions returns the submission repository
	Submissions() SubmissionRepository

	// GeneratedImages returns the generated image repository
	GeneratedImages() GeneratedImageRepository

	// ProductPhotos returns the product photo repository
	ProductPhotos() ProductPhotoRepository

	// Close closes the database connection
	Close() error

	// Ping verifies the database connection
	Ping(ctx context.Context) error

	// BeginTx starts a new transaction
	BeginTx(ctx context.Context) (Transaction, error)
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Submissions returns the submission repository within this transaction
	Submissions() SubmissionRepository

	// GeneratedImages returns the generated image repository within this transaction
	GeneratedImages() GeneratedImageRepository

	// ProductPhotos returns the product photo repository within this transaction
	ProductPhotos() ProductPhotoRepository
}

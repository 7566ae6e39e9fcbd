package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"whitecoat/internal/core"
)

// postgresSubmissionRepo implements SubmissionRepository for PostgreSQL
type postgresSubmissionRepo struct {
	db *sql.DB
	tx *sql.Tx
}

func (r *postgresSubmissionRepo) query() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

const submissionColumns = `
	id, brand_name, founder_name, email, website, medical_credentials,
	specialty, product_type, current_revenue, biggest_challenge,
	target_audience, timeline, how_did_you_hear, additional_info,
	status, ad_concepts, brief_html, brief_generated_at, pdf_url,
	sent_at, created_at
`

func (r *postgresSubmissionRepo) Create(ctx context.Context, submission *core.Submission) error {
	conceptsJSON, err := marshalConcepts(submission.AdConcepts)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO submissions (` + submissionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21)
	`
	_, err = r.query().ExecContext(ctx, query,
		submission.ID, submission.BrandName, submission.FounderName,
		submission.Email, submission.Website, submission.MedicalCredentials,
		submission.Specialty, submission.ProductType, submission.CurrentRevenue,
		submission.BiggestChallenge, submission.TargetAudience,
		submission.Timeline, submission.HowDidYouHear, submission.AdditionalInfo,
		string(submission.Status), conceptsJSON, submission.BriefHTML,
		submission.BriefGeneratedAt, submission.PDFURL, submission.SentAt,
		submission.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert submission: %w", err)
	}
	return nil
}

func (r *postgresSubmissionRepo) Get(ctx context.Context, id string) (*core.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE id = $1`
	row := r.query().QueryRowContext(ctx, query, id)
	return scanSubmission(row)
}

func (r *postgresSubmissionRepo) List(ctx context.Context, opts ListOptions) ([]core.Submission, error) {
	limit := opts.Limit
	if limit == 0 {
		limit = 100 // Default limit
	}

	query := `SELECT ` + submissionColumns + ` FROM submissions`
	args := []interface{}{}
	if status, ok := opts.Filter["status"]; ok {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, opts.Offset)

	rows, err := r.query().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var submissions []core.Submission
	for rows.Next() {
		submission, err := scanSubmissionRow(rows)
		if err != nil {
			return nil, err
		}
		submissions = append(submissions, *submission)
	}
	return submissions, rows.Err()
}

func (r *postgresSubmissionRepo) Update(ctx context.Context, submission *core.Submission) error {
	conceptsJSON, err := marshalConcepts(submission.AdConcepts)
	if err != nil {
		return err
	}

	query := `
		UPDATE submissions SET
			brand_name = $2, founder_name = $3, email = $4, website = $5,
			medical_credentials = $6, specialty = $7, product_type = $8,
			current_revenue = $9, biggest_challenge = $10, target_audience = $11,
			timeline = $12, how_did_you_hear = $13, additional_info = $14,
			status = $15, ad_concepts = $16, brief_html = $17,
			brief_generated_at = $18, pdf_url = $19, sent_at = $20
		WHERE id = $1
	`
	result, err := r.query().ExecContext(ctx, query,
		submission.ID, submission.BrandName, submission.FounderName,
		submission.Email, submission.Website, submission.MedicalCredentials,
		submission.Specialty, submission.ProductType, submission.CurrentRevenue,
		submission.BiggestChallenge, submission.TargetAudience,
		submission.Timeline, submission.HowDidYouHear, submission.AdditionalInfo,
		string(submission.Status), conceptsJSON, submission.BriefHTML,
		submission.BriefGeneratedAt, submission.PDFURL, submission.SentAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update submission: %w", err)
	}
	return requireRowAffected(result)
}

func (r *postgresSubmissionRepo) UpdateStatus(ctx context.Context, id string, status core.SubmissionStatus) error {
	query := `UPDATE submissions SET status = $2 WHERE id = $1`
	result, err := r.query().ExecContext(ctx, query, id, string(status))
	if err != nil {
		return fmt.Errorf("failed to update submission status: %w", err)
	}
	return requireRowAffected(result)
}

func (r *postgresSubmissionRepo) Delete(ctx context.Context, id string) error {
	// Dependent rows cascade via foreign keys
	query := `DELETE FROM submissions WHERE id = $1`
	result, err := r.query().ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return requireRowAffected(result)
}

func marshalConcepts(concepts []core.AdConcept) ([]byte, error) {
	if concepts == nil {
		return nil, nil
	}
	data, err := json.Marshal(concepts)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ad concepts: %w", err)
	}
	return data, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSubmissionFields(s rowScanner) (*core.Submission, error) {
	var submission core.Submission
	var status string
	var conceptsJSON []byte
	var briefGeneratedAt, sentAt sql.NullTime

	err := s.Scan(
		&submission.ID, &submission.BrandName, &submission.FounderName,
		&submission.Email, &submission.Website, &submission.MedicalCredentials,
		&submission.Specialty, &submission.ProductType, &submission.CurrentRevenue,
		&submission.BiggestChallenge, &submission.TargetAudience,
		&submission.Timeline, &submission.HowDidYouHear, &submission.AdditionalInfo,
		&status, &conceptsJSON, &submission.BriefHTML,
		&briefGeneratedAt, &submission.PDFURL, &sentAt, &submission.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	submission.Status = core.SubmissionStatus(status)
	if len(conceptsJSON) > 0 {
		if err := json.Unmarshal(conceptsJSON, &submission.AdConcepts); err != nil {
			return nil, fmt.Errorf("failed to unmarshal ad concepts: %w", err)
		}
	}
	if briefGeneratedAt.Valid {
		t := briefGeneratedAt.Time
		submission.BriefGeneratedAt = &t
	}
	if sentAt.Valid {
		t := sentAt.Time
		submission.SentAt = &t
	}

	return &submission, nil
}

func scanSubmission(row *sql.Row) (*core.Submission, error) {
	submission, err := scanSubmissionFields(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return submission, err
}

func scanSubmissionRow(rows *sql.Rows) (*core.Submission, error) {
	return scanSubmissionFields(rows)
}

func requireRowAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// postgresGeneratedImageRepo implements GeneratedImageRepository for PostgreSQL
type postgresGeneratedImageRepo struct {
	db *sql.DB
	tx *sql.Tx
}

func (r *postgresGeneratedImageRepo) query() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *postgresGeneratedImageRepo) Create(ctx context.Context, image *core.GeneratedImage) error {
	query := `
		INSERT INTO generated_images (
			id, submission_id, ad_number, image_number, prompt, image_url, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	createdAt := image.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.query().ExecContext(ctx, query,
		image.ID, image.SubmissionID, image.AdNumber, image.ImageNumber,
		image.Prompt, image.ImageURL, createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert generated image: %w", err)
	}
	return nil
}

func (r *postgresGeneratedImageRepo) ListBySubmission(ctx context.Context, submissionID string) ([]core.GeneratedImage, error) {
	query := `
		SELECT id, submission_id, ad_number, image_number, prompt, image_url, created_at
		FROM generated_images
		WHERE submission_id = $1
		ORDER BY ad_number, image_number
	`
	rows, err := r.query().QueryContext(ctx, query, submissionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var images []core.GeneratedImage
	for rows.Next() {
		var image core.GeneratedImage
		if err := rows.Scan(
			&image.ID, &image.SubmissionID, &image.AdNumber, &image.ImageNumber,
			&image.Prompt, &image.ImageURL, &image.CreatedAt,
		); err != nil {
			return nil, err
		}
		images = append(images, image)
	}
	return images, rows.Err()
}

func (r *postgresGeneratedImageRepo) DeleteBySubmission(ctx context.Context, submissionID string) error {
	query := `DELETE FROM generated_images WHERE submission_id = $1`
	_, err := r.query().ExecContext(ctx, query, submissionID)
	return err
}

// postgresProductPhotoRepo implements ProductPhotoRepository for PostgreSQL
type postgresProductPhotoRepo struct {
	db *sql.DB
	tx *sql.Tx
}

func (r *postgresProductPhotoRepo) query() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *postgresProductPhotoRepo) Create(ctx context.Context, photo *core.ProductPhoto) error {
	query := `
		INSERT INTO product_photos (id, submission_id, url, filename, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	createdAt := photo.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.query().ExecContext(ctx, query,
		photo.ID, photo.SubmissionID, photo.URL, photo.Filename, createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert product photo: %w", err)
	}
	return nil
}

func (r *postgresProductPhotoRepo) Get(ctx context.Context, id string) (*core.ProductPhoto, error) {
	query := `
		SELECT id, submission_id, url, filename, created_at
		FROM product_photos WHERE id = $1
	`
	var photo core.ProductPhoto
	err := r.query().QueryRowContext(ctx, query, id).Scan(
		&photo.ID, &photo.SubmissionID, &photo.URL, &photo.Filename, &photo.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &photo, nil
}

func (r *postgresProductPhotoRepo) ListBySubmission(ctx context.Context, submissionID string) ([]core.ProductPhoto, error) {
	query := `
		SELECT id, submission_id, url, filename, created_at
		FROM product_photos
		WHERE submission_id = $1
		ORDER BY created_at
	`
	rows, err := r.query().QueryContext(ctx, query, submissionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var photos []core.ProductPhoto
	for rows.Next() {
		var photo core.ProductPhoto
		if err := rows.Scan(
			&photo.ID, &photo.SubmissionID, &photo.URL, &photo.Filename, &photo.CreatedAt,
		); err != nil {
			return nil, err
		}
		photos = append(photos, photo)
	}
	return photos, rows.Err()
}

func (r *postgresProductPhotoRepo) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM product_photos WHERE id = $1`
	result, err := r.query().ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return requireRowAffected(result)
}

// Package persistence provides database implementations
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // Postgres driver
)

// PostgresDB implements the Database interface for PostgreSQL
type PostgresDB struct {
	db            *sql.DB
	submissions   SubmissionRepository
	images        GeneratedImageRepository
	productPhotos ProductPhotoRepository
}

// NewPostgresDB creates a new PostgreSQL database connection
func NewPostgresDB(connectionString string) (*PostgresDB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pgDB := &PostgresDB{db: db}
	pgDB.submissions = &postgresSubmissionRepo{db: db}
	pgDB.images = &postgresGeneratedImageRepo{db: db}
	pgDB.productPhotos = &postgresProductPhotoRepo{db: db}

	return pgDB, nil
}

func (p *PostgresDB) Submissions() SubmissionRepository        { return p.submissions }
func (p *PostgresDB) GeneratedImages() GeneratedImageRepository { return p.images }
func (p *PostgresDB) ProductPhotos() ProductPhotoRepository    { return p.productPhotos }

func (p *PostgresDB) Close() error {
	return p.db.Close()
}

func (p *PostgresDB) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *PostgresDB) BeginTx(ctx context.Context) (Transaction, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &postgresTx{
		tx:            tx,
		submissions:   &postgresSubmissionRepo{db: p.db, tx: tx},
		images:        &postgresGeneratedImageRepo{db: p.db, tx: tx},
		productPhotos: &postgresProductPhotoRepo{db: p.db, tx: tx},
	}, nil
}

// postgresTx implements Transaction interface
type postgresTx struct {
	tx            *sql.Tx
	submissions   SubmissionRepository
	images        GeneratedImageRepository
	productPhotos ProductPhotoRepository
}

func (t *postgresTx) Commit() error   { return t.tx.Commit() }
func (t *postgresTx) Rollback() error { return t.tx.Rollback() }

func (t *postgresTx) Submissions() SubmissionRepository         { return t.submissions }
func (t *postgresTx) GeneratedImages() GeneratedImageRepository { return t.images }
func (t *postgresTx) ProductPhotos() ProductPhotoRepository     { return t.productPhotos }

// querier is the subset of *sql.DB / *sql.Tx the repositories need
type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

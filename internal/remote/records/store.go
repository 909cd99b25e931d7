package records

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/wristnote/internal/dbx"
	"github.com/dmitrijs2005/wristnote/internal/remote/records/migrations"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// OpenDatabase connects to Postgres through the pgx driver and migrates the
// schema.
func OpenDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Store groups repository calls into transactions.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Save upserts rec and records the upload in the history table atomically.
func (s *Store) Save(ctx context.Context, rec *Record) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := NewPostgresRepository(tx)
		if err := repo.Upsert(ctx, rec); err != nil {
			return err
		}
		return repo.LogUpload(ctx, rec.UserID, rec.NoteID, rec.Digest, rec.UploadedAt)
	})
}

func (s *Store) Get(ctx context.Context, userID string, noteID uuid.UUID) (*Record, error) {
	return NewPostgresRepository(s.db).Get(ctx, userID, noteID)
}

func (s *Store) Delete(ctx context.Context, userID string, noteID uuid.UUID) (string, error) {
	return NewPostgresRepository(s.db).Delete(ctx, userID, noteID)
}

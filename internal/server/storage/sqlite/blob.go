package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iudanet/kotobako/internal/models"
	"github.com/iudanet/kotobako/internal/server/storage"
)

// CreateBlob stores a new blob
func (s *Storage) CreateBlob(ctx context.Context, blob *models.Blob) error {
	query := `
		INSERT INTO blobs (id, user_id, name, content, modified_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		blob.ID,
		blob.UserID,
		blob.Name,
		blob.Content,
		blob.ModifiedAt.Unix(),
	)

	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return storage.ErrBlobAlreadyExists
		}
		return fmt.Errorf("failed to insert blob: %w", err)
	}

	return nil
}

// GetBlob retrieves a blob by ID, including content
func (s *Storage) GetBlob(ctx context.Context, userID, blobID string) (*models.Blob, error) {
	query := `
		SELECT id, user_id, name, content, modified_at
		FROM blobs
		WHERE id = ? AND user_id = ?
	`
	return s.scanBlob(s.db.QueryRowContext(ctx, query, blobID, userID))
}

// GetBlobByName retrieves a blob by its name, including content
func (s *Storage) GetBlobByName(ctx context.Context, userID, name string) (*models.Blob, error) {
	query := `
		SELECT id, user_id, name, content, modified_at
		FROM blobs
		WHERE user_id = ? AND name = ?
	`
	return s.scanBlob(s.db.QueryRowContext(ctx, query, userID, name))
}

// ListBlobs returns all blobs of a user without content, ordered by name
func (s *Storage) ListBlobs(ctx context.Context, userID string) ([]*models.Blob, error) {
	query := `
		SELECT id, user_id, name, modified_at
		FROM blobs
		WHERE user_id = ?
		ORDER BY name ASC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query blobs: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	blobs := []*models.Blob{}

	for rows.Next() {
		blob := &models.Blob{}
		var modifiedAt int64

		if err := rows.Scan(
			&blob.ID,
			&blob.UserID,
			&blob.Name,
			&modifiedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan blob: %w", err)
		}

		blob.ModifiedAt = time.Unix(modifiedAt, 0)
		blobs = append(blobs, blob)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return blobs, nil
}

// UpdateBlob overwrites content and modified time of an existing blob
func (s *Storage) UpdateBlob(ctx context.Context, blob *models.Blob) error {
	query := `
		UPDATE blobs
		SET content = ?, modified_at = ?
		WHERE id = ? AND user_id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		blob.Content,
		blob.ModifiedAt.Unix(),
		blob.ID,
		blob.UserID,
	)

	if err != nil {
		return fmt.Errorf("failed to update blob: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return storage.ErrBlobNotFound
	}

	return nil
}

func (s *Storage) scanBlob(row *sql.Row) (*models.Blob, error) {
	blob := &models.Blob{}
	var modifiedAt int64

	err := row.Scan(
		&blob.ID,
		&blob.UserID,
		&blob.Name,
		&blob.Content,
		&modifiedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to get blob: %w", err)
	}

	blob.ModifiedAt = time.Unix(modifiedAt, 0)
	return blob, nil
}

package storage

import (
	"context"

	"github.com/iudanet/kotobako/internal/models"
)

// BlobStorage defines interface for named blob persistence.
// Blobs are scoped to a user: all lookups include userID so one user
// never sees another user's objects.
type BlobStorage interface {
	// CreateBlob stores a new blob. ID must be set by the caller.
	// Returns ErrBlobAlreadyExists if the user already has a blob
	// with this name.
	CreateBlob(ctx context.Context, blob *models.Blob) error

	// GetBlob retrieves a blob by ID, including content
	// Returns ErrBlobNotFound if blob doesn't exist or belongs to another user
	GetBlob(ctx context.Context, userID, blobID string) (*models.Blob, error)

	// GetBlobByName retrieves a blob by its name, including content
	// Returns ErrBlobNotFound if the user has no blob with this name
	GetBlobByName(ctx context.Context, userID, name string) (*models.Blob, error)

	// ListBlobs returns all blobs of a user without content,
	// ordered by name. Returns empty slice if user has no blobs.
	ListBlobs(ctx context.Context, userID string) ([]*models.Blob, error)

	// UpdateBlob overwrites content and modified time of an existing blob
	// Returns ErrBlobNotFound if blob doesn't exist or belongs to another user
	UpdateBlob(ctx context.Context, blob *models.Blob) error
}

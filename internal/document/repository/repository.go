package repository

import (
	"context"

	"github.com/gogotex/gogotex/backend/docservice/internal/document"
)

// ErrNotFound is kept as an alias so callers can match either name.
var ErrNotFound = document.ErrNotFound

// VersionFilter narrows and pages a version listing. Limit <= 0 means no limit.
type VersionFilter struct {
	ModifiedBy string
	Offset     int
	Limit      int
}

// Repository persists documents and their version history.
//
// Reads outside a transaction see committed state only. Every mutation that
// moves Document.CurrentVersion goes through WithTx.
type Repository interface {
	// WithTx runs fn in a single transaction. A non-nil error from fn rolls
	// back every write fn made; nil commits them.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	FindDocument(ctx context.Context, id string) (*document.Document, error)
	// ListDocuments returns the owner's documents, most recently updated first.
	ListDocuments(ctx context.Context, userID string) ([]*document.Document, error)

	FindVersion(ctx context.Context, documentID string, number int) (*document.Version, error)
	// ListVersions returns a page ordered by version number descending, and the
	// number of versions matching the filter before paging.
	ListVersions(ctx context.Context, documentID string, filter VersionFilter) ([]*document.Version, int, error)

	// ExcessVersions returns the lowest-numbered versions beyond the newest
	// keep, oldest first. Empty when the document holds keep or fewer.
	ExcessVersions(ctx context.Context, documentID string, keep int) ([]*document.Version, error)
	// DeleteVersionsThrough removes versions numbered <= number and reports how many went.
	DeleteVersionsThrough(ctx context.Context, documentID string, number int) (int, error)
}

// Tx is the write surface available inside WithTx.
type Tx interface {
	// LockDocument loads the document and holds it against concurrent
	// writers until the transaction ends.
	LockDocument(ctx context.Context, id string) (*document.Document, error)
	InsertDocument(ctx context.Context, d *document.Document) error
	UpdateDocument(ctx context.Context, d *document.Document) error
	// DeleteDocument removes the document and all of its versions.
	DeleteDocument(ctx context.Context, id string) error

	InsertVersion(ctx context.Context, v *document.Version) error
	FindVersion(ctx context.Context, documentID string, number int) (*document.Version, error)
}

// Package versions keeps the append-only history of a document: writing
// snapshots, trimming to the retention cap and reading pages back.
package versions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gogotex/gogotex/backend/docservice/internal/document"
	"github.com/gogotex/gogotex/backend/docservice/internal/document/repository"
	"github.com/gogotex/gogotex/backend/docservice/pkg/logger"
	"github.com/gogotex/gogotex/backend/docservice/pkg/metrics"
)

// DefaultRetentionCap is the number of versions kept per document.
const DefaultRetentionCap = 100

// Archiver receives versions just before they are pruned.
type Archiver interface {
	Archive(ctx context.Context, versions []*document.Version) error
}

// Store writes snapshots and enforces the retention cap.
type Store struct {
	repo     repository.Repository
	cap      int
	archiver Archiver
	now      func() time.Time
	log      *zap.SugaredLogger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithArchiver sets the archiver that receives pruned versions.
func WithArchiver(a Archiver) StoreOption {
	return func(s *Store) { s.archiver = a }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// NewStore returns a Store keeping at most retentionCap versions per
// document; a non-positive cap falls back to DefaultRetentionCap.
func NewStore(repo repository.Repository, retentionCap int, opts ...StoreOption) *Store {
	if retentionCap <= 0 {
		retentionCap = DefaultRetentionCap
	}
	s := &Store{
		repo: repo,
		cap:  retentionCap,
		now:  func() time.Time { return time.Now().UTC() },
		log:  logger.Named("versions"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RetentionCap returns the configured cap.
func (s *Store) RetentionCap() int { return s.cap }

// Snapshot records doc's current content fields as version
// doc.CurrentVersion+1 and advances doc.CurrentVersion. tx must hold the
// document lock; the caller persists doc through the same tx.
func (s *Store) Snapshot(ctx context.Context, tx repository.Tx, doc *document.Document, modifiedBy, description string) (*document.Version, error) {
	v := &document.Version{
		ID:                uuid.NewString(),
		DocumentID:        doc.ID,
		VersionNumber:     doc.CurrentVersion + 1,
		Title:             doc.Title,
		Content:           doc.Content,
		Type:              doc.Type,
		ModifiedBy:        modifiedBy,
		ChangeDescription: description,
		CreatedAt:         s.now(),
	}
	if err := tx.InsertVersion(ctx, v); err != nil {
		return nil, fmt.Errorf("snapshot %s v%d: %w", doc.ID, v.VersionNumber, err)
	}
	doc.CurrentVersion = v.VersionNumber
	s.log.Debugf("snapshot %s v%d by %s (%s)", doc.ID, v.VersionNumber, modifiedBy, description)
	return v, nil
}

// Trim deletes the oldest versions of documentID beyond the cap and returns
// how many were removed. Pruned versions go to the archiver first; an archive
// failure is logged and pruning continues.
func (s *Store) Trim(ctx context.Context, documentID string) (int, error) {
	excess, err := s.repo.ExcessVersions(ctx, documentID, s.cap)
	if err != nil {
		return 0, fmt.Errorf("trim %s: %w", documentID, err)
	}
	if len(excess) == 0 {
		return 0, nil
	}
	if s.archiver != nil {
		if err := s.archiver.Archive(ctx, excess); err != nil {
			metrics.ArchiveFailures.Add(float64(len(excess)))
			s.log.Warnf("archive %d versions of %s: %v", len(excess), documentID, err)
		}
	}
	through := excess[len(excess)-1].VersionNumber
	n, err := s.repo.DeleteVersionsThrough(ctx, documentID, through)
	if err != nil {
		return 0, fmt.Errorf("trim %s through v%d: %w", documentID, through, err)
	}
	metrics.VersionsPruned.Add(float64(n))
	s.log.Infof("trimmed %d versions of %s through v%d", n, documentID, through)
	return n, nil
}

// TrimAfterCommit runs Trim for a write that already committed. Failures
// are logged and counted; they never reach the caller.
func (s *Store) TrimAfterCommit(ctx context.Context, documentID string) {
	if _, err := s.Trim(ctx, documentID); err != nil {
		metrics.TrimFailures.Inc()
		s.log.Errorf("retention trim failed: %v", err)
	}
}

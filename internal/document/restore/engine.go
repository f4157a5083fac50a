package restore

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gogotex/gogotex/backend/docservice/internal/document"
	"github.com/gogotex/gogotex/backend/docservice/internal/document/repository"
	"github.com/gogotex/gogotex/backend/docservice/internal/document/versions"
	"github.com/gogotex/gogotex/backend/docservice/pkg/logger"
	"github.com/gogotex/gogotex/backend/docservice/pkg/metrics"
)

// Engine rolls a document back to a historical snapshot. The rollback is
// itself a new version; history is never rewritten.
type Engine struct {
	repo  repository.Repository
	store *versions.Store
	query *versions.Query
	now   func() time.Time
	log   *zap.SugaredLogger
}

// NewEngine wires the engine to the version store and query it restores through.
func NewEngine(repo repository.Repository, store *versions.Store, query *versions.Query) *Engine {
	return &Engine{
		repo:  repo,
		store: store,
		query: query,
		now:   func() time.Time { return time.Now().UTC() },
		log:   logger.Named("restore"),
	}
}

// DefaultDescription is recorded when the caller gives no change description.
func DefaultDescription(target int) string {
	return fmt.Sprintf("restored to version %d", target)
}

// RestoreToVersion snapshots the live state, then copies title, content and
// type from version target onto the document. CurrentVersion only moves forward.
func (e *Engine) RestoreToVersion(ctx context.Context, documentID string, target int, callerID, description string) (*document.Document, error) {
	d, err := e.repo.FindDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !document.CanWrite(d, callerID) {
		return nil, document.ErrForbidden
	}
	if _, err := e.query.GetByNumber(ctx, documentID, target, callerID); err != nil {
		return nil, err
	}
	if description == "" {
		description = DefaultDescription(target)
	}

	var restored *document.Document
	err = e.repo.WithTx(ctx, func(tx repository.Tx) error {
		cur, err := tx.LockDocument(ctx, documentID)
		if err != nil {
			return err
		}
		if !document.CanWrite(cur, callerID) {
			return document.ErrForbidden
		}
		// re-read under the lock: a trim between the check above and here
		// must surface as not found rather than restore stale data
		tv, err := tx.FindVersion(ctx, documentID, target)
		if err != nil {
			return err
		}
		if _, err := e.store.Snapshot(ctx, tx, cur, callerID, description); err != nil {
			return err
		}
		cur.Title = tv.Title
		cur.Content = tv.Content
		cur.Type = tv.Type
		cur.UpdatedAt = e.now()
		if err := tx.UpdateDocument(ctx, cur); err != nil {
			return err
		}
		restored = cur
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.VersionsCreated.WithLabelValues("restore").Inc()
	metrics.Restores.Inc()
	e.log.Infof("document %s restored to v%d by %s, now at v%d", documentID, target, callerID, restored.CurrentVersion)
	e.store.TrimAfterCommit(ctx, documentID)
	return restored, nil
}

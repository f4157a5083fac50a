package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gogotex/gogotex/backend/docservice/internal/document"
	"github.com/gogotex/gogotex/backend/docservice/internal/document/repository"
	"github.com/gogotex/gogotex/backend/docservice/internal/document/restore"
	"github.com/gogotex/gogotex/backend/docservice/internal/document/versions"
	"github.com/gogotex/gogotex/backend/docservice/pkg/logger"
	"github.com/gogotex/gogotex/backend/docservice/pkg/metrics"
)

const (
	descCreated = "created"
	descUpdated = "updated"
)

// Service defines the document business operations used by the handler layer.
type Service interface {
	Create(ctx context.Context, fields document.CreateFields, ownerID string) (*document.Document, error)
	Get(ctx context.Context, id, callerID string) (*document.Document, error)
	List(ctx context.Context, callerID string) ([]*document.Document, error)
	Update(ctx context.Context, id string, fields document.UpdateFields, callerID, description string) (*document.Document, error)
	Delete(ctx context.Context, id, callerID string) (*document.Deleted, error)

	ListVersions(ctx context.Context, id, callerID string, req versions.PageRequest) (*document.VersionPage, error)
	GetVersion(ctx context.Context, id string, number int, callerID string) (*document.Version, error)
	Restore(ctx context.Context, id string, number int, callerID, description string) (*document.Document, error)
}

// Config tunes retention and paging.
type Config struct {
	RetentionCap    int
	DefaultPageSize int
	MaxPageSize     int
	Archiver        versions.Archiver
}

// New returns a Service over repo.
func New(repo repository.Repository, cfg Config) Service {
	var opts []versions.StoreOption
	if cfg.Archiver != nil {
		opts = append(opts, versions.WithArchiver(cfg.Archiver))
	}
	store := versions.NewStore(repo, cfg.RetentionCap, opts...)
	query := versions.NewQuery(repo, cfg.DefaultPageSize, cfg.MaxPageSize)
	return &service{
		repo:    repo,
		store:   store,
		query:   query,
		restore: restore.NewEngine(repo, store, query),
		now:     func() time.Time { return time.Now().UTC() },
		log:     logger.Named("documents"),
	}
}

// NewMemoryService returns a Service backed by the in-memory repository.
func NewMemoryService(cfg Config) (Service, error) {
	repo, err := repository.NewMemoryRepo()
	if err != nil {
		return nil, err
	}
	return New(repo, cfg), nil
}

type service struct {
	repo    repository.Repository
	store   *versions.Store
	query   *versions.Query
	restore *restore.Engine
	now     func() time.Time
	log     *zap.SugaredLogger
}

func (s *service) Create(ctx context.Context, fields document.CreateFields, ownerID string) (*document.Document, error) {
	if err := fields.Validate(); err != nil {
		return nil, err
	}
	now := s.now()
	d := &document.Document{
		ID:        uuid.NewString(),
		Title:     fields.Title,
		Content:   fields.Content,
		Type:      fields.Type,
		UserID:    ownerID,
		Status:    fields.Status,
		Access:    fields.Access,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if d.Type == "" {
		d.Type = document.DefaultType
	}
	if d.Status == "" {
		d.Status = document.StatusDraft
	}
	if d.Access == "" {
		d.Access = document.AccessPrivate
	}

	err := s.repo.WithTx(ctx, func(tx repository.Tx) error {
		d.CurrentVersion = 0
		if err := tx.InsertDocument(ctx, d); err != nil {
			return err
		}
		if _, err := s.store.Snapshot(ctx, tx, d, ownerID, descCreated); err != nil {
			return err
		}
		return tx.UpdateDocument(ctx, d)
	})
	if err != nil {
		return nil, err
	}
	metrics.VersionsCreated.WithLabelValues("create").Inc()
	s.log.Infof("document %s created by %s", d.ID, ownerID)
	return d, nil
}

func (s *service) Get(ctx context.Context, id, callerID string) (*document.Document, error) {
	d, err := s.repo.FindDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if !document.CanRead(d, callerID) {
		return nil, document.ErrForbidden
	}
	return d, nil
}

func (s *service) List(ctx context.Context, callerID string) ([]*document.Document, error) {
	docs, err := s.repo.ListDocuments(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []*document.Document{}
	}
	return docs, nil
}

func (s *service) Update(ctx context.Context, id string, fields document.UpdateFields, callerID, description string) (*document.Document, error) {
	if err := fields.Validate(); err != nil {
		return nil, err
	}
	cur, err := s.repo.FindDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if !document.CanWrite(cur, callerID) {
		return nil, document.ErrForbidden
	}
	if len(fields.ContentChanges(cur)) == 0 && !fields.MetaChanged(cur) {
		return cur, nil
	}
	if description == "" {
		description = descUpdated
	}

	var (
		updated     *document.Document
		snapshotted bool
	)
	err = s.repo.WithTx(ctx, func(tx repository.Tx) error {
		snapshotted = false
		d, err := tx.LockDocument(ctx, id)
		if err != nil {
			return err
		}
		if !document.CanWrite(d, callerID) {
			return document.ErrForbidden
		}
		changed := fields.ContentChanges(d)
		if len(changed) == 0 && !fields.MetaChanged(d) {
			updated = d
			return nil
		}
		if len(changed) > 0 {
			if _, err := s.store.Snapshot(ctx, tx, d, callerID, description); err != nil {
				return err
			}
			snapshotted = true
		}
		fields.Apply(d)
		d.UpdatedAt = s.now()
		if err := tx.UpdateDocument(ctx, d); err != nil {
			return err
		}
		updated = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	if snapshotted {
		metrics.VersionsCreated.WithLabelValues("update").Inc()
		s.log.Infof("document %s updated by %s, now at v%d", id, callerID, updated.CurrentVersion)
		s.store.TrimAfterCommit(ctx, id)
	}
	return updated, nil
}

func (s *service) Delete(ctx context.Context, id, callerID string) (*document.Deleted, error) {
	d, err := s.repo.FindDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if !document.CanWrite(d, callerID) {
		return nil, document.ErrForbidden
	}
	err = s.repo.WithTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.LockDocument(ctx, id); err != nil {
			return err
		}
		return tx.DeleteDocument(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	s.log.Infof("document %s deleted by %s", id, callerID)
	return &document.Deleted{Deleted: true}, nil
}

func (s *service) ListVersions(ctx context.Context, id, callerID string, req versions.PageRequest) (*document.VersionPage, error) {
	return s.query.List(ctx, id, callerID, req)
}

func (s *service) GetVersion(ctx context.Context, id string, number int, callerID string) (*document.Version, error) {
	return s.query.GetByNumber(ctx, id, number, callerID)
}

func (s *service) Restore(ctx context.Context, id string, number int, callerID, description string) (*document.Document, error) {
	return s.restore.RestoreToVersion(ctx, id, number, callerID, description)
}

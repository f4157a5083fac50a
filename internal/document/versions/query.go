package versions

import (
	"context"
	"math"

	"github.com/gogotex/gogotex/backend/docservice/internal/document"
	"github.com/gogotex/gogotex/backend/docservice/internal/document/repository"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// PageRequest selects one page of a document's history. Page is 1-indexed.
type PageRequest struct {
	Page       int
	PageSize   int
	ModifiedBy string
}

// Normalize clamps the request to sane bounds.
func (p *PageRequest) Normalize(defaultSize, maxSize int) {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = defaultSize
	}
	if maxSize > 0 && p.PageSize > maxSize {
		p.PageSize = maxSize
	}
	// keep (Page-1)*PageSize inside int
	if p.PageSize > 0 && p.Page > math.MaxInt/p.PageSize {
		p.Page = math.MaxInt / p.PageSize
	}
}

// Offset is the number of rows skipped before this page.
func (p PageRequest) Offset() int {
	if p.Page < 1 || p.PageSize < 1 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

// Query is the read path over version history.
type Query struct {
	repo            repository.Repository
	defaultPageSize int
	maxPageSize     int
}

// NewQuery returns a Query; non-positive sizes fall back to the package defaults.
func NewQuery(repo repository.Repository, defaultPageSize, maxPageSize int) *Query {
	if defaultPageSize <= 0 {
		defaultPageSize = DefaultPageSize
	}
	if maxPageSize <= 0 {
		maxPageSize = MaxPageSize
	}
	return &Query{repo: repo, defaultPageSize: defaultPageSize, maxPageSize: maxPageSize}
}

// List returns caller-visible version summaries, newest first, with the
// filtered total.
func (q *Query) List(ctx context.Context, documentID, callerID string, req PageRequest) (*document.VersionPage, error) {
	if _, err := q.readable(ctx, documentID, callerID); err != nil {
		return nil, err
	}
	req.Normalize(q.defaultPageSize, q.maxPageSize)

	rows, total, err := q.repo.ListVersions(ctx, documentID, repository.VersionFilter{
		ModifiedBy: req.ModifiedBy,
		Offset:     req.Offset(),
		Limit:      req.PageSize,
	})
	if err != nil {
		return nil, err
	}
	page := &document.VersionPage{Data: make([]*document.VersionSummary, 0, len(rows)), Total: total}
	for _, v := range rows {
		page.Data = append(page.Data, v.Summary())
	}
	return page, nil
}

// GetByNumber returns the full snapshot, content included.
func (q *Query) GetByNumber(ctx context.Context, documentID string, number int, callerID string) (*document.Version, error) {
	if _, err := q.readable(ctx, documentID, callerID); err != nil {
		return nil, err
	}
	return q.repo.FindVersion(ctx, documentID, number)
}

func (q *Query) readable(ctx context.Context, documentID, callerID string) (*document.Document, error) {
	d, err := q.repo.FindDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !document.CanRead(d, callerID) {
		return nil, document.ErrForbidden
	}
	return d, nil
}

package versions

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogotex/gogotex/backend/docservice/internal/document"
	"github.com/gogotex/gogotex/backend/docservice/internal/document/repository"
	"github.com/gogotex/gogotex/backend/docservice/pkg/metrics"
)

type fakeArchiver struct {
	got []*document.Version
	err error
}

func (f *fakeArchiver) Archive(_ context.Context, vs []*document.Version) error {
	f.got = append(f.got, vs...)
	return f.err
}

// brokenRepo fails the read that starts a trim.
type brokenRepo struct {
	repository.Repository
}

func (b *brokenRepo) ExcessVersions(context.Context, string, int) ([]*document.Version, error) {
	return nil, errors.New("connection reset")
}

func newRepo(t *testing.T) *repository.MemoryRepo {
	r, err := repository.NewMemoryRepo()
	require.NoError(t, err)
	return r
}

// writeVersions creates document id owned by owner and snapshots it n times,
// changing the title before each snapshot.
func writeVersions(t *testing.T, r repository.Repository, s *Store, id, owner string, n int, by func(i int) string) {
	ctx := context.Background()
	d := &document.Document{ID: id, Title: "t0", Type: "text", UserID: owner, Access: document.AccessPrivate}
	require.NoError(t, r.WithTx(ctx, func(tx repository.Tx) error { return tx.InsertDocument(ctx, d) }))
	for i := 1; i <= n; i++ {
		require.NoError(t, r.WithTx(ctx, func(tx repository.Tx) error {
			cur, err := tx.LockDocument(ctx, id)
			if err != nil {
				return err
			}
			if _, err := s.Snapshot(ctx, tx, cur, by(i), fmt.Sprintf("change %d", i)); err != nil {
				return err
			}
			cur.Title = fmt.Sprintf("t%d", i)
			return tx.UpdateDocument(ctx, cur)
		}))
	}
}

func TestSnapshotNumbersFromCurrentVersion(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	s := NewStore(r, 0, WithClock(func() time.Time { return fixed }))
	assert.Equal(t, DefaultRetentionCap, s.RetentionCap())

	writeVersions(t, r, s, "d1", "alice", 3, func(int) string { return "alice" })

	d, err := r.FindDocument(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, 3, d.CurrentVersion)
	assert.Equal(t, "t3", d.Title)

	for n := 1; n <= 3; n++ {
		v, err := r.FindVersion(ctx, "d1", n)
		require.NoError(t, err)
		// each version holds the state from before its own mutation
		assert.Equal(t, fmt.Sprintf("t%d", n-1), v.Title)
		assert.Equal(t, fmt.Sprintf("change %d", n), v.ChangeDescription)
		assert.True(t, v.CreatedAt.Equal(fixed))
		assert.NotEmpty(t, v.ID)
	}
}

func TestTrimKeepsNewestAndArchivesPruned(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)
	arch := &fakeArchiver{}
	s := NewStore(r, 3, WithArchiver(arch))
	writeVersions(t, r, s, "d1", "alice", 5, func(int) string { return "alice" })

	before := testutil.ToFloat64(metrics.VersionsPruned)
	n, err := s.Trim(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, before+2, testutil.ToFloat64(metrics.VersionsPruned))

	require.Len(t, arch.got, 2)
	assert.Equal(t, 1, arch.got[0].VersionNumber)
	assert.Equal(t, 2, arch.got[1].VersionNumber)

	_, total, err := r.ListVersions(ctx, "d1", repository.VersionFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	_, err = r.FindVersion(ctx, "d1", 2)
	require.ErrorIs(t, err, document.ErrNotFound)
	_, err = r.FindVersion(ctx, "d1", 3)
	require.NoError(t, err)

	n, err = s.Trim(ctx, "d1")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTrimPrunesEvenWhenArchiveFails(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)
	s := NewStore(r, 2, WithArchiver(&fakeArchiver{err: errors.New("bucket gone")}))
	writeVersions(t, r, s, "d1", "alice", 4, func(int) string { return "alice" })

	before := testutil.ToFloat64(metrics.ArchiveFailures)
	n, err := s.Trim(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, before+2, testutil.ToFloat64(metrics.ArchiveFailures))
}

func TestTrimAfterCommitSwallowsFailures(t *testing.T) {
	s := NewStore(&brokenRepo{Repository: newRepo(t)}, 1)
	before := testutil.ToFloat64(metrics.TrimFailures)
	require.NotPanics(t, func() { s.TrimAfterCommit(context.Background(), "d1") })
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.TrimFailures))
}

func TestQueryList(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)
	s := NewStore(r, 100)
	by := func(i int) string {
		if i%3 == 0 {
			return "bob"
		}
		return "alice"
	}
	writeVersions(t, r, s, "d1", "alice", 12, by)
	q := NewQuery(r, 0, 0)

	page, err := q.List(ctx, "d1", "alice", PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 12, page.Total)
	require.Len(t, page.Data, DefaultPageSize)
	assert.Equal(t, 12, page.Data[0].VersionNumber)
	assert.Equal(t, 3, page.Data[9].VersionNumber)

	page, err = q.List(ctx, "d1", "alice", PageRequest{Page: 2, PageSize: 5})
	require.NoError(t, err)
	require.Len(t, page.Data, 5)
	assert.Equal(t, 7, page.Data[0].VersionNumber)

	page, err = q.List(ctx, "d1", "alice", PageRequest{Page: 1, PageSize: 10, ModifiedBy: "bob"})
	require.NoError(t, err)
	assert.Equal(t, 4, page.Total)
	for _, v := range page.Data {
		assert.Equal(t, "bob", v.ModifiedBy)
	}

	page, err = q.List(ctx, "d1", "alice", PageRequest{Page: 9, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 12, page.Total)
	assert.Empty(t, page.Data)
}

func TestQueryAccess(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)
	s := NewStore(r, 100)
	writeVersions(t, r, s, "d1", "alice", 2, func(int) string { return "alice" })
	q := NewQuery(r, 10, 100)

	_, err := q.List(ctx, "d1", "mallory", PageRequest{})
	require.ErrorIs(t, err, document.ErrForbidden)
	_, err = q.GetByNumber(ctx, "d1", 1, "mallory")
	require.ErrorIs(t, err, document.ErrForbidden)

	_, err = q.List(ctx, "missing", "alice", PageRequest{})
	require.ErrorIs(t, err, document.ErrNotFound)
	_, err = q.GetByNumber(ctx, "d1", 99, "alice")
	require.ErrorIs(t, err, document.ErrVersionNotFound)

	require.NoError(t, r.WithTx(ctx, func(tx repository.Tx) error {
		d, err := tx.LockDocument(ctx, "d1")
		if err != nil {
			return err
		}
		d.Access = document.AccessPublic
		return tx.UpdateDocument(ctx, d)
	}))
	v, err := q.GetByNumber(ctx, "d1", 2, "mallory")
	require.NoError(t, err)
	assert.Equal(t, "t1", v.Title)
}

func TestPageRequestNormalize(t *testing.T) {
	p := PageRequest{Page: -3, PageSize: 5000}
	p.Normalize(10, 100)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 100, p.PageSize)
	assert.Zero(t, p.Offset())

	p = PageRequest{Page: 3}
	p.Normalize(10, 100)
	assert.Equal(t, 10, p.PageSize)
	assert.Equal(t, 20, p.Offset())

	p = PageRequest{Page: math.MaxInt/10 + 2, PageSize: 10}
	p.Normalize(10, 100)
	assert.Equal(t, math.MaxInt/10, p.Page)
	assert.GreaterOrEqual(t, p.Offset(), 0)

	assert.Zero(t, PageRequest{Page: 0, PageSize: 10}.Offset())
}

func TestQueryListHugePage(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)
	s := NewStore(r, 100)
	writeVersions(t, r, s, "d1", "alice", 3, func(int) string { return "alice" })
	q := NewQuery(r, 0, 0)

	for _, page := range []int{math.MaxInt, math.MaxInt/10 + 2, math.MaxInt / 100} {
		got, err := q.List(ctx, "d1", "alice", PageRequest{Page: page, PageSize: 10})
		require.NoError(t, err, "page %d", page)
		assert.Equal(t, 3, got.Total)
		assert.Empty(t, got.Data)
	}
}

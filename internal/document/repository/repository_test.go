package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogotex/gogotex/backend/docservice/internal/document"
)

// runRepositoryContract checks behaviour every backend must share.
func runRepositoryContract(t *testing.T, newRepo func(t *testing.T) Repository) {
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	newDoc := func(id, owner string, updated time.Time) *document.Document {
		return &document.Document{
			ID: id, Title: "title " + id, Content: "body", Type: document.DefaultType, UserID: owner,
			Status: document.StatusDraft, Access: document.AccessPrivate, CreatedAt: base, UpdatedAt: updated,
		}
	}
	newVersion := func(docID string, n int, by string) *document.Version {
		return &document.Version{
			ID: fmt.Sprintf("%s-v%d", docID, n), DocumentID: docID, VersionNumber: n,
			Title: fmt.Sprintf("t%d", n), Content: fmt.Sprintf("c%d", n), Type: "text",
			ModifiedBy: by, CreatedAt: base.Add(time.Duration(n) * time.Minute),
		}
	}
	seed := func(t *testing.T, r Repository, docID string, count int) {
		require.NoError(t, r.WithTx(ctx, func(tx Tx) error {
			d := newDoc(docID, "alice", base)
			if err := tx.InsertDocument(ctx, d); err != nil {
				return err
			}
			for n := 1; n <= count; n++ {
				by := "alice"
				if n%2 == 0 {
					by = "bob"
				}
				if err := tx.InsertVersion(ctx, newVersion(docID, n, by)); err != nil {
					return err
				}
			}
			d.CurrentVersion = count
			return tx.UpdateDocument(ctx, d)
		}))
	}

	t.Run("commit persists document and versions", func(t *testing.T) {
		r := newRepo(t)
		seed(t, r, "d1", 2)

		got, err := r.FindDocument(ctx, "d1")
		require.NoError(t, err)
		assert.Equal(t, "title d1", got.Title)
		assert.Equal(t, "body", got.Content)
		assert.Equal(t, 2, got.CurrentVersion)
		assert.Equal(t, document.AccessPrivate, got.Access)
		assert.True(t, got.UpdatedAt.Equal(base))

		v, err := r.FindVersion(ctx, "d1", 2)
		require.NoError(t, err)
		assert.Equal(t, "c2", v.Content)
		assert.Equal(t, "bob", v.ModifiedBy)
	})

	t.Run("error inside transaction rolls back every write", func(t *testing.T) {
		r := newRepo(t)
		boom := errors.New("boom")
		err := r.WithTx(ctx, func(tx Tx) error {
			if err := tx.InsertDocument(ctx, newDoc("d1", "alice", base)); err != nil {
				return err
			}
			if err := tx.InsertVersion(ctx, newVersion("d1", 1, "alice")); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		_, err = r.FindDocument(ctx, "d1")
		require.ErrorIs(t, err, document.ErrNotFound)
		_, err = r.FindVersion(ctx, "d1", 1)
		require.ErrorIs(t, err, document.ErrNotFound)
	})

	t.Run("missing rows map to not found", func(t *testing.T) {
		r := newRepo(t)
		_, err := r.FindDocument(ctx, "nope")
		require.ErrorIs(t, err, document.ErrNotFound)

		err = r.WithTx(ctx, func(tx Tx) error {
			_, err := tx.LockDocument(ctx, "nope")
			return err
		})
		require.ErrorIs(t, err, document.ErrNotFound)

		seed(t, r, "d1", 1)
		_, err = r.FindVersion(ctx, "d1", 7)
		require.ErrorIs(t, err, document.ErrVersionNotFound)
	})

	t.Run("duplicate version number conflicts", func(t *testing.T) {
		r := newRepo(t)
		seed(t, r, "d1", 1)
		err := r.WithTx(ctx, func(tx Tx) error {
			dup := newVersion("d1", 1, "alice")
			dup.ID = "other-id"
			return tx.InsertVersion(ctx, dup)
		})
		require.ErrorIs(t, err, document.ErrConflict)
	})

	t.Run("list versions pages newest first with filtered total", func(t *testing.T) {
		r := newRepo(t)
		seed(t, r, "d1", 5)

		page, total, err := r.ListVersions(ctx, "d1", VersionFilter{Offset: 0, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, 5, total)
		require.Len(t, page, 2)
		assert.Equal(t, 5, page[0].VersionNumber)
		assert.Equal(t, 4, page[1].VersionNumber)

		page, total, err = r.ListVersions(ctx, "d1", VersionFilter{Offset: 4, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, 5, total)
		require.Len(t, page, 1)
		assert.Equal(t, 1, page[0].VersionNumber)

		page, total, err = r.ListVersions(ctx, "d1", VersionFilter{ModifiedBy: "bob", Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		require.Len(t, page, 2)
		assert.Equal(t, 4, page[0].VersionNumber)
		assert.Equal(t, 2, page[1].VersionNumber)

		page, total, err = r.ListVersions(ctx, "d1", VersionFilter{Offset: 10, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 5, total)
		assert.Empty(t, page)
	})

	t.Run("excess versions and deletion through a number", func(t *testing.T) {
		r := newRepo(t)
		seed(t, r, "d1", 5)

		excess, err := r.ExcessVersions(ctx, "d1", 3)
		require.NoError(t, err)
		require.Len(t, excess, 2)
		assert.Equal(t, 1, excess[0].VersionNumber)
		assert.Equal(t, 2, excess[1].VersionNumber)
		assert.Equal(t, "c1", excess[0].Content)

		n, err := r.DeleteVersionsThrough(ctx, "d1", 2)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		excess, err = r.ExcessVersions(ctx, "d1", 3)
		require.NoError(t, err)
		assert.Empty(t, excess)

		_, total, err := r.ListVersions(ctx, "d1", VersionFilter{})
		require.NoError(t, err)
		assert.Equal(t, 3, total)
	})

	t.Run("delete document removes its versions", func(t *testing.T) {
		r := newRepo(t)
		seed(t, r, "d1", 3)
		seed(t, r, "d2", 1)

		require.NoError(t, r.WithTx(ctx, func(tx Tx) error {
			return tx.DeleteDocument(ctx, "d1")
		}))

		_, err := r.FindDocument(ctx, "d1")
		require.ErrorIs(t, err, document.ErrNotFound)
		_, total, err := r.ListVersions(ctx, "d1", VersionFilter{})
		require.NoError(t, err)
		assert.Zero(t, total)

		_, total, err = r.ListVersions(ctx, "d2", VersionFilter{})
		require.NoError(t, err)
		assert.Equal(t, 1, total)

		err = r.WithTx(ctx, func(tx Tx) error { return tx.DeleteDocument(ctx, "d1") })
		require.ErrorIs(t, err, document.ErrNotFound)
	})

	t.Run("list documents returns owner's newest first", func(t *testing.T) {
		r := newRepo(t)
		require.NoError(t, r.WithTx(ctx, func(tx Tx) error {
			for i, d := range []*document.Document{
				newDoc("old", "alice", base),
				newDoc("new", "alice", base.Add(time.Hour)),
				newDoc("theirs", "bob", base.Add(2*time.Hour)),
			} {
				if err := tx.InsertDocument(ctx, d); err != nil {
					return fmt.Errorf("insert %d: %w", i, err)
				}
			}
			return nil
		}))

		docs, err := r.ListDocuments(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, "new", docs[0].ID)
		assert.Equal(t, "old", docs[1].ID)
	})
}

package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashicorp/go-memdb"

	"github.com/gogotex/gogotex/backend/docservice/internal/document"
)

const (
	tblDocuments = "documents"
	tblVersions  = "versions"
)

var memSchema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		tblDocuments: {
			Name: tblDocuments,
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:    "id",
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "ID"},
				},
				"user_id": {
					Name:    "user_id",
					Indexer: &memdb.StringFieldIndex{Field: "UserID"},
				},
			},
		},
		tblVersions: {
			Name: tblVersions,
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:    "id",
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "ID"},
				},
				"document_id": {
					Name:    "document_id",
					Indexer: &memdb.StringFieldIndex{Field: "DocumentID"},
				},
				"document_id_number": {
					Name:   "document_id_number",
					Unique: true,
					Indexer: &memdb.CompoundIndex{
						Indexes: []memdb.Indexer{
							&memdb.StringFieldIndex{Field: "DocumentID"},
							&memdb.IntFieldIndex{Field: "VersionNumber"},
						},
					},
				},
			},
		},
	},
}

// MemoryRepo keeps documents and versions in go-memdb. Write transactions
// are exclusive, so a locked document is simply one read inside Txn(true).
type MemoryRepo struct {
	db *memdb.MemDB
}

// NewMemoryRepo creates an empty in-memory repository.
func NewMemoryRepo() (*MemoryRepo, error) {
	db, err := memdb.NewMemDB(memSchema)
	if err != nil {
		return nil, fmt.Errorf("new memdb: %w", err)
	}
	return &MemoryRepo{db: db}, nil
}

func (m *MemoryRepo) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	txn := m.db.Txn(true)
	defer txn.Abort()

	if err := fn(&memTx{txn: txn}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

func (m *MemoryRepo) FindDocument(_ context.Context, id string) (*document.Document, error) {
	txn := m.db.Txn(false)
	defer txn.Abort()
	return findDocument(txn, id)
}

func (m *MemoryRepo) ListDocuments(_ context.Context, userID string) ([]*document.Document, error) {
	txn := m.db.Txn(false)
	defer txn.Abort()

	iter, err := txn.Get(tblDocuments, "user_id", userID)
	if err != nil {
		return nil, fmt.Errorf("list documents of %s: %w", userID, err)
	}
	var docs []*document.Document
	for raw := iter.Next(); raw != nil; raw = iter.Next() {
		docs = append(docs, raw.(*document.Document).DeepCopy())
	}
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].UpdatedAt.After(docs[j].UpdatedAt)
	})
	return docs, nil
}

func (m *MemoryRepo) FindVersion(_ context.Context, documentID string, number int) (*document.Version, error) {
	txn := m.db.Txn(false)
	defer txn.Abort()
	return findVersion(txn, documentID, number)
}

func (m *MemoryRepo) ListVersions(_ context.Context, documentID string, filter VersionFilter) ([]*document.Version, int, error) {
	txn := m.db.Txn(false)
	defer txn.Abort()

	versions, err := versionsOf(txn, documentID)
	if err != nil {
		return nil, 0, err
	}
	matched := versions[:0]
	for _, v := range versions {
		if filter.ModifiedBy != "" && v.ModifiedBy != filter.ModifiedBy {
			continue
		}
		matched = append(matched, v)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].VersionNumber > matched[j].VersionNumber
	})

	total := len(matched)
	from := filter.Offset
	switch {
	case from < 0:
		from = 0
	case from > total:
		from = total
	}
	to := total
	if filter.Limit > 0 && filter.Limit < total-from {
		to = from + filter.Limit
	}
	return matched[from:to], total, nil
}

func (m *MemoryRepo) ExcessVersions(_ context.Context, documentID string, keep int) ([]*document.Version, error) {
	txn := m.db.Txn(false)
	defer txn.Abort()

	versions, err := versionsOf(txn, documentID)
	if err != nil {
		return nil, err
	}
	if len(versions) <= keep {
		return nil, nil
	}
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].VersionNumber < versions[j].VersionNumber
	})
	return versions[:len(versions)-keep], nil
}

func (m *MemoryRepo) DeleteVersionsThrough(_ context.Context, documentID string, number int) (int, error) {
	txn := m.db.Txn(true)
	defer txn.Abort()

	iter, err := txn.Get(tblVersions, "document_id", documentID)
	if err != nil {
		return 0, fmt.Errorf("find versions of %s: %w", documentID, err)
	}
	var stale []interface{}
	for raw := iter.Next(); raw != nil; raw = iter.Next() {
		if raw.(*document.Version).VersionNumber <= number {
			stale = append(stale, raw)
		}
	}
	for _, raw := range stale {
		if err := txn.Delete(tblVersions, raw); err != nil {
			return 0, fmt.Errorf("delete version: %w", err)
		}
	}
	txn.Commit()
	return len(stale), nil
}

type memTx struct {
	txn *memdb.Txn
}

func (t *memTx) LockDocument(_ context.Context, id string) (*document.Document, error) {
	return findDocument(t.txn, id)
}

func (t *memTx) InsertDocument(_ context.Context, d *document.Document) error {
	raw, err := t.txn.First(tblDocuments, "id", d.ID)
	if err != nil {
		return fmt.Errorf("find document %s: %w", d.ID, err)
	}
	if raw != nil {
		return fmt.Errorf("insert document %s: %w", d.ID, document.ErrConflict)
	}
	if err := t.txn.Insert(tblDocuments, d.DeepCopy()); err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (t *memTx) UpdateDocument(_ context.Context, d *document.Document) error {
	if _, err := findDocument(t.txn, d.ID); err != nil {
		return err
	}
	if err := t.txn.Insert(tblDocuments, d.DeepCopy()); err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	return nil
}

func (t *memTx) DeleteDocument(_ context.Context, id string) error {
	raw, err := t.txn.First(tblDocuments, "id", id)
	if err != nil {
		return fmt.Errorf("find document %s: %w", id, err)
	}
	if raw == nil {
		return document.ErrNotFound
	}
	if _, err := t.txn.DeleteAll(tblVersions, "document_id", id); err != nil {
		return fmt.Errorf("delete versions of %s: %w", id, err)
	}
	if err := t.txn.Delete(tblDocuments, raw); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

func (t *memTx) InsertVersion(_ context.Context, v *document.Version) error {
	raw, err := t.txn.First(tblVersions, "document_id_number", v.DocumentID, v.VersionNumber)
	if err != nil {
		return fmt.Errorf("find version: %w", err)
	}
	if raw != nil {
		return fmt.Errorf("version %d of %s: %w", v.VersionNumber, v.DocumentID, document.ErrConflict)
	}
	if err := t.txn.Insert(tblVersions, v.DeepCopy()); err != nil {
		return fmt.Errorf("insert version: %w", err)
	}
	return nil
}

func (t *memTx) FindVersion(_ context.Context, documentID string, number int) (*document.Version, error) {
	return findVersion(t.txn, documentID, number)
}

func findDocument(txn *memdb.Txn, id string) (*document.Document, error) {
	raw, err := txn.First(tblDocuments, "id", id)
	if err != nil {
		return nil, fmt.Errorf("find document %s: %w", id, err)
	}
	if raw == nil {
		return nil, document.ErrNotFound
	}
	return raw.(*document.Document).DeepCopy(), nil
}

func findVersion(txn *memdb.Txn, documentID string, number int) (*document.Version, error) {
	raw, err := txn.First(tblVersions, "document_id_number", documentID, number)
	if err != nil {
		return nil, fmt.Errorf("find version %d of %s: %w", number, documentID, err)
	}
	if raw == nil {
		return nil, document.ErrVersionNotFound
	}
	return raw.(*document.Version).DeepCopy(), nil
}

func versionsOf(txn *memdb.Txn, documentID string) ([]*document.Version, error) {
	iter, err := txn.Get(tblVersions, "document_id", documentID)
	if err != nil {
		return nil, fmt.Errorf("find versions of %s: %w", documentID, err)
	}
	var versions []*document.Version
	for raw := iter.Next(); raw != nil; raw = iter.Next() {
		versions = append(versions, raw.(*document.Version).DeepCopy())
	}
	return versions, nil
}

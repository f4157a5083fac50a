package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gogotex/gogotex/backend/docservice/internal/document"
)

// ObjectStore is the subset of MinIOStorage the archive writes through.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// VersionArchive stores each pruned version as one JSON object.
type VersionArchive struct {
	store ObjectStore
}

func NewVersionArchive(store ObjectStore) *VersionArchive {
	return &VersionArchive{store: store}
}

// Key is the object name of a version: versions/<documentId>/<number>.json
func Key(documentID string, number int) string {
	return fmt.Sprintf("versions/%s/%d.json", documentID, number)
}

// Archive uploads every version and joins the failures.
func (a *VersionArchive) Archive(ctx context.Context, versions []*document.Version) error {
	var errs []error
	for _, v := range versions {
		data, err := json.Marshal(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("encode %s v%d: %w", v.DocumentID, v.VersionNumber, err))
			continue
		}
		if err := a.store.Put(ctx, Key(v.DocumentID, v.VersionNumber), data, "application/json"); err != nil {
			errs = append(errs, fmt.Errorf("upload %s v%d: %w", v.DocumentID, v.VersionNumber, err))
		}
	}
	return errors.Join(errs...)
}

// Load reads one archived version back.
func (a *VersionArchive) Load(ctx context.Context, documentID string, number int) (*document.Version, error) {
	data, err := a.store.Get(ctx, Key(documentID, number))
	if err != nil {
		return nil, err
	}
	var v document.Version
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", Key(documentID, number), err)
	}
	return &v, nil
}

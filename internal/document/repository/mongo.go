package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gogotex/gogotex/backend/docservice/internal/document"
)

// MongoRepo stores documents and versions in two collections. Multi-document
// transactions require a replica set.
type MongoRepo struct {
	client   *mongo.Client
	docs     *mongo.Collection
	versions *mongo.Collection
}

// NewMongoRepo ensures indexes on the "documents" and "document_versions" collections of db.
func NewMongoRepo(ctx context.Context, db *mongo.Database) (*MongoRepo, error) {
	r := &MongoRepo{
		client:   db.Client(),
		docs:     db.Collection("documents"),
		versions: db.Collection("document_versions"),
	}
	if _, err := r.docs.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "updatedAt", Value: -1}},
	}); err != nil {
		return nil, fmt.Errorf("create documents index: %w", err)
	}
	// the unique key backs up the document lock: two writers can never both
	// commit the same version number.
	if _, err := r.versions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "documentId", Value: 1}, {Key: "versionNumber", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return nil, fmt.Errorf("create versions index: %w", err)
	}
	return r, nil
}

func (m *MongoRepo) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	session, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(&mongoTx{sc: sc, repo: m})
	})
	return err
}

func (m *MongoRepo) FindDocument(ctx context.Context, id string) (*document.Document, error) {
	var d document.Document
	if err := m.docs.FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		return nil, mapMongoError(err, document.ErrNotFound)
	}
	return &d, nil
}

func (m *MongoRepo) ListDocuments(ctx context.Context, userID string) ([]*document.Document, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	cur, err := m.docs.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find documents: %w", err)
	}
	defer cur.Close(ctx)

	var docs []*document.Document
	for cur.Next(ctx) {
		var d document.Document
		if err := cur.Decode(&d); err != nil {
			return nil, fmt.Errorf("decode document: %w", err)
		}
		docs = append(docs, &d)
	}
	return docs, cur.Err()
}

func (m *MongoRepo) FindVersion(ctx context.Context, documentID string, number int) (*document.Version, error) {
	return findMongoVersion(ctx, m.versions, documentID, number)
}

func (m *MongoRepo) ListVersions(ctx context.Context, documentID string, filter VersionFilter) ([]*document.Version, int, error) {
	q := bson.M{"documentId": documentID}
	if filter.ModifiedBy != "" {
		q["modifiedBy"] = filter.ModifiedBy
	}
	total, err := m.versions.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, fmt.Errorf("count versions: %w", err)
	}

	opts := options.Find().SetSort(bson.D{{Key: "versionNumber", Value: -1}}).SetSkip(int64(filter.Offset))
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	versions, err := findMongoVersions(ctx, m.versions, q, opts)
	if err != nil {
		return nil, 0, err
	}
	return versions, int(total), nil
}

func (m *MongoRepo) ExcessVersions(ctx context.Context, documentID string, keep int) ([]*document.Version, error) {
	q := bson.M{"documentId": documentID}
	count, err := m.versions.CountDocuments(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("count versions: %w", err)
	}
	if int(count) <= keep {
		return nil, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "versionNumber", Value: 1}}).SetLimit(count - int64(keep))
	return findMongoVersions(ctx, m.versions, q, opts)
}

func (m *MongoRepo) DeleteVersionsThrough(ctx context.Context, documentID string, number int) (int, error) {
	res, err := m.versions.DeleteMany(ctx, bson.M{"documentId": documentID, "versionNumber": bson.M{"$lte": number}})
	if err != nil {
		return 0, fmt.Errorf("delete versions: %w", err)
	}
	return int(res.DeletedCount), nil
}

type mongoTx struct {
	sc   mongo.SessionContext
	repo *MongoRepo
}

// LockDocument writes a lock marker so a concurrent transaction touching the
// same document aborts with a write conflict and is retried by the driver.
func (t *mongoTx) LockDocument(_ context.Context, id string) (*document.Document, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var d document.Document
	err := t.repo.docs.FindOneAndUpdate(t.sc, bson.M{"_id": id}, bson.M{"$set": bson.M{"lockedAt": time.Now().UTC()}}, opts).Decode(&d)
	if err != nil {
		return nil, mapMongoError(err, document.ErrNotFound)
	}
	return &d, nil
}

func (t *mongoTx) InsertDocument(_ context.Context, d *document.Document) error {
	if _, err := t.repo.docs.InsertOne(t.sc, d); err != nil {
		return mapMongoError(err, document.ErrNotFound)
	}
	return nil
}

func (t *mongoTx) UpdateDocument(_ context.Context, d *document.Document) error {
	res, err := t.repo.docs.UpdateOne(t.sc, bson.M{"_id": d.ID}, bson.M{"$set": bson.M{
		"title":          d.Title,
		"content":        d.Content,
		"type":           d.Type,
		"status":         d.Status,
		"access":         d.Access,
		"currentVersion": d.CurrentVersion,
		"updatedAt":      d.UpdatedAt,
	}})
	if err != nil {
		return mapMongoError(err, document.ErrNotFound)
	}
	if res.MatchedCount == 0 {
		return document.ErrNotFound
	}
	return nil
}

func (t *mongoTx) DeleteDocument(_ context.Context, id string) error {
	if _, err := t.repo.versions.DeleteMany(t.sc, bson.M{"documentId": id}); err != nil {
		return fmt.Errorf("delete versions: %w", err)
	}
	res, err := t.repo.docs.DeleteOne(t.sc, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if res.DeletedCount == 0 {
		return document.ErrNotFound
	}
	return nil
}

func (t *mongoTx) InsertVersion(_ context.Context, v *document.Version) error {
	if _, err := t.repo.versions.InsertOne(t.sc, v); err != nil {
		return mapMongoError(err, document.ErrNotFound)
	}
	return nil
}

func (t *mongoTx) FindVersion(_ context.Context, documentID string, number int) (*document.Version, error) {
	return findMongoVersion(t.sc, t.repo.versions, documentID, number)
}

func findMongoVersion(ctx context.Context, col *mongo.Collection, documentID string, number int) (*document.Version, error) {
	var v document.Version
	err := col.FindOne(ctx, bson.M{"documentId": documentID, "versionNumber": number}).Decode(&v)
	if err != nil {
		return nil, mapMongoError(err, document.ErrVersionNotFound)
	}
	return &v, nil
}

func findMongoVersions(ctx context.Context, col *mongo.Collection, q bson.M, opts *options.FindOptions) ([]*document.Version, error) {
	cur, err := col.Find(ctx, q, opts)
	if err != nil {
		return nil, fmt.Errorf("find versions: %w", err)
	}
	defer cur.Close(ctx)

	var versions []*document.Version
	for cur.Next(ctx) {
		var v document.Version
		if err := cur.Decode(&v); err != nil {
			return nil, fmt.Errorf("decode version: %w", err)
		}
		versions = append(versions, &v)
	}
	return versions, cur.Err()
}

func mapMongoError(err, notFound error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return notFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("duplicate key: %w", document.ErrConflict)
	}
	return err
}

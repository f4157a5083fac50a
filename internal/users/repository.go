package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-memdb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UserRepository defines persistence operations for users
type UserRepository interface {
	UpsertBySub(ctx context.Context, u *User) (*User, error)
	GetBySub(ctx context.Context, sub string) (*User, error)
}

// MongoUserRepository implements UserRepository using MongoDB
type MongoUserRepository struct {
	col *mongo.Collection
}

// NewMongoUserRepository creates a new repository for the given collection
func NewMongoUserRepository(col *mongo.Collection) *MongoUserRepository {
	return &MongoUserRepository{col: col}
}

func (r *MongoUserRepository) UpsertBySub(ctx context.Context, u *User) (*User, error) {
	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"email":     u.Email,
			"name":      u.Name,
			"updatedAt": now,
		},
		"$setOnInsert": bson.M{"createdAt": now},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var updated User
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"sub": u.Sub}, update, opts).Decode(&updated); err != nil {
		return nil, fmt.Errorf("upsert user %s: %w", u.Sub, err)
	}
	return &updated, nil
}

func (r *MongoUserRepository) GetBySub(ctx context.Context, sub string) (*User, error) {
	var u User
	if err := r.col.FindOne(ctx, bson.M{"sub": sub}).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

const tblUsers = "users"

// MemoryUserRepository keeps users in a go-memdb table; used when no Mongo is configured.
type MemoryUserRepository struct {
	db  *memdb.MemDB
	now func() time.Time
}

func NewMemoryUserRepository() (*MemoryUserRepository, error) {
	db, err := memdb.NewMemDB(&memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			tblUsers: {
				Name: tblUsers,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {Name: "id", Unique: true, Indexer: &memdb.StringFieldIndex{Field: "Sub"}},
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("users memdb: %w", err)
	}
	return &MemoryUserRepository{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (r *MemoryUserRepository) UpsertBySub(_ context.Context, u *User) (*User, error) {
	txn := r.db.Txn(true)
	defer txn.Abort()

	now := r.now()
	next := User{Sub: u.Sub, Email: u.Email, Name: u.Name, UpdatedAt: now}
	raw, err := txn.First(tblUsers, "id", u.Sub)
	if err != nil {
		return nil, err
	}
	if prev, ok := raw.(*User); ok {
		next.ID, next.CreatedAt = prev.ID, prev.CreatedAt
	} else {
		next.ID, next.CreatedAt = uuid.NewString(), now
	}
	if err := txn.Insert(tblUsers, &next); err != nil {
		return nil, err
	}
	txn.Commit()
	out := next
	return &out, nil
}

func (r *MemoryUserRepository) GetBySub(_ context.Context, sub string) (*User, error) {
	txn := r.db.Txn(false)
	defer txn.Abort()
	raw, err := txn.First(tblUsers, "id", sub)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, ErrNotFound
	}
	out := *raw.(*User)
	return &out, nil
}

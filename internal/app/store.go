package app

import (
	"context"
	"database/sql"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/gogotex/gogotex/backend/docservice/internal/config"
	"github.com/gogotex/gogotex/backend/docservice/internal/database"
	"github.com/gogotex/gogotex/backend/docservice/internal/document/repository"
)

// Store is the document repository selected by STORE_DRIVER and the
// connection behind it.
type Store struct {
	Driver string
	Repo   repository.Repository
	sqlDB  *sql.DB
	mongo  *mongo.Client
}

// OpenStore connects the configured backend and applies SQL migrations.
// mc is reused for the mongo driver and may be nil otherwise.
func OpenStore(ctx context.Context, cfg *config.Config, mc *mongo.Client) (*Store, error) {
	s := &Store{Driver: cfg.Store.Driver}
	switch cfg.Store.Driver {
	case config.DriverMemory:
		repo, err := repository.NewMemoryRepo()
		if err != nil {
			return nil, err
		}
		s.Repo = repo

	case config.DriverPostgres:
		if err := database.MigratePostgres(cfg.Postgres.DSN, database.Up); err != nil {
			return nil, err
		}
		db, err := database.OpenPostgres(ctx, cfg.Postgres.DSN, cfg.Postgres.Timeout)
		if err != nil {
			return nil, err
		}
		s.sqlDB, s.Repo = db, repository.NewSQLRepo(db, repository.Postgres)

	case config.DriverSQLite:
		db, err := database.OpenSQLite(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		if err := database.MigrateSQLite(db, database.Up); err != nil {
			db.Close()
			return nil, err
		}
		s.sqlDB, s.Repo = db, repository.NewSQLRepo(db, repository.SQLite)

	case config.DriverMongo:
		if mc == nil {
			return nil, fmt.Errorf("mongo store needs a connected client")
		}
		repo, err := repository.NewMongoRepo(ctx, mc.Database(cfg.MongoDB.Database))
		if err != nil {
			return nil, err
		}
		s.mongo, s.Repo = mc, repo

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	return s, nil
}

// Ping checks the backing connection.
func (s *Store) Ping(ctx context.Context) error {
	switch {
	case s.sqlDB != nil:
		return s.sqlDB.PingContext(ctx)
	case s.mongo != nil:
		return s.mongo.Ping(ctx, nil)
	}
	return nil
}

// Close releases SQL connections; a shared mongo client is closed by its owner.
func (s *Store) Close() error {
	if s.sqlDB != nil {
		return s.sqlDB.Close()
	}
	return nil
}

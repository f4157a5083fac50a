package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/gogotex/gogotex/backend/docservice/internal/document"
)

// Dialect captures the differences between the relational backends.
type Dialect struct {
	Name string
	// Numbered switches "?" placeholders to "$1, $2, ..." form.
	Numbered bool
	// LockClause is appended to the row lock query.
	LockClause string
}

var (
	// Postgres locks the document row with SELECT ... FOR UPDATE.
	Postgres = Dialect{Name: "postgres", Numbered: true, LockClause: " FOR UPDATE"}
	// SQLite has no row locks; a single connection serializes transactions.
	SQLite = Dialect{Name: "sqlite"}
)

func (d Dialect) rebind(q string) string {
	if !d.Numbered {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const (
	documentColumns = "id, title, content, type, user_id, status, access, current_version, created_at, updated_at"
	versionColumns  = "id, document_id, version_number, title, content, type, modified_by, change_description, created_at"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

// SQLRepo stores documents in the "documents" and "document_versions" tables.
type SQLRepo struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLRepo wraps an open database whose schema has been migrated.
func NewSQLRepo(db *sql.DB, dialect Dialect) *SQLRepo {
	return &SQLRepo{db: db, dialect: dialect}
}

func (r *SQLRepo) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&sqlTx{q: tx, dialect: r.dialect}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *SQLRepo) FindDocument(ctx context.Context, id string) (*document.Document, error) {
	q := r.dialect.rebind("SELECT " + documentColumns + " FROM documents WHERE id = ?")
	d, err := scanDocument(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, mapError(err, document.ErrNotFound)
	}
	return d, nil
}

func (r *SQLRepo) ListDocuments(ctx context.Context, userID string) ([]*document.Document, error) {
	q := r.dialect.rebind("SELECT " + documentColumns + " FROM documents WHERE user_id = ? ORDER BY updated_at DESC")
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var docs []*document.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (r *SQLRepo) FindVersion(ctx context.Context, documentID string, number int) (*document.Version, error) {
	return findSQLVersion(ctx, r.db, r.dialect, documentID, number)
}

func (r *SQLRepo) ListVersions(ctx context.Context, documentID string, filter VersionFilter) ([]*document.Version, int, error) {
	where := " WHERE document_id = ?"
	args := []any{documentID}
	if filter.ModifiedBy != "" {
		where += " AND modified_by = ?"
		args = append(args, filter.ModifiedBy)
	}

	var total int
	countSQL := r.dialect.rebind("SELECT COUNT(*) FROM document_versions" + where)
	if err := r.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count versions: %w", err)
	}

	pageSQL := "SELECT " + versionColumns + " FROM document_versions" + where + " ORDER BY version_number DESC"
	pageArgs := append([]any{}, args...)
	if filter.Limit > 0 {
		pageSQL += " LIMIT ? OFFSET ?"
		pageArgs = append(pageArgs, filter.Limit, filter.Offset)
	} else if filter.Offset > 0 {
		// SQLite needs a LIMIT before OFFSET; -1 means unbounded there and
		// Postgres accepts LIMIT ALL.
		if r.dialect.Numbered {
			pageSQL += " LIMIT ALL OFFSET ?"
		} else {
			pageSQL += " LIMIT -1 OFFSET ?"
		}
		pageArgs = append(pageArgs, filter.Offset)
	}
	versions, err := queryVersions(ctx, r.db, r.dialect.rebind(pageSQL), pageArgs...)
	if err != nil {
		return nil, 0, err
	}
	return versions, total, nil
}

func (r *SQLRepo) ExcessVersions(ctx context.Context, documentID string, keep int) ([]*document.Version, error) {
	var count int
	countSQL := r.dialect.rebind("SELECT COUNT(*) FROM document_versions WHERE document_id = ?")
	if err := r.db.QueryRowContext(ctx, countSQL, documentID).Scan(&count); err != nil {
		return nil, fmt.Errorf("count versions: %w", err)
	}
	if count <= keep {
		return nil, nil
	}
	q := r.dialect.rebind("SELECT " + versionColumns + " FROM document_versions WHERE document_id = ? ORDER BY version_number ASC LIMIT ?")
	return queryVersions(ctx, r.db, q, documentID, count-keep)
}

func (r *SQLRepo) DeleteVersionsThrough(ctx context.Context, documentID string, number int) (int, error) {
	q := r.dialect.rebind("DELETE FROM document_versions WHERE document_id = ? AND version_number <= ?")
	res, err := r.db.ExecContext(ctx, q, documentID, number)
	if err != nil {
		return 0, fmt.Errorf("delete versions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

type sqlTx struct {
	q       querier
	dialect Dialect
}

func (t *sqlTx) LockDocument(ctx context.Context, id string) (*document.Document, error) {
	q := t.dialect.rebind("SELECT " + documentColumns + " FROM documents WHERE id = ?" + t.dialect.LockClause)
	d, err := scanDocument(t.q.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, mapError(err, document.ErrNotFound)
	}
	return d, nil
}

func (t *sqlTx) InsertDocument(ctx context.Context, d *document.Document) error {
	q := t.dialect.rebind("INSERT INTO documents (" + documentColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
	_, err := t.q.ExecContext(ctx, q,
		d.ID, d.Title, nullString(d.Content), d.Type, d.UserID, string(d.Status), string(d.Access),
		d.CurrentVersion, d.CreatedAt.UTC(), d.UpdatedAt.UTC())
	if err != nil {
		return mapError(err, document.ErrNotFound)
	}
	return nil
}

func (t *sqlTx) UpdateDocument(ctx context.Context, d *document.Document) error {
	q := t.dialect.rebind(`UPDATE documents
		SET title = ?, content = ?, type = ?, status = ?, access = ?, current_version = ?, updated_at = ?
		WHERE id = ?`)
	res, err := t.q.ExecContext(ctx, q,
		d.Title, nullString(d.Content), d.Type, string(d.Status), string(d.Access),
		d.CurrentVersion, d.UpdatedAt.UTC(), d.ID)
	if err != nil {
		return mapError(err, document.ErrNotFound)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return document.ErrNotFound
	}
	return nil
}

func (t *sqlTx) DeleteDocument(ctx context.Context, id string) error {
	if _, err := t.q.ExecContext(ctx, t.dialect.rebind("DELETE FROM document_versions WHERE document_id = ?"), id); err != nil {
		return fmt.Errorf("delete versions: %w", err)
	}
	res, err := t.q.ExecContext(ctx, t.dialect.rebind("DELETE FROM documents WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return document.ErrNotFound
	}
	return nil
}

func (t *sqlTx) InsertVersion(ctx context.Context, v *document.Version) error {
	q := t.dialect.rebind("INSERT INTO document_versions (" + versionColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)")
	_, err := t.q.ExecContext(ctx, q,
		v.ID, v.DocumentID, v.VersionNumber, v.Title, nullString(v.Content), v.Type,
		v.ModifiedBy, nullString(v.ChangeDescription), v.CreatedAt.UTC())
	if err != nil {
		return mapError(err, document.ErrNotFound)
	}
	return nil
}

func (t *sqlTx) FindVersion(ctx context.Context, documentID string, number int) (*document.Version, error) {
	return findSQLVersion(ctx, t.q, t.dialect, documentID, number)
}

func findSQLVersion(ctx context.Context, q querier, dialect Dialect, documentID string, number int) (*document.Version, error) {
	query := dialect.rebind("SELECT " + versionColumns + " FROM document_versions WHERE document_id = ? AND version_number = ?")
	v, err := scanVersion(q.QueryRowContext(ctx, query, documentID, number))
	if err != nil {
		return nil, mapError(err, document.ErrVersionNotFound)
	}
	return v, nil
}

func queryVersions(ctx context.Context, q querier, query string, args ...any) ([]*document.Version, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query versions: %w", err)
	}
	defer rows.Close()

	var versions []*document.Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

func scanDocument(s scanner) (*document.Document, error) {
	var (
		d       document.Document
		content sql.NullString
		status  string
		access  string
	)
	err := s.Scan(&d.ID, &d.Title, &content, &d.Type, &d.UserID, &status, &access,
		&d.CurrentVersion, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	d.Content = content.String
	d.Status = document.Status(status)
	d.Access = document.Access(access)
	return &d, nil
}

func scanVersion(s scanner) (*document.Version, error) {
	var (
		v           document.Version
		content     sql.NullString
		description sql.NullString
		createdAt   time.Time
	)
	err := s.Scan(&v.ID, &v.DocumentID, &v.VersionNumber, &v.Title, &content, &v.Type,
		&v.ModifiedBy, &description, &createdAt)
	if err != nil {
		return nil, err
	}
	v.Content = content.String
	v.ChangeDescription = description.String
	v.CreatedAt = createdAt
	return &v, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// mapError turns backend "no rows" into notFound and unique violations into ErrConflict.
func mapError(err, notFound error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%s: %w", pgErr.ConstraintName, document.ErrConflict)
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) && liteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(liteErr.Error(), "UNIQUE") {
		return fmt.Errorf("%s: %w", liteErr.Error(), document.ErrConflict)
	}
	return err
}

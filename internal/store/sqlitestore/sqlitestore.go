// Package sqlitestore is a concrete, production-shaped implementation of
// store.Port, adapted from the schema-versioning and open-schema-JSON-column
// mechanics of the teacher's internal/persistence/store.go. The spec places
// the real document-store driver (Firestore or similar) outside the core as
// an external collaborator; this backend exists so the Port interface has
// at least one non-test implementation to prove out, and so deployments
// without a cloud document store still have something durable to run
// against.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kickai/kickai/internal/kerrors"
	"github.com/kickai/kickai/internal/store"
)

const (
	schemaVersion  = 1
	schemaChecksum = "kickai-store-v1"
)

// Store is a SQLite-backed store.Port: one row per document, keyed by
// (collection, id), with the document body serialized as a JSON blob so
// unknown keys round-trip untouched (§9).
type Store struct {
	db *sql.DB
}

var _ store.Port = (*Store)(nil)

// Open creates or migrates the schema at path and returns a ready Store.
// path may be ":memory:" for ephemeral use in tests that want to exercise
// the real SQL code path rather than memstore's map-backed fake.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal=WAL&_timeout=5000&_fk=true")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w: %w", err, kerrors.ErrStoreUnavailable)
	}
	s := &Store{db: db}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_ledger (
			version INTEGER NOT NULL,
			checksum TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS documents (
			coll TEXT NOT NULL,
			id TEXT NOT NULL,
			body TEXT NOT NULL,
			PRIMARY KEY (coll, id)
		);
		CREATE INDEX IF NOT EXISTS idx_documents_coll ON documents(coll);
	`)
	if err != nil {
		return fmt.Errorf("migrate schema: %w: %w", err, kerrors.ErrStoreUnavailable)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_ledger`).Scan(&count); err != nil {
		return fmt.Errorf("read schema ledger: %w: %w", err, kerrors.ErrStoreUnavailable)
	}
	if count == 0 {
		if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_ledger(version, checksum) VALUES (?, ?)`, schemaVersion, schemaChecksum); err != nil {
			return fmt.Errorf("write schema ledger: %w: %w", err, kerrors.ErrStoreUnavailable)
		}
	}
	return nil
}

func (s *Store) CreateDocument(ctx context.Context, coll string, data store.Document, id string) (string, error) {
	if id == "" {
		id = newID()
	}
	doc := data.Clone()
	doc["id"] = id
	body, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO documents(coll, id, body) VALUES (?, ?, ?)`, coll, id, string(body))
	if err != nil {
		return "", fmt.Errorf("document %s/%s already exists: %w", coll, id, kerrors.ErrConstraintViolation)
	}
	return id, nil
}

func (s *Store) GetDocument(ctx context.Context, coll, id string) (store.Document, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM documents WHERE coll = ? AND id = ?`, coll, id).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("document %s/%s: %w", coll, id, kerrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w: %w", err, kerrors.ErrStoreUnavailable)
	}
	var doc store.Document
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

func (s *Store) UpdateDocument(ctx context.Context, coll, id string, patch store.Document) error {
	existing, err := s.GetDocument(ctx, coll, id)
	if err != nil {
		return err
	}
	merged := existing.Clone()
	for k, v := range patch {
		merged[k] = v
	}
	merged["id"] = id
	body, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE documents SET body = ? WHERE coll = ? AND id = ?`, string(body), coll, id)
	if err != nil {
		return fmt.Errorf("update document: %w: %w", err, kerrors.ErrStoreUnavailable)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("document %s/%s: %w", coll, id, kerrors.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteDocument(ctx context.Context, coll, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE coll = ? AND id = ?`, coll, id)
	if err != nil {
		return fmt.Errorf("delete document: %w: %w", err, kerrors.ErrStoreUnavailable)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("document %s/%s: %w", coll, id, kerrors.ErrNotFound)
	}
	return nil
}

func (s *Store) QueryDocuments(ctx context.Context, coll string, filters []store.Filter, opts store.QueryOptions) ([]store.Document, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT body FROM documents WHERE coll = ?`, coll)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w: %w", err, kerrors.ErrStoreUnavailable)
	}
	defer rows.Close()

	var out []store.Document
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		var doc store.Document
		if err := json.Unmarshal([]byte(body), &doc); err != nil {
			return nil, fmt.Errorf("decode document: %w", err)
		}
		if matchesAll(doc, filters) {
			out = append(out, doc)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w: %w", err, kerrors.ErrStoreUnavailable)
	}

	if opts.OrderBy != "" {
		sort.Slice(out, func(i, j int) bool {
			return fmt.Sprint(out[i][opts.OrderBy]) < fmt.Sprint(out[j][opts.OrderBy])
		})
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT coll FROM documents ORDER BY coll`)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w: %w", err, kerrors.ErrStoreUnavailable)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w: %w", err, kerrors.ErrStoreUnavailable)
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

func matchesAll(doc store.Document, filters []store.Filter) bool {
	for _, f := range filters {
		if !matchOne(doc[f.Field], f) {
			return false
		}
	}
	return true
}

func matchOne(fieldVal interface{}, f store.Filter) bool {
	switch f.Operator {
	case store.OpEqual, "":
		return fieldVal != nil && fmt.Sprint(fieldVal) == fmt.Sprint(f.Value)
	case store.OpIn:
		vals, ok := f.Value.([]interface{})
		if !ok {
			return false
		}
		for _, v := range vals {
			if fmt.Sprint(v) == fmt.Sprint(fieldVal) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

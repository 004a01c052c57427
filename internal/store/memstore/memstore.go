// Package memstore is the in-memory Store Port variant used by tests and by
// the in-process Mock UI (§4.A: "in-memory variant for tests").
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/kickai/kickai/internal/kerrors"
	"github.com/kickai/kickai/internal/store"
)

// Store is a goroutine-safe, in-memory implementation of store.Port.
type Store struct {
	mu   sync.RWMutex
	data map[string]map[string]store.Document // coll -> id -> document
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{data: make(map[string]map[string]store.Document)}
}

var _ store.Port = (*Store)(nil)

func (s *Store) CreateDocument(_ context.Context, coll string, data store.Document, id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == "" {
		id = uuid.NewString()
	}
	coll2 := s.collLocked(coll)
	if _, exists := coll2[id]; exists {
		return "", fmt.Errorf("document %s/%s already exists: %w", coll, id, kerrors.ErrConstraintViolation)
	}

	doc := data.Clone()
	doc["id"] = id
	coll2[id] = doc
	return id, nil
}

func (s *Store) GetDocument(_ context.Context, coll, id string) (store.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.data[coll]
	if !ok {
		return nil, fmt.Errorf("collection %s: %w", coll, kerrors.ErrNotFound)
	}
	doc, ok := c[id]
	if !ok {
		return nil, fmt.Errorf("document %s/%s: %w", coll, id, kerrors.ErrNotFound)
	}
	return doc.Clone(), nil
}

func (s *Store) UpdateDocument(_ context.Context, coll, id string, patch store.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.data[coll]
	if !ok {
		return fmt.Errorf("collection %s: %w", coll, kerrors.ErrNotFound)
	}
	existing, ok := c[id]
	if !ok {
		return fmt.Errorf("document %s/%s: %w", coll, id, kerrors.ErrNotFound)
	}
	merged := existing.Clone()
	for k, v := range patch {
		merged[k] = v
	}
	merged["id"] = id
	c[id] = merged
	return nil
}

func (s *Store) DeleteDocument(_ context.Context, coll, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.data[coll]
	if !ok {
		return fmt.Errorf("collection %s: %w", coll, kerrors.ErrNotFound)
	}
	if _, ok := c[id]; !ok {
		return fmt.Errorf("document %s/%s: %w", coll, id, kerrors.ErrNotFound)
	}
	delete(c, id)
	return nil
}

func (s *Store) QueryDocuments(_ context.Context, coll string, filters []store.Filter, opts store.QueryOptions) ([]store.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []store.Document
	for _, doc := range s.data[coll] {
		if matchesAll(doc, filters) {
			out = append(out, doc.Clone())
		}
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

func (s *Store) ListCollections(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.data))
	for name := range s.data {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// collLocked returns (creating if necessary) the map for coll. Caller must
// hold s.mu for writing.
func (s *Store) collLocked(coll string) map[string]store.Document {
	c, ok := s.data[coll]
	if !ok {
		c = make(map[string]store.Document)
		s.data[coll] = c
	}
	return c
}

func matchesAll(doc store.Document, filters []store.Filter) bool {
	for _, f := range filters {
		if !matches(doc[f.Field], f) {
			return false
		}
	}
	return true
}

func matches(fieldVal interface{}, f store.Filter) bool {
	switch f.Operator {
	case store.OpEqual, "":
		return fmt.Sprint(fieldVal) == fmt.Sprint(f.Value) && fieldVal != nil
	case store.OpLess:
		lf, lok := toFloat(fieldVal)
		rf, rok := toFloat(f.Value)
		return lok && rok && lf < rf
	case store.OpGreater:
		lf, lok := toFloat(fieldVal)
		rf, rok := toFloat(f.Value)
		return lok && rok && lf > rf
	case store.OpRange:
		bounds, ok := f.Value.([2]interface{})
		if !ok {
			return false
		}
		v, vok := toFloat(fieldVal)
		lo, lok := toFloat(bounds[0])
		hi, hok := toFloat(bounds[1])
		return vok && lok && hok && v >= lo && v <= hi
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

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}

// Package store defines the document-store abstraction (§4.A) that every
// other core subsystem reads and writes through. Collections are team-scoped
// by name except kickai_teams, which is global.
package store

import (
	"context"
	"fmt"
)

// Global collection names.
const (
	CollTeams        = "kickai_teams"
	CollInviteLinks  = "kickai_invite_links" // legacy, unscoped — tolerated during rollover
	CollTestMarkers  = "kickai_test_markers"
)

// Team-scoped collection suffixes, combined via TeamCollection.
const (
	EntityPlayers        = "players"
	EntityTeamMembers    = "team_members"
	EntityInviteLinks    = "invite_links"
	EntityActivationLogs = "activation_logs"
)

// TeamCollection returns the team-scoped collection name
// "kickai_{team_id}_{entity}" per §6.
func TeamCollection(teamID, entity string) string {
	return fmt.Sprintf("kickai_%s_%s", teamID, entity)
}

// Document is an open-schema document: typed core fields live alongside
// whatever extension keys a caller wrote. "id" is always present once
// returned from the store and is never treated as an unknown key to
// preserve on update (§9: "never drop unknown keys on update").
type Document map[string]interface{}

// ID returns the document's id, or "" if absent.
func (d Document) ID() string {
	v, _ := d["id"].(string)
	return v
}

// Clone returns a shallow copy safe to mutate without affecting the store's
// internal state (relevant for in-memory implementations).
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Operator is a filter comparison operator.
type Operator string

const (
	OpEqual    Operator = "=="
	OpLess     Operator = "<"
	OpGreater  Operator = ">"
	OpRange    Operator = "range" // Value is [2]interface{}{low, high}, inclusive.
	OpIn       Operator = "in"    // Value is a slice; membership test.
)

// Filter is a single (field, operator, value) predicate. Filters passed to
// QueryDocuments are conjoined (AND semantics) per §4.A.
type Filter struct {
	Field    string
	Operator Operator
	Value    interface{}
}

// Eq is a convenience constructor for the common equality filter.
func Eq(field string, value interface{}) Filter {
	return Filter{Field: field, Operator: OpEqual, Value: value}
}

// QueryOptions controls pagination and ordering for QueryDocuments.
type QueryOptions struct {
	Limit   int
	OrderBy string // Field name; empty means "no ordering guaranteed".
}

// Port is the abstract document-store contract. Implementations: memstore
// (in-memory, for tests) and sqlitestore (a concrete production-shaped
// backend). A real deployment's Firestore-equivalent driver sits outside
// the core (§1) but must satisfy this same interface.
//
// Failure modes are reported as errors wrapping kerrors.ErrStoreUnavailable,
// kerrors.ErrNotFound, or kerrors.ErrConstraintViolation — never swallowed.
type Port interface {
	// CreateDocument inserts data into coll, assigning id if empty, and
	// returns the assigned id.
	CreateDocument(ctx context.Context, coll string, data Document, id string) (string, error)

	// GetDocument returns the document with the given id, or an error
	// wrapping kerrors.ErrNotFound if absent.
	GetDocument(ctx context.Context, coll, id string) (Document, error)

	// UpdateDocument merges patch into the existing document, preserving
	// unmentioned keys. Returns an error wrapping kerrors.ErrNotFound if the
	// document does not exist.
	UpdateDocument(ctx context.Context, coll, id string, patch Document) error

	// DeleteDocument removes the document with the given id. Returns an
	// error wrapping kerrors.ErrNotFound if absent.
	DeleteDocument(ctx context.Context, coll, id string) error

	// QueryDocuments returns documents in coll matching the conjunction of
	// filters. Implementations that cannot honor opts.OrderBy must return an
	// error rather than silently reordering (§4.A).
	QueryDocuments(ctx context.Context, coll string, filters []Filter, opts QueryOptions) ([]Document, error)

	// ListCollections enumerates known collection names.
	ListCollections(ctx context.Context) ([]string, error)

	// Ping verifies connectivity; used by the store health checker (§4.E).
	Ping(ctx context.Context) error

	// Close releases underlying resources.
	Close() error
}

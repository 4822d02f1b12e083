// Package docstore provides the generic document store the portal core is
// built on: schemaless collections with one-shot queries, server-assigned
// timestamps, and live, cancellable change subscriptions.
package docstore

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("docstore: document not found")

	// ErrPreconditionFailed is returned when the store cannot answer a
	// query until an operator-side remediation happens (e.g. a missing
	// composite index). Callers must be able to tell it apart from
	// generic I/O failure.
	ErrPreconditionFailed = errors.New("docstore: query precondition failed")
)

// serverTimestamp is the sentinel type behind ServerTimestamp.
type serverTimestamp struct{}

// ServerTimestamp marks a field to be filled with the store's own clock
// at write time.
var ServerTimestamp = serverTimestamp{}

// Op is a filter comparison operator.
type Op string

const (
	OpEqual          Op = "=="
	OpGreaterOrEqual Op = ">="
	OpLessOrEqual    Op = "<="
)

// Filter restricts a query to documents whose field matches the value.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Eq builds an equality filter.
func Eq(field string, value any) Filter {
	return Filter{Field: field, Op: OpEqual, Value: value}
}

// OrderBy names a field to sort query results on.
type OrderBy struct {
	Field string
	Desc  bool
}

// Document is a single record in a collection.
type Document struct {
	ID         string
	Collection string
	Fields     map[string]any
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ChangeKind discriminates subscription diffs.
type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
)

// Change is one snapshot diff delivered on a subscription.
type Change struct {
	Kind ChangeKind
	Doc  Document
}

// Subscription is a live, cancellable sequence of change diffs.
// Close stops delivery and releases all associated resources; it is
// safe to call more than once and must be called on every exit path.
type Subscription interface {
	Changes() <-chan Change
	Close()
}

// Store is the document store collaborator consumed by the portal core.
// Implementations must return ErrNotFound and ErrPreconditionFailed
// (possibly wrapped) for the corresponding conditions.
type Store interface {
	Query(ctx context.Context, collection string, filters []Filter, orderBy []OrderBy, limit int) ([]Document, error)
	Get(ctx context.Context, collection, id string) (Document, error)
	Put(ctx context.Context, collection, id string, fields map[string]any) (Document, error)
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	Subscribe(ctx context.Context, collection string, filters []Filter, orderBy []OrderBy) (Subscription, error)
}

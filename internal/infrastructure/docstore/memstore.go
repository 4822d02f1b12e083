package docstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemStore is an in-memory Store with the same observable semantics as
// the Postgres implementation. It backs local development
// (STORE_DRIVER=memory) and the test suites of everything layered on
// the store.
type MemStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]Document
	hub         *changeHub
	now         func() time.Time

	failures map[string]error
}

// NewMemStore builds an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		collections: make(map[string]map[string]Document),
		hub:         newChangeHub(64),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// FailCollection makes every subsequent query against the collection
// return err, simulating a degraded source. Passing nil clears it.
func (s *MemStore) FailCollection(collection string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures == nil {
		s.failures = make(map[string]error)
	}
	if err == nil {
		delete(s.failures, collection)
		return
	}
	s.failures[collection] = err
}

// SetClock overrides the store clock, for deterministic timestamps in tests.
func (s *MemStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Query returns matching documents, ordered and limited.
func (s *MemStore) Query(ctx context.Context, collection string, filters []Filter, orderBy []OrderBy, limit int) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.failures[collection]; err != nil {
		return nil, err
	}

	var out []Document
	for _, doc := range s.collections[collection] {
		if matches(doc, filters) {
			out = append(out, cloneDoc(doc))
		}
	}
	sortDocs(out, orderBy)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Get fetches one document by id.
func (s *MemStore) Get(ctx context.Context, collection, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.collections[collection][id]
	if !ok {
		return Document{}, fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	return cloneDoc(doc), nil
}

// Put creates a document, generating an id when none is given.
func (s *MemStore) Put(ctx context.Context, collection, id string, fields map[string]any) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	s.mu.Lock()
	if id == "" {
		id = uuid.NewString()
	}
	now := s.now()
	doc := Document{
		ID:         id,
		Collection: collection,
		Fields:     resolveTimestamps(fields, now),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]Document)
	}
	s.collections[collection][id] = doc
	s.mu.Unlock()

	s.hub.publish(Change{Kind: ChangeCreated, Doc: cloneDoc(doc)})
	return cloneDoc(doc), nil
}

// Update merges fields into an existing document.
func (s *MemStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	doc, ok := s.collections[collection][id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	now := s.now()
	merged := cloneDoc(doc)
	for k, v := range resolveTimestamps(fields, now) {
		merged.Fields[k] = v
	}
	merged.UpdatedAt = now
	s.collections[collection][id] = merged
	s.mu.Unlock()

	s.hub.publish(Change{Kind: ChangeUpdated, Doc: cloneDoc(merged)})
	return nil
}

// Subscribe opens a live change subscription scoped by the filters.
func (s *MemStore) Subscribe(ctx context.Context, collection string, filters []Filter, _ []OrderBy) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.hub.subscribe(ctx, collection, filters), nil
}

// Close tears down all open subscriptions.
func (s *MemStore) Close() {
	s.hub.closeAll()
}

func cloneDoc(doc Document) Document {
	fields := make(map[string]any, len(doc.Fields))
	for k, v := range doc.Fields {
		fields[k] = v
	}
	doc.Fields = fields
	return doc
}

// resolveTimestamps replaces ServerTimestamp markers with the store clock.
func resolveTimestamps(fields map[string]any, now time.Time) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if _, ok := v.(serverTimestamp); ok {
			out[k] = now
			continue
		}
		out[k] = v
	}
	return out
}

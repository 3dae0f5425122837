// Package store implements the entity store used by every engine: a generic
// document collection with a synchronous local cache write followed by a
// best-effort remote write. The local mirror is what makes callers optimistic;
// the remote store is the eventual source of truth.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/routecash/routecash/internal/shared"
)

// SyncStatus tracks whether a locally written document reached the remote store.
type SyncStatus string

const (
	// SyncSynced means the remote write is confirmed.
	SyncSynced SyncStatus = "synced"
	// SyncPending means the remote write has not yet succeeded.
	SyncPending SyncStatus = "pending"
	// SyncFailed means the last explicit retry failed; terminal until the next retry.
	SyncFailed SyncStatus = "failed"
)

// Envelope wraps a cached document with its sync metadata. The sync status is
// deliberately separate from any business status field inside Doc.
type Envelope struct {
	Collection string          `json:"collection"`
	ID         string          `json:"id"`
	Doc        json.RawMessage `json:"doc"`
	SyncStatus SyncStatus      `json:"syncStatus"`
	Deleted    bool            `json:"deleted,omitempty"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// Remote is the remote document store collaborator.
type Remote interface {
	Put(ctx context.Context, collection, id string, doc []byte) error
	Delete(ctx context.Context, collection, id string) error
	Get(ctx context.Context, collection, id string) ([]byte, error)
	QueryWhere(ctx context.Context, collection, field, op, value string) ([][]byte, error)
}

// Local is the durable local cache collaborator. Writes are synchronous.
type Local interface {
	Set(ctx context.Context, env Envelope) error
	Get(ctx context.Context, collection, id string) (*Envelope, error)
	Delete(ctx context.Context, collection, id string) error
	List(ctx context.Context, collection string) ([]Envelope, error)
	Unsynced(ctx context.Context) ([]Envelope, error)
}

var queryOps = map[string]struct{}{
	"==": {}, "!=": {}, ">": {}, ">=": {}, "<": {}, "<=": {},
}

// DocumentStore combines the local cache and the remote store into the
// write-local-then-sync-remote primitive every repository builds on.
type DocumentStore struct {
	remote Remote
	local  Local
	logger *slog.Logger
	now    func() time.Time
}

// New constructs a DocumentStore.
func New(remote Remote, local Local, logger *slog.Logger) *DocumentStore {
	return &DocumentStore{remote: remote, local: local, logger: logger, now: time.Now}
}

// Create writes a new document. The local write is synchronous; the remote
// write is best-effort and a failure leaves the document pending.
func (s *DocumentStore) Create(ctx context.Context, collection, id string, doc any) error {
	return s.put(ctx, collection, id, doc)
}

// Update overwrites an existing document with the same local-first semantics.
func (s *DocumentStore) Update(ctx context.Context, collection, id string, doc any) error {
	return s.put(ctx, collection, id, doc)
}

func (s *DocumentStore) put(ctx context.Context, collection, id string, doc any) error {
	if collection == "" || id == "" {
		return fmt.Errorf("%w: collection and id required", shared.ErrValidation)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("store: marshal %s/%s: %w", collection, id, err)
	}
	env := Envelope{
		Collection: collection,
		ID:         id,
		Doc:        data,
		SyncStatus: SyncPending,
		UpdatedAt:  s.now(),
	}
	if err := s.local.Set(ctx, env); err != nil {
		return fmt.Errorf("store: local write %s/%s: %w", collection, id, err)
	}
	if err := s.remote.Put(ctx, collection, id, data); err != nil {
		s.logger.Warn("remote sync failed, document left pending",
			slog.String("collection", collection),
			slog.String("id", id),
			slog.Any("error", err))
		return nil
	}
	env.SyncStatus = SyncSynced
	if err := s.local.Set(ctx, env); err != nil {
		s.logger.Warn("mark synced failed", slog.String("id", id), slog.Any("error", err))
	}
	return nil
}

// Delete removes a document. A failed remote delete leaves a pending tombstone
// that Reconcile will retry.
func (s *DocumentStore) Delete(ctx context.Context, collection, id string) error {
	env := Envelope{
		Collection: collection,
		ID:         id,
		SyncStatus: SyncPending,
		Deleted:    true,
		UpdatedAt:  s.now(),
	}
	if err := s.local.Set(ctx, env); err != nil {
		return fmt.Errorf("store: local delete %s/%s: %w", collection, id, err)
	}
	if err := s.remote.Delete(ctx, collection, id); err != nil {
		s.logger.Warn("remote delete failed, tombstone left pending",
			slog.String("collection", collection),
			slog.String("id", id),
			slog.Any("error", err))
		return nil
	}
	return s.local.Delete(ctx, collection, id)
}

// Get reads a document, preferring the local mirror when it holds an unsynced
// write, then the remote store, then the mirror as offline fallback.
func (s *DocumentStore) Get(ctx context.Context, collection, id string, out any) error {
	if env, err := s.local.Get(ctx, collection, id); err == nil && env != nil && env.SyncStatus != SyncSynced {
		if env.Deleted {
			return fmt.Errorf("store: %s/%s: %w", collection, id, shared.ErrNotFound)
		}
		return json.Unmarshal(env.Doc, out)
	}
	data, err := s.remote.Get(ctx, collection, id)
	if err == nil {
		return json.Unmarshal(data, out)
	}
	if errors.Is(err, shared.ErrNotFound) {
		return fmt.Errorf("store: %s/%s: %w", collection, id, shared.ErrNotFound)
	}
	s.logger.Warn("remote read failed, falling back to local cache",
		slog.String("collection", collection),
		slog.String("id", id),
		slog.Any("error", err))
	env, lerr := s.local.Get(ctx, collection, id)
	if lerr != nil || env == nil || env.Deleted {
		return fmt.Errorf("store: %s/%s: %w", collection, id, shared.ErrNotFound)
	}
	return json.Unmarshal(env.Doc, out)
}

// QueryWhere returns the raw documents of a collection matching field op value.
// Remote results are overlaid with local unsynced writes so a caller always
// sees its own recent mutations.
func (s *DocumentStore) QueryWhere(ctx context.Context, collection, field, op, value string) ([]json.RawMessage, error) {
	if _, ok := queryOps[op]; !ok {
		return nil, fmt.Errorf("%w: unsupported query operator %q", shared.ErrValidation, op)
	}
	var docs []json.RawMessage
	remoteDocs, err := s.remote.QueryWhere(ctx, collection, field, op, value)
	if err != nil {
		s.logger.Warn("remote query failed, falling back to local cache",
			slog.String("collection", collection),
			slog.Any("error", err))
		envs, lerr := s.local.List(ctx, collection)
		if lerr != nil {
			return nil, fmt.Errorf("store: query %s: %w", collection, shared.ErrSyncFailure)
		}
		for _, env := range envs {
			if env.Deleted {
				continue
			}
			if matchDoc(env.Doc, field, op, value) {
				docs = append(docs, env.Doc)
			}
		}
		return docs, nil
	}
	for _, d := range remoteDocs {
		docs = append(docs, json.RawMessage(d))
	}
	return s.overlayUnsynced(ctx, collection, field, op, value, docs)
}

// overlayUnsynced replaces or adds documents whose latest local write has not
// reached the remote store yet.
func (s *DocumentStore) overlayUnsynced(ctx context.Context, collection, field, op, value string, docs []json.RawMessage) ([]json.RawMessage, error) {
	unsynced, err := s.local.Unsynced(ctx)
	if err != nil {
		s.logger.Warn("list unsynced failed", slog.Any("error", err))
		return docs, nil
	}
	byID := make(map[string]int, len(docs))
	for i, d := range docs {
		byID[docID(d)] = i
	}
	for _, env := range unsynced {
		if env.Collection != collection {
			continue
		}
		idx, present := byID[env.ID]
		switch {
		case env.Deleted:
			if present {
				docs = append(docs[:idx], docs[idx+1:]...)
				byID = rebuildIndex(docs)
			}
		case matchDoc(env.Doc, field, op, value):
			if present {
				docs[idx] = env.Doc
			} else {
				docs = append(docs, env.Doc)
				byID[env.ID] = len(docs) - 1
			}
		default:
			if present {
				docs = append(docs[:idx], docs[idx+1:]...)
				byID = rebuildIndex(docs)
			}
		}
	}
	return docs, nil
}

// Reconcile retries every pending or failed local write against the remote
// store. Returns how many documents were synced and how many remain unsynced.
func (s *DocumentStore) Reconcile(ctx context.Context) (synced, remaining int, err error) {
	unsynced, err := s.local.Unsynced(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("store: list unsynced: %w", err)
	}
	for _, env := range unsynced {
		var werr error
		if env.Deleted {
			werr = s.remote.Delete(ctx, env.Collection, env.ID)
		} else {
			werr = s.remote.Put(ctx, env.Collection, env.ID, env.Doc)
		}
		if werr != nil {
			env.SyncStatus = SyncFailed
			if serr := s.local.Set(ctx, env); serr != nil {
				s.logger.Warn("mark failed", slog.String("id", env.ID), slog.Any("error", serr))
			}
			remaining++
			continue
		}
		if env.Deleted {
			if derr := s.local.Delete(ctx, env.Collection, env.ID); derr != nil {
				s.logger.Warn("drop tombstone", slog.String("id", env.ID), slog.Any("error", derr))
			}
		} else {
			env.SyncStatus = SyncSynced
			if serr := s.local.Set(ctx, env); serr != nil {
				s.logger.Warn("mark synced", slog.String("id", env.ID), slog.Any("error", serr))
			}
		}
		synced++
	}
	return synced, remaining, nil
}

func docID(doc json.RawMessage) string {
	var probe struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(doc, &probe)
	return probe.ID
}

func rebuildIndex(docs []json.RawMessage) map[string]int {
	byID := make(map[string]int, len(docs))
	for i, d := range docs {
		byID[docID(d)] = i
	}
	return byID
}

// matchDoc evaluates field op value against a raw document. Numeric fields
// compare numerically, everything else lexicographically.
func matchDoc(doc json.RawMessage, field, op, value string) bool {
	var fields map[string]any
	if err := json.Unmarshal(doc, &fields); err != nil {
		return false
	}
	raw, ok := fields[field]
	if !ok {
		return op == "!="
	}
	if fv, ok := raw.(float64); ok {
		if want, err := strconv.ParseFloat(value, 64); err == nil {
			return compareFloat(fv, want, op)
		}
	}
	return compareString(fmt.Sprintf("%v", raw), value, op)
}

func compareFloat(a, b float64, op string) bool {
	switch op {
	case "==":
		return a == b
	case "!=":
		return a != b
	case ">":
		return a > b
	case ">=":
		return a >= b
	case "<":
		return a < b
	case "<=":
		return a <= b
	}
	return false
}

func compareString(a, b, op string) bool {
	switch op {
	case "==":
		return a == b
	case "!=":
		return a != b
	case ">":
		return a > b
	case ">=":
		return a >= b
	case "<":
		return a < b
	case "<=":
		return a <= b
	}
	return false
}

// Package remote defines the boundary between the engine and the realtime document database.
//
// The database is a tree of JSON values addressed by slash-separated paths
// ("works/RJ01234567", "userFavorites/uid/RJ01234567"). Subscriptions deliver the
// full value at a path whenever anything at, above, or below it changes.
package remote

import (
	"context"
	"encoding/json/jsontext"
	"encoding/json/v2"
	"errors"
	"strings"
)

// Database layout.
const (
	PathWorks         = "works"
	PathAdminPicks    = "adminPicks"
	PathTags          = "tags"
	PathCategories    = "categories"
	PathContacts      = "contacts"
	PathUserFavorites = "userFavorites"
	PathUserLists     = "userLists"
	PathLists         = "lists"
	PathListItems     = "listItems"
	PathWorkOrders    = "work_orders"
)

// ErrAbort is returned by a TxnFunc to end a transaction without writing.
var ErrAbort = errors.New("transaction aborted")

// ErrTooManyRetries is returned when a transaction keeps conflicting.
var ErrTooManyRetries = errors.New("transaction retried too many times")

// ServerTimestamp is replaced by the database's clock (ms since epoch) when written.
//
//nolint:gochecknoglobals // Wire-format sentinel.
var ServerTimestamp = map[string]any{".sv": "timestamp"}

// IsServerTimestamp reports whether v is the ServerTimestamp sentinel.
func IsServerTimestamp(v any) bool {
	m, ok := v.(map[string]any)
	return ok && len(m) == 1 && m[".sv"] == "timestamp"
}

// Join builds a path from segments.
func Join(segments ...string) string {
	return strings.Join(segments, "/")
}

// Split breaks a path into its non-empty segments.
func Split(path string) []string {
	return strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
}

// Snapshot is the value at a path at one point in time.
type Snapshot struct {
	Path string
	raw  []byte // JSON; nil when nothing exists at Path
}

// NewSnapshot wraps raw JSON read at path. A nil or "null" value means absent.
func NewSnapshot(path string, raw []byte) Snapshot {
	if string(raw) == "null" {
		raw = nil
	}
	return Snapshot{Path: path, raw: raw}
}

// Key is the last path segment.
func (s Snapshot) Key() string {
	segs := Split(s.Path)
	if len(segs) == 0 {
		return ""
	}
	return segs[len(segs)-1]
}

// Exists reports whether a value is present.
func (s Snapshot) Exists() bool {
	return s.raw != nil
}

// Raw returns the JSON value, or nil when absent.
func (s Snapshot) Raw() []byte {
	return s.raw
}

// Decode unmarshals the value into v. Absent values leave v untouched.
func (s Snapshot) Decode(v any) error {
	if s.raw == nil {
		return nil
	}
	return json.Unmarshal(s.raw, v)
}

// Children decodes an object value into one raw child per key.
func (s Snapshot) Children() (map[string]Snapshot, error) {
	if s.raw == nil {
		return map[string]Snapshot{}, nil
	}
	var m map[string]jsontext.Value
	if err := json.Unmarshal(s.raw, &m); err != nil {
		return nil, err
	}
	out := make(map[string]Snapshot, len(m))
	for k, v := range m {
		out[k] = NewSnapshot(Join(s.Path, k), []byte(v))
	}
	return out, nil
}

// DecodeChildren decodes an object value into a map of T keyed by child key.
func DecodeChildren[T any](s Snapshot) (map[string]*T, error) {
	out := make(map[string]*T)
	if s.raw == nil {
		return out, nil
	}
	if err := json.Unmarshal(s.raw, &out); err != nil {
		return nil, err
	}
	for k, v := range out {
		if v == nil {
			delete(out, k)
		}
	}
	return out, nil
}

// Listener receives snapshots from a subscription.
type Listener func(Snapshot)

// Unsubscribe cancels a subscription. Calling it more than once is a no-op.
type Unsubscribe func()

// TxnFunc computes the next value from the current one. Returning nil deletes the
// path; returning ErrAbort leaves it untouched. It may run more than once.
type TxnFunc func(current Snapshot) (any, error)

// Query selects children of a collection ordered by one of their fields.
type Query struct {
	OrderByChild string
	LimitToLast  int // 0 means no limit
	LimitToFirst int
}

// Store is the remote collection store the engine talks to.
type Store interface {
	// Subscribe delivers the current value at path and then every later change.
	// Deliveries for one subscription are never concurrent.
	Subscribe(ctx context.Context, path string, fn Listener) (Unsubscribe, error)

	// Get reads the value at path once.
	Get(ctx context.Context, path string) (Snapshot, error)

	// Query reads the children of a collection ordered ascending by a child field.
	// Each result's Key is the child key.
	Query(ctx context.Context, collection string, q Query) ([]Snapshot, error)

	// RunTransaction atomically replaces the value at path with fn's result.
	// It returns the committed value.
	RunTransaction(ctx context.Context, path string, fn TxnFunc) (Snapshot, error)

	// Set writes value at path. A nil value deletes.
	Set(ctx context.Context, path string, value any) error

	// Update applies a multi-path write atomically. Nil values delete.
	Update(ctx context.Context, values map[string]any) error

	// Push appends value under collection with a generated, time-ordered key.
	Push(ctx context.Context, collection string, value any) (string, error)
}

// Remove deletes the value at path.
func Remove(ctx context.Context, s Store, path string) error {
	return s.Set(ctx, path, nil)
}

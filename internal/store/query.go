package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/dgraph-io/badger/v4"

	domainerrors "github.com/shareboard/shareboard/internal/errors"
	"github.com/shareboard/shareboard/internal/remote"
)

// Query returns the collection's children ordered ascending by q.OrderByChild,
// ties broken by key, then trimmed by the limit.
func (s *Store) Query(ctx context.Context, collection string, q remote.Query) ([]remote.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if q.LimitToFirst > 0 && q.LimitToLast > 0 {
		return nil, domainerrors.Validation("query cannot limit to both first and last")
	}
	segs, err := splitPath(collection)
	if err != nil {
		return nil, err
	}
	if len(segs) != 1 {
		return nil, domainerrors.Validationf("query target %q is not a collection", collection)
	}

	var children map[string]any
	err = s.db.View(func(txn *badger.Txn) error {
		node, err := readCollection(txn, segs[0])
		if err != nil {
			return err
		}
		children, _ = node.(map[string]any)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}

	type row struct {
		key   string
		sort  any
		value any
	}
	rows := make([]row, 0, len(children))
	orderSegs := remote.Split(q.OrderByChild)
	for key, value := range children {
		rows = append(rows, row{key: key, sort: getIn(value, orderSegs), value: value})
	}

	slices.SortFunc(rows, func(a, b row) int {
		if c := compareValues(a.sort, b.sort); c != 0 {
			return c
		}
		return cmp.Compare(a.key, b.key)
	})

	switch {
	case q.LimitToLast > 0 && len(rows) > q.LimitToLast:
		rows = rows[len(rows)-q.LimitToLast:]
	case q.LimitToFirst > 0 && len(rows) > q.LimitToFirst:
		rows = rows[:q.LimitToFirst]
	}

	out := make([]remote.Snapshot, 0, len(rows))
	for _, r := range rows {
		raw, err := encodeNode(r.value)
		if err != nil {
			return nil, err
		}
		out = append(out, remote.NewSnapshot(remote.Join(segs[0], r.key), raw))
	}
	return out, nil
}

// typeRank orders values of different kinds: missing, false, true, numbers, strings, objects.
func typeRank(v any) int {
	switch x := v.(type) {
	case nil:
		return 0
	case bool:
		if x {
			return 2
		}
		return 1
	case float64:
		return 3
	case string:
		return 4
	default:
		return 5
	}
}

func compareValues(a, b any) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		return cmp.Compare(ra, rb)
	}
	switch x := a.(type) {
	case float64:
		return cmp.Compare(x, b.(float64))
	case string:
		return cmp.Compare(x, b.(string))
	default:
		return 0
	}
}

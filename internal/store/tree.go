package store

import (
	"encoding/json/v2"
	"errors"
	"fmt"
	"maps"

	"github.com/dgraph-io/badger/v4"

	"github.com/shareboard/shareboard/internal/remote"
)

// docKey is the badger key of the document addressed by the first two segments.
func docKey(collection, doc string) []byte {
	return []byte(collection + "/" + doc)
}

func collectionPrefix(collection string) []byte {
	return []byte(collection + "/")
}

// readNode returns the decoded JSON tree at segs, or nil when absent.
func readNode(txn *badger.Txn, segs []string) (any, error) {
	if len(segs) == 1 {
		return readCollection(txn, segs[0])
	}

	doc, err := readDoc(txn, segs[0], segs[1])
	if err != nil {
		return nil, err
	}
	return getIn(doc, segs[2:]), nil
}

func readDoc(txn *badger.Txn, collection, doc string) (any, error) {
	item, err := txn.Get(docKey(collection, doc))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key: %w", err)
	}

	var node any
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &node)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	return node, nil
}

func readCollection(txn *badger.Txn, collection string) (any, error) {
	prefix := collectionPrefix(collection)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	out := make(map[string]any)
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		key := string(item.Key()[len(prefix):])

		var node any
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &node)
		}); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", item.Key(), err)
		}
		out[key] = node
	}

	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// writeNode replaces the tree at segs with value (nil deletes) inside txn.
func writeNode(txn *badger.Txn, segs []string, value any) error {
	switch len(segs) {
	case 1:
		return writeCollection(txn, segs[0], value)
	case 2:
		return putDoc(txn, segs[0], segs[1], value)
	}

	doc, err := readDoc(txn, segs[0], segs[1])
	if err != nil {
		return err
	}
	return putDoc(txn, segs[0], segs[1], setIn(doc, segs[2:], value))
}

func putDoc(txn *badger.Txn, collection, doc string, value any) error {
	key := docKey(collection, doc)
	if value == nil {
		return txn.Delete(key)
	}
	data, err := json.Marshal(value, json.Deterministic(true))
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}
	return txn.Set(key, data)
}

func writeCollection(txn *badger.Txn, collection string, value any) error {
	prefix := collectionPrefix(collection)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false

	var existing [][]byte
	it := txn.NewIterator(opts)
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		existing = append(existing, it.Item().KeyCopy(nil))
	}
	it.Close()

	for _, key := range existing {
		if err := txn.Delete(key); err != nil {
			return err
		}
	}

	if value == nil {
		return nil
	}
	children, ok := value.(map[string]any)
	if !ok {
		return fmt.Errorf("collection %s must be an object", collection)
	}
	for doc, child := range children {
		if err := putDoc(txn, collection, doc, child); err != nil {
			return err
		}
	}
	return nil
}

// getIn walks field segments down a decoded tree.
func getIn(node any, segs []string) any {
	for _, seg := range segs {
		m, ok := node.(map[string]any)
		if !ok {
			return nil
		}
		node = m[seg]
	}
	return node
}

// setIn returns node with the value at segs replaced. Maps emptied by a delete
// collapse to nil so absent and empty never differ.
func setIn(node any, segs []string, value any) any {
	if len(segs) == 0 {
		return value
	}

	m, ok := node.(map[string]any)
	if !ok {
		m = make(map[string]any)
	} else {
		m = maps.Clone(m)
	}

	child := setIn(m[segs[0]], segs[1:], value)
	if child == nil {
		delete(m, segs[0])
	} else {
		m[segs[0]] = child
	}

	if len(m) == 0 {
		return nil
	}
	return m
}

// toNode converts a caller value into a plain JSON tree, resolving server
// timestamps and pruning nulls and empty objects.
func (s *Store) toNode(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var node any
	if err := json.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	return prune(node, s.now().UnixMilli()), nil
}

func prune(node any, nowMillis int64) any {
	if remote.IsServerTimestamp(node) {
		return nowMillis
	}
	switch n := node.(type) {
	case map[string]any:
		for k, v := range n {
			if pv := prune(v, nowMillis); pv == nil {
				delete(n, k)
			} else {
				n[k] = pv
			}
		}
		if len(n) == 0 {
			return nil
		}
		return n
	case []any:
		for i, v := range n {
			n[i] = prune(v, nowMillis)
		}
		return n
	default:
		return n
	}
}

func encodeNode(node any) ([]byte, error) {
	if node == nil {
		return nil, nil
	}
	return json.Marshal(node, json.Deterministic(true))
}

// isAncestor reports whether a equals b or is a prefix of it.
func isAncestor(a, b []string) bool {
	if len(a) > len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// related reports whether a change at one path can affect a read at the other.
func related(a, b []string) bool {
	return isAncestor(a, b) || isAncestor(b, a)
}

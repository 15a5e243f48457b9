// Package main prints a summary of the local document store, or the JSON value
// at one path when a path argument is given.
//
// Usage:
//
//	DATA_PATH=~/.shareboard go run ./cmd/dbinspect
//	DATA_PATH=~/.shareboard go run ./cmd/dbinspect works/w1/votes
package main

import (
	"cmp"
	"encoding/json/v2"
	"encoding/json/jsontext"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

type collectionStats struct {
	name  string
	docs  int
	bytes int64
}

func main() {
	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		dataPath = os.ExpandEnv("$HOME/.shareboard")
	}
	dbPath := filepath.Join(dataPath, "docs")

	opts := badger.DefaultOptions(dbPath).
		WithReadOnly(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if len(os.Args) > 1 {
		if err := dumpPath(db, os.Args[1]); err != nil {
			log.Fatalf("Failed to dump %s: %v", os.Args[1], err)
		}
		return
	}

	fmt.Println("=== Document Store Inspection ===")
	fmt.Println()

	stats := make(map[string]*collectionStats)
	err = db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			collection, _, ok := strings.Cut(string(item.Key()), "/")
			if !ok {
				continue
			}
			st := stats[collection]
			if st == nil {
				st = &collectionStats{name: collection}
				stats[collection] = st
			}
			st.docs++
			st.bytes += item.ValueSize()
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Failed to scan database: %v", err)
	}

	rows := make([]*collectionStats, 0, len(stats))
	for _, st := range stats {
		rows = append(rows, st)
	}
	slices.SortFunc(rows, func(a, b *collectionStats) int { return cmp.Compare(a.name, b.name) })

	fmt.Printf("%-16s %8s %12s\n", "COLLECTION", "DOCS", "BYTES")
	var totalDocs int
	var totalBytes int64
	for _, st := range rows {
		fmt.Printf("%-16s %8d %12d\n", st.name, st.docs, st.bytes)
		totalDocs += st.docs
		totalBytes += st.bytes
	}
	fmt.Println()
	fmt.Printf("%-16s %8d %12d\n", "TOTAL", totalDocs, totalBytes)
}

// dumpPath prints the value at a collection, document or field path.
func dumpPath(db *badger.DB, path string) error {
	segs := strings.Split(strings.Trim(path, "/"), "/")
	if len(segs) == 0 || segs[0] == "" {
		return errors.New("empty path")
	}

	var node any
	err := db.View(func(txn *badger.Txn) error {
		if len(segs) == 1 {
			prefix := []byte(segs[0] + "/")
			opts := badger.DefaultIteratorOptions
			opts.Prefix = prefix
			it := txn.NewIterator(opts)
			defer it.Close()

			children := make(map[string]any)
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				var child any
				if err := it.Item().Value(func(val []byte) error {
					return json.Unmarshal(val, &child)
				}); err != nil {
					return err
				}
				children[string(it.Item().Key()[len(prefix):])] = child
			}
			if len(children) > 0 {
				node = children
			}
			return nil
		}

		item, err := txn.Get([]byte(segs[0] + "/" + segs[1]))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &node)
		}); err != nil {
			return err
		}
		for _, seg := range segs[2:] {
			m, ok := node.(map[string]any)
			if !ok {
				node = nil
				break
			}
			node = m[seg]
		}
		return nil
	})
	if err != nil {
		return err
	}

	out, err := json.Marshal(node, json.Deterministic(true), jsontext.WithIndent("  "))
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// Package main seeds the local document store with a sample catalog.
//
// It writes tags, categories, works, admin picks and the "new" view ordering
// so every shelf has something to page through.
//
// Usage:
//
//	DATA_PATH=~/.shareboard go run ./cmd/seed
//	DATA_PATH=~/.shareboard go run ./cmd/seed --works 200 --picks 30
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/shareboard/shareboard/internal/domain"
	"github.com/shareboard/shareboard/internal/id"
	"github.com/shareboard/shareboard/internal/remote"
	"github.com/shareboard/shareboard/internal/store"
)

var (
	numWorks = flag.Int("works", 120, "Number of works to create")
	numPicks = flag.Int("picks", 24, "Number of admin picks to create")
	voters   = flag.Int("voters", 15, "Number of anonymous voters")
)

type seedTag struct {
	name     string
	category string
}

var categories = map[string]string{
	"genre":  "ジャンル",
	"format": "形式",
	"mood":   "雰囲気",
}

var tags = []seedTag{
	{"ファンタジー", "genre"}, {"ホラー", "genre"}, {"ラブコメ", "genre"}, {"SF", "genre"},
	{"ミステリー", "genre"}, {"日常", "genre"},
	{"ボイス", "format"}, {"ASMR", "format"}, {"フルカラー", "format"}, {"RPG", "format"},
	{"癒し", "mood"}, {"シリアス", "mood"}, {"ほのぼの", "mood"},
}

var titleWords = []string{
	"夜", "星", "海", "猫", "図書館", "約束", "魔法", "迷宮", "喫茶店", "雨",
	"Night", "Shift", "Garden", "Echo", "Signal", "Lantern",
}

var workTypes = []struct {
	workType string
	path     string
}{
	{"Comic", "books"},
	{"Book", "comic"},
	{"VideoGame", "soft"},
	{"Voice", "maniax"},
}

func main() {
	flag.Parse()

	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		dataPath = os.ExpandEnv("$HOME/.shareboard")
	}
	docsPath := filepath.Join(dataPath, "docs")

	fmt.Printf("Opening document store at: %s\n", docsPath)

	s, err := store.New(docsPath, nil)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	rng := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))

	tagIDs := seedTags(ctx, s)
	fmt.Printf("Created %d tags in %d categories\n", len(tagIDs), len(categories))

	now := time.Now()
	newOrder := make([]string, 0, *numWorks)
	updates := make(map[string]any, *numWorks+*numPicks)

	for n := range *numWorks {
		workID := id.MustGenerate("work")
		w := randomWork(rng, n, tagIDs, now.Add(-time.Duration(n)*time.Hour))
		castVotes(rng, w)
		updates[remote.Join(remote.PathWorks, workID)] = w
		newOrder = append(newOrder, workID)
	}

	for n := range *numPicks {
		pickID := id.MustGenerate("pick")
		w := randomWork(rng, *numWorks+n, tagIDs, now.Add(-time.Duration(n)*24*time.Hour))
		order := int64(*numPicks - n)
		w.Order = &order
		updates[remote.Join(remote.PathAdminPicks, pickID)] = w
	}

	if err := s.Update(ctx, updates); err != nil {
		log.Fatalf("Failed to write works: %v", err)
	}
	if err := s.Set(ctx, remote.Join(remote.PathWorkOrders, string(domain.ViewNew)), newOrder); err != nil {
		log.Fatalf("Failed to write new order: %v", err)
	}

	fmt.Printf("Created %d works and %d admin picks\n", *numWorks, *numPicks)
	fmt.Println("Done.")
}

func seedTags(ctx context.Context, s *store.Store) []string {
	updates := make(map[string]any, len(tags)+len(categories))
	for catID, name := range categories {
		updates[remote.Join(remote.PathCategories, catID)] = domain.Category{Name: name}
	}

	ids := make([]string, 0, len(tags))
	for i, t := range tags {
		tagID := fmt.Sprintf("tag%02d", i+1)
		updates[remote.Join(remote.PathTags, tagID)] = domain.Tag{Name: t.name, Category: t.category}
		ids = append(ids, tagID)
	}

	if err := s.Update(ctx, updates); err != nil {
		log.Fatalf("Failed to write tags: %v", err)
	}
	return ids
}

func randomWork(rng *rand.Rand, n int, tagIDs []string, at time.Time) *domain.Work {
	kind := workTypes[rng.IntN(len(workTypes))]
	catalog := fmt.Sprintf("RJ%08d", 1_000_000+n)

	w := &domain.Work{
		Title:     titleWords[rng.IntN(len(titleWords))] + "の" + titleWords[rng.IntN(len(titleWords))],
		CoverURL:  fmt.Sprintf("https://img.example.com/%s.jpg", catalog),
		PageURL:   fmt.Sprintf("https://www.dlsite.com/%s/work/=/product_id/%s.html", kind.path, catalog),
		WorkType:  kind.workType,
		Timestamp: at.UnixMilli(),
		Tags:      make(map[string]string),
	}

	// 1-4 tags per work
	for range 1 + rng.IntN(4) {
		i := rng.IntN(len(tagIDs))
		w.Tags[tagIDs[i]] = tags[i].name
	}
	return w
}

// castVotes records votes through the same update the vote transaction uses,
// so score always equals the sum of votes.
func castVotes(rng *rand.Rand, w *domain.Work) {
	for v := range *voters {
		if rng.Float32() > 0.4 {
			continue
		}
		score := domain.VoteUp
		if rng.Float32() < 0.25 {
			score = domain.VoteDown
		}
		next, _ := domain.ApplyVote(w, fmt.Sprintf("seed-client-%02d", v), score)
		*w = *next
	}
}

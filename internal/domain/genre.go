package domain

import "strings"

// Genre buckets admin picks into the curation shelves.
type Genre string

// Known genres.
const (
	GenreManga   Genre = "manga"
	GenreGame    Genre = "game"
	GenreUnknown Genre = "unknown"
)

// Classify decides a work's genre. Precedence: manual override, then work type,
// then source URL path, then unknown.
func Classify(w *Work) Genre {
	if w.ManualGenre != "" {
		return w.ManualGenre
	}

	switch w.WorkType {
	case "Book", "Comic":
		return GenreManga
	case "VideoGame":
		return GenreGame
	}

	url := w.PageURL
	switch {
	case strings.Contains(url, "/comic/"), strings.Contains(url, "/books/"):
		return GenreManga
	case strings.Contains(url, "/soft/"), strings.Contains(url, "/pro/"):
		return GenreGame
	}

	return GenreUnknown
}

// CurationOrder is the sort key for admin picks: Order when set, else Timestamp.
func CurationOrder(w *Work) int64 {
	if w.Order != nil {
		return *w.Order
	}
	return w.Timestamp
}

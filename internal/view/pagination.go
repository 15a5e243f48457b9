package view

// windowSize is the number of numbered page buttons shown at once.
const windowSize = 5

// TotalPages is the number of pages needed for n entries, at least 1.
func TotalPages(n, pageSize int) int {
	if pageSize < 1 || n <= 0 {
		return 1
	}
	return (n + pageSize - 1) / pageSize
}

// Clamp limits page to [1, totalPages].
func Clamp(page, totalPages int) int {
	return max(1, min(page, max(totalPages, 1)))
}

// bounds returns the slice bounds of page within n entries.
func bounds(page, pageSize, n int) (start, end int) {
	start = min((page-1)*pageSize, n)
	end = min(start+pageSize, n)
	return start, end
}

// PageWindow returns the numbered pages to offer around current: up to five,
// centered on current where possible. A single page offers none.
func PageWindow(current, totalPages int) []int {
	if totalPages <= 1 {
		return nil
	}
	current = Clamp(current, totalPages)

	start := max(1, current-2)
	end := min(totalPages, current+2)
	if end-start < windowSize-1 && totalPages >= windowSize {
		if start == 1 {
			end = windowSize
		} else if end == totalPages {
			start = totalPages - windowSize + 1
		}
	}

	out := make([]int, 0, end-start+1)
	for p := start; p <= end; p++ {
		out = append(out, p)
	}
	return out
}

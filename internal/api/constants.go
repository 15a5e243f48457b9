package api

// Cache-Control header values.
const (
	CacheNoStore       = "no-store"
	CacheOneDayPrivate = "private, max-age=86400"
)

// maxWorkSearchLimit caps one page of title search results.
const maxWorkSearchLimit = 100

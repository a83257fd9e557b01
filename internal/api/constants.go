package api

// Cache-Control header values.
const (
	CachePreview = "public, max-age=30"
	CacheNoStore = "no-cache"
)

// Listing limits.
const (
	DefaultPopularLimit = 6
	MaxPopularLimit     = 50
)

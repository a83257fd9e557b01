// Package search maintains a Bleve index over room slugs so clients can
// discover rooms by name fragments, with fuzzy matching for typos.
package search

import (
	"strings"
	"time"

	"github.com/pixelworld/pixelworld-server/internal/domain"
)

// RoomDocument is the indexed form of a room.
type RoomDocument struct {
	Slug       string    `json:"slug"`
	Words      string    `json:"words"` // slug with hyphens as spaces, for word matching
	PixelCount int       `json:"pixel_count"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewRoomDocument builds the document for a room summary.
func NewRoomDocument(info domain.RoomInfo) *RoomDocument {
	return &RoomDocument{
		Slug:       info.Slug,
		Words:      strings.ReplaceAll(info.Slug, "-", " "),
		PixelCount: info.PixelCount,
		UpdatedAt:  info.UpdatedAt,
	}
}

// ToMap converts the document to a map so field names match the mapping.
func (d *RoomDocument) ToMap() map[string]any {
	m := map[string]any{
		"slug":        d.Slug,
		"words":       d.Words,
		"pixel_count": float64(d.PixelCount),
	}
	if !d.UpdatedAt.IsZero() {
		m["updated_at"] = d.UpdatedAt
	}
	return m
}

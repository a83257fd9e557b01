package domain

import "time"

// RoomInfo is the derived summary used for ranking and listings.
// It is never authoritative; the room's pixel store is.
type RoomInfo struct {
	Slug       string    `json:"slug"`
	PixelCount int       `json:"pixelCount"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// RoomRecord is the durable form of a room: one record per slug.
type RoomRecord struct {
	Slug      string    `json:"slug"`
	Pixels    []Pixel   `json:"pixels"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Info derives the RoomInfo for this record.
func (r *RoomRecord) Info() RoomInfo {
	return RoomInfo{
		Slug:       r.Slug,
		PixelCount: len(r.Pixels),
		UpdatedAt:  r.UpdatedAt,
	}
}

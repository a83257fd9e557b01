package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// CoordLimit bounds the absolute value of any accepted coordinate.
const CoordLimit = 1 << 20

// BatchPixel is one entry of an edit batch on the wire.
// Color, when set, overrides the batch color for that pixel.
type BatchPixel struct {
	X     int    `json:"x" validate:"gte=-1048576,lte=1048576"`
	Y     int    `json:"y" validate:"gte=-1048576,lte=1048576"`
	Color string `json:"color,omitempty" validate:"max=64"`
}

// Batch is one atomic edit submitted by a client.
//
// A batch is homogeneous: an empty batch Color makes every entry a Clear,
// otherwise every entry is a Set using the pixel's own color or the batch color.
type Batch struct {
	Pixels []BatchPixel `json:"pixels" validate:"required,min=1,dive"`
	Color  string       `json:"color,omitempty" validate:"max=64"`
}

// IsClear reports whether the batch erases rather than paints.
func (b *Batch) IsClear() bool {
	return b.Color == ""
}

// Ops expands the batch into its left-to-right operation log.
func (b *Batch) Ops() []Op {
	ops := make([]Op, 0, len(b.Pixels))
	for _, p := range b.Pixels {
		if b.IsClear() {
			ops = append(ops, Op{Kind: OpClear, X: p.X, Y: p.Y})
			continue
		}
		color := p.Color
		if color == "" {
			color = b.Color
		}
		ops = append(ops, Op{Kind: OpSet, X: p.X, Y: p.Y, Color: color})
	}
	return ops
}

// wireBatch accepts both the structured form and the legacy form where the
// pixel list travels as a JSON-encoded string under "path".
type wireBatch struct {
	Pixels []BatchPixel     `json:"pixels"`
	Path   *json.RawMessage `json:"path"`
	Color  string           `json:"color"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *Batch) UnmarshalJSON(data []byte) error {
	var w wireBatch
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	b.Color = w.Color
	b.Pixels = w.Pixels
	if w.Path == nil || len(b.Pixels) > 0 {
		return nil
	}

	raw := bytes.TrimSpace(*w.Path)
	if len(raw) > 0 && raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return fmt.Errorf("decode path: %w", err)
		}
		raw = []byte(inner)
	}

	pixels, err := decodePathPixels(raw)
	if err != nil {
		return err
	}
	b.Pixels = pixels
	return nil
}

// decodePathPixels accepts either an array of pixels or a single pixel object.
func decodePathPixels(raw []byte) ([]BatchPixel, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}
	if raw[0] == '{' {
		var single BatchPixel
		if err := json.Unmarshal(raw, &single); err != nil {
			return nil, fmt.Errorf("decode path pixel: %w", err)
		}
		return []BatchPixel{single}, nil
	}
	var pixels []BatchPixel
	if err := json.Unmarshal(raw, &pixels); err != nil {
		return nil, fmt.Errorf("decode path pixels: %w", err)
	}
	return pixels, nil
}

// GroupByColor packs pixels into Set batches, one per run of equal color.
// Order is preserved so replaying the batches reproduces the input sequence.
func GroupByColor(pixels []Pixel) []Batch {
	batches := make([]Batch, 0)
	for _, p := range pixels {
		n := len(batches)
		if n > 0 && batches[n-1].Color == p.Color {
			batches[n-1].Pixels = append(batches[n-1].Pixels, BatchPixel{X: p.X, Y: p.Y})
			continue
		}
		batches = append(batches, Batch{
			Color:  p.Color,
			Pixels: []BatchPixel{{X: p.X, Y: p.Y}},
		})
	}
	return batches
}

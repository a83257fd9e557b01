// Package domain holds the core types shared by the room sync server.
package domain

// Pixel is one colored cell of a room canvas.
// Color is an opaque token; the server never interprets it.
type Pixel struct {
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Color string `json:"color"`
}

// Coord identifies a cell.
type Coord struct {
	X int
	Y int
}

// OpKind distinguishes the two pixel operations.
type OpKind uint8

const (
	// OpSet upserts a pixel.
	OpSet OpKind = iota + 1
	// OpClear removes a pixel if present.
	OpClear
)

// String implements fmt.Stringer.
func (k OpKind) String() string {
	switch k {
	case OpSet:
		return "set"
	case OpClear:
		return "clear"
	default:
		return "unknown"
	}
}

// Op is a single operation in an edit batch.
type Op struct {
	Kind  OpKind
	X     int
	Y     int
	Color string // empty for OpClear
}

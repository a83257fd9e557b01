package store

import (
	domainerrors "github.com/pixelworld/pixelworld-server/internal/errors"
)

// ErrClosed carries a domain code so callers can match it with errors.Is
// against either this value or the domain sentinel.
var ErrClosed = domainerrors.Unavailable("database is closed")

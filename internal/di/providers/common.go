package providers

import "time"

const (
	// shutdownTimeout is the maximum time to wait for graceful shutdown of services.
	shutdownTimeout = 30 * time.Second

	// startupTimeout bounds opening the store and loading rooms.
	startupTimeout = 60 * time.Second

	// loadAttempts and loadBackoff bound retries of the initial room load.
	loadAttempts = 5
	loadBackoff  = time.Second
)

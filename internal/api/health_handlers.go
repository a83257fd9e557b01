package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns server health status with component checks",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

// ComponentHealth describes the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status" doc:"Component status: healthy, degraded, or unhealthy"`
	Latency string `json:"latency,omitempty" doc:"Response time for this component"`
	Message string `json:"message,omitempty" doc:"Additional status information"`
}

// HealthResponse contains health check data in API responses.
type HealthResponse struct {
	Status     string                     `json:"status" doc:"Overall status: healthy, degraded, or unhealthy"`
	Components map[string]ComponentHealth `json:"components" doc:"Individual component statuses"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

func (s *Server) handleHealthCheck(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	components := map[string]ComponentHealth{
		"storage":     s.checkStorage(ctx),
		"persistence": s.checkPersistence(),
		"search":      s.checkSearchIndex(),
		"hub":         s.checkHub(),
	}

	overall := "healthy"
	for _, c := range components {
		switch {
		case c.Status == "unhealthy":
			overall = "unhealthy"
		case c.Status == "degraded" && overall == "healthy":
			overall = "degraded"
		}
	}

	return &HealthOutput{
		Body: HealthResponse{
			Status:     overall,
			Components: components,
		},
	}, nil
}

// checkStorage pings the durable room store and counts its rooms.
func (s *Server) checkStorage(ctx context.Context) ComponentHealth {
	if s.services.Storage == nil {
		return ComponentHealth{
			Status:  "degraded",
			Message: "storage not configured",
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	err := s.services.Storage.Ping(ctx)
	latency := time.Since(start)

	if err != nil {
		return ComponentHealth{
			Status:  "unhealthy",
			Latency: latency.String(),
			Message: "storage unreachable",
		}
	}

	stored, err := s.services.Storage.CountRooms(ctx)
	if err != nil {
		return ComponentHealth{
			Status:  "degraded",
			Latency: latency.String(),
			Message: "room count unavailable",
		}
	}

	return ComponentHealth{
		Status:  "healthy",
		Latency: latency.String(),
		Message: fmt.Sprintf("%d rooms stored", stored),
	}
}

// checkPersistence reports whether recent flushes succeeded. Rooms keep
// serving from memory while flushes fail, so failures only degrade.
func (s *Server) checkPersistence() ComponentHealth {
	if s.services.Persist == nil {
		return ComponentHealth{
			Status:  "degraded",
			Message: "persistence not configured",
		}
	}

	status := s.services.Persist.Status()
	if !status.Healthy() {
		return ComponentHealth{
			Status:  "degraded",
			Message: fmt.Sprintf("%d consecutive flush failures: %s", status.ConsecutiveFailures, status.LastError),
		}
	}

	if status.LastFlushAt.IsZero() {
		return ComponentHealth{Status: "healthy", Message: "no flush yet"}
	}
	return ComponentHealth{
		Status:  "healthy",
		Message: "last flush " + status.LastFlushAt.UTC().Format(time.RFC3339),
	}
}

// checkSearchIndex verifies the Bleve index is accessible.
func (s *Server) checkSearchIndex() ComponentHealth {
	if s.services.Search == nil {
		return ComponentHealth{
			Status:  "degraded",
			Message: "search disabled",
		}
	}

	start := time.Now()
	docCount, err := s.services.Search.DocumentCount()
	latency := time.Since(start)

	if err != nil {
		return ComponentHealth{
			Status:  "unhealthy",
			Latency: latency.String(),
			Message: "search index unreachable",
		}
	}

	return ComponentHealth{
		Status:  "healthy",
		Latency: latency.String(),
		Message: fmt.Sprintf("%d rooms indexed", docCount),
	}
}

// checkHub reports connected clients.
func (s *Server) checkHub() ComponentHealth {
	if s.services.Hub == nil {
		return ComponentHealth{
			Status:  "degraded",
			Message: "hub not configured",
		}
	}

	return ComponentHealth{
		Status:  "healthy",
		Message: formatClientStatus(s.services.Hub.ClientCount()),
	}
}

func formatClientStatus(count int) string {
	switch count {
	case 0:
		return "no connected clients"
	case 1:
		return "1 connected client"
	default:
		return fmt.Sprintf("%d connected clients", count)
	}
}

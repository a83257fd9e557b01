package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/pixelworld/pixelworld-server/internal/search"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "searchRooms",
		Method:      http.MethodGet,
		Path:        "/api/v1/rooms/search",
		Summary:     "Search rooms",
		Description: "Finds rooms by name with prefix and typo-tolerant matching",
		Tags:        []string{"Rooms"},
	}, s.handleSearchRooms)
}

// SearchRoomsInput contains parameters for searching rooms.
type SearchRoomsInput struct {
	Query  string `query:"q" maxLength:"100" doc:"Search text; empty lists rooms by size"`
	Limit  int    `query:"limit" default:"20" minimum:"1" maximum:"50" doc:"Maximum results"`
	Offset int    `query:"offset" minimum:"0" doc:"Results to skip"`
}

// SearchRoomsOutput wraps the search result for Huma.
type SearchRoomsOutput struct {
	Body *search.SearchResult
}

func (s *Server) handleSearchRooms(ctx context.Context, input *SearchRoomsInput) (*SearchRoomsOutput, error) {
	if s.services.Search == nil {
		return nil, huma.Error503ServiceUnavailable("Search is disabled")
	}

	result, err := s.services.Search.Search(ctx, search.SearchParams{
		Query:  input.Query,
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		s.requestLogger(ctx).Error("room search failed",
			slog.String("query", input.Query),
			slog.String("error", err.Error()))
		return nil, huma.Error500InternalServerError("Search failed")
	}

	return &SearchRoomsOutput{Body: result}, nil
}

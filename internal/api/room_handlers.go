package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/pixelworld/pixelworld-server/internal/domain"
	"github.com/pixelworld/pixelworld-server/internal/preview"
)

func (s *Server) registerRoomRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listPopularRooms",
		Method:      http.MethodGet,
		Path:        "/api/v1/rooms/popular",
		Summary:     "Popular rooms",
		Description: "Returns rooms ordered by pixel count, most recently edited first on ties",
		Tags:        []string{"Rooms"},
	}, s.handleListPopularRooms)

	huma.Register(s.api, huma.Operation{
		OperationID: "getRoom",
		Method:      http.MethodGet,
		Path:        "/api/v1/rooms/{slug}",
		Summary:     "Get room",
		Description: "Returns a room summary with its live member count and a BlurHash placeholder",
		Tags:        []string{"Rooms"},
	}, s.handleGetRoom)

	huma.Register(s.api, huma.Operation{
		OperationID: "getRoomPixels",
		Method:      http.MethodGet,
		Path:        "/api/v1/rooms/{slug}/pixels",
		Summary:     "Get room pixels",
		Description: "Returns every pixel in the room in replay order",
		Tags:        []string{"Rooms"},
	}, s.handleGetRoomPixels)

	huma.Register(s.api, huma.Operation{
		OperationID: "getRoomPreview",
		Method:      http.MethodGet,
		Path:        "/api/v1/rooms/{slug}/preview.png",
		Summary:     "Get room preview",
		Description: "Returns a PNG thumbnail of the room canvas",
		Tags:        []string{"Rooms"},
	}, s.handleGetRoomPreview)
}

// ListPopularRoomsInput contains parameters for listing popular rooms.
type ListPopularRoomsInput struct {
	Limit int `query:"limit" default:"6" minimum:"1" maximum:"50" doc:"Number of rooms to return"`
}

// RoomListResponse contains a list of room summaries.
type RoomListResponse struct {
	Rooms []domain.RoomInfo `json:"rooms" doc:"Room summaries"`
}

// RoomListOutput wraps the room list response for Huma.
type RoomListOutput struct {
	Body RoomListResponse
}

// RoomSlugInput identifies a room by name. The name is normalized before lookup.
type RoomSlugInput struct {
	Slug string `path:"slug" maxLength:"200" doc:"Room name"`
}

// RoomResponse is a room summary.
type RoomResponse struct {
	Slug       string    `json:"slug" doc:"Normalized room name"`
	PixelCount int       `json:"pixelCount" doc:"Number of occupied cells"`
	UpdatedAt  time.Time `json:"updatedAt" doc:"Last edit time"`
	Members    int       `json:"members" doc:"Connected clients in the room"`
	BlurHash   string    `json:"blurHash,omitempty" doc:"BlurHash of the canvas; absent for empty rooms"`
}

// RoomOutput wraps the room response for Huma.
type RoomOutput struct {
	Body RoomResponse
}

// RoomPixelsResponse contains the full room contents.
type RoomPixelsResponse struct {
	Slug   string         `json:"slug" doc:"Normalized room name"`
	Pixels []domain.Pixel `json:"pixels" doc:"Pixels in replay order"`
}

// RoomPixelsOutput wraps the pixels response for Huma.
type RoomPixelsOutput struct {
	Body RoomPixelsResponse
}

// RoomPreviewInput contains parameters for rendering a preview.
type RoomPreviewInput struct {
	Slug string `path:"slug" maxLength:"200" doc:"Room name"`
	Size int    `query:"size" default:"256" minimum:"16" maximum:"1024" doc:"Longest edge in pixels"`
}

// RoomPreviewOutput is a raw PNG body.
type RoomPreviewOutput struct {
	ContentType  string `header:"Content-Type"`
	CacheControl string `header:"Cache-Control"`
	Body         []byte
}

func (s *Server) handleListPopularRooms(_ context.Context, input *ListPopularRoomsInput) (*RoomListOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultPopularLimit
	}
	limit = min(limit, MaxPopularLimit)

	rooms := s.services.Sync.Popular(limit)
	if rooms == nil {
		rooms = []domain.RoomInfo{}
	}
	return &RoomListOutput{Body: RoomListResponse{Rooms: rooms}}, nil
}

func (s *Server) handleGetRoom(ctx context.Context, input *RoomSlugInput) (*RoomOutput, error) {
	detail, err := s.services.Sync.Room(input.Slug)
	if err != nil {
		return nil, toHTTPError(err)
	}

	resp := RoomResponse{
		Slug:       detail.Info.Slug,
		PixelCount: detail.Info.PixelCount,
		UpdatedAt:  detail.Info.UpdatedAt,
		Members:    detail.Members,
	}

	if detail.Info.PixelCount > 0 {
		pixels, err := s.services.Sync.History(detail.Info.Slug)
		if err != nil {
			return nil, toHTTPError(err)
		}
		hash, err := preview.BlurHash(pixels)
		if err != nil && !errors.Is(err, preview.ErrEmpty) {
			s.requestLogger(ctx).Warn("failed to compute blurhash",
				slog.String("room", detail.Info.Slug),
				slog.String("error", err.Error()))
		}
		resp.BlurHash = hash
	}

	return &RoomOutput{Body: resp}, nil
}

func (s *Server) handleGetRoomPixels(_ context.Context, input *RoomSlugInput) (*RoomPixelsOutput, error) {
	detail, err := s.services.Sync.Room(input.Slug)
	if err != nil {
		return nil, toHTTPError(err)
	}
	pixels, err := s.services.Sync.History(detail.Info.Slug)
	if err != nil {
		return nil, toHTTPError(err)
	}
	if pixels == nil {
		pixels = []domain.Pixel{}
	}
	return &RoomPixelsOutput{Body: RoomPixelsResponse{Slug: detail.Info.Slug, Pixels: pixels}}, nil
}

func (s *Server) handleGetRoomPreview(ctx context.Context, input *RoomPreviewInput) (*RoomPreviewOutput, error) {
	pixels, err := s.services.Sync.History(input.Slug)
	if err != nil {
		return nil, toHTTPError(err)
	}

	data, err := preview.PNG(pixels, input.Size)
	if errors.Is(err, preview.ErrEmpty) {
		data, err = preview.Blank(input.Size)
	}
	if err != nil {
		s.requestLogger(ctx).Error("failed to render preview",
			slog.String("slug", input.Slug),
			slog.String("error", err.Error()))
		return nil, huma.Error500InternalServerError("Failed to render preview")
	}

	return &RoomPreviewOutput{
		ContentType:  "image/png",
		CacheControl: CachePreview,
		Body:         data,
	}, nil
}

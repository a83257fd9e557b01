package service

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pixelworld/pixelworld-server/internal/domain"
	domainerrors "github.com/pixelworld/pixelworld-server/internal/errors"
	"github.com/pixelworld/pixelworld-server/internal/hub"
	"github.com/pixelworld/pixelworld-server/internal/room"
	"github.com/pixelworld/pixelworld-server/internal/slug"
	"github.com/pixelworld/pixelworld-server/internal/validation"
)

// SyncConfig holds room defaults used by the sync service.
type SyncConfig struct {
	DefaultRoom  string
	PopularLimit int
}

// Edit is one accepted edit batch, tagged with its origin.
type Edit struct {
	ID          uuid.UUID
	Room        string
	Origin      string
	SubmittedAt time.Time
	Batch       *domain.Batch
}

// SyncService applies client edits to rooms and fans them out to peers.
// Each client's messages are expected to arrive one at a time from its
// connection's read loop.
type SyncService struct {
	registry  *room.Registry
	hub       *hub.Hub
	validator *validation.Validator
	logger    *slog.Logger
	cfg       SyncConfig
}

// NewSyncService creates a new sync service.
func NewSyncService(registry *room.Registry, h *hub.Hub, v *validation.Validator, logger *slog.Logger, cfg SyncConfig) *SyncService {
	if cfg.PopularLimit < 1 {
		cfg.PopularLimit = 6
	}
	return &SyncService{
		registry:  registry,
		hub:       h,
		validator: v,
		logger:    logger,
		cfg:       cfg,
	}
}

// Connect greets a new client with the default room hint and the popular
// room list.
func (s *SyncService) Connect(c *hub.Client) error {
	if s.cfg.DefaultRoom != "" {
		frame, err := domain.EncodeMessage(domain.MessageJoinRoom, s.cfg.DefaultRoom)
		if err != nil {
			return err
		}
		s.hub.Send(c, frame)
	}

	frame, err := domain.EncodeMessage(domain.MessagePopularRooms, s.Popular(s.cfg.PopularLimit))
	if err != nil {
		return err
	}
	s.hub.Send(c, frame)
	return nil
}

// Join moves c into the room named by rawSlug, creating it on demand, and
// replays the room's history to c. Membership changes and the history
// snapshot happen under the room lock, so c sees every later edit exactly
// once and after the history.
func (s *SyncService) Join(c *hub.Client, rawSlug string) (domain.RoomInfo, error) {
	normalized, err := slug.Parse(rawSlug)
	if err != nil {
		return domain.RoomInfo{}, err
	}

	rm, err := s.registry.CreateRoom(normalized)
	if err != nil {
		return domain.RoomInfo{}, err
	}

	var encodeErr error
	var members int
	rm.View(func(history []domain.Pixel) {
		var frame []byte
		frame, encodeErr = domain.EncodeMessage(domain.MessageDrawingHistory, domain.GroupByColor(history))
		if encodeErr != nil {
			return
		}
		_, members = s.hub.Join(c, normalized)
		s.hub.Send(c, frame)
	})
	if encodeErr != nil {
		return domain.RoomInfo{}, domainerrors.Wrap(encodeErr, domainerrors.CodeInternal, "encode history")
	}

	info := rm.Info()
	s.logger.Debug("client joined room",
		slog.String("client_id", c.ID),
		slog.String("room", normalized),
		slog.Int("members", members),
		slog.Int("pixels", info.PixelCount))
	return info, nil
}

// Draw decodes and applies one edit batch to the client's current room and
// forwards the payload, exactly as received, to the other members.
// Malformed batches and batches sent before any join are rejected whole.
func (s *SyncService) Draw(c *hub.Client, payload json.RawMessage) (*Edit, error) {
	current := s.hub.RoomOf(c)
	if current == "" {
		return nil, domainerrors.Validation("draw before joining a room")
	}

	var batch domain.Batch
	if err := json.Unmarshal(payload, &batch); err != nil {
		return nil, domainerrors.MalformedBatchf("decode batch: %v", err)
	}
	if err := s.validator.Batch(&batch); err != nil {
		return nil, err
	}

	rm, err := s.registry.CreateRoom(current)
	if err != nil {
		return nil, err
	}

	frame, err := domain.EncodeMessage(domain.MessageDraw, payload)
	if err != nil {
		return nil, domainerrors.MalformedBatchf("re-encode batch: %v", err)
	}

	editID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate edit id: %w", err)
	}
	edit := &Edit{
		ID:          editID,
		Room:        current,
		Origin:      c.ID,
		SubmittedAt: time.Now(),
		Batch:       &batch,
	}

	var delivered int
	res := rm.Apply(&batch, func(domain.RoomInfo) {
		delivered = s.hub.Broadcast(current, c, frame)
	})

	s.logger.Debug("edit applied",
		slog.String("edit_id", edit.ID.String()),
		slog.String("room", current),
		slog.String("client_id", c.ID),
		slog.Int("ops", len(batch.Pixels)),
		slog.Int("changed", res.Changed),
		slog.Int("delivered", delivered),
		slog.Duration("took", time.Since(edit.SubmittedAt)))
	return edit, nil
}

// ClearCanvas wipes the client's current room and tells the other members.
func (s *SyncService) ClearCanvas(c *hub.Client) error {
	current := s.hub.RoomOf(c)
	if current == "" {
		return domainerrors.Validation("clear before joining a room")
	}

	rm, err := s.registry.CreateRoom(current)
	if err != nil {
		return err
	}

	frame, err := domain.EncodeMessage(domain.MessageClearCanvas, nil)
	if err != nil {
		return err
	}

	res := rm.Reset(func(domain.RoomInfo) {
		s.hub.Broadcast(current, c, frame)
	})

	s.logger.Info("canvas cleared",
		slog.String("room", current),
		slog.String("client_id", c.ID),
		slog.Int("removed", res.Changed))
	return nil
}

// Disconnect drops the client and announces the new count to its room.
func (s *SyncService) Disconnect(c *hub.Client) {
	s.hub.Unregister(c)
}

// Popular returns the top n rooms.
func (s *SyncService) Popular(n int) []domain.RoomInfo {
	return s.registry.Popular(n)
}

// RoomDetail is a room summary plus live membership.
type RoomDetail struct {
	Info    domain.RoomInfo
	Members int
}

// Room returns the summary of an existing room. Unlike Join, it never
// creates the room.
func (s *SyncService) Room(rawSlug string) (*RoomDetail, error) {
	normalized, err := slug.Parse(rawSlug)
	if err != nil {
		return nil, err
	}
	rm, ok := s.registry.Room(normalized)
	if !ok {
		return nil, domainerrors.NotFoundf("room %q not found", normalized)
	}
	return &RoomDetail{Info: rm.Info(), Members: s.hub.Count(normalized)}, nil
}

// History returns the full contents of an existing room.
func (s *SyncService) History(rawSlug string) ([]domain.Pixel, error) {
	normalized, err := slug.Parse(rawSlug)
	if err != nil {
		return nil, err
	}
	rm, ok := s.registry.Room(normalized)
	if !ok {
		return nil, domainerrors.NotFoundf("room %q not found", normalized)
	}
	return rm.History(), nil
}

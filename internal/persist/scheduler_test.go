package persist

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixelworld/pixelworld-server/internal/domain"
	"github.com/pixelworld/pixelworld-server/internal/room"
)

type countingSaver struct {
	calls atomic.Int32
	fail  atomic.Bool
}

func (s *countingSaver) SaveAll(context.Context) (room.SaveReport, error) {
	s.calls.Add(1)
	if s.fail.Load() {
		return room.SaveReport{Failed: 1}, errors.New("database is locked")
	}
	return room.SaveReport{Saved: 1}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestScheduler_TicksUntilStopped(t *testing.T) {
	saver := &countingSaver{}
	s := New(saver, discardLogger(), Options{Interval: 5 * time.Millisecond})

	s.Start(context.Background())
	assert.Eventually(t, func() bool { return saver.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Stop())
	after := saver.calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, saver.calls.Load())
}

func TestScheduler_FailureIsRecordedAndRecovered(t *testing.T) {
	saver := &countingSaver{}
	saver.fail.Store(true)
	s := New(saver, discardLogger(), Options{Interval: time.Hour})

	_, err := s.Flush(context.Background())
	require.Error(t, err)
	_, _ = s.Flush(context.Background())

	status := s.Status()
	assert.False(t, status.Healthy())
	assert.Equal(t, 2, status.ConsecutiveFailures)
	assert.Contains(t, status.LastError, "database is locked")

	saver.fail.Store(false)
	report, err := s.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Saved)
	assert.True(t, s.Status().Healthy())
	assert.Empty(t, s.Status().LastError)
}

func TestScheduler_StopFlushesWhenConfigured(t *testing.T) {
	tests := []struct {
		name           string
		saveOnShutdown bool
		wantCalls      int32
	}{
		{"final flush", true, 1},
		{"no final flush", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			saver := &countingSaver{}
			s := New(saver, discardLogger(), Options{Interval: time.Hour, SaveOnShutdown: tt.saveOnShutdown})
			s.Start(context.Background())

			require.NoError(t, s.Stop())
			require.NoError(t, s.Stop())
			assert.Equal(t, tt.wantCalls, saver.calls.Load())
		})
	}
}

func TestScheduler_StopReportsFinalFlushError(t *testing.T) {
	saver := &countingSaver{}
	saver.fail.Store(true)
	s := New(saver, discardLogger(), Options{SaveOnShutdown: true})

	assert.Error(t, s.Stop())
}

type flakyRepo struct {
	mu      sync.Mutex
	down    bool
	records map[string]domain.RoomRecord
}

func (r *flakyRepo) LoadRooms(context.Context) ([]domain.RoomRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.RoomRecord, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	return out, nil
}

func (r *flakyRepo) SaveRoom(_ context.Context, rec *domain.RoomRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return errors.New("connection refused")
	}
	r.records[rec.Slug] = *rec
	return nil
}

func TestScheduler_EditsContinueWhileStorageIsDown(t *testing.T) {
	repo := &flakyRepo{down: true, records: make(map[string]domain.RoomRecord)}
	registry := room.NewRegistry(repo, discardLogger())
	s := New(registry, discardLogger(), Options{Interval: time.Hour})

	rm, err := registry.CreateRoom("main")
	require.NoError(t, err)
	rm.Apply(&domain.Batch{Color: "red", Pixels: []domain.BatchPixel{{X: 1, Y: 1}}}, nil)

	_, err = s.Flush(context.Background())
	require.Error(t, err)

	rm.Apply(&domain.Batch{Color: "blue", Pixels: []domain.BatchPixel{{X: 2, Y: 2}}}, nil)
	assert.Len(t, registry.GetHistory("main"), 2)

	repo.mu.Lock()
	repo.down = false
	repo.mu.Unlock()

	report, err := s.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Saved)
	assert.Len(t, repo.records["main"].Pixels, 2)
}

package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carpool/internal/domain/entities"
	"carpool/internal/logging"
)

type recordingStore struct {
	mu    sync.Mutex
	saves []*entities.Graph
	err   error
}

func (r *recordingStore) Save(ctx context.Context, g *entities.Graph) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.saves = append(r.saves, g)
	return nil
}

func (r *recordingStore) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.saves)
}

func TestPersistenceService_SaveNow(t *testing.T) {
	engine := setupReservationService()
	registerDriver(t, engine, "11111111", 2)
	store := &recordingStore{}
	ps := NewPersistenceService(engine, store, 0, logging.Discard())

	require.NoError(t, ps.SaveNow(context.Background()))
	require.Equal(t, 1, store.count())
	assert.Len(t, store.saves[0].Drivers, 1)
}

func TestPersistenceService_SaveNowReturnsStoreError(t *testing.T) {
	boom := errors.New("disk full")
	ps := NewPersistenceService(setupReservationService(), &recordingStore{err: boom}, 0, logging.Discard())

	assert.ErrorIs(t, ps.SaveNow(context.Background()), boom)
}

func TestPersistenceService_Autosave(t *testing.T) {
	store := &recordingStore{}
	ps := NewPersistenceService(setupReservationService(), store, 10*time.Millisecond, logging.Discard())

	ps.Start(context.Background())
	assert.Eventually(t, func() bool { return store.count() >= 2 }, time.Second, 5*time.Millisecond)
	ps.Stop()

	n := store.count()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, n, store.count(), "no saves after Stop")
}

func TestPersistenceService_DisabledAutosaveStopsCleanly(t *testing.T) {
	store := &recordingStore{}
	ps := NewPersistenceService(setupReservationService(), store, 0, logging.Discard())

	ps.Start(context.Background())
	ps.Stop()
	assert.Zero(t, store.count())
}

func TestPersistenceService_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ps := NewPersistenceService(setupReservationService(), &recordingStore{}, time.Hour, logging.Discard())

	ps.Start(ctx)
	cancel()
	ps.Stop()
}

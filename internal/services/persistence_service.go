package services

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"carpool/internal/domain/entities"
)

// GraphStore is the durable side of the engine. *flatfile.Store implements it.
type GraphStore interface {
	Save(ctx context.Context, g *entities.Graph) error
}

// PersistenceService writes engine snapshots to the store, on demand and
// optionally on a timer.
type PersistenceService struct {
	engine   *ReservationService
	store    GraphStore
	interval time.Duration
	log      *logrus.Logger

	saveMu   sync.Mutex // one save at a time
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewPersistenceService returns a service that autosaves every interval once
// started. An interval of zero disables autosave; SaveNow still works.
func NewPersistenceService(engine *ReservationService, store GraphStore, interval time.Duration, log *logrus.Logger) *PersistenceService {
	return &PersistenceService{
		engine:   engine,
		store:    store,
		interval: interval,
		log:      log,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// SaveNow snapshots the engine and saves it. A failure is logged and
// returned; the in-memory graph is unaffected either way.
func (s *PersistenceService) SaveNow(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	start := time.Now()
	g, err := s.engine.Snapshot(ctx)
	if err != nil {
		s.log.WithError(err).Error("snapshot failed")
		return err
	}
	if err := s.store.Save(ctx, g); err != nil {
		s.log.WithError(err).Error("save failed")
		return err
	}
	s.log.WithField("elapsed", time.Since(start)).Debug("graph saved")
	return nil
}

// Start launches the autosave loop. It returns immediately; the loop runs
// until ctx is cancelled or Stop is called.
func (s *PersistenceService) Start(ctx context.Context) {
	if s.interval <= 0 {
		close(s.done)
		return
	}
	go s.autosave(ctx)
}

func (s *PersistenceService) autosave(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// Errors are already logged; the next tick tries again.
			_ = s.SaveNow(ctx)
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		}
	}
}

// Stop ends the autosave loop and waits for an in-flight save to finish.
// It must only be called after Start.
func (s *PersistenceService) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}

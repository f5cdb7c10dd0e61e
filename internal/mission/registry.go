// File: internal/mission/registry.go

// Package mission implements the mission engine: sessions that drive one
// browser each toward an objective, and the registry that owns their
// lifecycle.
package mission

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/reasonos/websurfer/api/schemas"
	"github.com/reasonos/websurfer/internal/config"
)

// Registry owns every live session. Creation is capped by a weighted
// semaphore; a slot is held from browser launch until the session is
// destroyed. An optional janitor reclaims sessions idle past their TTL.
type Registry struct {
	newBrowser BrowserFactory
	oracle     Oracle
	extractor  Extractor
	cfg        config.SessionConfig
	logger     *zap.Logger

	slots *semaphore.Weighted

	mu       sync.RWMutex
	sessions map[string]*Session

	janitorStop chan struct{}
	janitorDone chan struct{}
	stopOnce    sync.Once
}

func NewRegistry(newBrowser BrowserFactory, oracle Oracle, extractor Extractor, cfg config.SessionConfig, logger *zap.Logger) *Registry {
	maxSessions := cfg.MaxSessions
	if maxSessions <= 0 {
		maxSessions = 8
	}
	r := &Registry{
		newBrowser:  newBrowser,
		oracle:      oracle,
		extractor:   extractor,
		cfg:         cfg,
		logger:      logger.Named("registry"),
		slots:       semaphore.NewWeighted(int64(maxSessions)),
		sessions:    make(map[string]*Session),
		janitorStop: make(chan struct{}),
		janitorDone: make(chan struct{}),
	}
	go r.janitor()
	return r
}

// Create launches a browser, starts a session for the objective, and registers
// it under a fresh identifier. On any failure the browser is torn down, the
// slot released, and nothing is registered.
func (r *Registry) Create(ctx context.Context, objective string) (*Session, error) {
	if objective == "" {
		return nil, fmt.Errorf("objective must not be empty")
	}
	if err := r.slots.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("waiting for a session slot: %w", err)
	}

	browser, err := r.newBrowser(ctx)
	if err != nil {
		r.slots.Release(1)
		return nil, &schemas.InitializationError{Err: err}
	}

	id := uuid.NewString()
	session := NewSession(id, objective, browser, r.oracle, r.extractor, r.cfg, r.logger)
	if err := session.Start(ctx); err != nil {
		_ = browser.Close()
		r.slots.Release(1)
		return nil, err
	}

	r.mu.Lock()
	r.sessions[id] = session
	r.mu.Unlock()

	r.logger.Info("Session created", zap.String("session_id", id))
	return session, nil
}

// Get returns the live session for id.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	session, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, schemas.ErrSessionNotFound
	}
	return session, nil
}

// Step advances the identified session by one cycle.
func (r *Registry) Step(ctx context.Context, id string) (schemas.StepResult, error) {
	session, err := r.Get(id)
	if err != nil {
		return schemas.StepResult{}, err
	}
	return session.Step(ctx)
}

// Delete destroys the identified session and frees its slot. A second delete
// of the same id reports schemas.ErrSessionNotFound.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	session, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()
	if !ok {
		return schemas.ErrSessionNotFound
	}

	err := session.Destroy()
	r.slots.Release(1)
	return err
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Close destroys every session and stops the janitor. Used on server shutdown.
func (r *Registry) Close() {
	r.stopOnce.Do(func() {
		close(r.janitorStop)
		<-r.janitorDone
	})

	r.mu.Lock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		if err := r.Delete(id); err != nil && err != schemas.ErrSessionNotFound {
			r.logger.Warn("Failed to destroy session during shutdown",
				zap.String("session_id", id), zap.Error(err))
		}
	}
}

// janitor reclaims sessions idle past the configured TTL. Disabled when no TTL
// is set; completed and failed sessions are kept until deleted or expired so
// callers can still read their results.
func (r *Registry) janitor() {
	defer close(r.janitorDone)

	if r.cfg.IdleTTL <= 0 {
		<-r.janitorStop
		return
	}

	interval := r.cfg.JanitorInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.janitorStop:
			return
		case <-ticker.C:
			r.reapIdle()
		}
	}
}

func (r *Registry) reapIdle() {
	cutoff := time.Now().Add(-r.cfg.IdleTTL)

	r.mu.RLock()
	var expired []string
	for id, session := range r.sessions {
		if session.LastActive().Before(cutoff) {
			expired = append(expired, id)
		}
	}
	r.mu.RUnlock()

	for _, id := range expired {
		r.logger.Info("Reaping idle session", zap.String("session_id", id))
		if err := r.Delete(id); err != nil && err != schemas.ErrSessionNotFound {
			r.logger.Warn("Failed to reap session", zap.String("session_id", id), zap.Error(err))
		}
	}
}

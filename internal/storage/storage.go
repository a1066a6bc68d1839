// Package storage persists review sessions.
package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/boarddeck/boarddeck/internal/apperr"
	"github.com/boarddeck/boarddeck/internal/config"
	"github.com/boarddeck/boarddeck/internal/models"
)

// Store is a session repository. Get returns a copy; callers persist changes with Set or Update.
type Store interface {
	Get(ctx context.Context, id string) (*models.Session, error)
	Set(ctx context.Context, session *models.Session) error
	// Update applies fn to the stored session and saves the result atomically.
	// If fn returns an error nothing is written.
	Update(ctx context.Context, id string, fn func(*models.Session) error) (*models.Session, error)
	GetAll(ctx context.Context) ([]*models.Session, error)
	Delete(ctx context.Context, id string) error
	Close()
}

// New returns a postgres store when DATABASE_URL is set and an in-memory store otherwise.
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	if cfg.UsePostgres() {
		return NewPostgres(ctx, cfg.DatabaseURL)
	}
	return NewMemory(), nil
}

type SessionStore struct {
	sessions map[string]*models.Session
	mu       sync.RWMutex
}

func NewMemory() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*models.Session),
	}
}

func (s *SessionStore) Get(ctx context.Context, id string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, exists := s.sessions[id]
	if !exists {
		return nil, apperr.NotFound("session %s not found", id)
	}
	return clone(session), nil
}

func (s *SessionStore) Set(ctx context.Context, session *models.Session) error {
	if session == nil || session.ID == "" {
		return apperr.InvalidInput("session id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = clone(session)
	return nil
}

func (s *SessionStore) Update(ctx context.Context, id string, fn func(*models.Session) error) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, exists := s.sessions[id]
	if !exists {
		return nil, apperr.NotFound("session %s not found", id)
	}
	next := clone(current)
	if err := fn(next); err != nil {
		return nil, err
	}
	next.ID = id
	s.sessions[id] = clone(next)
	return next, nil
}

// GetAll returns every session, newest first.
func (s *SessionStore) GetAll(ctx context.Context) ([]*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Session, 0, len(s.sessions))
	for _, v := range s.sessions {
		result = append(result, clone(v))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[id]; !exists {
		return apperr.NotFound("session %s not found", id)
	}
	delete(s.sessions, id)
	return nil
}

func (s *SessionStore) Close() {}

func clone(s *models.Session) *models.Session {
	c := *s
	c.Content = s.Content.Clone()
	if s.LastExport != nil {
		r := *s.LastExport
		c.LastExport = &r
	}
	return &c
}

package game

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/playmatatu/minigolf/internal/course"
	"github.com/rs/zerolog/log"
)

var ErrSessionNotFound = errors.New("session not found")

type managedSession struct {
	session *Session
	cancel  context.CancelFunc
}

// Manager owns all running sessions.
type Manager struct {
	catalog  *course.Catalog
	tuning   Tuning
	opts     SessionOptions
	observer Observer
	recorder Recorder

	ctx      context.Context
	sessions map[string]*managedSession
	mu       sync.RWMutex
}

// NewManager creates a manager whose sessions live until ctx is cancelled or
// they are removed. obs and rec may be nil.
func NewManager(ctx context.Context, catalog *course.Catalog, tuning Tuning, opts SessionOptions, obs Observer, rec Recorder) (*Manager, error) {
	if catalog == nil {
		return nil, ErrNoCatalog
	}
	if err := tuning.Validate(); err != nil {
		return nil, err
	}
	return &Manager{
		catalog:  catalog,
		tuning:   tuning,
		opts:     opts,
		observer: obs,
		recorder: rec,
		ctx:      ctx,
		sessions: make(map[string]*managedSession),
	}, nil
}

// generateToken generates a random hex token
func generateToken(length int) string {
	b := make([]byte, length)
	rand.Read(b)
	return hex.EncodeToString(b)
}

func generateSessionID() string {
	return "golf_" + generateToken(8)
}

func (m *Manager) Catalog() *course.Catalog { return m.catalog }

// Create starts a new session on level 1.
func (m *Manager) Create(seed uint64) (*Session, error) {
	g, err := NewGame(m.catalog, m.tuning, seed)
	if err != nil {
		return nil, err
	}
	s, err := NewSession(generateSessionID(), g, m.opts, m.observer, m.recorder)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(m.ctx)

	m.mu.Lock()
	m.sessions[s.ID] = &managedSession{session: s, cancel: cancel}
	m.mu.Unlock()

	go s.Run(ctx)
	log.Info().Str("session", s.ID).Uint64("seed", seed).Msg("[MANAGER] session created")
	return s, nil
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ms, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return ms.session, nil
}

// Remove stops a session and waits for its goroutine to exit.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	ms, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	ms.cancel()
	<-ms.session.Done()
	log.Info().Str("session", id).Msg("[MANAGER] session removed")
	return nil
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// SessionInfo describes a running session for the admin listing.
type SessionInfo struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	LastInput time.Time `json:"last_input"`
	Level     int       `json:"level"`
	Strokes   int       `json:"strokes"`
	Status    Status    `json:"status"`
}

// List returns every running session, oldest first.
func (m *Manager) List() []SessionInfo {
	m.mu.RLock()
	infos := make([]SessionInfo, 0, len(m.sessions))
	for id, ms := range m.sessions {
		info := SessionInfo{ID: id, CreatedAt: ms.session.CreatedAt, LastInput: ms.session.LastInput()}
		if snap := ms.session.Snapshot(); snap != nil {
			info.Level = snap.Level
			info.Strokes = snap.Strokes
			info.Status = snap.Status
		}
		infos = append(infos, info)
	}
	m.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos
}

// ReapIdle removes sessions with no input since before cutoff and returns
// their IDs.
func (m *Manager) ReapIdle(cutoff time.Time) []string {
	m.mu.RLock()
	var idle []string
	for id, ms := range m.sessions {
		if ms.session.LastInput().Before(cutoff) {
			idle = append(idle, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range idle {
		if err := m.Remove(id); err != nil && !errors.Is(err, ErrSessionNotFound) {
			log.Warn().Err(err).Str("session", id).Msg("[IDLE] remove failed")
		}
	}
	return idle
}

// StartIdleReaper removes sessions idle for longer than idle, checking every
// interval, until ctx is cancelled.
func (m *Manager) StartIdleReaper(ctx context.Context, idle, interval time.Duration) {
	if idle <= 0 || interval <= 0 {
		log.Warn().Msg("[IDLE] idle timeout not configured; reaper not started")
		return
	}

	log.Info().Dur("idle", idle).Msg("[IDLE] reaper started")
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("[IDLE] reaper stopping")
				return
			case now := <-ticker.C:
				if reaped := m.ReapIdle(now.Add(-idle)); len(reaped) > 0 {
					log.Info().Strs("sessions", reaped).Msg("[IDLE] reaped idle sessions")
				}
			}
		}
	}()
}

// Shutdown stops every session.
func (m *Manager) Shutdown() {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	for _, id := range ids {
		_ = m.Remove(id)
	}
}

package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"entrepreneursim/internal/adapter/backend"
	"entrepreneursim/internal/domain"
)

// Options tunes a Manager
type Options struct {
	// TTL caps how long a credential stays valid after login
	TTL time.Duration
	// IdleTimeout drops in-memory sessions not seen for this long.
	// Their stored credential stays, so the next request restores them.
	IdleTimeout time.Duration
	Logger      *logrus.Entry
	Now         func() time.Time
}

// Manager owns every live Session in the process
type Manager struct {
	client *backend.Client
	store  domain.CredentialRepository
	sealer *Sealer
	opts   Options

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a Manager. client must not carry a credential.
func NewManager(client *backend.Client, store domain.CredentialRepository, sealer *Sealer, opts Options) *Manager {
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 30 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = logrus.WithField("component", "session")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		client:   client,
		store:    store,
		sealer:   sealer,
		opts:     opts,
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) newSession(id string) *Session {
	return &Session{
		id:       id,
		client:   m.client,
		store:    m.store,
		sealer:   m.sealer,
		ttl:      m.opts.TTL,
		now:      m.opts.Now,
		log:      m.opts.Logger,
		inflight: make(map[string]bool),
		lastSeen: m.opts.Now(),
		resolved: make(chan struct{}),
	}
}

// Get returns the session for a cookie id. An id not seen by this process is
// adopted and will restore from storage on Resolve. An empty or malformed id
// yields a fresh session; created is true whenever the cookie must be (re)set.
func (m *Manager) Get(id string) (s *Session, created bool) {
	if _, err := uuid.Parse(id); err != nil {
		return m.New(), true
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		s.touch(m.opts.Now())
		return s, false
	}
	s = m.newSession(id)
	m.sessions[id] = s
	return s, false
}

// New starts an empty, already resolved session under a fresh id
func (m *Manager) New() *Session {
	s := m.newSession(uuid.NewString())
	s.markResolved()

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()
	return s
}

// Rotate retires old (logging it out) and returns a fresh session to carry over.
// Called before an identity is established so a planted cookie id never becomes authenticated.
func (m *Manager) Rotate(ctx context.Context, old *Session) *Session {
	fresh := m.New()
	if old == nil {
		return fresh
	}

	// Let a restore in progress finish so it cannot race the logout below.
	_ = old.Resolve(ctx)
	old.Logout(ctx)
	for _, f := range old.TakeFlashes() {
		fresh.AddFlash(f.Kind, f.Message)
	}

	m.mu.Lock()
	delete(m.sessions, old.id)
	m.mu.Unlock()
	return fresh
}

// Len reports how many sessions are held in memory
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// EvictIdle drops sessions idle past IdleTimeout and returns how many went
func (m *Manager) EvictIdle() int {
	cutoff := m.opts.Now().Add(-m.opts.IdleTimeout)

	m.mu.Lock()
	defer m.mu.Unlock()
	evicted := 0
	for id, s := range m.sessions {
		if s.idleSince(cutoff) {
			delete(m.sessions, id)
			evicted++
		}
	}
	return evicted
}

// Sweep removes expired stored credentials and evicts idle sessions
func (m *Manager) Sweep(ctx context.Context) error {
	removed, err := m.store.DeleteExpired(ctx, m.opts.Now())
	evicted := m.EvictIdle()

	m.opts.Logger.WithFields(logrus.Fields{
		"expired_credentials": removed,
		"evicted_sessions":    evicted,
		"live_sessions":       m.Len(),
	}).Debug("Session sweep finished")

	if err != nil {
		return fmt.Errorf("failed to delete expired credentials: %w", err)
	}
	return nil
}

// Ping checks the credential store
func (m *Manager) Ping(ctx context.Context) error {
	return m.store.Ping(ctx)
}

// Package session keeps the per-browser session store: the authenticated
// identity, its bearer credential and the loading flag raised while a
// persisted credential is being resolved.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"entrepreneursim/internal/adapter/backend"
	"entrepreneursim/internal/domain"
)

const restoreTimeout = 10 * time.Second

// Result is the outcome of a login or registration
type Result struct {
	Success bool
	Error   string
}

// Flash kinds
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashInfo    = "info"
)

// Flash is a one-shot message shown on the next rendered page
type Flash struct {
	Kind    string
	Message string
}

// Session is one browser's view of who is logged in.
// Use Manager to create sessions; the zero value is not usable.
type Session struct {
	id     string
	client *backend.Client
	store  domain.CredentialRepository
	sealer *Sealer
	ttl    time.Duration
	now    func() time.Time
	log    *logrus.Entry

	mu        sync.Mutex
	user      *domain.User
	api       *backend.Client
	expiresAt time.Time
	inflight  map[string]bool
	flashes   []Flash
	lastSeen  time.Time

	resolveOnce sync.Once
	resolved    chan struct{}
}

// ID returns the browser session id carried in the cookie
func (s *Session) ID() string {
	return s.id
}

// Loading reports whether a persisted credential is still being resolved
func (s *Session) Loading() bool {
	select {
	case <-s.resolved:
		return false
	default:
		return true
	}
}

// Resolve waits until the persisted credential (if any) has been resolved to a
// user. The first caller starts the resolution; it keeps running if that
// caller's ctx ends, so a browser that disconnects mid-restore does not log
// itself out.
func (s *Session) Resolve(ctx context.Context) error {
	s.resolveOnce.Do(func() {
		restoreCtx := context.WithoutCancel(ctx)
		go func() {
			defer close(s.resolved)
			ctx, cancel := context.WithTimeout(restoreCtx, restoreTimeout)
			defer cancel()
			s.restore(ctx)
		}()
	})

	select {
	case <-s.resolved:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// markResolved skips restoration for sessions created without a persisted credential
func (s *Session) markResolved() {
	s.resolveOnce.Do(func() { close(s.resolved) })
}

func (s *Session) restore(ctx context.Context) {
	log := s.log.WithField("session", s.id)

	stored, err := s.store.Get(ctx, s.id)
	if errors.Is(err, domain.ErrCredentialNotFound) {
		return
	}
	if err != nil {
		log.WithError(err).Warn("Failed to load stored credential")
		return
	}

	now := s.now()
	if stored.Expired(now) {
		log.Info("Stored credential expired, logging out")
		s.Logout(ctx)
		return
	}

	token, err := s.sealer.Open(s.id, stored.Sealed)
	if err != nil {
		log.WithError(err).Warn("Stored credential is unreadable, logging out")
		s.Logout(ctx)
		return
	}
	if exp, ok := credentialExpiry(token); ok && !now.Before(exp) {
		log.Info("Credential token expired, logging out")
		s.Logout(ctx)
		return
	}

	api := s.client.WithCredential(token)
	user, err := api.Profile(ctx)
	if err != nil {
		log.WithError(err).Warn("Failed to resolve credential to a profile, logging out")
		s.Logout(ctx)
		return
	}

	s.mu.Lock()
	s.user = user
	s.api = api
	s.expiresAt = stored.ExpiresAt
	s.mu.Unlock()
	log.WithField("user", user.Username).Debug("Session restored")
}

// Login sends credentials to the backend. On success the credential is kept
// for later requests and persisted, and the user is set. Failures carry the
// server's message and leave the session unchanged. No retry.
func (s *Session) Login(ctx context.Context, username, password string) Result {
	if err := s.Resolve(ctx); err != nil {
		return Result{Error: "Login failed"}
	}

	resp, err := s.client.Login(ctx, backend.LoginRequest{Username: username, Password: password})
	if err != nil {
		s.log.WithError(err).WithField("username", username).Info("Login rejected")
		return Result{Error: backend.UserMessage(err, "Login failed")}
	}

	s.establish(ctx, resp)
	return Result{Success: true}
}

// Register creates a new identity with the same contract as Login
func (s *Session) Register(ctx context.Context, username, email, password, role string) Result {
	if err := s.Resolve(ctx); err != nil {
		return Result{Error: "Registration failed"}
	}

	resp, err := s.client.Register(ctx, backend.RegisterRequest{
		Username: username,
		Email:    email,
		Password: password,
		Role:     role,
	})
	if err != nil {
		s.log.WithError(err).WithField("username", username).Info("Registration rejected")
		return Result{Error: backend.UserMessage(err, "Registration failed")}
	}

	s.establish(ctx, resp)
	return Result{Success: true}
}

func (s *Session) establish(ctx context.Context, resp *backend.AuthResponse) {
	now := s.now()
	expiresAt := expiryFor(resp.Token, now, s.ttl)
	user := *resp.User

	s.mu.Lock()
	s.user = &user
	s.api = s.client.WithCredential(resp.Token)
	s.expiresAt = expiresAt
	s.mu.Unlock()

	sealed, err := s.sealer.Seal(s.id, resp.Token)
	if err == nil {
		err = s.store.Put(ctx, &domain.StoredCredential{
			SessionID: s.id,
			Sealed:    sealed,
			ExpiresAt: expiresAt,
			CreatedAt: now,
		})
	}
	if err != nil {
		// The session still works until the process restarts.
		s.log.WithError(err).WithField("session", s.id).Warn("Failed to persist credential")
	}
}

// Logout clears the identity and credential, in memory and in storage. Idempotent.
func (s *Session) Logout(ctx context.Context) {
	s.mu.Lock()
	s.user = nil
	s.api = nil
	s.expiresAt = time.Time{}
	s.mu.Unlock()

	if err := s.store.Delete(ctx, s.id); err != nil {
		s.log.WithError(err).WithField("session", s.id).Warn("Failed to delete stored credential")
	}
}

// ExpireIfDue logs the session out once its credential has expired and reports whether it did
func (s *Session) ExpireIfDue(ctx context.Context) bool {
	s.mu.Lock()
	due := s.user != nil && !s.expiresAt.IsZero() && !s.now().Before(s.expiresAt)
	s.mu.Unlock()

	if due {
		s.Logout(ctx)
	}
	return due
}

// UpdateBalance overwrites the cached balance only. The caller is trusted.
func (s *Session) UpdateBalance(newBalance decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return
	}
	updated := *s.user
	updated.Balance = newBalance
	s.user = &updated
}

// User returns a copy of the current identity, nil when logged out
func (s *Session) User() *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Authenticated reports whether a user is logged in
func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user != nil
}

// API returns the backend client bound to the session credential, nil when logged out
func (s *Session) API() *backend.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.api
}

// Begin marks action as in flight. It returns false while the same action is
// already running for this session; otherwise done must be called when it ends.
func (s *Session) Begin(action string) (done func(), ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight[action] {
		return nil, false
	}
	s.inflight[action] = true

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.inflight, action)
			s.mu.Unlock()
		})
	}, true
}

// AddFlash queues a message for the next rendered page
func (s *Session) AddFlash(kind, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flashes = append(s.flashes, Flash{Kind: kind, Message: message})
}

// TakeFlashes returns and clears the queued messages
func (s *Session) TakeFlashes() []Flash {
	s.mu.Lock()
	defer s.mu.Unlock()
	flashes := s.flashes
	s.flashes = nil
	return flashes
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

// idleSince reports whether the session was last seen before cutoff and has nothing running
func (s *Session) idleSince(cutoff time.Time) bool {
	if s.Loading() {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen.Before(cutoff) && len(s.inflight) == 0
}

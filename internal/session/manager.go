// Package session tracks signed-in users. Sign-in exchanges a verified
// identity provider token for an opaque bearer token.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"marketplace-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultTTL is how long a session stays valid after sign-in
const DefaultTTL = 12 * time.Hour

// Roles
const (
	RoleCustomer = "customer"
	RoleShop     = "shop"
	RoleAdmin    = "admin"
)

var (
	// ErrNoSession is returned for unknown, expired or signed-out tokens
	ErrNoSession = errors.New("no active session")

	// ErrInvalidIdentity is returned when a verified token lacks a user id
	ErrInvalidIdentity = errors.New("invalid identity")
)

// Identity is the signed-in user as vouched for by the auth provider
type Identity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// Session is one signed-in user
type Session struct {
	Token     string    `json:"token"`
	Identity  Identity  `json:"identity"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsAdmin reports whether the session may use the admin panel
func (s *Session) IsAdmin() bool {
	return s.Identity.Role == RoleAdmin
}

// EventKind tells sign-in from sign-out
type EventKind string

// Event kinds
const (
	EventSignedIn  EventKind = "signed_in"
	EventSignedOut EventKind = "signed_out"
)

// Event is delivered to subscribers when a session starts or ends
type Event struct {
	Kind    EventKind
	Session Session
}

// Manager holds the active sessions of the process
type Manager struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	subscribers []func(Event)
	verifier    TokenVerifier
	ttl         time.Duration
	now         func() time.Time
	logger      *zap.Logger
}

// Option customizes a Manager
type Option func(*Manager)

// WithTTL sets the session lifetime
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) { m.ttl = ttl }
}

// WithClock replaces the wall clock
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates an empty session manager that accepts identity
// tokens checked by verifier
func NewManager(verifier TokenVerifier, opts ...Option) *Manager {
	m := &Manager{
		sessions: make(map[string]*Session),
		verifier: verifier,
		ttl:      DefaultTTL,
		now:      time.Now,
		logger:   util.ComponentLogger("sessions"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Subscribe registers fn for sign-in and sign-out events. Callbacks run
// synchronously after the session table is updated.
func (m *Manager) Subscribe(fn func(Event)) {
	m.mu.Lock()
	m.subscribers = append(m.subscribers, fn)
	m.mu.Unlock()
}

// SignIn verifies an identity provider token and opens a session for the
// identity it carries
func (m *Manager) SignIn(ctx context.Context, idToken string) (*Session, error) {
	if idToken == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}

	id, err := m.verifier.Verify(ctx, idToken)
	if err != nil {
		m.logger.Warn("Rejected identity token", zap.Error(err))
		return nil, err
	}
	if id.UserID == "" {
		return nil, ErrInvalidIdentity
	}
	id.Role = normalizeRole(id.Role)

	now := m.now()
	s := &Session{
		Token:     uuid.New().String(),
		Identity:  id,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}

	m.mu.Lock()
	m.sessions[s.Token] = s
	subscribers := m.subscribers
	m.mu.Unlock()

	m.logger.Info("Session opened", zap.String("user_id", id.UserID), zap.String("role", id.Role))
	notify(subscribers, Event{Kind: EventSignedIn, Session: *s})

	out := *s
	return &out, nil
}

// Lookup returns the live session for token
func (m *Manager) Lookup(token string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[token]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrNoSession
	}
	if !m.now().Before(s.ExpiresAt) {
		m.mu.Lock()
		delete(m.sessions, token)
		m.mu.Unlock()
		return nil, ErrNoSession
	}

	out := *s
	return &out, nil
}

// SignOut closes the session for token
func (m *Manager) SignOut(token string) error {
	m.mu.Lock()
	s, ok := m.sessions[token]
	if ok {
		delete(m.sessions, token)
	}
	subscribers := m.subscribers
	m.mu.Unlock()

	if !ok {
		return ErrNoSession
	}

	m.logger.Info("Session closed", zap.String("user_id", s.Identity.UserID))
	notify(subscribers, Event{Kind: EventSignedOut, Session: *s})
	return nil
}

// Active returns the number of sessions that have not expired
func (m *Manager) Active() int {
	now := m.now()

	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, s := range m.sessions {
		if now.Before(s.ExpiresAt) {
			n++
		}
	}
	return n
}

func notify(subscribers []func(Event), e Event) {
	for _, fn := range subscribers {
		fn(e)
	}
}

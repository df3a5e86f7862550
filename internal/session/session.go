// Package session manages dashboard login sessions. A Session is created by
// Login, carried through request contexts and torn down by Logout or expiry.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials is returned by Login for a bad email or password.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUnauthenticated is returned for a missing, invalid or expired token.
	ErrUnauthenticated = errors.New("not authenticated")
)

// Default identity used when no accounts are configured.
const (
	MockName = "Dr. Smith"
	MockRole = "Administrator"
)

// Account is a configured login.
type Account struct {
	Email        string
	Name         string
	Role         string
	PasswordHash string
}

// Session is one logged-in browser.
type Session struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session has expired at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// TeardownFunc runs after a session ends. reason is "logout" or "expired".
type TeardownFunc func(s *Session, reason string)

// Manager issues and validates sessions.
type Manager struct {
	secret   []byte
	ttl      time.Duration
	accounts map[string]Account
	now      func() time.Time

	mu        sync.Mutex
	sessions  map[string]*Session
	teardowns []TeardownFunc
}

// NewManager creates a manager signing tokens with secret. An empty secret
// gets a random one, which invalidates tokens across restarts.
func NewManager(secret string, ttl time.Duration, accounts []Account) *Manager {
	if secret == "" {
		secret = uuid.NewString() + uuid.NewString()
		slog.Warn("session secret not configured, using a random one")
	}
	m := &Manager{
		secret:   []byte(secret),
		ttl:      ttl,
		accounts: make(map[string]Account, len(accounts)),
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
	for _, a := range accounts {
		m.accounts[strings.ToLower(strings.TrimSpace(a.Email))] = a
	}
	return m
}

// OnTeardown registers fn to run after every Logout or expiry.
func (m *Manager) OnTeardown(fn TeardownFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teardowns = append(m.teardowns, fn)
}

// Login checks the credentials and opens a session, returning it with its
// signed token.
func (m *Manager) Login(email, password string) (*Session, string, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, "", ErrInvalidCredentials
	}

	name, role := MockName, MockRole
	if len(m.accounts) > 0 {
		acct, ok := m.accounts[strings.ToLower(email)]
		if !ok {
			return nil, "", ErrInvalidCredentials
		}
		if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
			return nil, "", ErrInvalidCredentials
		}
		if acct.Name != "" {
			name = acct.Name
		}
		if acct.Role != "" {
			role = acct.Role
		}
	}

	now := m.now().UTC().Truncate(time.Second)
	s := &Session{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      name,
		Role:      role,
		IssuedAt:  now,
		ExpiresAt: now.Add(m.ttl),
	}

	token, err := m.sign(s)
	if err != nil {
		return nil, "", fmt.Errorf("signing session token: %w", err)
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	slog.Info("session opened", "session_id", s.ID, "email", s.Email)
	return s, token, nil
}

func (m *Manager) sign(s *Session) (string, error) {
	claims := jwt.MapClaims{
		"sid":  s.ID,
		"sub":  s.Email,
		"name": s.Name,
		"role": s.Role,
		"iat":  s.IssuedAt.Unix(),
		"exp":  s.ExpiresAt.Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Authenticate validates token and returns its live session.
func (m *Manager) Authenticate(token string) (*Session, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, ErrUnauthenticated
	}
	sid, _ := claims["sid"].(string)

	m.mu.Lock()
	s, ok := m.sessions[sid]
	m.mu.Unlock()
	if !ok {
		return nil, ErrUnauthenticated
	}
	if s.Expired(m.now()) {
		m.end(sid, "expired")
		return nil, ErrUnauthenticated
	}
	return s, nil
}

// Get returns the live session with id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Logout ends the session with id. Unknown ids are ignored.
func (m *Manager) Logout(id string) {
	m.end(id, "logout")
}

// Sweep ends every session expired at now and returns how many ended.
func (m *Manager) Sweep(now time.Time) int {
	m.mu.Lock()
	var expired []string
	for id, s := range m.sessions {
		if s.Expired(now) {
			expired = append(expired, id)
		}
	}
	m.mu.Unlock()

	for _, id := range expired {
		m.end(id, "expired")
	}
	return len(expired)
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) end(id, reason string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	hooks := append([]TeardownFunc(nil), m.teardowns...)
	m.mu.Unlock()

	if !ok {
		return
	}
	slog.Info("session closed", "session_id", id, "reason", reason)
	for _, fn := range hooks {
		fn(s, reason)
	}
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying s.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session carried by ctx.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(contextKey{}).(*Session)
	return s, ok && s != nil
}

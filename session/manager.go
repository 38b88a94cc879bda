package session

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultCacheTTL bounds how long a stored user record is served from memory
// before the store is consulted again.
const DefaultCacheTTL = 5 * time.Minute

// Manager is the single source of truth for "who is logged in". It wraps a
// persistent Store (the durable token/user/flag records) with a short-lived
// in-memory read cache, and drives the API client for the network flows.
//
// Construct one per application and pass it to the components that need
// identity; there is no package-level instance.
type Manager struct {
	store  Store
	client *Client
	log    *zap.Logger

	cacheTTL    time.Duration
	now         func() time.Time
	userCache   *User
	cacheExpiry time.Time
}

// Option tweaks Manager construction.
type Option func(*Manager)

// WithCacheTTL overrides the user cache lifetime.
func WithCacheTTL(ttl time.Duration) Option {
	return func(m *Manager) { m.cacheTTL = ttl }
}

// WithClock injects a time source for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager wires a session manager around a store and API client.
func NewManager(store Store, client *Client, log *zap.Logger, opts ...Option) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Manager{
		store:    store,
		client:   client,
		log:      log,
		cacheTTL: DefaultCacheTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// IsAuthenticated reports whether a token is present in the store. Token
// presence is the sole authoritative signal of "authenticated".
func (m *Manager) IsAuthenticated() bool {
	_, ok := m.store.Get(KeyToken)
	return ok
}

// Token returns the stored bearer token, or "" when logged out.
func (m *Manager) Token() string {
	token, _ := m.store.Get(KeyToken)
	return token
}

// CurrentUser returns the cached user projection. Within the cache TTL the
// in-memory copy is served; afterwards the store is re-read and the cache
// repopulated. It never makes a network call.
func (m *Manager) CurrentUser() *User {
	if m.userCache != nil && m.now().Before(m.cacheExpiry) {
		return m.userCache
	}

	raw, ok := m.store.Get(KeyUser)
	if !ok {
		return nil
	}

	var user User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		m.log.Error("corrupt stored user record", zap.Error(err))
		return nil
	}

	m.userCache = &user
	m.cacheExpiry = m.now().Add(m.cacheTTL)
	return m.userCache
}

// FetchCurrentUser refreshes the user record from the backend. A 401 forces
// a full local logout; any other failure leaves prior state intact so a
// flaky network never logs the user out.
func (m *Manager) FetchCurrentUser(ctx context.Context) (*User, error) {
	token, ok := m.store.Get(KeyToken)
	if !ok {
		return nil, nil
	}

	user, err := m.client.Me(ctx, token)
	if err != nil {
		if IsUnauthorized(err) {
			m.log.Info("session rejected by backend, clearing local state")
			m.Logout(ctx)
			return nil, err
		}
		m.log.Warn("fetch current user failed, keeping cached state", zap.Error(err))
		return nil, err
	}

	if err := m.persistUser(user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login authenticates against the backend and establishes the local session.
// On failure no existing local state is touched.
func (m *Manager) Login(ctx context.Context, email, password string, rememberMe bool) (*User, error) {
	user, token, err := m.client.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}

	if err := m.establish(user, token); err != nil {
		return nil, err
	}
	if rememberMe {
		if err := m.store.Set(KeyRememberMe, "true"); err != nil {
			return nil, err
		}
	} else if err := m.store.Delete(KeyRememberMe); err != nil {
		return nil, err
	}
	if err := m.store.Set(KeyLastEmail, email); err != nil {
		return nil, err
	}

	m.log.Info("login succeeded", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

// Register creates an account; success behaves as an implicit login.
func (m *Manager) Register(ctx context.Context, params RegisterParams) (*User, error) {
	user, token, err := m.client.Register(ctx, params)
	if err != nil {
		return nil, err
	}

	if err := m.establish(user, token); err != nil {
		return nil, err
	}

	m.log.Info("registration succeeded", zap.String("user_id", user.ID))
	return user, nil
}

// Logout invalidates the token server-side on a best-effort basis and always
// clears local state: stale local credentials are worse than a dangling
// server-side session.
func (m *Manager) Logout(ctx context.Context) {
	if token, ok := m.store.Get(KeyToken); ok {
		if err := m.client.Logout(ctx, token); err != nil {
			m.log.Warn("backend logout failed, clearing local state anyway", zap.Error(err))
		}
	}

	m.store.Delete(KeyToken)
	m.store.Delete(KeyUser)
	m.InvalidateCache()

	// The last-used email survives only when remember-me was chosen.
	if _, remembered := m.store.Get(KeyRememberMe); !remembered {
		m.store.Delete(KeyLastEmail)
	}
}

// UpdateProfile sends the patch to the backend; the response user replaces
// both the store and the cache.
func (m *Manager) UpdateProfile(ctx context.Context, patch ProfilePatch) (*User, error) {
	token, ok := m.store.Get(KeyToken)
	if !ok {
		return nil, &APIError{Kind: KindUnauthorized, Message: "no active session"}
	}

	user, err := m.client.UpdateProfile(ctx, token, patch)
	if err != nil {
		if IsUnauthorized(err) {
			m.Logout(ctx)
		}
		return nil, err
	}

	if err := m.persistUser(user); err != nil {
		return nil, err
	}
	return user, nil
}

// InvalidateCache drops the in-memory user copy so the next read hits the
// store. Mutators call this instead of waiting out the TTL.
func (m *Manager) InvalidateCache() {
	m.userCache = nil
	m.cacheExpiry = time.Time{}
}

// IsProfileComplete reports whether name, phone and city are all non-empty
// on the current user. Pure derived predicate, no storage write.
func (m *Manager) IsProfileComplete() bool {
	user := m.CurrentUser()
	if user == nil {
		return false
	}
	return strings.TrimSpace(user.Name) != "" &&
		strings.TrimSpace(user.Phone) != "" &&
		strings.TrimSpace(user.City) != ""
}

// Role returns the current user's role, or "" when logged out.
func (m *Manager) Role() Role {
	if user := m.CurrentUser(); user != nil {
		return user.Role
	}
	return ""
}

// IsAdmin reports whether the current user is an administrator.
func (m *Manager) IsAdmin() bool { return m.Role() == RoleAdmin }

// IsClient reports whether the current user is a client.
func (m *Manager) IsClient() bool { return m.Role() == RoleClient }

// IsProvider reports whether the current user is a provider.
func (m *Manager) IsProvider() bool { return m.Role() == RoleProvider }

// LastEmail returns the remembered login email, if any.
func (m *Manager) LastEmail() string {
	email, _ := m.store.Get(KeyLastEmail)
	return email
}

// establish writes token and user together. They are never stored one
// without the other, to avoid an authenticated-but-userless state.
func (m *Manager) establish(user *User, token string) error {
	if err := m.store.Set(KeyToken, token); err != nil {
		return err
	}
	return m.persistUser(user)
}

func (m *Manager) persistUser(user *User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return err
	}
	if err := m.store.Set(KeyUser, string(raw)); err != nil {
		return err
	}
	m.userCache = user
	m.cacheExpiry = m.now().Add(m.cacheTTL)
	return nil
}

package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"BrokerConsole/pkg/cache"
	applogger "BrokerConsole/pkg/logger"
)

const (
	// DefaultKey is the storage key of the admin flag.
	DefaultKey = "isAdmin"

	authenticatedValue = "true"
	storageTimeout     = 5 * time.Second
)

// Store holds the admin session flag and mirrors it to durable storage.
// The in-memory flag is authoritative; storage failures are logged only.
type Store struct {
	mu            sync.RWMutex
	authenticated bool

	// persistMu orders storage writes the same way as flag changes without
	// holding mu across storage I/O.
	persistMu sync.Mutex

	storage cache.Store
	key     string
	log     *applogger.Logger
}

// Option configures Store.
type Option func(*Store)

// WithKey overrides the storage key.
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// WithLogger sets the logger used for storage failures.
func WithLogger(l *applogger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// New reads the persisted flag once. Only the exact value "true" counts as
// authenticated.
func New(ctx context.Context, storage cache.Store, opts ...Option) *Store {
	s := &Store{
		storage: storage,
		key:     DefaultKey,
		log:     applogger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	ctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()

	var v string
	err := storage.Get(ctx, s.key, &v)
	switch {
	case err == nil:
		s.authenticated = v == authenticatedValue
	case errors.Is(err, cache.ErrCacheMiss):
	default:
		s.log.Warn("session: read persisted flag", applogger.String("key", s.key), applogger.Error(err))
	}

	s.log.Debug("session: initialised", applogger.Bool("authenticated", s.authenticated))
	return s
}

// Login marks the session authenticated and persists it.
func (s *Store) Login(ctx context.Context) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	s.set(true)

	ctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()
	if err := s.storage.Set(ctx, s.key, authenticatedValue, 0); err != nil {
		s.log.Error("session: persist login", applogger.String("key", s.key), applogger.Error(err))
	}
}

// Logout clears the session and removes the persisted value.
func (s *Store) Logout(ctx context.Context) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	s.set(false)

	ctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()
	if err := s.storage.Delete(ctx, s.key); err != nil {
		s.log.Error("session: remove persisted flag", applogger.String("key", s.key), applogger.Error(err))
	}
}

func (s *Store) set(v bool) {
	s.mu.Lock()
	s.authenticated = v
	s.mu.Unlock()
}

// IsAuthenticated returns the current flag.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

package store

import (
	"context"
	"log/slog"
	"sync"

	"go.mongodb.org/mongo-driver/mongo"
)

// Store provides MongoDB operations behind a single command vocabulary,
// owning the pooled client and repairing it on transient failure.
type Store struct {
	config Config
	logger *slog.Logger

	mu     sync.Mutex // guards client lifecycle
	client *mongo.Client
	cache  *handleCache

	// dial, ping, and hangup are swappable so connection-repair behavior
	// can be exercised without a live server.
	dial   func(ctx context.Context) (*mongo.Client, error)
	ping   func(ctx context.Context, client *mongo.Client) error
	hangup func(ctx context.Context, client *mongo.Client) error
}

// New creates a new Store instance. The connection is established lazily
// on first use.
func New(config Config) *Store {
	return NewWithLogger(config, nil)
}

// NewWithLogger creates a new Store instance with a custom logger.
// A nil logger falls back to slog.Default().
func NewWithLogger(config Config, logger *slog.Logger) *Store {
	config.validate()
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		config: config,
		logger: logger,
		cache:  newHandleCache(),
	}
	s.dial = s.dialMongo
	s.ping = pingClient
	s.hangup = hangupClient
	return s
}

// Config returns the validated configuration the Store runs with.
func (s *Store) Config() Config {
	return s.config
}

// Close drains the pooled connection and clears all caches. The Store may
// be used again afterwards; the next operation reconnects.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache.invalidateAll()
	if s.client == nil {
		return nil
	}
	client := s.client
	s.client = nil
	if err := s.hangup(ctx, client); err != nil {
		return err
	}
	s.logger.Info("store closed")
	return nil
}

package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// ensureConnected returns a usable client handle, establishing the pooled
// connection on first use. An existing handle is health-probed before being
// trusted; a transient probe failure triggers one teardown-and-rebuild. The
// outer retry policy belongs to the dispatcher, not here.
func (s *Store) ensureConnected(ctx context.Context) (*mongo.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		err := s.ping(ctx, s.client)
		if err == nil {
			return s.client, nil
		}
		if !IsTransient(err) {
			return nil, fmt.Errorf("health probe: %w", err)
		}
		s.logger.Warn("health probe failed, rebuilding client", "error", err)
		return s.rebuildLocked(ctx)
	}

	return s.connectLocked(ctx)
}

// reconnect force-closes the current client and builds a fresh one. The
// dispatcher calls this after classifying an operation failure as transient.
func (s *Store) reconnect(ctx context.Context) (*mongo.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rebuildLocked(ctx)
}

// rebuildLocked tears down the old client, clears every cached handle, and
// connects again. Callers must hold s.mu.
func (s *Store) rebuildLocked(ctx context.Context) (*mongo.Client, error) {
	if s.client != nil {
		// Best effort; the old client is likely already broken.
		_ = s.hangup(ctx, s.client)
		s.client = nil
	}
	s.cache.invalidateAll()
	return s.connectLocked(ctx)
}

// connectLocked dials and probes a new client. Callers must hold s.mu.
func (s *Store) connectLocked(ctx context.Context) (*mongo.Client, error) {
	client, err := s.dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := s.ping(ctx, client); err != nil {
		_ = s.hangup(ctx, client)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	s.client = client
	s.logger.Info("connected to backing store",
		"maxPoolSize", s.config.MaxPoolSize,
		"minPoolSize", s.config.MinPoolSize,
	)
	return client, nil
}

// dialMongo is the production dial function: a bounded pool with fixed
// timeouts and acknowledged, journaled writes.
func (s *Store) dialMongo(ctx context.Context) (*mongo.Client, error) {
	journal := true
	opts := options.Client().
		ApplyURI(s.config.URI).
		SetMaxPoolSize(s.config.MaxPoolSize).
		SetMinPoolSize(s.config.MinPoolSize).
		SetConnectTimeout(s.config.ConnectTimeout).
		SetSocketTimeout(s.config.SocketTimeout).
		SetServerSelectionTimeout(s.config.ServerSelectionTimeout).
		SetWriteConcern(&writeconcern.WriteConcern{W: 1, Journal: &journal})
	return mongo.Connect(ctx, opts)
}

// pingClient is the production health probe.
func pingClient(ctx context.Context, client *mongo.Client) error {
	return client.Ping(ctx, readpref.Primary())
}

// hangupClient is the production teardown.
func hangupClient(ctx context.Context, client *mongo.Client) error {
	return client.Disconnect(ctx)
}

// handle resolves the cached collection handle for a request, connecting
// first if needed.
func (s *Store) handle(ctx context.Context, database, collection string) (*mongo.Collection, error) {
	client, err := s.ensureConnected(ctx)
	if err != nil {
		return nil, err
	}
	return s.cache.resolve(client, database, collection), nil
}

// Collection resolves a cached collection handle for infrastructure tasks
// (sweeps, index maintenance) that work below the command vocabulary.
func (s *Store) Collection(ctx context.Context, database, collection string) (*mongo.Collection, error) {
	return s.handle(ctx, database, collection)
}

package store

import "time"

// Config holds configuration for the Store.
type Config struct {
	// URI is the MongoDB connection string.
	// Default: "mongodb://localhost:27017"
	URI string

	// MaxPoolSize bounds the number of concurrent connections in the pool.
	// Default: 10
	MaxPoolSize uint64

	// MinPoolSize is the number of connections kept warm.
	// Default: 1
	MinPoolSize uint64

	// ConnectTimeout bounds the initial connection handshake.
	// Default: 10s
	ConnectTimeout time.Duration

	// SocketTimeout bounds individual socket reads and writes.
	// Default: 45s
	SocketTimeout time.Duration

	// ServerSelectionTimeout bounds server discovery before an
	// operation fails with a selection error.
	// Default: 10s
	ServerSelectionTimeout time.Duration

	// MaxAttempts is the total number of tries the dispatcher makes
	// for one operation, including the first.
	// Default: 3
	MaxAttempts int

	// RetryBaseDelay is the first backoff delay; each subsequent
	// attempt doubles it.
	// Default: 100ms
	RetryBaseDelay time.Duration

	// ChunkSize is the number of bytes per blob chunk document.
	// Must stay well under the server's single-document limit once
	// BSON framing is added.
	// Default: 255 KiB
	// Max: 12 MiB
	ChunkSize int

	// ChunkBatchSize is the number of chunk documents written per
	// insert request, bounding request size.
	// Default: 20
	ChunkBatchSize int
}

// DefaultConfig returns sensible defaults for a standalone server or a
// single replica set member.
func DefaultConfig() Config {
	return Config{
		URI:                    "mongodb://localhost:27017",
		MaxPoolSize:            10,
		MinPoolSize:            1,
		ConnectTimeout:         10 * time.Second,
		SocketTimeout:          45 * time.Second,
		ServerSelectionTimeout: 10 * time.Second,
		MaxAttempts:            3,
		RetryBaseDelay:         100 * time.Millisecond,
		ChunkSize:              255 * 1024,
		ChunkBatchSize:         20,
	}
}

// validate ensures config values are within acceptable bounds.
func (c *Config) validate() {
	if c.URI == "" {
		c.URI = "mongodb://localhost:27017"
	}
	if c.MaxPoolSize < 1 {
		c.MaxPoolSize = 10
	}
	if c.MinPoolSize < 1 {
		c.MinPoolSize = 1
	}
	if c.MinPoolSize > c.MaxPoolSize {
		c.MinPoolSize = c.MaxPoolSize
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.SocketTimeout <= 0 {
		c.SocketTimeout = 45 * time.Second
	}
	if c.ServerSelectionTimeout <= 0 {
		c.ServerSelectionTimeout = 10 * time.Second
	}
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 3
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = 100 * time.Millisecond
	}
	if c.ChunkSize < 1 {
		c.ChunkSize = 255 * 1024
	}
	if c.ChunkSize > 12*1024*1024 {
		c.ChunkSize = 12 * 1024 * 1024
	}
	if c.ChunkBatchSize < 1 {
		c.ChunkBatchSize = 20
	}
}

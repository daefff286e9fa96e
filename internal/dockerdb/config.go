package dockerdb

import (
	"time"
)

// Config describes the disposable Postgres container.
type Config struct {
	// Image is the Postgres image to run.
	Image string
	// User, Password and Database seed the container's superuser and
	// initial database.
	User     string
	Password string
	Database string
	// MemoryLimit caps the container's memory (in bytes).
	MemoryLimit int64
	// StartTimeout bounds image pull plus the wait for Postgres to accept
	// connections.
	StartTimeout time.Duration
}

// DefaultConfig provides settings suitable for repository tests.
func DefaultConfig() Config {
	return Config{
		Image:    "postgres:16-alpine",
		User:     "snapgram",
		Password: "snapgram",
		Database: "snapgram",
		// 256 MB is plenty for a test database
		MemoryLimit:  256 * 1024 * 1024,
		StartTimeout: 2 * time.Minute,
	}
}

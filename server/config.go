package main

import (
	"flag"
	"fmt"
	"os"
	"time"
)

// config holds all configurable values for the relay.
type config struct {
	Addr            string
	RedisAddr       string
	DatabaseURL     string
	Seed            string
	ShutdownTimeout time.Duration
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseFlags(fs *flag.FlagSet, args []string) (*config, error) {
	cfg := &config{}
	fs.StringVar(&cfg.Addr, "addr", ":8081", "Address to serve websocket and snapshot endpoints on")
	fs.StringVar(&cfg.RedisAddr, "redis", envOr("REDIS_ADDR", "localhost:6379"), "Redis address for room fan-out")
	fs.StringVar(&cfg.DatabaseURL, "db", os.Getenv("DATABASE_URL"), "PostgreSQL URL for the op log (empty disables it)")
	fs.StringVar(&cfg.Seed, "seed", "hello world", "Initial text of every room")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", 10*time.Second, "Graceful shutdown timeout")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks if the configuration values are valid.
func (c *config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("listen address is required")
	}
	if c.RedisAddr == "" {
		return fmt.Errorf("redis address is required")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}
	return nil
}

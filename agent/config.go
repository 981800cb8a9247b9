package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// config holds everything the agent can be told on the command line.
type config struct {
	Port          int
	Topic         string
	Seed          string
	StatePath     string
	Relay         string
	MDNS          bool
	Service       string
	ExportTimeout time.Duration
}

func parseFlags(fs *flag.FlagSet, args []string) (*config, error) {
	cfg := &config{}

	port := 8080
	if v := os.Getenv("COLLAB_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("COLLAB_PORT: %w", err)
		}
		port = p
	}

	fs.IntVar(&cfg.Port, "port", port, "Port to accept peer links on (0 picks a free port)")
	fs.StringVar(&cfg.Topic, "topic", "test-net", "Topic to join at start")
	fs.StringVar(&cfg.Seed, "seed", "hello world", "Initial notepad text when no state is saved")
	fs.StringVar(&cfg.StatePath, "state", "", "Path to the bbolt state file (empty disables persistence)")
	fs.StringVar(&cfg.Relay, "relay", os.Getenv("COLLAB_RELAY"), "Relay base URL, e.g. ws://localhost:8081")
	fs.BoolVar(&cfg.MDNS, "mdns", true, "Discover peers with mDNS")
	fs.StringVar(&cfg.Service, "service", "_collabtext._tcp", "mDNS service name")
	fs.DurationVar(&cfg.ExportTimeout, "export-timeout", 5*time.Second, "How long `save` waits for the export lock")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks if the configuration values are valid.
func (c *config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535")
	}
	if c.Topic == "" {
		return fmt.Errorf("topic is required")
	}
	if c.Relay != "" && !strings.HasPrefix(c.Relay, "ws://") && !strings.HasPrefix(c.Relay, "wss://") {
		return fmt.Errorf("relay must be a ws:// or wss:// URL")
	}
	if c.Relay != "" && c.MDNS {
		return fmt.Errorf("relay and mDNS discovery cannot be combined, pass -mdns=false with -relay")
	}
	if c.MDNS && c.Service == "" {
		return fmt.Errorf("mDNS service name is required")
	}
	if c.ExportTimeout <= 0 {
		return fmt.Errorf("export timeout must be positive")
	}
	return nil
}

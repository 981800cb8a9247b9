package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("Failed to parse flags: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Connect to Redis ---
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatalf("Could not connect to Redis: %v", err)
	}
	defer rdb.Close()
	log.Println("Connected to Redis successfully.")

	// --- Connect to PostgreSQL ---
	var oplog OpLog
	if cfg.DatabaseURL != "" {
		dbpool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Unable to connect to database: %v", err)
		}
		defer dbpool.Close()
		pg, err := newPgOpLog(ctx, dbpool)
		if err != nil {
			log.Fatalf("Unable to prepare op log: %v", err)
		}
		oplog = pg
		log.Println("Connected to PostgreSQL successfully.")
	} else {
		log.Println("No database configured, op log disabled.")
	}

	relay := NewRelay(&redisBroker{rdb: rdb}, oplog, cfg.Seed)
	srv := &http.Server{Addr: cfg.Addr, Handler: relay.Router()}

	errc := make(chan error, 1)
	go func() {
		log.Printf("CollabText relay starting on %s...", cfg.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	case <-ctx.Done():
		log.Println("Shutdown signal received.")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server graceful shutdown error: %v", err)
		}
	}
	log.Println("Relay shutting down.")
}

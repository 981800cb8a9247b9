package main

import (
	"bufio"
	"context"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/google/uuid"

	"collabtext/document"
)

func main() {
	cfg, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("Failed to parse flags: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	id := uuid.New()
	a := &agent{
		id:            id,
		doc:           document.New(cfg.Seed),
		hub:           NewHub(id),
		topic:         cfg.Topic,
		relay:         cfg.Relay,
		peers:         make(map[string]string),
		out:           os.Stdout,
		exportTimeout: cfg.ExportTimeout,
	}

	if cfg.StatePath != "" {
		store, err := OpenStore(cfg.StatePath)
		if err != nil {
			log.Fatalf("Failed to open state: %v", err)
		}
		defer store.Close()
		if text, ok, err := store.Load(); err != nil {
			log.Fatalf("Failed to load state: %v", err)
		} else if ok {
			a.doc = document.New(text)
			frames, err := store.Journal(cfg.Topic)
			if err != nil {
				log.Fatalf("Failed to read journal: %v", err)
			}
			log.Printf("Restored notepad from %s (%d frames journaled on %q)", cfg.StatePath, len(frames), cfg.Topic)
		}
		a.store = store
	}

	go a.hub.Run()
	defer a.hub.Close()

	ln, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(cfg.Port)))
	if err != nil {
		log.Fatalf("Failed to listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	srv := &http.Server{Handler: a.hub.Handler()}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Printf("Peer listener stopped: %v", err)
			stop()
		}
	}()
	defer srv.Close()
	log.Printf("CollabText agent %s is listening on port %d...", id, port)

	found := make(chan peerInfo)
	if cfg.MDNS {
		server, err := advertise(cfg.Service, id.String(), port)
		if err != nil {
			log.Fatalf("Failed to start discovery: %v", err)
		}
		defer server.Shutdown()
		go func() {
			if err := browse(ctx, cfg.Service, id.String(), found); err != nil {
				log.Printf("Discovery stopped: %v", err)
			}
		}()
	}
	if cfg.Relay != "" {
		a.dial(ctx, cfg.Relay, "relay")
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Println("Enter commands on stdin: see, peers, history, swi:topic, ins:index:char, del:index, rep:index:char, save:path")
	if err := a.loop(ctx, lines, found); err != nil && err != context.Canceled {
		log.Printf("Agent stopped: %v", err)
	}
	log.Println("Agent shutting down.")
}

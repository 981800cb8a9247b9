package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/grandcat/zeroconf"
)

const peerIDKey = "id="

// peerInfo is a peer found over mDNS.
type peerInfo struct {
	ID   string
	Base string // ws://host:port
}

// advertise registers this agent as an mDNS service carrying its peer id.
func advertise(service, id string, port int) (*zeroconf.Server, error) {
	host, _ := os.Hostname()
	server, err := zeroconf.Register(
		fmt.Sprintf("%s-%s-%s", "CollabText", host, id[:8]),
		service,
		"local.",
		port,
		[]string{"txtv=1", peerIDKey + id},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("register mDNS service: %w", err)
	}
	log.Printf("mDNS service registered: %s on port %d", service, port)
	return server, nil
}

// browse reports every peer other than self found on the local network until
// ctx is done.
func browse(ctx context.Context, service, self string, found chan<- peerInfo) error {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return fmt.Errorf("initialize mDNS resolver: %w", err)
	}
	entries := make(chan *zeroconf.ServiceEntry)
	go func(results <-chan *zeroconf.ServiceEntry) {
		for entry := range results {
			p, ok := entryPeer(entry)
			if !ok || p.ID == self {
				continue
			}
			log.Printf("mDNS discovered peer %s at %s", p.ID, p.Base)
			select {
			case found <- p:
			case <-ctx.Done():
				return
			}
		}
	}(entries)
	if err := resolver.Browse(ctx, service, "local.", entries); err != nil {
		return fmt.Errorf("browse mDNS services: %w", err)
	}
	<-ctx.Done()
	log.Println("mDNS browsing finished.")
	return nil
}

func entryPeer(entry *zeroconf.ServiceEntry) (peerInfo, bool) {
	var id string
	for _, txt := range entry.Text {
		if strings.HasPrefix(txt, peerIDKey) {
			id = strings.TrimPrefix(txt, peerIDKey)
		}
	}
	if id == "" {
		return peerInfo{}, false
	}
	var host string
	switch {
	case len(entry.AddrIPv4) > 0:
		host = entry.AddrIPv4[0].String()
	case len(entry.AddrIPv6) > 0:
		host = entry.AddrIPv6[0].String()
	case entry.HostName != "":
		host = strings.TrimSuffix(entry.HostName, ".")
	default:
		return peerInfo{}, false
	}
	return peerInfo{ID: id, Base: "ws://" + net.JoinHostPort(host, strconv.Itoa(entry.Port))}, true
}

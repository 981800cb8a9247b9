package main

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Broker fans frames out to every relay instance serving a room.
type Broker interface {
	Publish(ctx context.Context, room string, msg envelope) error
	Subscribe(ctx context.Context, room string) (<-chan envelope, func() error)
}

// envelope is a frame tagged with the connection it came from, so the relay
// does not echo it back.
type envelope struct {
	Origin uuid.UUID
	Frame  []byte
}

func (e envelope) marshal() []byte {
	return append(e.Origin[:], e.Frame...)
}

func unmarshalEnvelope(b []byte) (envelope, error) {
	if len(b) < len(uuid.UUID{}) {
		return envelope{}, fmt.Errorf("envelope too short: %d bytes", len(b))
	}
	var e envelope
	copy(e.Origin[:], b)
	e.Frame = append([]byte(nil), b[len(e.Origin):]...)
	return e, nil
}

func channelName(room string) string {
	return "collabtext:" + room
}

// redisBroker implements Broker with Redis pub/sub.
type redisBroker struct {
	rdb *redis.Client
}

func (b *redisBroker) Publish(ctx context.Context, room string, msg envelope) error {
	return b.rdb.Publish(ctx, channelName(room), msg.marshal()).Err()
}

func (b *redisBroker) Subscribe(ctx context.Context, room string) (<-chan envelope, func() error) {
	pubsub := b.rdb.Subscribe(ctx, channelName(room))
	out := make(chan envelope)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			e, err := unmarshalEnvelope([]byte(msg.Payload))
			if err != nil {
				log.Printf("Dropping message on %s: %v", msg.Channel, err)
				continue
			}
			select {
			case out <- e:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, pubsub.Close
}

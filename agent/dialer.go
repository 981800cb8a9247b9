package main

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/cenkalti/backoff"
)

const maxDialRetries = 8

// connect dials base on topic, retrying with exponential backoff until the
// link is up, the retries run out, or ctx is done.
func connect(ctx context.Context, h *Hub, base, topic, peer string) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxElapsedTime = time.Minute
	policy := backoff.WithContext(backoff.WithMaxRetries(b, maxDialRetries), ctx)

	return backoff.RetryNotify(func() error {
		err := h.Dial(ctx, base, topic, peer)
		if errors.Is(err, ErrHubClosed) {
			return backoff.Permanent(err)
		}
		return err
	}, policy, func(err error, wait time.Duration) {
		log.Printf("Dial %s failed, retrying in %s: %v", base, wait, err)
	})
}

package main

import (
	"context"
	"errors"
	"time"

	"nowserving/mpris"
)

// runHeadless serves the player without a terminal interface until ctx is
// cancelled, the queue closes or a controller asks to quit
func runHeadless(ctx context.Context, h *host, q *mpris.Queue, refresh time.Duration) error {
	ticker := time.NewTicker(refresh)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-q.Done():
			return nil
		case in := <-q.Intents():
			err := h.handle(in)
			if errors.Is(err, errQuit) {
				return nil
			}
			if err != nil {
				h.log.Printf("%T: %v", in, err)
			}
		case now := <-ticker.C:
			if err := h.advance(now.Sub(last)); err != nil {
				h.log.Printf("advance: %v", err)
			}
			last = now
		}
	}
}

package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// DefaultKeepalive is how often an idle stream sends a comment line.
const DefaultKeepalive = 15 * time.Second

// Subscriber delivers change signals for a topic until ctx is done.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string) (<-chan struct{}, error)
}

// SnapshotFunc loads the current state sent to the client.
type SnapshotFunc func(ctx context.Context) (any, error)

// Streamer serves server-sent event streams of snapshots.
// Every stream ends when the shutdown context is done.
type Streamer struct {
	broker    Subscriber
	shutdown  context.Context
	keepalive time.Duration
}

// NewStreamer creates a Streamer.
func NewStreamer(shutdown context.Context, broker Subscriber, keepalive time.Duration) *Streamer {
	if keepalive <= 0 {
		keepalive = DefaultKeepalive
	}
	return &Streamer{broker: broker, shutdown: shutdown, keepalive: keepalive}
}

// Serve streams a snapshot on connect and after every signal on topic.
// snapshot must not touch c: it runs after the handler has returned.
func (s *Streamer) Serve(c *fiber.Ctx, topic string, snapshot SnapshotFunc) error {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithCancel(s.shutdown)
		defer cancel()

		events, err := s.broker.Subscribe(ctx, topic)
		if err != nil {
			log.Error().Err(err).Str("topic", topic).Msg("failed to subscribe to live updates")
			_ = writeEvent(w, "error", fiber.Map{"error": "live updates unavailable"})
			return
		}
		if err := runStream(ctx, w, events, snapshot, s.keepalive); err != nil {
			log.Debug().Err(err).Str("topic", topic).Msg("stream closed")
		}
	})
	return nil
}

// runStream returns nil when ctx is done or events is closed, and the write
// error once the client has gone away.
func runStream(ctx context.Context, w *bufio.Writer, events <-chan struct{}, snapshot SnapshotFunc, keepalive time.Duration) error {
	if err := sendSnapshot(ctx, w, snapshot); err != nil {
		return err
	}

	ticker := time.NewTicker(keepalive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-events:
			if !ok {
				return nil
			}
			if err := sendSnapshot(ctx, w, snapshot); err != nil {
				return err
			}
		case <-ticker.C:
			if _, err := w.WriteString(": keepalive\n\n"); err != nil {
				return err
			}
			if err := w.Flush(); err != nil {
				return err
			}
		}
	}
}

func sendSnapshot(ctx context.Context, w *bufio.Writer, snapshot SnapshotFunc) error {
	data, err := snapshot(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to load stream snapshot")
		return writeEvent(w, "error", fiber.Map{"error": "failed to load data"})
	}
	return writeEvent(w, "snapshot", data)
}

func writeEvent(w *bufio.Writer, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event, err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	return w.Flush()
}

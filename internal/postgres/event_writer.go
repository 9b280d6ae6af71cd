package postgres

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cwrk-planet/signal-relay/internal/domain"
)

type EventSaver interface {
	Save(ctx context.Context, ev *domain.RoomEvent) error
}

// EventWriter persists room events on a background goroutine so that
// sessions never wait on the database. Record drops the event when the
// queue is full.
type EventWriter struct {
	saver   EventSaver
	timeout time.Duration

	queue chan domain.RoomEvent
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewEventWriter(saver EventSaver, queueSize int) *EventWriter {
	if queueSize <= 0 {
		queueSize = 1024
	}
	w := &EventWriter{
		saver:   saver,
		timeout: 5 * time.Second,
		queue:   make(chan domain.RoomEvent, queueSize),
		done:    make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *EventWriter) Record(ev domain.RoomEvent) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return
	}

	select {
	case w.queue <- ev:
	default:
		slog.Warn("audit queue full, event dropped", "room", ev.RoomID, "kind", ev.Kind)
	}
}

func (w *EventWriter) run() {
	defer close(w.done)
	for ev := range w.queue {
		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		if err := w.saver.Save(ctx, &ev); err != nil {
			slog.Warn("audit save failed", "room", ev.RoomID, "kind", ev.Kind, "err", err)
		}
		cancel()
	}
}

// Close stops accepting events and waits until the queue is drained or ctx
// expires.
func (w *EventWriter) Close(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

package http

import (
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type failingWriter struct {
	mu     sync.Mutex
	writes int
	closed bool
}

func (w *failingWriter) WriteJSON(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writes++
	return errors.New("broken pipe")
}

func (w *failingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func TestOutboxDoesNotBlockAfterWriterFails(t *testing.T) {
	w := &failingWriter{}
	out := newOutbox(w, zap.NewNop())

	finished := make(chan bool)
	go func() {
		dropped := false
		for i := 0; i < 100; i++ {
			if !out.push("step", i) {
				dropped = true
			}
		}
		out.close()
		finished <- dropped
	}()

	select {
	case dropped := <-finished:
		if !dropped {
			t.Fatalf("expected pushes to be refused after the writer stopped")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("push blocked after the writer stopped")
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.writes != 1 {
		t.Fatalf("expected writer to stop after first failure, got %d writes", w.writes)
	}
	if !w.closed {
		t.Fatalf("expected connection to be closed on write failure")
	}
}

func TestOutboxFlushesOnClose(t *testing.T) {
	w := &recordingWriter{}
	out := newOutbox(w, zap.NewNop())
	for i := 0; i < 5; i++ {
		if !out.push("step", i) {
			t.Fatalf("push %d refused by a healthy writer", i)
		}
	}
	out.close()

	if len(w.types) != 5 {
		t.Fatalf("expected 5 flushed messages, got %d", len(w.types))
	}
}

type recordingWriter struct {
	types []string
}

func (w *recordingWriter) WriteJSON(v any) error {
	w.types = append(w.types, v.(outboundMessage[any]).Type)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

package http

import "go.uber.org/zap"

type messageWriter interface {
	WriteJSON(v any) error
	Close() error
}

// outbox serializes writes to one connection through a single goroutine.
// Once a write fails the connection is closed and further pushes are dropped.
type outbox struct {
	send chan outboundMessage[any]
	done chan struct{}
}

func newOutbox(conn messageWriter, log *zap.Logger) *outbox {
	o := &outbox{
		send: make(chan outboundMessage[any], 16),
		done: make(chan struct{}),
	}
	go func() {
		defer close(o.done)
		for msg := range o.send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Warn("WS write error", zap.Error(err))
				// Unblocks the reader so the handler can wind down.
				_ = conn.Close()
				return
			}
		}
	}()
	return o
}

// push reports false when the writer has stopped.
func (o *outbox) push(msgType string, payload any) bool {
	select {
	case o.send <- outboundMessage[any]{Type: msgType, Payload: payload}:
		return true
	case <-o.done:
		return false
	}
}

// close flushes queued messages and waits for the writer to exit.
func (o *outbox) close() {
	close(o.send)
	<-o.done
}

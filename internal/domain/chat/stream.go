package chat

import (
	"sync"

	"portal-server/services/portal-api/internal/infrastructure/metrics"
)

// MessageStream is a restartable, cancellable view of one conversation:
// full history in CreatedAt order first, then live appends. Close must
// be called on every exit path; re-selecting another conversation means
// closing this stream before opening the next.
type MessageStream struct {
	out chan Message

	closeOnce sync.Once
	closed    chan struct{}
	release   func()
}

func newMessageStream(buffer int, release func()) *MessageStream {
	if buffer <= 0 {
		buffer = 64
	}
	s := &MessageStream{
		out:     make(chan Message, buffer),
		closed:  make(chan struct{}),
		release: release,
	}
	metrics.ActiveMessageStreams.Inc()
	return s
}

// Messages returns the ordered message channel. It is closed after the
// stream is closed and the pump drains.
func (s *MessageStream) Messages() <-chan Message {
	return s.out
}

// Close stops delivery and releases the underlying store subscription.
// Idempotent.
func (s *MessageStream) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.release()
		metrics.ActiveMessageStreams.Dec()
	})
}

// emit delivers one message unless the stream is already closed.
func (s *MessageStream) emit(msg Message) bool {
	select {
	case <-s.closed:
		return false
	case s.out <- msg:
		return true
	}
}

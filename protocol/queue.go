package protocol

import (
	"log/slog"
	"sync"

	applog "github.com/CrazyForks/tiny-svg/log"
)

// DefaultQueueSize bounds an in-process queue.
const DefaultQueueSize = 256

// Sender accepts encoded frames. Delivery is fire-and-forget.
type Sender interface {
	Send(frame []byte)
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(frame []byte)

func (f SenderFunc) Send(frame []byte) { f(frame) }

// Post encodes m and hands it to s.
func Post(s Sender, m Message) error {
	frame, err := Encode(m)
	if err != nil {
		return err
	}
	s.Send(frame)
	return nil
}

// Queue is a one-directional FIFO of frames. A full queue drops the frame
// and a closed queue ignores sends.
type Queue struct {
	mu     sync.RWMutex
	ch     chan []byte
	closed bool
	log    *slog.Logger
}

func NewQueue(size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{ch: make(chan []byte, size), log: applog.WithComponent("protocol")}
}

func (q *Queue) Send(frame []byte) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return
	}
	select {
	case q.ch <- frame:
	default:
		q.log.Warn("queue full, dropping frame", slog.Int("bytes", len(frame)))
	}
}

// Frames returns the receive side. It is closed by Close.
func (q *Queue) Frames() <-chan []byte { return q.ch }

// Close stops the queue. Frames already queued can still be received.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}

// Package kbd is the keyboard controller's output buffer.  The host side
// pushes bytes from its own goroutine; the kernel drains them in the
// keyboard interrupt handler.
package kbd

import "sync"

// Raiser is the PIC's device side.
type Raiser interface {
	Raise(line int)
}

type Queue struct {
	mu   sync.Mutex
	buf  []byte
	pic  Raiser
	line int
}

func New(pic Raiser, line int) *Queue {
	return &Queue{pic: pic, line: line}
}

// Push queues bytes and raises the keyboard line.
func (q *Queue) Push(p ...byte) {
	if len(p) == 0 {
		return
	}
	q.mu.Lock()
	q.buf = append(q.buf, p...)
	q.mu.Unlock()
	q.pic.Raise(q.line)
}

// Drain takes everything queued so far.
func (q *Queue) Drain() []byte {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.buf
	q.buf = nil
	return out
}

package serial

import (
	"io"
	"sync"
)

// PipeEnd is one end of an in-memory byte channel created by Pipe. Writes
// never block on the peer, like a UART with a deep buffer.
type PipeEnd struct {
	in      <-chan []byte
	out     chan<- []byte
	pending []byte
	once    *sync.Once
	done    chan struct{}
}

// Pipe creates a connected pair of byte channels.
func Pipe() (*PipeEnd, *PipeEnd) {
	ab, ba := make(chan []byte, 256), make(chan []byte, 256)
	once, done := &sync.Once{}, make(chan struct{})
	return &PipeEnd{in: ba, out: ab, once: once, done: done},
		&PipeEnd{in: ab, out: ba, once: once, done: done}
}

// Read implements io.Reader.
func (p *PipeEnd) Read(buf []byte) (int, error) {
	if len(p.pending) == 0 {
		select {
		case data := <-p.in:
			p.pending = data
		case <-p.done:
			return 0, io.EOF
		}
	}
	n := copy(buf, p.pending)
	p.pending = p.pending[n:]
	return n, nil
}

// Write implements io.Writer.
func (p *PipeEnd) Write(data []byte) (int, error) {
	select {
	case <-p.done:
		return 0, io.ErrClosedPipe
	default:
	}
	select {
	case p.out <- append([]byte(nil), data...):
		return len(data), nil
	case <-p.done:
		return 0, io.ErrClosedPipe
	}
}

// Close closes both ends.
func (p *PipeEnd) Close() error {
	p.once.Do(func() { close(p.done) })
	return nil
}

package serial

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"
)

// DefaultSyncTimeout is the default time a handshake or a frame may take
// before the channel resyncs.
const DefaultSyncTimeout = 100 * time.Millisecond

// FrameHandler is called on the FIFO goroutine for each received frame.
type FrameHandler func(context.Context, *Frame)

// StateHandler is called on the FIFO goroutine when the sync state changes.
type StateHandler func(context.Context, SyncState)

// FIFO exchanges frames over a byte channel.
type FIFO struct {
	Channel io.ReadWriter
	OnFrame FrameHandler
	OnState StateHandler
	Timeout time.Duration

	seq   Seq
	state SyncState
	lock  sync.RWMutex

	parser    Parser
	syncTimer <-chan time.Time
}

// NewFIFO creates a FIFO on a channel.
func NewFIFO(ch io.ReadWriter) *FIFO {
	return &FIFO{
		Channel: ch,
		Timeout: DefaultSyncTimeout,
		seq:     NewSeq(),
	}
}

// State gets the sync state.
func (f *FIFO) State() SyncState {
	f.lock.RLock()
	defer f.lock.RUnlock()
	return f.state
}

// Send sends a frame, assigning its sequence number.
func (f *FIFO) Send(frame *Frame) error {
	if len(frame.Data) > MaxDataLen {
		return ErrFrameTooLong
	}
	f.lock.Lock()
	defer f.lock.Unlock()
	if !f.state.IsReady() {
		return ErrNotReady
	}
	frame.Seq = f.seq
	if _, err := frame.WriteTo(f.Channel); err != nil {
		return err
	}
	f.seq = f.seq.Next()
	return nil
}

// Run reads the channel until ctx is done or the channel fails.
func (f *FIFO) Run(ctx context.Context) error {
	if err := f.apply(ctx, f.parser.Reset()); err != nil {
		return err
	}
	dataCh, errCh := make(chan []byte), make(chan error, 1)
	readCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go f.readLoop(readCtx, dataCh, errCh)
	for {
		select {
		case data := <-dataCh:
			for _, b := range data {
				if err := f.apply(ctx, f.parser.Parse(b)); err != nil {
					return err
				}
			}
		case <-f.syncTimer:
			if err := f.apply(ctx, f.parser.Timeout()); err != nil {
				return err
			}
		case err := <-errCh:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (f *FIFO) readLoop(ctx context.Context, dataCh chan<- []byte, errCh chan<- error) {
	buf := make([]byte, 64)
	for {
		n, err := f.Channel.Read(buf)
		if n > 0 {
			select {
			case dataCh <- append([]byte(nil), buf[:n]...):
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			errCh <- err
			return
		}
	}
}

func (f *FIFO) apply(ctx context.Context, pr ParseResult) error {
	var changed bool
	f.lock.Lock()
	if f.state != pr.State {
		f.state, changed = pr.State, true
	}
	var err error
	if pr.Reply != 0 {
		_, err = f.Channel.Write([]byte{pr.Reply, byte(f.seq)})
	}
	f.lock.Unlock()
	if err != nil {
		return err
	}

	switch {
	case pr.armsTimer():
		f.syncTimer = time.After(f.Timeout)
	case pr.State.IsReady():
		f.syncTimer = nil
	}

	if changed {
		glog.V(4).Infof("serial state %d", pr.State)
		if h := f.OnState; h != nil {
			h(ctx, pr.State)
		}
	}
	if pr.Frame != nil {
		if h := f.OnFrame; h != nil {
			h(ctx, pr.Frame)
		}
	}
	return nil
}

package serial

import (
	"errors"
	"fmt"
	"io"
	"time"
)

// Limits of the framing.
const (
	// MaxDataLen is the largest frame data.
	MaxDataLen = 0x7f
	// MaxStreamID is the largest stream id. Stream 0 is reserved.
	MaxStreamID = 0x0f

	codeControl byte = 0x80
	codeMask    byte = 0x8f
	lenMask     byte = 0x70
	lenExtended byte = 7
)

// Control ops in the low nibble of a control frame.
const (
	// OpAnnounce carries the node name.
	OpAnnounce byte = 0x01
	// OpMeta carries a chunk of node metadata, more chunks follow.
	OpMeta byte = 0x02
	// OpMetaEnd carries the last chunk of node metadata.
	OpMetaEnd byte = 0x03
	// OpAdvertise binds a published topic to a stream: stream id, topic.
	OpAdvertise byte = 0x04
	// OpSubscribe binds a subscribed topic to a stream: stream id, topic.
	OpSubscribe byte = 0x05
)

var (
	// ErrNotReady indicates the channel is not synchronized.
	ErrNotReady = errors.New("serial channel not ready")
	// ErrFrameTooLong indicates frame data exceeds MaxDataLen.
	ErrFrameTooLong = errors.New("frame data too long")
	// ErrNoStreams indicates all stream ids are in use.
	ErrNoStreams = errors.New("no stream id available")
	// ErrBadDeclaration indicates a malformed control frame.
	ErrBadDeclaration = errors.New("bad declaration")
)

// Seq is a frame sequence number in 1..0xef. Values from 0xf0 are reserved
// for sync commands.
type Seq byte

// NewSeq creates an arbitrary valid sequence number.
func NewSeq() Seq {
	return Seq(byte(time.Now().UnixNano())).Next()
}

// Next returns the sequence number following s.
func (s Seq) Next() Seq {
	if n := byte(s) + 1; n > 0 && n < 0xf0 {
		return Seq(n)
	}
	return 1
}

// IsValid reports whether s can be carried in a frame.
func (s Seq) IsValid() bool {
	return s > 0 && s < 0xf0
}

// Frame is a unit of transfer.
type Frame struct {
	Seq  Seq
	Code byte
	Data []byte
}

// DataFrame creates a frame carrying payload on a stream.
func DataFrame(stream byte, payload []byte) *Frame {
	return &Frame{Code: stream & 0x0f, Data: payload}
}

// ControlFrame creates a control frame.
func ControlFrame(op byte, data []byte) *Frame {
	return &Frame{Code: codeControl | (op & 0x0f), Data: data}
}

// IsControl reports whether it's a control frame.
func (f *Frame) IsControl() bool {
	return f.Code&codeControl != 0
}

// Nibble gets the stream id of a data frame or the op of a control frame.
func (f *Frame) Nibble() byte {
	return f.Code & 0x0f
}

// WriteTo writes the encoded frame.
func (f *Frame) WriteTo(w io.Writer) (int64, error) {
	if len(f.Data) > MaxDataLen {
		return 0, ErrFrameTooLong
	}
	n, err := w.Write(f.Bytes())
	return int64(n), err
}

// Bytes encodes the frame. Data beyond MaxDataLen is not encoded.
func (f *Frame) Bytes() []byte {
	data := f.Data
	if len(data) > MaxDataLen {
		data = data[:MaxDataLen]
	}
	code, size := f.Code&codeMask, byte(len(data))
	if size < lenExtended {
		return append([]byte{byte(f.Seq), code | size<<4}, data...)
	}
	return append([]byte{byte(f.Seq), code | lenMask, size}, data...)
}

// String implements Stringer.
func (f *Frame) String() string {
	if f.IsControl() {
		return fmt.Sprintf("#%d ctl op=%d len=%d", f.Seq, f.Nibble(), len(f.Data))
	}
	return fmt.Sprintf("#%d data stream=%d len=%d", f.Seq, f.Nibble(), len(f.Data))
}

// Declaration binds a topic to a stream id.
type Declaration struct {
	Op     byte
	Stream byte
	Topic  string
}

// Frame encodes the declaration.
func (d Declaration) Frame() (*Frame, error) {
	if d.Stream == 0 || d.Stream > MaxStreamID {
		return nil, fmt.Errorf("%w: stream %d", ErrBadDeclaration, d.Stream)
	}
	if len(d.Topic)+1 > MaxDataLen {
		return nil, ErrFrameTooLong
	}
	return ControlFrame(d.Op, append([]byte{d.Stream}, d.Topic...)), nil
}

// ParseDeclaration decodes an advertise or subscribe frame.
func ParseDeclaration(f *Frame) (Declaration, error) {
	d := Declaration{Op: f.Nibble()}
	if !f.IsControl() || (d.Op != OpAdvertise && d.Op != OpSubscribe) {
		return d, fmt.Errorf("%w: not a declaration", ErrBadDeclaration)
	}
	if len(f.Data) < 2 {
		return d, fmt.Errorf("%w: short frame", ErrBadDeclaration)
	}
	d.Stream, d.Topic = f.Data[0], string(f.Data[1:])
	if d.Stream == 0 || d.Stream > MaxStreamID {
		return d, fmt.Errorf("%w: stream %d", ErrBadDeclaration, d.Stream)
	}
	return d, nil
}

// AnnounceFrames splits a node announcement into frames: the name, then the
// metadata in chunks, the last one always being OpMetaEnd.
func AnnounceFrames(name string, meta []byte) ([]*Frame, error) {
	if name == "" || len(name) > MaxDataLen {
		return nil, fmt.Errorf("%w: node name %q", ErrBadDeclaration, name)
	}
	frames := []*Frame{ControlFrame(OpAnnounce, []byte(name))}
	for len(meta) > MaxDataLen {
		frames = append(frames, ControlFrame(OpMeta, meta[:MaxDataLen]))
		meta = meta[MaxDataLen:]
	}
	return append(frames, ControlFrame(OpMetaEnd, meta)), nil
}

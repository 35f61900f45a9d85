package link

import (
	"context"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	fx "github.com/robotalks/edgenode/pkg/framework"
	"github.com/robotalks/edgenode/pkg/transport"
	"github.com/robotalks/edgenode/pkg/transport/serial"
)

// SerialLink binds a local byte channel. There is no negotiation: once the
// channel is open the transport is returned after the settle delay.
type SerialLink struct {
	Channel      string
	PollInterval time.Duration
	SettleDelay  time.Duration
	Clock        fx.Clock
	// Open opens the channel, OpenChannel when nil.
	Open func(string) (io.ReadWriteCloser, error)
}

// Establish implements Link.
func (l *SerialLink) Establish(ctx context.Context) (transport.Transport, error) {
	clock := l.Clock
	if clock == nil {
		clock = fx.SystemClock()
	}
	interval := l.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	settle := l.SettleDelay
	if settle <= 0 {
		settle = DefaultSettleDelay
	}
	open := l.Open
	if open == nil {
		open = OpenChannel
	}

	var ch io.ReadWriteCloser
	for {
		var err error
		if ch, err = open(l.Channel); err == nil {
			break
		}
		glog.V(4).Infof("open %s: %v", l.Channel, err)
		if err := fx.Sleep(ctx, clock, interval); err != nil {
			return nil, err
		}
	}
	glog.Infof("serial channel %s bound", l.Channel)
	if err := fx.Sleep(ctx, clock, settle); err != nil {
		ch.Close()
		return nil, err
	}
	return serial.NewTransport(ch), nil
}

// OpenChannel opens a byte channel: ws:// and wss:// URLs dial a websocket
// standing in for the UART, anything else is a device file.
func OpenChannel(name string) (io.ReadWriteCloser, error) {
	if strings.HasPrefix(name, "ws://") || strings.HasPrefix(name, "wss://") {
		return DialWebsocket(name)
	}
	return os.OpenFile(name, os.O_RDWR, 0)
}

// DialWebsocket dials a websocket byte channel.
func DialWebsocket(wsURL string) (*WSChannel, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, err
	}
	origin := "http://" + u.Host
	if u.Scheme == "wss" {
		origin = "https://" + u.Host
	}
	conn, err := websocket.Dial(wsURL, "", origin)
	if err != nil {
		return nil, err
	}
	return NewWSChannel(conn), nil
}

// WSChannel is a byte channel on a websocket. Each write is sent as one
// binary message.
type WSChannel struct {
	Conn    *websocket.Conn
	pending []byte
}

// NewWSChannel wraps a websocket connection.
func NewWSChannel(conn *websocket.Conn) *WSChannel {
	conn.PayloadType = websocket.BinaryFrame
	return &WSChannel{Conn: conn}
}

// Read implements io.Reader.
func (c *WSChannel) Read(p []byte) (int, error) {
	for len(c.pending) == 0 {
		if err := websocket.Message.Receive(c.Conn, &c.pending); err != nil {
			return 0, err
		}
	}
	n := copy(p, c.pending)
	c.pending = c.pending[n:]
	return n, nil
}

// Write implements io.Writer.
func (c *WSChannel) Write(p []byte) (int, error) {
	if err := websocket.Message.Send(c.Conn, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close implements io.Closer.
func (c *WSChannel) Close() error {
	return c.Conn.Close()
}

package link

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	fx "github.com/robotalks/edgenode/pkg/framework"
	"github.com/robotalks/edgenode/pkg/transport"
	"github.com/robotalks/edgenode/pkg/transport/loopback"
	"github.com/robotalks/edgenode/pkg/transport/serial"
)

var testEpoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

type fakeAssociator struct {
	begins      int
	polls       int
	connectAt   int
	failAt      int
	onPoll      func(int)
	credentials Credentials
}

func (a *fakeAssociator) Begin(cred Credentials) error {
	a.begins++
	a.credentials = cred
	return nil
}

func (a *fakeAssociator) Status() Status {
	a.polls++
	if h := a.onPoll; h != nil {
		h(a.polls)
	}
	switch {
	case a.connectAt > 0 && a.polls >= a.connectAt:
		return StatusConnected
	case a.polls == a.failAt:
		return StatusFailed
	}
	return StatusConnecting
}

func TestNetworkLinkAssociates(t *testing.T) {
	clock := fx.NewManualClock(testEpoch)
	clock.AutoAdvance = true
	assoc := &fakeAssociator{connectAt: 4, failAt: 2}
	bus := loopback.New()
	l := &NetworkLink{
		Associator:  assoc,
		Credentials: Credentials{SSID: "lab", Password: "secret"},
		Clock:       clock,
		Dial:        func() (transport.Transport, error) { return bus, nil },
	}
	tr, err := l.Establish(context.Background())
	require.NoError(t, err)
	require.Equal(t, bus, tr)
	require.Equal(t, 4, assoc.polls)
	require.Equal(t, 2, assoc.begins, "re-associate after failure")
	require.Equal(t, "lab", assoc.credentials.SSID)
	// three polls waited, then the settle delay.
	require.Equal(t, testEpoch.Add(3*DefaultPollInterval+DefaultSettleDelay), clock.Time())
	require.Zero(t, bus.Connects())
}

func TestNetworkLinkNeverAssociates(t *testing.T) {
	clock := fx.NewManualClock(testEpoch)
	clock.AutoAdvance = true
	ctx, cancel := context.WithCancel(context.Background())
	assoc := &fakeAssociator{onPoll: func(n int) {
		if n == 1000 {
			cancel()
		}
	}}
	dials := 0
	l := &NetworkLink{
		Associator: assoc,
		Clock:      clock,
		Dial: func() (transport.Transport, error) {
			dials++
			return loopback.New(), nil
		},
	}
	_, err := l.Establish(ctx)
	require.Equal(t, context.Canceled, err)
	require.Equal(t, 1000, assoc.polls)
	require.Equal(t, 1, assoc.begins)
	require.Zero(t, dials)
}

func TestNetworkLinkDialError(t *testing.T) {
	clock := fx.NewManualClock(testEpoch)
	clock.AutoAdvance = true
	dialErr := errors.New("bad broker url")
	l := &NetworkLink{
		Associator: &fakeAssociator{connectAt: 1},
		Clock:      clock,
		Dial:       func() (transport.Transport, error) { return nil, dialErr },
	}
	_, err := l.Establish(context.Background())
	require.Equal(t, dialErr, err)
}

func TestDialAssociator(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()

	var a DialAssociator
	require.Equal(t, StatusIdle, a.Status())
	require.NoError(t, a.Begin(Credentials{AgentAddr: addr}))
	require.Equal(t, StatusConnected, a.Status())

	ln.Close()
	a.Timeout = 100 * time.Millisecond
	require.Equal(t, StatusConnecting, a.Status())
	require.Equal(t, "connecting", StatusConnecting.String())
}

func TestSerialLinkRetriesOpen(t *testing.T) {
	clock := fx.NewManualClock(testEpoch)
	clock.AutoAdvance = true
	nodeEnd, _ := serial.Pipe()
	opens := 0
	l := &SerialLink{
		Channel: "/dev/ttyUSB0",
		Clock:   clock,
		Open: func(name string) (io.ReadWriteCloser, error) {
			require.Equal(t, "/dev/ttyUSB0", name)
			if opens++; opens < 3 {
				return nil, errors.New("no such device")
			}
			return nodeEnd, nil
		},
	}
	tr, err := l.Establish(context.Background())
	require.NoError(t, err)
	require.IsType(t, &serial.Transport{}, tr)
	require.Equal(t, 3, opens)
	require.Equal(t, testEpoch.Add(2*DefaultPollInterval+DefaultSettleDelay), clock.Time())
}

func TestSimLink(t *testing.T) {
	bus := loopback.New()
	tr, err := (&SimLink{Transport: bus}).Establish(context.Background())
	require.NoError(t, err)
	require.Equal(t, bus, tr)
}

func TestWebsocketChannel(t *testing.T) {
	srv := httptest.NewServer(websocket.Handler(func(conn *websocket.Conn) {
		ch := NewWSChannel(conn)
		buf := make([]byte, 16)
		for {
			n, err := ch.Read(buf)
			if err != nil {
				return
			}
			if _, err := ch.Write(buf[:n]); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	ch, err := OpenChannel("ws://" + strings.TrimPrefix(srv.URL, "http://"))
	require.NoError(t, err)
	defer ch.Close()
	_, err = ch.Write([]byte{0xff, 0x01, 0x02})
	require.NoError(t, err)

	buf := make([]byte, 2)
	n, err := ch.Read(buf)
	require.NoError(t, err)
	require.Equal(t, []byte{0xff, 0x01}, buf[:n])
	n, err = ch.Read(buf)
	require.NoError(t, err)
	require.Equal(t, []byte{0x02}, buf[:n])
}

func TestOpenChannelDeviceMissing(t *testing.T) {
	_, err := OpenChannel("/nonexistent/tty")
	require.Error(t, err)
}

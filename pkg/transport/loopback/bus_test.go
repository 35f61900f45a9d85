package loopback

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/edgenode/pkg/transport"
)

func TestBus(t *testing.T) {
	b := New()
	require.Equal(t, transport.ErrNotConnected, b.Publish("a", nil))
	_, err := b.Subscribe("a", nil)
	require.Equal(t, transport.ErrNotConnected, err)

	require.NoError(t, b.Connect(context.Background()))
	var got []string
	sub, err := b.Subscribe("a", func(topic string, payload []byte) {
		got = append(got, topic+"="+string(payload))
	})
	require.NoError(t, err)

	payload := []byte("x")
	require.NoError(t, b.Publish("a", payload))
	payload[0] = 'y'
	require.Equal(t, []string{"a=x"}, got)
	require.Equal(t, []Published{{Topic: "a", Payload: []byte("x")}}, b.Published())

	b.Inject("a", []byte("z"))
	b.Inject("b", []byte("w"))
	require.Equal(t, []string{"a=x", "a=z"}, got)

	require.NoError(t, sub.Close())
	require.Zero(t, b.Subscribers("a"))
	require.NoError(t, b.Advertise("a"))
	require.Equal(t, []string{"a"}, b.Advertised())
	require.NoError(t, b.Announce("n", []byte("{}")))
	meta, ok := b.Announced("n")
	require.True(t, ok)
	require.Equal(t, []byte("{}"), meta)

	b.PublishErr = errors.New("boom")
	require.Equal(t, b.PublishErr, b.Publish("a", nil))

	require.NoError(t, b.Close())
	require.Equal(t, transport.ErrClosed, b.Connect(context.Background()))
	require.Equal(t, 2, b.Connects())
}

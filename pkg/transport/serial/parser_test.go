package serial

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// parserStep feeds in (or times out when in is empty) and checks the result
// after the last byte.
type parserStep struct {
	in   []byte
	want ParseResult
}

func feed(in ...byte) []byte { return in }

var (
	synced    = ParseResult{State: StateReady}
	syncedAck = ParseResult{Reply: syncACK, State: StateReady}
	resynced  = ParseResult{Reply: syncREQ, State: StateSyncing}
	syncing   = ParseResult{State: StateSyncing}
)

func frameResult(seq Seq, code byte, data ...byte) ParseResult {
	return ParseResult{State: StateReady, Frame: &Frame{Seq: seq, Code: code, Data: data}}
}

func TestParser(t *testing.T) {
	testCases := []struct {
		name  string
		steps []parserStep
	}{
		{
			name: "sync then frames",
			steps: []parserStep{
				{feed(syncACK, 1), synced},
				{feed(1, 0x02), frameResult(1, 2)},
				{feed(2, 0x72, 0), frameResult(2, 2)},
				{feed(3, 0x95, 0x02), frameResult(3, 0x85, 2)},
				{feed(4, 0x73, 8, 1, 2, 3, 4, 5, 6, 7, 8), frameResult(4, 3, 1, 2, 3, 4, 5, 6, 7, 8)},
			},
		},
		{
			name: "timeout while syncing",
			steps: []parserStep{
				{nil, resynced},
				{feed(syncACK), ParseResult{State: StateSyncing | StateReceiving}},
				{nil, resynced},
			},
		},
		{
			name: "timeout while ready is ignored",
			steps: []parserStep{
				{feed(syncACK, 1), synced},
				{nil, synced},
			},
		},
		{
			name: "garbage before sync",
			steps: []parserStep{
				{feed(1, 2, 0x80, 0xf0), syncing},
				{feed(syncACK, 7), synced},
				{feed(7, 0x01), frameResult(7, 1)},
			},
		},
		{
			name: "peer requests sync",
			steps: []parserStep{
				{feed(syncREQ, 1), syncedAck},
				{feed(1, 0x01), frameResult(1, 1)},
			},
		},
		{
			name: "invalid seq in sync request",
			steps: []parserStep{
				{feed(syncREQ, syncREQ), resynced},
				{feed(syncACK, 1), synced},
			},
		},
		{
			name: "peer resyncs while ready",
			steps: []parserStep{
				{feed(syncACK, 1), synced},
				{feed(syncREQ, 9), syncedAck},
				{feed(9, 0x02), frameResult(9, 2)},
			},
		},
		{
			name: "ack after sync keeps sequence",
			steps: []parserStep{
				{feed(syncACK, 1), synced},
				{feed(syncACK, 1), synced},
				{feed(syncACK, 2), resynced},
			},
		},
		{
			name: "out of sequence frame",
			steps: []parserStep{
				{feed(syncACK, 1), synced},
				{feed(1, 0x01), frameResult(1, 1)},
				{feed(1), resynced},
				{feed(0x91, 3), syncing},
				{feed(syncACK, 3), synced},
			},
		},
		{
			name: "invalid extended length",
			steps: []parserStep{
				{feed(syncACK, 1), synced},
				{feed(1, 0x70, 0x80), resynced},
			},
		},
		{
			name: "partial frame",
			steps: []parserStep{
				{feed(syncACK, 1), synced},
				{feed(1, 0x21, 5), ParseResult{State: StateReady | StateReceiving}},
				{nil, resynced},
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var p Parser
			for n, step := range tc.steps {
				var pr ParseResult
				if len(step.in) == 0 {
					pr = p.Timeout()
				}
				for _, b := range step.in {
					pr = p.Parse(b)
				}
				require.Equalf(t, step.want, pr, "step %d", n)
			}
		})
	}
}

func TestParserReset(t *testing.T) {
	var p Parser
	p.Parse(syncACK)
	pr := p.Reset()
	require.Equal(t, resynced, pr)
}

func TestSyncState(t *testing.T) {
	require.False(t, StateSyncing.IsReady())
	require.False(t, StateSyncing.IsReceiving())
	require.True(t, StateReady.IsReady())
	require.False(t, StateReady.IsReceiving())
	require.True(t, (StateReady | StateReceiving).IsReady())
	require.True(t, (StateSyncing | StateReceiving).IsReceiving())
}

func TestParseResultTimer(t *testing.T) {
	require.True(t, resynced.armsTimer())
	require.True(t, ParseResult{State: StateReady | StateReceiving}.armsTimer())
	require.False(t, synced.armsTimer())
	require.False(t, syncedAck.armsTimer())
	require.False(t, syncing.armsTimer())
}

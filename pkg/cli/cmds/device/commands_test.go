package device

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/edgenode/pkg/cli/sh"
)

func TestParseLEDArgs(t *testing.T) {
	testCases := []struct {
		args    []string
		on      bool
		topic   string
		invalid bool
	}{
		{args: []string{"on"}, on: true, topic: LEDTopic},
		{args: []string{"OFF"}, topic: LEDTopic},
		{args: []string{"true", "/bench/led"}, on: true, topic: "/bench/led"},
		{args: []string{"0", "status_led"}, topic: "status_led"},
		{args: nil, invalid: true},
		{args: []string{"dim"}, invalid: true},
		{args: []string{"on", "led", "extra"}, invalid: true},
	}
	for _, tc := range testCases {
		t.Run(strings.Join(tc.args, " "), func(t *testing.T) {
			msg, topic, err := ParseLEDArgs(tc.args)
			if tc.invalid {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.on, msg.Value)
			require.Equal(t, tc.topic, topic)
		})
	}
}

func TestCommandTopics(t *testing.T) {
	s := &sh.Shell{Namespace: sh.NamespaceOf("lab/counter_node")}
	testCases := []struct {
		topic, resolved string
	}{
		{topic: LEDTopic, resolved: "lab/led"},
		{topic: TouchTopic, resolved: "lab/touch_status"},
		{topic: CounterTopic, resolved: "lab/counter"},
		{topic: "/bench/led", resolved: "bench/led"},
	}
	for _, tc := range testCases {
		topic, err := s.Topic(tc.topic)
		require.NoError(t, err)
		require.Equal(t, tc.resolved, topic)
	}
}

func TestEchoArgs(t *testing.T) {
	require.Equal(t, []string{TouchTopic}, echoArgs(TouchTopic, nil))
	args := []string{"5"}
	require.Equal(t, []string{CounterTopic, "5"}, echoArgs(CounterTopic, args))
	require.Equal(t, []string{"5"}, args)
}

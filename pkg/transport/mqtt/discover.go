package mqtt

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrTimeout indicates the broker didn't complete an operation in time.
var ErrTimeout = errors.New("mqtt operation timeout")

// DefaultDiscoverTimeout defines the default timeout value of discovery.
const DefaultDiscoverTimeout = 500 * time.Millisecond

// NodeInfo is a node found by Discover.
type NodeInfo struct {
	Name string
	Meta []byte
}

// Discover collects the retained node metadata on the broker until timeout.
// Cleared metadata (empty payload) is skipped.
func Discover(ctx context.Context, q *Queue, timeout time.Duration) ([]NodeInfo, error) {
	if timeout <= 0 {
		timeout = DefaultDiscoverTimeout
	}
	infoCh := make(chan NodeInfo, 16)
	sub := q.Sub("#", func(topic string, payload []byte) {
		if !strings.HasSuffix(topic, MetaSuffix) || len(payload) == 0 {
			return
		}
		info := NodeInfo{
			Name: strings.TrimSuffix(topic, MetaSuffix),
			Meta: append([]byte(nil), payload...),
		}
		select {
		case infoCh <- info:
		case <-time.After(time.Second):
		}
	})
	defer sub.Close()

	found := make(map[string]int)
	var res []NodeInfo
	expire := time.After(timeout)
	for {
		select {
		case info := <-infoCh:
			if n, ok := found[info.Name]; ok {
				res[n] = info
				continue
			}
			found[info.Name] = len(res)
			res = append(res, info)
		case <-expire:
			return res, nil
		case <-ctx.Done():
			return res, ctx.Err()
		}
	}
}

package rmw

import (
	"fmt"
	"sync"
)

// EntityKind identifies a kind of middleware entity.
type EntityKind int

// Entity kinds.
const (
	KindNode EntityKind = iota
	KindPublisher
	KindSubscription
	KindTimer
	KindExecutor
	kindCount
)

var kindNames = [kindCount]string{"node", "publisher", "subscription", "timer", "executor"}

// String implements Stringer.
func (k EntityKind) String() string {
	if k >= 0 && k < kindCount {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Limits are the static entity budgets of an Allocator.
type Limits struct {
	Nodes         int `yaml:"nodes"`
	Publishers    int `yaml:"publishers"`
	Subscriptions int `yaml:"subscriptions"`
	Timers        int `yaml:"timers"`
	Executors     int `yaml:"executors"`
}

// DefaultLimits matches the static entity pools of a small embedded agent
// client.
var DefaultLimits = Limits{
	Nodes:         1,
	Publishers:    10,
	Subscriptions: 5,
	Timers:        5,
	Executors:     1,
}

func (l Limits) of(kind EntityKind) int {
	switch kind {
	case KindNode:
		return l.Nodes
	case KindPublisher:
		return l.Publishers
	case KindSubscription:
		return l.Subscriptions
	case KindTimer:
		return l.Timers
	case KindExecutor:
		return l.Executors
	}
	return 0
}

// Allocator accounts entities against fixed budgets.
type Allocator struct {
	limits Limits
	used   [kindCount]int
	lock   sync.Mutex
}

// NewAllocator creates an Allocator. Every budget must be positive.
func NewAllocator(limits Limits) (*Allocator, error) {
	for k := EntityKind(0); k < kindCount; k++ {
		if limits.of(k) <= 0 {
			return nil, &Error{Op: OpAllocatorInit, Err: fmt.Errorf("%w: %s budget %d", ErrBadAlloc, k, limits.of(k))}
		}
	}
	return &Allocator{limits: limits}, nil
}

// DefaultAllocator creates an Allocator with DefaultLimits.
func DefaultAllocator() *Allocator {
	return &Allocator{limits: DefaultLimits}
}

// Reserve takes one entity of kind from the budget.
func (a *Allocator) Reserve(kind EntityKind) error {
	a.lock.Lock()
	defer a.lock.Unlock()
	if kind < 0 || kind >= kindCount || a.used[kind] >= a.limits.of(kind) {
		return fmt.Errorf("%w: %s", ErrBadAlloc, kind)
	}
	a.used[kind]++
	return nil
}

// Release returns one entity of kind to the budget.
func (a *Allocator) Release(kind EntityKind) {
	a.lock.Lock()
	defer a.lock.Unlock()
	if kind >= 0 && kind < kindCount && a.used[kind] > 0 {
		a.used[kind]--
	}
}

// Used returns the number of reserved entities of kind.
func (a *Allocator) Used(kind EntityKind) int {
	a.lock.Lock()
	defer a.lock.Unlock()
	if kind < 0 || kind >= kindCount {
		return 0
	}
	return a.used[kind]
}

// Package rmw provides the messaging context of a node: the entity
// allocator, the support object bound to a transport, the node identity and
// its publishers and subscribers.
//
// Every operation returns an error; whether a failure is fatal or soft is
// decided by the caller.
package rmw

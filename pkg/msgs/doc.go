// Package msgs provides the message schemas exchanged with the messaging
// fabric and the envelope used on the wire.
//
// Every message travels as a protobuf Any whose type URL names the schema
// (e.g. std_msgs/msg/String), so a receiver can validate the schema before
// decoding the value.
package msgs

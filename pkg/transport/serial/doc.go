// Package serial implements the transport for nodes attached to the agent by
// a point-to-point byte channel, such as a UART or a websocket standing in
// for one.
//
// The channel carries frames protected by a sequence based synchronization.
// Each side opens with a sync request (0xff seq) answered by a sync
// acknowledge (0xfe seq). Every frame then carries the next expected
// sequence number of its sender, so a lost or corrupted byte is detected by
// the receiver, which falls back to syncing. There is no checksum; enable
// parity on the port when bit errors matter.
//
// A frame is
//
//	seq | code | [len] | data
//
// where bit 7 of code marks a control frame, bits 4-6 hold the data length
// when it is below 7 (7 means a length byte follows, at most 127), and the
// low nibble holds the stream id of a data frame or the op of a control
// frame. Control frames declare the node, the topics it publishes and the
// topics it subscribes, binding each topic to a stream id. The node sends
// its declarations again every time the channel resynchronizes.
package serial

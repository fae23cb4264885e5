// Package transport manages the real-time channel of the open conversation.
//
// A Coordinator owns at most one Channel at a time. Opening a conversation
// closes the previous channel first, so frames of a stale room can never
// reach the new conversation. Each Channel runs a bounded state machine
//
//	Disconnected -> Connecting -> Open -> Closed
//
// and delivers parsed inbound frames on a Go channel that is closed when the
// Channel is torn down. Frames carrying an error field are routed to the
// error handler and the channel stays open.
//
// Room names are canonical: both peers of a direct chat compute the same
// name regardless of who opens it.
package transport

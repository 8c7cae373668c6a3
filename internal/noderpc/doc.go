// Package noderpc implements a minimal WebSocket JSON-RPC 2.0 client
// for the node's RPC endpoint.
//
// It covers exactly the surface the supervisor needs:
//   - system_health (peer count, sync flag)
//   - system_syncState (starting/current/highest block)
//   - chain_subscribeNewHeads (block header push)
//
// Block numbers arrive as JSON numbers, decimal strings, or 0x-hex
// strings depending on the field; BlockNumber normalises all three.
//
// A Session owns a dedicated reader goroutine feeding a channel.
// ReadOne drains at most one message with a caller-supplied timeout;
// an expired timeout is non-fatal (ErrTimeout) and the session stays
// usable. Read failures on the connection itself tear the session
// down (ErrClosed).
package noderpc

// Package miner supervises the quantus-node mining process.
//
// It owns the single running child, derives structured events and
// metadata from the node's unstructured log output, automates the
// safe-mode workaround for known troublesome block ranges, maintains a
// WebSocket JSON-RPC status loop against the local node (and, best
// effort, a remote bootnode), and offers repair and unlock remediation
// workflows.
//
// # Components
//
//   - ParseEvent: pure per-line classifier into Event variants
//   - Meta: accumulating metadata record fed by the stderr stream
//   - SafeMode: Inactive/Active machine with a single-slot pending
//     toggle mailbox, drained and executed by the poller
//   - Supervisor: lifecycle owner (Start/Stop/RepairAndRestart/
//     UnlockAndRestart) plus the reader goroutines
//   - pollLoop: per-session status loop publishing Status on change
//
// All outbound traffic goes through the Publisher interface; tests use
// a recording publisher, production wires the MQTT sink.
package miner

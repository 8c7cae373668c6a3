// Package process manages a single supervised child process.
//
// It provides:
//   - Spawning with stdin disconnected and stdout/stderr piped
//   - Process-group signaling (SIGINT reaches forked grandchildren)
//   - Graceful stop: SIGINT, grace period, SIGKILL escalation
//   - Passive exit detection via a Done channel
//
// The package is domain-agnostic: it knows nothing about what binary it
// runs. Argument construction and output interpretation live in the
// miner package.
//
// # Usage
//
//	child, err := process.Spawn(ctx, process.Config{
//	    Binary:      "/usr/local/bin/quantus-node",
//	    Args:        []string{"--chain", "resonance"},
//	    GracePeriod: 2 * time.Second,
//	})
//	if err != nil {
//	    return err
//	}
//	go consume(child.Stdout())
//	go consume(child.Stderr())
//	...
//	child.Stop(ctx)
package process

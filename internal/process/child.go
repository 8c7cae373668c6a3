package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// Config holds the parameters for spawning a child process.
type Config struct {
	// Binary is the path to the executable.
	Binary string

	// Args are the command-line arguments (excluding the binary name).
	Args []string

	// Env is the environment for the child. Nil inherits the parent's.
	Env []string

	// WorkDir is the working directory. Empty inherits the parent's.
	WorkDir string

	// GracePeriod is how long Stop waits after SIGINT before SIGKILL.
	GracePeriod time.Duration
}

// Child is a single spawned process with piped stdout/stderr.
//
// The child runs in its own process group so signals reach any
// grandchildren it forks. Exit is detected passively: a goroutine
// waits on the process and closes Done.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Child struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr io.ReadCloser
	grace  time.Duration

	done    chan struct{}
	exitErr error
	mu      sync.Mutex
}

// Spawn starts the configured binary with stdin disconnected and
// stdout/stderr piped.
//
// The context gates the spawn itself; it does not kill the child on
// cancellation. Lifecycle is managed explicitly via Stop.
func Spawn(ctx context.Context, cfg Config) (*Child, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg.Binary == "" {
		return nil, errors.New("process: binary path is empty")
	}

	cmd := exec.Command(cfg.Binary, cfg.Args...)
	cmd.Env = cfg.Env
	cmd.Dir = cfg.WorkDir
	cmd.Stdin = nil

	// Own process group, so Stop can signal the whole tree.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("process: stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("process: stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("process: starting %s: %w", cfg.Binary, err)
	}

	c := &Child{
		cmd:    cmd,
		stdout: stdout,
		stderr: stderr,
		grace:  cfg.GracePeriod,
		done:   make(chan struct{}),
	}

	go func() {
		err := cmd.Wait()
		c.mu.Lock()
		c.exitErr = err
		c.mu.Unlock()
		close(c.done)
	}()

	return c, nil
}

// Stdout returns the child's stdout pipe.
// The pipe closes when the process exits.
func (c *Child) Stdout() io.Reader {
	return c.stdout
}

// Stderr returns the child's stderr pipe.
func (c *Child) Stderr() io.Reader {
	return c.stderr
}

// PID returns the child's process ID.
func (c *Child) PID() int {
	return c.cmd.Process.Pid
}

// Running reports whether the process has not yet exited.
func (c *Child) Running() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// Done returns a channel closed when the process exits.
func (c *Child) Done() <-chan struct{} {
	return c.done
}

// ExitErr returns the result of Wait after the process has exited.
// Before exit it returns nil.
func (c *Child) ExitErr() error {
	select {
	case <-c.done:
	default:
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exitErr
}

// Interrupt sends SIGINT to the child's process group.
//
// A process that already exited is not an error.
func (c *Child) Interrupt() error {
	return c.signal(syscall.SIGINT)
}

// Kill sends SIGKILL to the child's process group.
func (c *Child) Kill() error {
	return c.signal(syscall.SIGKILL)
}

func (c *Child) signal(sig syscall.Signal) error {
	if !c.Running() {
		return nil
	}
	// Negative PID targets the process group.
	err := syscall.Kill(-c.cmd.Process.Pid, sig)
	if err != nil && !errors.Is(err, syscall.ESRCH) {
		return fmt.Errorf("process: signaling pid %d: %w", c.cmd.Process.Pid, err)
	}
	return nil
}

// Stop requests a graceful shutdown: SIGINT, then SIGKILL after the
// grace period, then wait for the exit to be observed.
//
// Stopping an already-exited process succeeds immediately.
func (c *Child) Stop(ctx context.Context) error {
	if !c.Running() {
		return nil
	}

	if err := c.Interrupt(); err != nil {
		return err
	}

	grace := c.grace
	if grace <= 0 {
		grace = 400 * time.Millisecond
	}

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		// Caller gave up waiting; escalate immediately.
	case <-timer.C:
	}

	if err := c.Kill(); err != nil {
		return err
	}

	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("process: waiting for exit: %w", ctx.Err())
	}
}

// Wait blocks until the process exits or the context is cancelled.
func (c *Child) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.exitErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

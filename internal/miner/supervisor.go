package miner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quantusnet/minercore/internal/process"
)

// defaultGracePeriod is how long Stop waits after SIGINT before SIGKILL.
const defaultGracePeriod = 2 * time.Second

// corruptionMarkers are log substrings that indicate a damaged chain
// database. Detection is advisory only; the supervisor never repairs
// on its own initiative.
var corruptionMarkers = []string{
	"database corruption",
	"corrupted database",
	"failed to open database",
	"invalid column families",
}

// Logger is the logging interface the supervisor uses.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger discards all log output. Used when no logger is set.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options configures a Supervisor.
type Options struct {
	// Publisher receives all outbound events. Required.
	Publisher Publisher

	// Paths resolves locations inside the node data directory.
	Paths Paths

	// LocalRPC is the local node's WebSocket JSON-RPC endpoint.
	LocalRPC string

	// Bootnodes maps chain identifiers to remote bootnode endpoints
	// for the best-effort remote height sample. Chains absent from the
	// map skip the remote leg.
	Bootnodes map[string]string

	// SafeFlag and SafeValue form the restrictive flag pair spliced
	// into extra args while safe mode is active.
	SafeFlag  string
	SafeValue string

	// RangeOverrides replaces the built-in troublesome ranges per chain.
	RangeOverrides map[string][]Range

	// GracePeriod overrides the SIGINT-to-SIGKILL grace. Zero means
	// the default.
	GracePeriod time.Duration

	// Timings tune the poller loop. Zero fields take defaults.
	Timings Timings
}

// Timings are the status poller cadences.
type Timings struct {
	HealthInterval   time.Duration
	RemoteInterval   time.Duration
	ReadTimeout      time.Duration
	ReconnectBackoff time.Duration
}

func (t Timings) withDefaults() Timings {
	if t.HealthInterval <= 0 {
		t.HealthInterval = 5 * time.Second
	}
	if t.RemoteInterval <= 0 {
		t.RemoteInterval = 30 * time.Second
	}
	if t.ReadTimeout <= 0 {
		t.ReadTimeout = 750 * time.Millisecond
	}
	if t.ReconnectBackoff <= 0 {
		t.ReconnectBackoff = 3 * time.Second
	}
	return t
}

// Supervisor owns the single running node process, its configuration,
// and restart semantics.
//
// Invariant: at most one child process is alive at any time. A new
// Start supersedes the previous session, including its poller.
//
// Thread Safety:
//   - All exported methods are safe for concurrent use.
type Supervisor struct {
	pub       Publisher
	paths     Paths
	localRPC  string
	bootnodes map[string]string
	safeFlag  string
	safeValue string
	overrides map[string][]Range
	grace     time.Duration
	timings   Timings

	logger   Logger
	recorder Recorder

	// lifecycle serializes Start and Stop so one caller's
	// stop-spawn-store sequence cannot interleave with another's.
	// Never held while s.mu is needed by the reader goroutines.
	lifecycle sync.Mutex

	mu           sync.Mutex
	child        *process.Child
	lastConfig   *Config
	meta         *Meta
	sessionID    string
	safe         *SafeMode
	safeChain    string
	logFile      *os.File
	runCtx       context.Context
	pollerCancel context.CancelFunc
}

// New creates a Supervisor. The publisher is required; everything else
// has workable defaults.
func New(opts Options) *Supervisor {
	grace := opts.GracePeriod
	if grace <= 0 {
		grace = defaultGracePeriod
	}
	flag := opts.SafeFlag
	if flag == "" {
		flag = "--max-blocks-per-request"
	}
	value := opts.SafeValue
	if value == "" {
		value = "1"
	}
	localRPC := opts.LocalRPC
	if localRPC == "" {
		localRPC = "ws://127.0.0.1:9944"
	}

	return &Supervisor{
		pub:       opts.Publisher,
		paths:     opts.Paths,
		localRPC:  localRPC,
		bootnodes: opts.Bootnodes,
		safeFlag:  flag,
		safeValue: value,
		overrides: opts.RangeOverrides,
		grace:     grace,
		timings:   opts.Timings.withDefaults(),
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger. Must be called before Start.
func (s *Supervisor) SetLogger(logger Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// SetRecorder sets an optional telemetry recorder. Must be called
// before Start. A nil recorder disables recording.
func (s *Supervisor) SetRecorder(rec Recorder) {
	s.recorder = rec
}

// Start launches a new supervisor session with the given config.
//
// Any previous session is stopped first (best-effort; a stop failure
// does not block starting). Prerequisite failures return
// ErrPrerequisite before anything is spawned.
func (s *Supervisor) Start(ctx context.Context, cfg Config) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	return s.startLocked(ctx, cfg)
}

// startLocked is Start's body; callers hold s.lifecycle.
func (s *Supervisor) startLocked(ctx context.Context, cfg Config) error {
	// Best-effort teardown of any prior child.
	if err := s.stop(); err != nil {
		s.logger.Warn("stopping previous session", "error", err)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := s.checkPrerequisites(cfg); err != nil {
		return err
	}

	child, err := process.Spawn(ctx, process.Config{
		Binary:      cfg.Binary,
		Args:        cfg.Args(),
		GracePeriod: s.grace,
	})
	if err != nil {
		return fmt.Errorf("spawning node: %w", err)
	}

	sessionID := uuid.NewString()
	meta := &Meta{SessionID: sessionID}

	var mirror *lockedWriter
	if cfg.LogToFile {
		file, ferr := s.openLogFile()
		if ferr != nil {
			s.logger.Warn("opening log file", "error", ferr)
		} else {
			mirror = &lockedWriter{w: file}
			s.pub.Publish(ChannelLogfile, LogfileNotice{Path: file.Name()})
		}

		s.mu.Lock()
		s.closeLogFileLocked()
		s.logFile = file
		s.mu.Unlock()
	}

	s.mu.Lock()
	s.child = child
	clone := cfg.Clone()
	s.lastConfig = &clone
	s.meta = meta
	s.sessionID = sessionID
	if s.safe == nil || s.safeChain != cfg.Chain {
		s.safe = NewSafeMode(s.safeFlag, s.safeValue, RangesFor(cfg.Chain, s.overrides))
		s.safeChain = cfg.Chain
	}
	safe := s.safe

	// stop already cancelled the previous poller.
	pollerCtx, cancel := context.WithCancel(ctx)
	s.runCtx = ctx
	s.pollerCancel = cancel
	s.mu.Unlock()

	go s.readStream("stdout", child.Stdout(), nil, mirror)
	go s.readStream("stderr", child.Stderr(), meta, mirror)
	go s.pollLoop(pollerCtx, cfg.Chain, sessionID, safe)

	s.logger.Info("node started", "pid", child.PID(), "config", cfg.String(), "session", sessionID)
	return nil
}

// checkPrerequisites verifies start preconditions that external
// collaborators are expected to have satisfied already.
func (s *Supervisor) checkPrerequisites(cfg Config) error {
	if cfg.RewardsAddress == "" {
		return fmt.Errorf("%w: rewards address is empty", ErrPrerequisite)
	}
	keyFile := s.paths.NodeKeyFile(cfg.Chain)
	if _, err := os.Stat(keyFile); err != nil {
		return fmt.Errorf("%w: node key file %s: %v", ErrPrerequisite, keyFile, err)
	}
	return nil
}

// Stop terminates the running child, if any, and cancels the session's
// poller. A session ends at a terminal stop: nothing restarts the node
// afterwards until the next Start.
//
// A no-op success when nothing is running. The running slot is always
// cleared so a subsequent Start is unblocked even if the kill failed.
func (s *Supervisor) Stop() error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	return s.stop()
}

// stop is Stop's body; callers hold s.lifecycle.
func (s *Supervisor) stop() error {
	s.mu.Lock()
	child := s.child
	s.child = nil
	s.closeLogFileLocked()
	if s.pollerCancel != nil {
		s.pollerCancel()
		s.pollerCancel = nil
	}
	s.mu.Unlock()

	if child == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.grace+5*time.Second)
	defer cancel()

	if err := child.Stop(ctx); err != nil {
		return fmt.Errorf("stopping node: %w", err)
	}
	s.logger.Info("node stopped", "pid", child.PID())
	return nil
}

// Shutdown ends the session entirely. Stop is already terminal; this
// is kept as the explicit end-of-process hook.
func (s *Supervisor) Shutdown(context.Context) error {
	return s.Stop()
}

// RepairAndRestart stops the node, wipes the chain database directory
// and restarts with the remembered config. Requires a prior session.
func (s *Supervisor) RepairAndRestart(ctx context.Context) error {
	cfg, err := s.lastConfigClone()
	if err != nil {
		return err
	}

	s.publishUILine("Repair: stopping node...")
	if err := s.Stop(); err != nil {
		s.logger.Warn("repair: stop", "error", err)
	}

	dbDir := s.paths.DatabaseDir(cfg.Chain)
	s.publishUILine(fmt.Sprintf("Repair: removing chain database %s", dbDir))
	if err := os.RemoveAll(dbDir); err != nil {
		return fmt.Errorf("removing database %s: %w", dbDir, err)
	}

	s.publishUILine("Repair: restarting node...")
	if err := s.Start(ctx, cfg); err != nil {
		return fmt.Errorf("restarting after repair: %w", err)
	}
	s.publishUILine("Repair: done, node is resyncing from genesis")
	return nil
}

// UnlockAndRestart stops the node, removes a stale database lock file
// (absence is fine) and restarts with the remembered config.
func (s *Supervisor) UnlockAndRestart(ctx context.Context) error {
	cfg, err := s.lastConfigClone()
	if err != nil {
		return err
	}

	s.publishUILine("Unlock: stopping node...")
	if err := s.Stop(); err != nil {
		s.logger.Warn("unlock: stop", "error", err)
	}

	lock := s.paths.LockFile(cfg.Chain)
	if err := os.Remove(lock); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing lock file %s: %w", lock, err)
	}
	s.publishUILine("Unlock: removed stale database lock")

	if err := s.Start(ctx, cfg); err != nil {
		return fmt.Errorf("restarting after unlock: %w", err)
	}
	return nil
}

// Running reports whether a child process is currently alive.
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	child := s.child
	s.mu.Unlock()
	return child != nil && child.Running()
}

// LastConfig returns a clone of the remembered config, if any.
func (s *Supervisor) LastConfig() (Config, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastConfig == nil {
		return Config{}, false
	}
	return s.lastConfig.Clone(), true
}

// SafeModeActive reports whether safe mode is currently in effect.
func (s *Supervisor) SafeModeActive() bool {
	s.mu.Lock()
	safe := s.safe
	s.mu.Unlock()
	return safe != nil && safe.Active()
}

// SafeRanges returns the troublesome ranges for the active chain.
func (s *Supervisor) SafeRanges() []Range {
	s.mu.Lock()
	safe := s.safe
	s.mu.Unlock()
	if safe == nil {
		return nil
	}
	return safe.Ranges()
}

// SetSafeRanges replaces the troublesome range table for the active
// chain at runtime.
func (s *Supervisor) SetSafeRanges(ranges []Range) {
	s.mu.Lock()
	safe := s.safe
	s.mu.Unlock()
	if safe != nil {
		safe.SetRanges(ranges)
	}
}

func (s *Supervisor) lastConfigClone() (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastConfig == nil {
		return Config{}, ErrNoPriorSession
	}
	return s.lastConfig.Clone(), nil
}

func (s *Supervisor) openLogFile() (*os.File, error) {
	dir := s.paths.LogDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating log dir: %w", err)
	}
	name := filepath.Join(dir, fmt.Sprintf("node-%s.log", time.Now().Format("20060102-150405")))
	file, err := os.Create(name)
	if err != nil {
		return nil, fmt.Errorf("creating log file: %w", err)
	}
	return file, nil
}

func (s *Supervisor) closeLogFileLocked() {
	if s.logFile != nil {
		s.logFile.Close()
		s.logFile = nil
	}
}

// publishUILine surfaces a supervisor-generated advisory on the log
// channel, tagged as UI-sourced.
func (s *Supervisor) publishUILine(line string) {
	s.logger.Info(line)
	s.pub.Publish(ChannelLog, LogLine{Source: "ui", Line: line})
}

// readStream consumes one output stream until it closes, publishing
// per-line logs, parsed events and (stderr only) metadata changes.
//
// The goroutine ends naturally when the child's pipe closes; it never
// outlives its session by more than the pipe's buffered remainder.
func (s *Supervisor) readStream(source string, r io.Reader, meta *Meta, mirror *lockedWriter) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()

		if mirror != nil {
			mirror.WriteLine(line)
		}

		s.pub.Publish(ChannelLog, LogLine{Source: source, Line: line})

		if ev, ok := ParseEvent(line); ok {
			s.pub.Publish(ChannelEvent, ev)
			if ev.Type == EventHashrate && s.recorder != nil {
				s.recorder.RecordHashrate(s.chainTag(), ev.HPS)
			}
		}

		if meta != nil && meta.Update(line) {
			s.pub.Publish(ChannelMeta, *meta)
		}

		if sig, ok := matchCorruption(line); ok {
			s.logger.Warn("database corruption signature in node output", "signature", sig)
			s.publishUILine("Possible chain database corruption detected. Run repair to wipe and resync the database.")
		}
	}
}

func (s *Supervisor) chainTag() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastConfig == nil {
		return ""
	}
	return s.lastConfig.Chain
}

// matchCorruption reports whether the line carries a known corruption
// signature.
func matchCorruption(line string) (string, bool) {
	l := strings.ToLower(line)
	for _, marker := range corruptionMarkers {
		if strings.Contains(l, marker) {
			return marker, true
		}
	}
	return "", false
}

// lockedWriter serializes line writes from the two reader goroutines
// into the shared log mirror file.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) WriteLine(line string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	// Mirror failures are not worth killing the reader over.
	fmt.Fprintln(l.w, line)
}

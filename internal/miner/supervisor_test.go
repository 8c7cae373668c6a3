package miner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"
)

// recordingPublisher captures publications for assertions.
type recordingPublisher struct {
	mu      sync.Mutex
	entries []publication
}

type publication struct {
	channel string
	payload any
}

func (p *recordingPublisher) Publish(channel string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = append(p.entries, publication{channel, payload})
}

func (p *recordingPublisher) onChannel(channel string) []any {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []any
	for _, e := range p.entries {
		if e.channel == channel {
			out = append(out, e.payload)
		}
	}
	return out
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

// newTestBase creates a node data dir with a resonance key file in place.
func newTestBase(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	keyDir := filepath.Join(base, "chains", "resonance", "network")
	if err := os.MkdirAll(keyDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(keyDir, "secret_dilithium"), []byte("key"), 0o600); err != nil {
		t.Fatalf("write key: %v", err)
	}
	return base
}

func newTestSupervisor(t *testing.T, base string, pub Publisher) *Supervisor {
	t.Helper()
	s := New(Options{
		Publisher: pub,
		Paths:     NewPaths(base),
		// Unreachable port so the poller fails fast and stays quiet.
		LocalRPC: "ws://127.0.0.1:1",
		Timings: Timings{
			HealthInterval:   time.Hour,
			RemoteInterval:   time.Hour,
			ReadTimeout:      20 * time.Millisecond,
			ReconnectBackoff: 50 * time.Millisecond,
		},
		GracePeriod: time.Second,
	})
	t.Cleanup(func() { s.Shutdown(context.Background()) })
	return s
}

// fakeNodeScript returns a binary that ignores its arguments and idles
// until signalled.
func fakeNodeScript(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fakenode")
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexec sleep 60\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func echoConfig(lines string) Config {
	return Config{
		Chain:          "resonance",
		Binary:         "/bin/echo",
		RewardsAddress: "qzTestAddress",
		ExtraArgs:      []string{"-n", lines},
	}
}

func TestStartPrerequisiteMissingKeyFile(t *testing.T) {
	pub := &recordingPublisher{}
	s := newTestSupervisor(t, t.TempDir(), pub) // no key file laid down

	err := s.Start(context.Background(), echoConfig("x"))
	if !errors.Is(err, ErrPrerequisite) {
		t.Fatalf("Start = %v, want ErrPrerequisite", err)
	}
	if s.Running() {
		t.Error("Running() = true after failed start")
	}
}

func TestStartPrerequisiteEmptyRewardsAddress(t *testing.T) {
	pub := &recordingPublisher{}
	s := newTestSupervisor(t, newTestBase(t), pub)

	cfg := echoConfig("x")
	cfg.RewardsAddress = ""
	if err := s.Start(context.Background(), cfg); !errors.Is(err, ErrPrerequisite) {
		t.Fatalf("Start = %v, want ErrPrerequisite", err)
	}
}

func TestStartPublishesLogLines(t *testing.T) {
	pub := &recordingPublisher{}
	s := newTestSupervisor(t, newTestBase(t), pub)

	if err := s.Start(context.Background(), echoConfig("hello from the node")); err != nil {
		t.Fatalf("Start: %v", err)
	}

	ok := waitFor(t, 3*time.Second, func() bool {
		for _, p := range pub.onChannel(ChannelLog) {
			if ll, ok := p.(LogLine); ok && ll.Source == "stdout" && strings.Contains(ll.Line, "hello from the node") {
				return true
			}
		}
		return false
	})
	if !ok {
		t.Fatal("stdout line never published")
	}
}

func TestStartPublishesParsedEvents(t *testing.T) {
	pub := &recordingPublisher{}
	s := newTestSupervisor(t, newTestBase(t), pub)

	if err := s.Start(context.Background(), echoConfig("hashrate: 42.5 H/s")); err != nil {
		t.Fatalf("Start: %v", err)
	}

	ok := waitFor(t, 3*time.Second, func() bool {
		for _, p := range pub.onChannel(ChannelEvent) {
			if ev, ok := p.(Event); ok && ev.Type == EventHashrate && ev.HPS == 42.5 {
				return true
			}
		}
		return false
	})
	if !ok {
		t.Fatal("hashrate event never published")
	}
}

func TestCorruptionSignatureIsAdvisoryOnly(t *testing.T) {
	pub := &recordingPublisher{}
	base := newTestBase(t)
	s := newTestSupervisor(t, base, pub)

	dbDir := filepath.Join(base, "chains", "resonance", "db")
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	if err := s.Start(context.Background(), echoConfig("Error: failed to open database at /x")); err != nil {
		t.Fatalf("Start: %v", err)
	}

	ok := waitFor(t, 3*time.Second, func() bool {
		for _, p := range pub.onChannel(ChannelLog) {
			if ll, ok := p.(LogLine); ok && ll.Source == "ui" && strings.Contains(ll.Line, "repair") {
				return true
			}
		}
		return false
	})
	if !ok {
		t.Fatal("corruption advisory never published")
	}

	// Advisory only: the database must still be there.
	if _, err := os.Stat(dbDir); err != nil {
		t.Errorf("database dir removed by advisory path: %v", err)
	}
}

func TestStopIdleIsNoop(t *testing.T) {
	pub := &recordingPublisher{}
	s := newTestSupervisor(t, newTestBase(t), pub)

	for i := 0; i < 3; i++ {
		if err := s.Stop(); err != nil {
			t.Fatalf("Stop #%d: %v", i+1, err)
		}
	}
}

func TestStopClearsRunningSlot(t *testing.T) {
	pub := &recordingPublisher{}
	s := newTestSupervisor(t, newTestBase(t), pub)

	cfg := echoConfig("x")
	cfg.Binary = "/bin/sleep"
	cfg.ExtraArgs = []string{"60"}

	if err := s.Start(context.Background(), cfg); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !s.Running() {
		t.Fatal("Running() = false after Start")
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if s.Running() {
		t.Error("Running() = true after Stop")
	}

	// Stop again: still a no-op success.
	if err := s.Stop(); err != nil {
		t.Errorf("second Stop: %v", err)
	}
}

func TestStartSupersedesPreviousSession(t *testing.T) {
	pub := &recordingPublisher{}
	s := newTestSupervisor(t, newTestBase(t), pub)

	cfg := echoConfig("x")
	cfg.Binary = "/bin/sleep"
	cfg.ExtraArgs = []string{"60"}

	if err := s.Start(context.Background(), cfg); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := s.Start(context.Background(), cfg); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if !s.Running() {
		t.Error("Running() = false after superseding Start")
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if s.Running() {
		t.Error("child still running; more than one process was alive")
	}
}

func TestConcurrentStartsLeaveOneChild(t *testing.T) {
	pub := &recordingPublisher{}
	s := newTestSupervisor(t, newTestBase(t), pub)

	cfg := Config{
		Chain:          "resonance",
		Binary:         fakeNodeScript(t),
		RewardsAddress: "qzTestAddress",
	}

	var wg sync.WaitGroup
	pids := make(chan int, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Start(context.Background(), cfg); err != nil {
				t.Errorf("Start: %v", err)
				return
			}
			s.mu.Lock()
			if s.child != nil {
				pids <- s.child.PID()
			}
			s.mu.Unlock()
		}()
	}
	wg.Wait()
	close(pids)

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	// Every child observed along the way must be gone: each Start
	// stops its predecessor before spawning, and Stop kills the last.
	for pid := range pids {
		gone := waitFor(t, 3*time.Second, func() bool {
			return syscall.Kill(pid, 0) != nil
		})
		if !gone {
			t.Errorf("pid %d still alive after Stop", pid)
		}
	}
	if s.Running() {
		t.Error("Running() = true after Stop")
	}
}

func TestStopEndsPollerSession(t *testing.T) {
	pub := &recordingPublisher{}
	s := newTestSupervisor(t, newTestBase(t), pub)

	cfg := Config{
		Chain:          "resonance",
		Binary:         fakeNodeScript(t),
		RewardsAddress: "qzTestAddress",
	}
	if err := s.Start(context.Background(), cfg); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// An enable request recorded just before the stop must die with
	// the session instead of restarting the node.
	s.mu.Lock()
	safe := s.safe
	s.mu.Unlock()
	safe.Observe(13311)

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	// Give a stray poller ample iterations to misbehave.
	time.Sleep(400 * time.Millisecond)
	if s.Running() {
		t.Fatal("node restarted after terminal Stop")
	}

	s.mu.Lock()
	cancelled := s.pollerCancel == nil
	s.mu.Unlock()
	if !cancelled {
		t.Error("poller not cancelled by Stop")
	}
}

func TestRepairWithoutPriorSession(t *testing.T) {
	pub := &recordingPublisher{}
	s := newTestSupervisor(t, newTestBase(t), pub)

	if err := s.RepairAndRestart(context.Background()); !errors.Is(err, ErrNoPriorSession) {
		t.Fatalf("RepairAndRestart = %v, want ErrNoPriorSession", err)
	}
	if err := s.UnlockAndRestart(context.Background()); !errors.Is(err, ErrNoPriorSession) {
		t.Fatalf("UnlockAndRestart = %v, want ErrNoPriorSession", err)
	}
}

func TestRepairRemovesDatabaseAndRestarts(t *testing.T) {
	pub := &recordingPublisher{}
	base := newTestBase(t)
	s := newTestSupervisor(t, base, pub)

	dbDir := filepath.Join(base, "chains", "resonance", "db")
	if err := os.MkdirAll(filepath.Join(dbDir, "full"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dbDir, "full", "data"), []byte("blocks"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := s.Start(context.Background(), echoConfig("x")); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := s.RepairAndRestart(context.Background()); err != nil {
		t.Fatalf("RepairAndRestart: %v", err)
	}

	if _, err := os.Stat(dbDir); !os.IsNotExist(err) {
		t.Errorf("database dir still present: %v", err)
	}

	// The restart reused the remembered config.
	cfg, ok := s.LastConfig()
	if !ok || cfg.Chain != "resonance" {
		t.Errorf("LastConfig = %+v, %v", cfg, ok)
	}
}

func TestUnlockRemovesLockFile(t *testing.T) {
	pub := &recordingPublisher{}
	base := newTestBase(t)
	s := newTestSupervisor(t, base, pub)

	lock := filepath.Join(base, "chains", "resonance", "db", "full", "LOCK")
	if err := os.MkdirAll(filepath.Dir(lock), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(lock, nil, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := s.Start(context.Background(), echoConfig("x")); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.UnlockAndRestart(context.Background()); err != nil {
		t.Fatalf("UnlockAndRestart: %v", err)
	}

	if _, err := os.Stat(lock); !os.IsNotExist(err) {
		t.Errorf("lock file still present: %v", err)
	}

	// Absence of the lock is not an error.
	if err := s.UnlockAndRestart(context.Background()); err != nil {
		t.Errorf("UnlockAndRestart without lock: %v", err)
	}
}

func TestLogToFileMirrorsOutput(t *testing.T) {
	pub := &recordingPublisher{}
	base := newTestBase(t)
	s := newTestSupervisor(t, base, pub)

	cfg := echoConfig("mirrored line")
	cfg.LogToFile = true
	if err := s.Start(context.Background(), cfg); err != nil {
		t.Fatalf("Start: %v", err)
	}

	var path string
	ok := waitFor(t, 3*time.Second, func() bool {
		for _, p := range pub.onChannel(ChannelLogfile) {
			if n, ok := p.(LogfileNotice); ok {
				path = n.Path
				return true
			}
		}
		return false
	})
	if !ok {
		t.Fatal("logfile notice never published")
	}

	ok = waitFor(t, 3*time.Second, func() bool {
		data, err := os.ReadFile(path)
		return err == nil && strings.Contains(string(data), "mirrored line")
	})
	if !ok {
		t.Errorf("log file %s does not contain mirrored output", path)
	}
}

func TestConfigArgsDeterministic(t *testing.T) {
	cfg := Config{
		Chain:          "resonance",
		Binary:         "/usr/bin/quantus-node",
		RewardsAddress: "qzABC",
		ExtraArgs:      []string{"--max-blocks-per-request", "1"},
	}

	want := []string{
		"--chain", "resonance",
		"--validator",
		"--rewards-address", "qzABC",
		"--max-blocks-per-request", "1",
	}
	if got := cfg.Args(); !reflect.DeepEqual(got, want) {
		t.Errorf("Args = %v, want %v", got, want)
	}

	// Clone does not alias ExtraArgs.
	clone := cfg.Clone()
	clone.ExtraArgs[0] = "mutated"
	if cfg.ExtraArgs[0] != "--max-blocks-per-request" {
		t.Error("Clone aliases ExtraArgs")
	}
}

package miner

import (
	"strings"
	"sync"
)

// Range is a closed interval of block heights known to be unusually
// expensive to import.
type Range struct {
	Start uint64 `json:"start"`
	End   uint64 `json:"end"`
}

// Contains reports whether h lies inside the range.
func (r Range) Contains(h uint64) bool {
	return h >= r.Start && h <= r.End
}

// SafeMode decides, from observed chain height, whether the node
// should run with the restrictive block-fetch flag.
//
// Toggle requests are recorded, not executed: the log-reading path
// that observes heights is not allowed to restart the process, so it
// records a pending request that the poller loop drains and actions.
// The pending slot is a single-slot mailbox; a new request overwrites
// an undrained one (last writer wins).
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type SafeMode struct {
	flag  string
	value string

	mu      sync.Mutex
	ranges  []Range
	active  bool
	pending *bool
}

// NewSafeMode creates a machine with the given restrictive flag/value
// pair and troublesome ranges.
func NewSafeMode(flag, value string, ranges []Range) *SafeMode {
	return &SafeMode{
		flag:   flag,
		value:  value,
		ranges: append([]Range(nil), ranges...),
	}
}

// Observe records a pending toggle request if the height demands a
// state different from the current one.
//
// Enable is requested when the height lies inside any range; disable
// when the height is strictly past the end of every range. Between
// ranges the machine holds its current state.
func (s *SafeMode) Observe(height uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	want := s.active
	switch {
	case s.insideAny(height):
		want = true
	case s.pastAll(height):
		want = false
	}

	if want != s.active {
		w := want
		s.pending = &w
	}
}

func (s *SafeMode) insideAny(h uint64) bool {
	for _, r := range s.ranges {
		if r.Contains(h) {
			return true
		}
	}
	return false
}

func (s *SafeMode) pastAll(h uint64) bool {
	for _, r := range s.ranges {
		if h <= r.End {
			return false
		}
	}
	return true
}

// Drain consumes the pending toggle request, if any. Each request is
// consumed exactly once.
func (s *SafeMode) Drain() (want bool, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil {
		return false, false
	}
	want = *s.pending
	s.pending = nil
	return want, true
}

// Active reports whether safe mode is currently in effect.
func (s *SafeMode) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// SetActive records the executed state after a toggle has been applied.
func (s *SafeMode) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

// Ranges returns a copy of the configured troublesome ranges.
func (s *SafeMode) Ranges() []Range {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Range(nil), s.ranges...)
}

// SetRanges replaces the troublesome range table at runtime.
func (s *SafeMode) SetRanges(ranges []Range) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ranges = append([]Range(nil), ranges...)
}

// SpliceFlag returns args adjusted for the requested safe-mode state.
//
// Enabling appends the flag and its value if the flag is absent.
// Disabling removes every occurrence of the flag and, best-effort, the
// token immediately following it (treated as its value) unless that
// token itself looks like another flag. Enabling then disabling
// restores the original args.
func (s *SafeMode) SpliceFlag(args []string, enable bool) []string {
	if enable {
		for _, a := range args {
			if a == s.flag {
				return append([]string(nil), args...)
			}
		}
		out := append([]string(nil), args...)
		return append(out, s.flag, s.value)
	}

	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		if args[i] != s.flag {
			out = append(out, args[i])
			continue
		}
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			i++
		}
	}
	return out
}

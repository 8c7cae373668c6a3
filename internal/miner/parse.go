package miner

import (
	"regexp"
	"strconv"
	"strings"
)

// EventType discriminates parsed node output events.
type EventType string

// Event types derived from node output lines.
const (
	EventConnected     EventType = "connected"
	EventHashrate      EventType = "hashrate"
	EventShareAccepted EventType = "share_accepted"
	EventFoundBlock    EventType = "found_block"
	EventError         EventType = "error"
)

// Event is a structured observation derived from one node output line.
//
// Only the fields relevant to the Type are populated.
type Event struct {
	Type EventType `json:"type"`

	// HPS is the hashrate in hashes per second (Type == EventHashrate).
	HPS float64 `json:"hps,omitempty"`

	// Height and Hash are best-effort captures (Type == EventFoundBlock).
	Height *uint64 `json:"height,omitempty"`
	Hash   string  `json:"hash,omitempty"`

	// Message carries the trimmed original line (Type == EventError).
	Message string `json:"message,omitempty"`
}

// Parsing is best-effort: the node's log wording is not a stable
// contract, so rules are loose substring/pattern checks tested against
// literal captured lines. False negatives are acceptable.
var (
	reHashrateLabel = regexp.MustCompile(`hashrate[:=]\s*([\d.]+)\s*h/?s`)
	reHashrateUnit  = regexp.MustCompile(`h/?s\s*=?\s*([\d.]+)`)
	reBlockHeight   = regexp.MustCompile(`height[ =:]+(\d+)`)

	// A hash-labeled capture wins; the block-labeled fallback demands a
	// hex-looking token so "block at ..." cannot match.
	reBlockHash = regexp.MustCompile(`hash[ =:]+([0-9a-fx]+)`)
	reBlockRef  = regexp.MustCompile(`block[ =:]+((?:0x)?[0-9a-f]{6,})`)
)

// ParseEvent classifies one line of node output.
//
// Matching is case-insensitive against an ordered rule set; the first
// matching rule wins. Lines matching no rule yield no event.
func ParseEvent(line string) (Event, bool) {
	l := strings.ToLower(line)

	if strings.Contains(l, "connected to") || strings.Contains(l, "syncing") {
		return Event{Type: EventConnected}, true
	}

	if hps, ok := parseHashrate(l); ok {
		return Event{Type: EventHashrate, HPS: hps}, true
	}

	if strings.Contains(l, "share accepted") || strings.Contains(l, "accepted share") {
		return Event{Type: EventShareAccepted}, true
	}

	if strings.Contains(l, "found block") || strings.Contains(l, "contributed block") || strings.Contains(l, "mined block") {
		ev := Event{Type: EventFoundBlock}
		if m := reBlockHeight.FindStringSubmatch(l); m != nil {
			if h, err := strconv.ParseUint(m[1], 10, 64); err == nil {
				ev.Height = &h
			}
		}
		if m := reBlockHash.FindStringSubmatch(l); m != nil {
			ev.Hash = m[1]
		} else if m := reBlockRef.FindStringSubmatch(l); m != nil {
			ev.Hash = m[1]
		}
		return ev, true
	}

	if strings.Contains(l, "error") || strings.Contains(l, "failed") {
		return Event{Type: EventError, Message: strings.TrimSpace(line)}, true
	}

	return Event{}, false
}

// parseHashrate tries the known hashrate formats:
// "hashrate: 1234 H/s" and "H/s=1234.56".
func parseHashrate(l string) (float64, bool) {
	m := reHashrateLabel.FindStringSubmatch(l)
	if m == nil {
		m = reHashrateUnit.FindStringSubmatch(l)
	}
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

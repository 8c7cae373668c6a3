package miner

// Status is the consolidated sync/health snapshot maintained by the
// poller. Pointer fields are nil while the value is unknown.
type Status struct {
	Peers        *uint32 `json:"peers"`
	CurrentBlock *uint64 `json:"current_block"`
	HighestBlock *uint64 `json:"highest_block"`
	IsSyncing    *bool   `json:"is_syncing"`

	SessionID string `json:"session_id,omitempty"`
}

// Equal reports whether two snapshots carry the same values. Used to
// gate publication: a snapshot is republished only on change.
func (s Status) Equal(other Status) bool {
	return eqU32(s.Peers, other.Peers) &&
		eqU64(s.CurrentBlock, other.CurrentBlock) &&
		eqU64(s.HighestBlock, other.HighestBlock) &&
		eqBool(s.IsSyncing, other.IsSyncing) &&
		s.SessionID == other.SessionID
}

// Clone returns a deep copy so the poller's working snapshot and the
// last-published snapshot never alias.
func (s Status) Clone() Status {
	out := Status{SessionID: s.SessionID}
	if s.Peers != nil {
		v := *s.Peers
		out.Peers = &v
	}
	if s.CurrentBlock != nil {
		v := *s.CurrentBlock
		out.CurrentBlock = &v
	}
	if s.HighestBlock != nil {
		v := *s.HighestBlock
		out.HighestBlock = &v
	}
	if s.IsSyncing != nil {
		v := *s.IsSyncing
		out.IsSyncing = &v
	}
	return out
}

func eqU32(a, b *uint32) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func eqU64(a, b *uint64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func eqBool(a, b *bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

package miner

import "testing"

func u32(v uint32) *uint32 { return &v }
func u64(v uint64) *uint64 { return &v }
func b(v bool) *bool       { return &v }

func TestStatusEqual(t *testing.T) {
	base := Status{Peers: u32(4), CurrentBlock: u64(100), HighestBlock: u64(200), IsSyncing: b(true), SessionID: "s1"}

	tests := []struct {
		name  string
		other Status
		want  bool
	}{
		{"identical", Status{Peers: u32(4), CurrentBlock: u64(100), HighestBlock: u64(200), IsSyncing: b(true), SessionID: "s1"}, true},
		{"different peers", Status{Peers: u32(5), CurrentBlock: u64(100), HighestBlock: u64(200), IsSyncing: b(true), SessionID: "s1"}, false},
		{"nil vs set", Status{CurrentBlock: u64(100), HighestBlock: u64(200), IsSyncing: b(true), SessionID: "s1"}, false},
		{"different session", Status{Peers: u32(4), CurrentBlock: u64(100), HighestBlock: u64(200), IsSyncing: b(true), SessionID: "s2"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base.Equal(tt.other); got != tt.want {
				t.Errorf("Equal = %v, want %v", got, tt.want)
			}
		})
	}

	empty := Status{}
	if !empty.Equal(Status{}) {
		t.Error("two empty snapshots not equal")
	}
}

func TestStatusCloneIsDeep(t *testing.T) {
	orig := Status{Peers: u32(4), CurrentBlock: u64(100)}
	clone := orig.Clone()

	*clone.Peers = 9
	if *orig.Peers != 4 {
		t.Error("Clone aliases Peers")
	}
	if clone.CurrentBlock == orig.CurrentBlock {
		t.Error("Clone aliases CurrentBlock pointer")
	}
}

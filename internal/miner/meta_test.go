package miner

import "testing"

func TestMetaUpdateRole(t *testing.T) {
	var m Meta

	if !m.Update("2025-08-12 12:00:00 Role: authority") {
		t.Fatal("first Role line reported changed = false")
	}
	if m.Role != "authority" {
		t.Errorf("Role = %q, want authority", m.Role)
	}

	// Identical line again: no change.
	if m.Update("2025-08-12 12:00:00 Role: authority") {
		t.Error("identical Role line reported changed = true")
	}

	// Fields overwrite, never clear.
	if !m.Update("Role: full") {
		t.Error("changed Role line reported changed = false")
	}
	if m.Role != "full" {
		t.Errorf("Role = %q, want full", m.Role)
	}
}

func TestMetaUpdateBannerLines(t *testing.T) {
	lines := []string{
		"2025-08-12 12:00:00 Quantus Node version 0.3.1-abcdef",
		"Chain specification: Resonance",
		"Node name: brave-otter-1234",
		"Role: AUTHORITY",
		"Database: RocksDb at /home/u/.local/share/quantus-node/chains/resonance/db/full",
		"Local node identity is: 12D3KooWAbCdEf",
		"Running JSON-RPC server: addr=127.0.0.1:9944",
		"Prometheus exporter started at 127.0.0.1:9615",
		"Operating system: linux",
		"CPU cores: 16",
		"Memory: 64210MB",
		"Highest known block at #13311",
	}

	var m Meta
	for _, line := range lines {
		m.Update(line)
	}

	if m.Version != "0.3.1-abcdef" {
		t.Errorf("Version = %q", m.Version)
	}
	if m.ChainSpec != "Resonance" {
		t.Errorf("ChainSpec = %q", m.ChainSpec)
	}
	if m.NodeName != "brave-otter-1234" {
		t.Errorf("NodeName = %q", m.NodeName)
	}
	if m.Role != "AUTHORITY" {
		t.Errorf("Role = %q", m.Role)
	}
	if m.LocalIdentity != "12D3KooWAbCdEf" {
		t.Errorf("LocalIdentity = %q", m.LocalIdentity)
	}
	if m.RPCAddr != "addr=127.0.0.1:9944" {
		t.Errorf("RPCAddr = %q", m.RPCAddr)
	}
	if m.MetricsAddr != "127.0.0.1:9615" {
		t.Errorf("MetricsAddr = %q", m.MetricsAddr)
	}
	if m.OS != "linux" {
		t.Errorf("OS = %q", m.OS)
	}
	if m.CPUCores != 16 {
		t.Errorf("CPUCores = %d", m.CPUCores)
	}
	if m.Memory != "64210MB" {
		t.Errorf("Memory = %q", m.Memory)
	}
	if m.HighestBlock != 13311 {
		t.Errorf("HighestBlock = %d", m.HighestBlock)
	}
}

func TestMetaNumericFieldsIgnoreGarbage(t *testing.T) {
	var m Meta

	if m.Update("CPU cores: many") {
		t.Error("unparseable CPU cores reported changed = true")
	}
	if m.CPUCores != 0 {
		t.Errorf("CPUCores = %d, want 0", m.CPUCores)
	}

	if m.Update("Highest known block at #abc") {
		t.Error("unparseable block height reported changed = true")
	}
}

func TestMetaUpdateUnmatchedLine(t *testing.T) {
	var m Meta
	if m.Update("nothing interesting here") {
		t.Error("unmatched line reported changed = true")
	}
}

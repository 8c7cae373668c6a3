package miner

import (
	"strconv"
	"strings"
)

// Meta is the accumulating metadata record for one supervisor session.
//
// Fields are filled in as the node prints its startup banner; once
// populated a field is only ever overwritten, never cleared. A fresh
// Meta is created per session.
type Meta struct {
	Version       string `json:"version,omitempty"`
	ChainSpec     string `json:"chain_spec,omitempty"`
	NodeName      string `json:"node_name,omitempty"`
	Role          string `json:"role,omitempty"`
	Database      string `json:"database,omitempty"`
	LocalIdentity string `json:"local_identity,omitempty"`
	RPCAddr       string `json:"rpc_addr,omitempty"`
	MetricsAddr   string `json:"metrics_addr,omitempty"`
	HighestBlock  uint64 `json:"highest_block,omitempty"`
	OS            string `json:"os,omitempty"`
	CPUCores      int    `json:"cpu_cores,omitempty"`
	Memory        string `json:"memory,omitempty"`

	SessionID string `json:"session_id,omitempty"`
}

// metaRule maps a marker substring to the field it populates. The
// remainder of the line after the marker, trimmed, becomes the value.
type metaRule struct {
	marker string
	apply  func(m *Meta, value string) bool
}

func setString(dst *string, value string) bool {
	if value == "" || *dst == value {
		return false
	}
	*dst = value
	return true
}

// metaRules is the ordered extraction table, matched against the
// substrate-style startup banner the node prints on stderr.
var metaRules = []metaRule{
	{"Chain specification: ", func(m *Meta, v string) bool { return setString(&m.ChainSpec, v) }},
	{"Node name: ", func(m *Meta, v string) bool { return setString(&m.NodeName, v) }},
	{"Role: ", func(m *Meta, v string) bool { return setString(&m.Role, v) }},
	{"Database: ", func(m *Meta, v string) bool { return setString(&m.Database, v) }},
	{"Local node identity is: ", func(m *Meta, v string) bool { return setString(&m.LocalIdentity, v) }},
	{"Running JSON-RPC server: ", func(m *Meta, v string) bool { return setString(&m.RPCAddr, v) }},
	{"Prometheus exporter started at ", func(m *Meta, v string) bool { return setString(&m.MetricsAddr, v) }},
	{"Operating system: ", func(m *Meta, v string) bool { return setString(&m.OS, v) }},
	{"CPU cores: ", func(m *Meta, v string) bool {
		n, err := strconv.Atoi(strings.Fields(v)[0])
		if err != nil || n == m.CPUCores {
			return false
		}
		m.CPUCores = n
		return true
	}},
	{"Memory: ", func(m *Meta, v string) bool { return setString(&m.Memory, v) }},
	{"Highest known block at #", func(m *Meta, v string) bool {
		h, err := strconv.ParseUint(strings.Fields(v)[0], 10, 64)
		if err != nil || h == m.HighestBlock {
			return false
		}
		m.HighestBlock = h
		return true
	}},
	{"version ", func(m *Meta, v string) bool { return setString(&m.Version, strings.Fields(v)[0]) }},
}

// Update scans one line against the extraction table and reports
// whether any field changed.
func (m *Meta) Update(line string) bool {
	changed := false
	for _, rule := range metaRules {
		idx := strings.Index(line, rule.marker)
		if idx < 0 {
			continue
		}
		value := strings.TrimSpace(line[idx+len(rule.marker):])
		if value == "" {
			continue
		}
		if rule.apply(m, value) {
			changed = true
		}
	}
	return changed
}

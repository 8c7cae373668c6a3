package miner

import (
	"errors"
	"fmt"
)

// Config is the per-start configuration for one supervisor session.
//
// Immutable once constructed; the supervisor clones it into its
// last-config slot on every successful start so repair/unlock and
// safe-mode restarts can reuse it.
type Config struct {
	// Chain is the chain identifier ("resonance", "heisenberg", ...).
	Chain string `json:"chain"`

	// Binary is the path to the already-installed node executable.
	Binary string `json:"binary"`

	// RewardsAddress is passed to the node as the mining rewards target.
	RewardsAddress string `json:"rewards_address"`

	// ExtraArgs are appended after the supervisor-built arguments, in
	// order. Safe-mode flag splicing operates on this slice.
	ExtraArgs []string `json:"extra_args"`

	// LogToFile mirrors node output to a file under the data directory.
	LogToFile bool `json:"log_to_file"`
}

// Clone returns a deep copy of the config.
func (c Config) Clone() Config {
	out := c
	out.ExtraArgs = append([]string(nil), c.ExtraArgs...)
	return out
}

// Validate checks the config for fields the spawn cannot do without.
func (c Config) Validate() error {
	if c.Chain == "" {
		return errors.New("miner: chain is empty")
	}
	if c.Binary == "" {
		return errors.New("miner: binary path is empty")
	}
	return nil
}

// Args builds the node's argument vector deterministically: chain
// selector, fixed flags, rewards address, then caller extras last so
// automation-injected flags survive restarts.
func (c Config) Args() []string {
	args := []string{
		"--chain", c.Chain,
		"--validator",
		"--rewards-address", c.RewardsAddress,
	}
	return append(args, c.ExtraArgs...)
}

// String renders the config for logs without flooding them.
func (c Config) String() string {
	return fmt.Sprintf("chain=%s binary=%s extra_args=%d log_to_file=%v",
		c.Chain, c.Binary, len(c.ExtraArgs), c.LogToFile)
}

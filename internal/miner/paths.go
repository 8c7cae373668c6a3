package miner

import (
	"os"
	"path/filepath"
	"runtime"
)

// Paths resolves on-disk locations inside the node's data directory.
//
// Layout (matching the node's own defaults):
//
//	<base>/chains/<chain>/network/secret_dilithium   node identity key
//	<base>/chains/<chain>/db                         chain database
//	<base>/chains/<chain>/db/full/LOCK               database lock file
//	<base>/logs                                      supervisor log mirrors
type Paths struct {
	base string
}

// NewPaths creates a Paths rooted at base. An empty base resolves to
// the platform default data directory.
func NewPaths(base string) Paths {
	if base == "" {
		base = DefaultBasePath()
	}
	return Paths{base: base}
}

// DefaultBasePath returns the node's default data directory:
// $XDG_DATA_HOME/quantus-node (or ~/.local/share/quantus-node) on
// Linux, ~/Library/Application Support/quantus-node on macOS.
func DefaultBasePath() string {
	if runtime.GOOS == "darwin" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "quantus-node"
		}
		return filepath.Join(home, "Library", "Application Support", "quantus-node")
	}

	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "quantus-node")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "quantus-node"
	}
	return filepath.Join(home, ".local", "share", "quantus-node")
}

// Base returns the data directory root.
func (p Paths) Base() string {
	return p.base
}

// ChainDir returns the per-chain directory.
func (p Paths) ChainDir(chain string) string {
	return filepath.Join(p.base, "chains", chain)
}

// NodeKeyFile returns the node identity key path for a chain.
func (p Paths) NodeKeyFile(chain string) string {
	return filepath.Join(p.ChainDir(chain), "network", "secret_dilithium")
}

// DatabaseDir returns the chain database directory, removed wholesale
// by repair.
func (p Paths) DatabaseDir(chain string) string {
	return filepath.Join(p.ChainDir(chain), "db")
}

// LockFile returns the database lock file path, removed by unlock.
func (p Paths) LockFile(chain string) string {
	return filepath.Join(p.DatabaseDir(chain), "full", "LOCK")
}

// LogDir returns the directory for supervisor log file mirrors.
func (p Paths) LogDir() string {
	return filepath.Join(p.base, "logs")
}

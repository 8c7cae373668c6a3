package miner

import "errors"

// Sentinel errors for supervisor operations.
// Use errors.Is() to check for these in calling code.
var (
	// ErrPrerequisite indicates a start prerequisite is unsatisfied:
	// the node identity key file is missing or the rewards address is
	// empty. Fatal to the start call; nothing is spawned.
	ErrPrerequisite = errors.New("miner: start prerequisite not met")

	// ErrNoPriorSession indicates repair/unlock was invoked before any
	// successful start, so there is no remembered configuration to
	// restart with.
	ErrNoPriorSession = errors.New("miner: no prior session")
)

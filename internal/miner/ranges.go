package miner

// defaultRanges lists the known troublesome block ranges per chain.
// Overridable via the safe_mode.ranges section in config.yaml.
var defaultRanges = map[string][]Range{
	"resonance": {
		{Start: 13311, End: 13360},
	},
}

// DefaultRanges returns the built-in troublesome ranges for a chain.
// Unknown chains have none.
func DefaultRanges(chain string) []Range {
	return append([]Range(nil), defaultRanges[chain]...)
}

// RangesFor resolves the troublesome ranges for a chain: the override
// table wins when it has an entry for the chain, otherwise built-in
// defaults apply.
func RangesFor(chain string, overrides map[string][]Range) []Range {
	if r, ok := overrides[chain]; ok {
		return append([]Range(nil), r...)
	}
	return DefaultRanges(chain)
}

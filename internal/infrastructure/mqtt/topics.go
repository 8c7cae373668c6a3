package mqtt

import "fmt"

// Topic prefixes for the quantus MQTT hierarchy.
//
// Miner topics use the flat scheme: quantus/miner/{channel}
// System topics carry service-level presence and status.
const (
	// TopicPrefix is the base for all quantus topics.
	TopicPrefix = "quantus"

	// TopicPrefixMiner is the base for miner supervisor topics.
	TopicPrefixMiner = "quantus/miner"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "quantus/system"
)

// Topics provides builders for quantus MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	statusTopic := topics.MinerStatus()
//	// Returns: "quantus/miner/status"
type Topics struct{}

// =============================================================================
// Miner Topics (outbound)
// =============================================================================

// MinerLog returns the topic for raw per-line node output.
//
// Example: quantus/miner/log
func (Topics) MinerLog() string {
	return fmt.Sprintf("%s/log", TopicPrefixMiner)
}

// MinerEvent returns the topic for structured events parsed from node output.
//
// Example: quantus/miner/event
func (Topics) MinerEvent() string {
	return fmt.Sprintf("%s/event", TopicPrefixMiner)
}

// MinerMeta returns the topic for node metadata snapshots.
//
// Example: quantus/miner/meta
func (Topics) MinerMeta() string {
	return fmt.Sprintf("%s/meta", TopicPrefixMiner)
}

// MinerStatus returns the topic for sync/health status snapshots.
//
// Example: quantus/miner/status
func (Topics) MinerStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixMiner)
}

// MinerLogfile returns the topic announcing the active log file path.
//
// Example: quantus/miner/logfile
func (Topics) MinerLogfile() string {
	return fmt.Sprintf("%s/logfile", TopicPrefixMiner)
}

// =============================================================================
// Miner Topics (inbound commands)
// =============================================================================

// MinerCommand returns the topic for a specific inbound command.
//
// Example: quantus/miner/command/start
func (Topics) MinerCommand(op string) string {
	return fmt.Sprintf("%s/command/%s", TopicPrefixMiner, op)
}

// AllMinerCommands returns a pattern matching all inbound commands.
//
// Pattern: quantus/miner/command/+
func (Topics) AllMinerCommands() string {
	return fmt.Sprintf("%s/command/+", TopicPrefixMiner)
}

// =============================================================================
// System Topics
// =============================================================================

// SystemStatus returns the system status topic (retained, LWT target).
//
// Example: quantus/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllTopics returns a pattern matching all quantus topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: quantus/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}

package miner

// Outbound channel names. The concrete sink maps these to its own
// addressing scheme (MQTT topics, test recorders, ...).
const (
	ChannelLog     = "log"
	ChannelEvent   = "event"
	ChannelMeta    = "meta"
	ChannelStatus  = "status"
	ChannelLogfile = "logfile"
)

// Publisher is the abstract fire-and-forget event sink. Delivery has
// no backpressure contract; implementations must not block the caller.
type Publisher interface {
	Publish(channel string, payload any)
}

// LogLine is the payload published on the log channel, one per line of
// node output. Source is "stdout", "stderr" or "ui" for advisory lines
// the supervisor itself injects.
type LogLine struct {
	Source string `json:"source"`
	Line   string `json:"line"`
}

// LogfileNotice announces the active log mirror file.
type LogfileNotice struct {
	Path string `json:"path"`
}

// Recorder receives telemetry samples for time-series storage.
// Implementations must be non-blocking; a nil recorder is valid.
type Recorder interface {
	RecordHashrate(chain string, hps float64)
	RecordStatus(chain string, status Status)
}

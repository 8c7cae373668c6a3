package mqtt

import (
	"encoding/json"
	"fmt"
)

// wirePublisher is the subset of Client the sink needs.
// Narrowed for testability.
type wirePublisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Sink adapts the MQTT client to the supervisor's publisher interface.
//
// The supervisor publishes on short channel names ("log", "event", "meta",
// "status", "logfile"); the sink maps those to the quantus topic hierarchy,
// JSON-encodes the payload and publishes fire-and-forget. Status and meta
// snapshots are retained so late subscribers see the current state.
type Sink struct {
	client wirePublisher
	qos    byte
	logger Logger
}

// channelTopics maps supervisor channel names to (topic, retained).
var channelTopics = map[string]struct {
	topic    string
	retained bool
}{
	"log":     {Topics{}.MinerLog(), false},
	"event":   {Topics{}.MinerEvent(), false},
	"meta":    {Topics{}.MinerMeta(), true},
	"status":  {Topics{}.MinerStatus(), true},
	"logfile": {Topics{}.MinerLogfile(), true},
}

// NewSink creates a Sink publishing through the given client at the given QoS.
func NewSink(client wirePublisher, qos int) *Sink {
	return &Sink{
		client: client,
		qos:    byte(qos),
	}
}

// SetLogger sets an optional logger for publish failures.
func (s *Sink) SetLogger(logger Logger) {
	s.logger = logger
}

// Publish JSON-encodes payload and publishes it on the topic mapped from
// the supervisor channel name. Unknown channels and broker errors are
// logged and otherwise swallowed: delivery is best-effort and must never
// stall the supervisor's reader goroutines.
func (s *Sink) Publish(channel string, payload any) {
	ct, ok := channelTopics[channel]
	if !ok {
		if s.logger != nil {
			s.logger.Warn("unknown publish channel", "channel", channel)
		}
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("encoding publish payload", "channel", channel, "error", err)
		}
		return
	}

	if err := s.client.Publish(ct.topic, data, s.qos, ct.retained); err != nil {
		if s.logger != nil {
			s.logger.Warn("publish failed", "topic", ct.topic, "error", err)
		}
	}
}

// PublishRaw publishes a pre-encoded payload on an explicit topic.
// Used for payloads that are already JSON (e.g. forwarded command echoes).
func (s *Sink) PublishRaw(topic string, payload []byte) error {
	if err := s.client.Publish(topic, payload, s.qos, false); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}
	return nil
}

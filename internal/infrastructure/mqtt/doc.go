// Package mqtt provides MQTT client connectivity for minercore.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//
// # Architecture
//
// minercore uses MQTT as its outbound event channel and inbound command
// surface. The supervisor publishes node log lines, parsed events,
// metadata and status snapshots onto quantus/miner/... topics, and
// accepts start/stop/repair/unlock commands on quantus/miner/command/+.
// The graphical shell (or any other consumer) attaches to the broker,
// decoupled from the supervisor process.
//
//	minercore ↔ MQTT Broker ↔ UI shell / dashboards
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Performance Characteristics
//
//   - Connection: <1 second to local broker
//   - Publish latency: <10ms for QoS 1 to local broker
//   - Reconnect: Exponential backoff 1s-60s with jitter
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to inbound commands
//	err = client.Subscribe(mqtt.Topics{}.AllMinerCommands(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish a status snapshot
//	client.Publish(mqtt.Topics{}.MinerStatus(), []byte(`{"peers":4}`), 1, true)
package mqtt

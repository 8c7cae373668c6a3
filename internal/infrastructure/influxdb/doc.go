// Package influxdb provides InfluxDB connectivity for minercore.
//
// It wraps the official influxdb-client-go v2 library with minercore-specific
// patterns for connection management and metric writing.
//
// # Purpose
//
// This package handles time-series data storage for:
//   - Hashrate samples parsed from node output
//   - Sync/health status snapshots (block heights, peer counts)
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    Enabled: true,
//	    URL:     "http://localhost:8086",
//	    Token:   "your-token",
//	    Org:     "quantus",
//	    Bucket:  "mining",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Write a hashrate sample
//	client.WriteMinerMetric("resonance", "hashrate_hps", 1532.4)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are logged via a callback.
// Connection errors are returned directly.
//
// # Performance
//
// Writes are batched according to config.yaml settings (batch_size, flush_interval).
// This reduces network overhead for high-frequency hashrate samples.
package influxdb

package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteMinerMetric writes a single miner measurement to InfluxDB.
//
// This is the primary method for recording mining telemetry data.
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - chain: Chain identifier tag (e.g., "resonance")
//   - measurement: The metric name (e.g., "hashrate_hps", "current_block")
//   - value: The numeric value to record
//
// Example:
//
//	client.WriteMinerMetric("resonance", "hashrate_hps", 1532.4)
//	client.WriteMinerMetric("resonance", "current_block", 13847)
func (c *Client) WriteMinerMetric(chain string, measurement string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"miner_metrics",
		map[string]string{
			"chain":       chain,
			"measurement": measurement,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods,
// such as whole status snapshots with mixed field types.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("miner_status",
//	    map[string]string{"chain": "resonance"},
//	    map[string]interface{}{"peers": 4, "is_syncing": true})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

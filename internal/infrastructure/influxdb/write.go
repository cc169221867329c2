package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// RecordChange writes one parameter change to the history bucket.
//
// The write is non-blocking; points are batched and sent
// asynchronously. Calls made while disconnected are dropped.
//
// Parameters:
//   - component: The component whose parameter changed
//   - name: Parameter name
//   - value: The new value (integer, float, string or bool)
//
// Example:
//
//	client.RecordChange("boiler-7", "target_temp", 65.5)
func (c *Client) RecordChange(component string, name string, value any) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"parameter_changes",
		map[string]string{
			"component": component,
			"parameter": name,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and
// fields. Use this for measurements that don't fit RecordChange.
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

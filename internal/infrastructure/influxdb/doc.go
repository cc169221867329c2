// Package influxdb stores the parameter change history in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, batched non-blocking writes, and health monitoring.
//
// # Purpose
//
// Every accepted reconfiguration update is recorded as a point in the
// parameter_changes measurement, tagged by component and parameter
// name. This gives operators a queryable timeline of how a component's
// configuration evolved.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.History)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.RecordChange("boiler-7", "target_temp", 65.5)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking; batch errors are delivered via
// the SetOnError callback. Connection and health check errors are
// returned directly.
package influxdb

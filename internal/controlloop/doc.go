// Package controlloop lets a long-running service expose named runtime
// parameters for remote reconfiguration over MQTT, and lets remote
// applications discover which components exist and what they expose.
//
// # Topics
//
// The handler subscribes to two filters:
//
//	{componentId}/+   reconfiguration requests for this component
//	info/+            discovery requests for any component
//
// Replies (acks and discovery replies) are published to the requester ID
// taken from the second topic segment.
//
// # Message Flow
//
// The transport delivers inbound messages into a bounded channel consumed
// by a single dispatch goroutine, so messages are routed one at a time in
// arrival order. The router reads and writes the parameter store, which
// the hosting application accesses concurrently through Get/Set/Add; the
// store synchronizes internally.
//
// # Payloads
//
// Reconfiguration request (inbound, JSON object):
//
//	{"threshold": 10, "label": "x"}
//
// Ack (outbound): the applied subset, {"threshold": 10}, possibly {};
// or {"error": "..."} when the payload is not a valid JSON object.
//
// Discovery reply (outbound):
//
//	{"componentId": "sensor1", "params": {"threshold": 10}}
//
// # Usage
//
//	handler, err := controlloop.New(cfg.MQTT, "sensor1", map[string]params.Value{
//	    "threshold": params.Integer(5),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := handler.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer handler.Stop()
//
//	v, _ := handler.Get("threshold") // concurrent with remote requests
package controlloop

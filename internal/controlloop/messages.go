package controlloop

import (
	"github.com/salted-labs/control-loop-core/internal/params"
)

// ErrorAck is the acknowledgement published when a reconfiguration request
// cannot be processed at all (malformed payload). No parameter is mutated.
type ErrorAck struct {
	Error string `json:"error"`
}

// DiscoveryReply enumerates this component and its current parameters in
// response to a discovery request. Params is a point-in-time snapshot,
// never a live reference to the store.
type DiscoveryReply struct {
	ComponentID string                  `json:"componentId"`
	Params      map[string]params.Value `json:"params"`
}

// A successful reconfiguration ack has no wrapper type: it is the plain
// JSON object mapping each applied parameter name to its new value,
// marshalled directly from map[string]params.Value. An empty object is a
// valid ack meaning no recognized parameters were in the request.

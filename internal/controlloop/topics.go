package controlloop

import "strings"

// discoveryPrefix is the first topic segment of a discovery request.
// It is reserved and cannot be used as a component ID.
const discoveryPrefix = "info"

// topicKind classifies an inbound topic.
type topicKind int

const (
	topicUnknown topicKind = iota
	topicReconfigure
	topicDiscovery
)

// reconfigureFilter returns the subscription filter for reconfiguration
// requests addressed to this component.
//
// Example: sensor1/+
func reconfigureFilter(componentID string) string {
	return componentID + "/+"
}

// discoveryFilter returns the subscription filter for discovery requests.
//
// Example: info/+
func discoveryFilter() string {
	return discoveryPrefix + "/+"
}

// parseTopic classifies an inbound topic and extracts the requester ID.
//
// Recognized shapes:
//   - {componentId}/{requesterId} -> reconfiguration request
//   - info/{requesterId}          -> discovery request
//
// Anything else (wrong segment count, foreign component, empty requester)
// is topicUnknown and must be discarded without side effects.
func parseTopic(componentID, topic string) (kind topicKind, requester string) {
	head, rest, found := strings.Cut(topic, "/")
	if !found || rest == "" || strings.Contains(rest, "/") {
		return topicUnknown, ""
	}

	switch head {
	case discoveryPrefix:
		return topicDiscovery, rest
	case componentID:
		return topicReconfigure, rest
	default:
		return topicUnknown, ""
	}
}

// validateComponentID rejects IDs that cannot serve as a topic root.
func validateComponentID(componentID string) error {
	if componentID == discoveryPrefix {
		return ErrReservedComponentID
	}
	if componentID == "" || strings.ContainsAny(componentID, "/+#") {
		return ErrInvalidComponentID
	}
	return nil
}

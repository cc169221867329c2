package controlloop

import (
	"errors"
	"testing"
)

func TestParseTopic(t *testing.T) {
	tests := []struct {
		name          string
		topic         string
		wantKind      topicKind
		wantRequester string
	}{
		{name: "reconfiguration", topic: "sensor1/app1", wantKind: topicReconfigure, wantRequester: "app1"},
		{name: "discovery", topic: "info/app2", wantKind: topicDiscovery, wantRequester: "app2"},
		{name: "foreign component", topic: "sensor2/app1", wantKind: topicUnknown},
		{name: "no separator", topic: "sensor1", wantKind: topicUnknown},
		{name: "empty requester", topic: "sensor1/", wantKind: topicUnknown},
		{name: "extra segments", topic: "sensor1/app1/extra", wantKind: topicUnknown},
		{name: "bare info", topic: "info", wantKind: topicUnknown},
		{name: "empty topic", topic: "", wantKind: topicUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, requester := parseTopic("sensor1", tt.topic)
			if kind != tt.wantKind {
				t.Errorf("parseTopic(%q) kind = %v, want %v", tt.topic, kind, tt.wantKind)
			}
			if requester != tt.wantRequester {
				t.Errorf("parseTopic(%q) requester = %q, want %q", tt.topic, requester, tt.wantRequester)
			}
		})
	}
}

func TestFilters(t *testing.T) {
	if got := reconfigureFilter("sensor1"); got != "sensor1/+" {
		t.Errorf("reconfigureFilter() = %q, want sensor1/+", got)
	}
	if got := discoveryFilter(); got != "info/+" {
		t.Errorf("discoveryFilter() = %q, want info/+", got)
	}
}

func TestValidateComponentID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr error
	}{
		{name: "valid", id: "sensor1", wantErr: nil},
		{name: "reserved info", id: "info", wantErr: ErrReservedComponentID},
		{name: "empty", id: "", wantErr: ErrInvalidComponentID},
		{name: "slash", id: "a/b", wantErr: ErrInvalidComponentID},
		{name: "plus wildcard", id: "a+", wantErr: ErrInvalidComponentID},
		{name: "hash wildcard", id: "#", wantErr: ErrInvalidComponentID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateComponentID(tt.id)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("validateComponentID(%q) = %v, want %v", tt.id, err, tt.wantErr)
			}
		})
	}
}

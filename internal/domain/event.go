package domain

import (
	"encoding/json"
	"fmt"
)

const (
	EventPing           = "ping"
	ResourceTypeService = "service"

	ResourceStateActive  = "active"
	ResourceStateRemoved = "removed"
)

// noisyResourceTypes change constantly and never affect routing.
var noisyResourceTypes = map[string]bool{
	"mount":     true,
	"ipAddress": true,
	"nic":       true,
	"volume":    true,
	"port":      true,
}

// Event is a lifecycle notification from the platform.
// It only lives for the duration of one reconciliation trigger.
type Event struct {
	ID              string
	Name            string
	ResourceType    string
	ResourceID      string
	ResourceState   string
	EnvironmentLink string
}

// wireEvent mirrors the subset of the platform payload we read.
type wireEvent struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ResourceType string `json:"resourceType"`
	ResourceID   string `json:"resourceId"`
	Data         *struct {
		Resource *struct {
			State string `json:"state"`
			Links struct {
				Environment string `json:"environment"`
			} `json:"links"`
		} `json:"resource"`
	} `json:"data"`
}

// DecodeEvent parses a raw platform event.
//
// Pings and non-service events are accepted without a data section; a
// service event without data.resource is malformed, and so is an active or
// removed service event without an environment link.
func DecodeEvent(raw []byte) (Event, error) {
	var w wireEvent
	if err := json.Unmarshal(raw, &w); err != nil {
		return Event{}, fmt.Errorf("failed to decode event: %w", err)
	}
	if w.Name == "" {
		return Event{}, fmt.Errorf("failed to decode event: missing name")
	}

	ev := Event{
		ID:           w.ID,
		Name:         w.Name,
		ResourceType: w.ResourceType,
		ResourceID:   w.ResourceID,
	}

	if w.Data != nil && w.Data.Resource != nil {
		ev.ResourceState = w.Data.Resource.State
		ev.EnvironmentLink = w.Data.Resource.Links.Environment
	} else if ev.Name != EventPing && ev.ResourceType == ResourceTypeService {
		return Event{}, fmt.Errorf("failed to decode event %q: service event without data.resource", ev.Name)
	}

	if ev.IsServiceChange() && ev.EnvironmentLink == "" {
		return Event{}, fmt.Errorf("failed to decode event %q: %w", ev.Name, ErrMissingEnvironment)
	}

	return ev, nil
}

// IsPing reports whether the event is a keep-alive.
func (e Event) IsPing() bool { return e.Name == EventPing }

// IsNoise reports whether the event is about a resource type that is
// known to never matter.
func (e Event) IsNoise() bool { return noisyResourceTypes[e.ResourceType] }

// IsServiceChange reports whether the event must trigger a reconciliation:
// a service that became active or was removed.
func (e Event) IsServiceChange() bool {
	if e.IsPing() || e.ResourceType != ResourceTypeService {
		return false
	}
	return e.ResourceState == ResourceStateActive || e.ResourceState == ResourceStateRemoved
}

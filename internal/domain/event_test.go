package domain

import (
	"errors"
	"testing"
)

func TestDecodeEvent(t *testing.T) {
	raw := []byte(`{
		"id": "e1",
		"name": "resource.change",
		"resourceType": "service",
		"resourceId": "1s42",
		"data": {"resource": {"state": "active", "links": {"environment": "http://rancher/v1/environments/1e5"}}}
	}`)

	ev, err := DecodeEvent(raw)
	if err != nil {
		t.Fatalf("DecodeEvent() error = %v", err)
	}
	if ev.Name != "resource.change" || ev.ResourceType != "service" || ev.ResourceID != "1s42" {
		t.Errorf("DecodeEvent() = %+v", ev)
	}
	if ev.ResourceState != ResourceStateActive {
		t.Errorf("ResourceState = %v, want active", ev.ResourceState)
	}
	if ev.EnvironmentLink != "http://rancher/v1/environments/1e5" {
		t.Errorf("EnvironmentLink = %v", ev.EnvironmentLink)
	}
	if !ev.IsServiceChange() {
		t.Error("IsServiceChange() = false, want true")
	}
}

func TestDecodeEventPing(t *testing.T) {
	ev, err := DecodeEvent([]byte(`{"name":"ping"}`))
	if err != nil {
		t.Fatalf("DecodeEvent() error = %v", err)
	}
	if !ev.IsPing() {
		t.Error("IsPing() = false, want true")
	}
	if ev.IsServiceChange() {
		t.Error("ping must not be a service change")
	}
}

func TestDecodeEventMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "not json", raw: `not json`},
		{name: "no name", raw: `{"resourceType":"service"}`},
		{name: "service without resource", raw: `{"name":"resource.change","resourceType":"service","data":{}}`},
		{name: "active service without environment", raw: `{"name":"resource.change","resourceType":"service","data":{"resource":{"state":"active"}}}`},
		{name: "removed service with empty environment", raw: `{"name":"resource.change","resourceType":"service","data":{"resource":{"state":"removed","links":{"environment":""}}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeEvent([]byte(tt.raw)); err == nil {
				t.Errorf("DecodeEvent(%s) should return error", tt.raw)
			}
		})
	}
}

func TestEventIsServiceChange(t *testing.T) {
	tests := []struct {
		name     string
		ev       Event
		expected bool
	}{
		{name: "active service", ev: Event{Name: "resource.change", ResourceType: "service", ResourceState: "active"}, expected: true},
		{name: "removed service", ev: Event{Name: "resource.change", ResourceType: "service", ResourceState: "removed"}, expected: true},
		{name: "activating service", ev: Event{Name: "resource.change", ResourceType: "service", ResourceState: "activating"}, expected: false},
		{name: "container", ev: Event{Name: "resource.change", ResourceType: "container", ResourceState: "active"}, expected: false},
		{name: "ping", ev: Event{Name: "ping", ResourceType: "service", ResourceState: "active"}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ev.IsServiceChange(); got != tt.expected {
				t.Errorf("IsServiceChange() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestOrchestrationAPIErrorRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "timeout", err: &OrchestrationAPIError{Timeout: true, Err: errors.New("deadline")}, expected: true},
		{name: "transport", err: &OrchestrationAPIError{Err: errors.New("connection refused")}, expected: true},
		{name: "server error", err: &OrchestrationAPIError{Status: 500, Body: "boom"}, expected: false},
		{name: "unauthorized", err: &OrchestrationAPIError{Status: 401}, expected: false},
		{name: "not found lb", err: ErrLoadBalancerNotFound, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.expected {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestDecodeEventMissingEnvironment(t *testing.T) {
	_, err := DecodeEvent([]byte(`{"name":"resource.change","resourceType":"service","data":{"resource":{"state":"active"}}}`))
	if !errors.Is(err, ErrMissingEnvironment) {
		t.Errorf("DecodeEvent() error = %v, want ErrMissingEnvironment", err)
	}

	// Transitional states never reach a pass, so their links do not matter.
	ev, err := DecodeEvent([]byte(`{"name":"resource.change","resourceType":"service","data":{"resource":{"state":"activating"}}}`))
	if err != nil {
		t.Fatalf("DecodeEvent() error = %v", err)
	}
	if ev.IsServiceChange() {
		t.Error("activating service must not be a service change")
	}
}

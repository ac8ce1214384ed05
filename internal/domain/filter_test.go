package domain

import "testing"

func TestIsLoadBalanced(t *testing.T) {
	tests := []struct {
		name     string
		svc      Service
		expected bool
	}{
		{
			name:     "service with link",
			svc:      Service{Type: TypeService, Labels: map[string]string{LabelLink: "true"}},
			expected: true,
		},
		{
			name:     "external service with link",
			svc:      Service{Type: TypeExternalService, Labels: map[string]string{LabelLink: "true"}},
			expected: true,
		},
		{
			name:     "label absent",
			svc:      Service{Type: TypeService},
			expected: false,
		},
		{
			name:     "label false",
			svc:      Service{Type: TypeService, Labels: map[string]string{LabelLink: "false"}},
			expected: false,
		},
		{
			name:     "label is compared as a string",
			svc:      Service{Type: TypeService, Labels: map[string]string{LabelLink: "True"}},
			expected: false,
		},
		{
			name:     "load balancer service is never linked",
			svc:      Service{Type: TypeLoadBalancerService, Labels: map[string]string{LabelLink: "true"}},
			expected: false,
		},
		{
			name:     "other type",
			svc:      Service{Type: "dnsService", Labels: map[string]string{LabelLink: "true"}},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsLoadBalanced(tt.svc); got != tt.expected {
				t.Errorf("IsLoadBalanced() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestIsLoadBalancerService(t *testing.T) {
	tests := []struct {
		name     string
		svc      Service
		expected bool
	}{
		{name: "lb", svc: Service{Name: "lb", Type: TypeLoadBalancerService}, expected: true},
		{name: "wrong name", svc: Service{Name: "lb2", Type: TypeLoadBalancerService}, expected: false},
		{name: "wrong type", svc: Service{Name: "lb", Type: TypeService}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsLoadBalancerService(tt.svc); got != tt.expected {
				t.Errorf("IsLoadBalancerService() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestIsLoadBalancerStack(t *testing.T) {
	if !IsLoadBalancerStack(Stack{Name: "utility"}) {
		t.Error("IsLoadBalancerStack(utility) = false, want true")
	}
	if IsLoadBalancerStack(Stack{Name: "utility-2"}) {
		t.Error("IsLoadBalancerStack(utility-2) = true, want false")
	}
}

func TestFindLoadBalancerFirstMatchWins(t *testing.T) {
	services := []Service{
		{ID: "1s1", Name: "web", Type: TypeService},
		{ID: "1s2", Name: "lb", Type: TypeLoadBalancerService},
		{ID: "1s3", Name: "lb", Type: TypeLoadBalancerService},
	}

	lb, ok := FindLoadBalancer(services)
	if !ok {
		t.Fatal("FindLoadBalancer() found nothing")
	}
	if lb.ID != "1s2" {
		t.Errorf("FindLoadBalancer() = %v, want 1s2", lb.ID)
	}

	if _, ok := FindLoadBalancer(services[:1]); ok {
		t.Error("FindLoadBalancer() without lb should return false")
	}
}

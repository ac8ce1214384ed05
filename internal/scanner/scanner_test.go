package scanner

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/MrSnakeDoc/lbsync/internal/domain"
	"github.com/MrSnakeDoc/lbsync/internal/logger"
)

// fakeFleet serves a fixed snapshot and records which stacks were listed.
type fakeFleet struct {
	stacks   []domain.Stack
	services map[string][]domain.Service // stack name -> services
	listed   []string
	failOn   string
}

func (f *fakeFleet) ListStacks(ctx context.Context) ([]domain.Stack, error) {
	return f.stacks, nil
}

func (f *fakeFleet) ListServices(ctx context.Context, stack domain.Stack) ([]domain.Service, error) {
	f.listed = append(f.listed, stack.Name)
	if stack.Name == f.failOn {
		return nil, &domain.OrchestrationAPIError{Method: "GET", URL: stack.ServicesLink, Status: 500}
	}
	return f.services[stack.Name], nil
}

func linked(id, name string, labels map[string]string) domain.Service {
	l := map[string]string{domain.LabelLink: "true"}
	for k, v := range labels {
		l[k] = v
	}
	return domain.Service{ID: id, Name: name, Type: domain.TypeService, Labels: l}
}

func lbService(id string) domain.Service {
	return domain.Service{ID: id, Name: "lb", Type: domain.TypeLoadBalancerService}
}

func newScanner(f Fleet) *Scanner {
	return New(f, domain.DefaultRouteConfig(), logger.Nop())
}

func TestScan(t *testing.T) {
	f := &fakeFleet{
		stacks: []domain.Stack{
			{Name: "my-app", State: domain.StateActive},
			{Name: "utility", State: domain.StateActive},
			{Name: "blog", State: domain.StateActive},
		},
		services: map[string][]domain.Service{
			"my-app": {
				linked("1s1", "web", map[string]string{domain.LabelPort: "3000"}),
				{ID: "1s2", Name: "db", Type: domain.TypeService},
			},
			"utility": {
				lbService("1s10"),
				linked("1s11", "grafana", nil),
			},
			"blog": {
				linked("1s20", "ghost", map[string]string{domain.LabelPort: "2368", domain.LabelAliases: "blog.com"}),
			},
		},
	}

	res, err := newScanner(f).Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if res.LoadBalancer.ID != "1s10" {
		t.Errorf("LoadBalancer = %v, want 1s10", res.LoadBalancer.ID)
	}

	expected := []domain.ServiceLinkEntry{
		{ServiceID: "1s1", Ports: []string{"my.app.drophosting.co.uk:80=3000", "my.app.drophosting.co.uk:443=3000"}},
		{ServiceID: "1s11", Ports: []string{"utility.drophosting.co.uk:80=80", "utility.drophosting.co.uk:443=80"}},
		{ServiceID: "1s20", Ports: []string{"blog.drophosting.co.uk:80=2368", "blog.drophosting.co.uk:443=2368", "blog.com:80=2368"}},
	}
	if !reflect.DeepEqual(res.Entries, expected) {
		t.Errorf("Entries = %v, want %v", res.Entries, expected)
	}
	if res.Stacks != 3 {
		t.Errorf("Stacks = %d, want 3", res.Stacks)
	}
}

func TestScanSkipsInactiveStacks(t *testing.T) {
	f := &fakeFleet{
		stacks: []domain.Stack{
			{Name: "utility", State: domain.StateActive},
			{Name: "old-app", State: "inactive"},
			{Name: "utility", State: "removed"},
		},
		services: map[string][]domain.Service{
			"utility": {lbService("1s1")},
			"old-app": {linked("1s2", "web", nil)},
		},
	}

	res, err := newScanner(f).Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(res.Entries) != 0 {
		t.Errorf("inactive stacks contributed %d entries", len(res.Entries))
	}
	if !reflect.DeepEqual(f.listed, []string{"utility"}) {
		t.Errorf("listed services of %v, want only the active utility stack", f.listed)
	}
}

func TestScanLoadBalancerNotFound(t *testing.T) {
	tests := []struct {
		name   string
		stacks []domain.Stack
		svcs   map[string][]domain.Service
	}{
		{
			name:   "no utility stack",
			stacks: []domain.Stack{{Name: "my-app", State: domain.StateActive}},
			svcs:   map[string][]domain.Service{"my-app": {linked("1s1", "web", nil)}},
		},
		{
			name:   "utility without lb",
			stacks: []domain.Stack{{Name: "utility", State: domain.StateActive}},
			svcs:   map[string][]domain.Service{"utility": {{ID: "1s1", Name: "lb", Type: domain.TypeService}}},
		},
		{
			name:   "inactive utility",
			stacks: []domain.Stack{{Name: "utility", State: "inactive"}},
			svcs:   map[string][]domain.Service{"utility": {lbService("1s1")}},
		},
		{
			name:   "lb outside utility",
			stacks: []domain.Stack{{Name: "infra", State: domain.StateActive}},
			svcs:   map[string][]domain.Service{"infra": {lbService("1s1")}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeFleet{stacks: tt.stacks, services: tt.svcs}
			res, err := newScanner(f).Scan(context.Background())
			if !errors.Is(err, domain.ErrLoadBalancerNotFound) {
				t.Errorf("Scan() error = %v, want ErrLoadBalancerNotFound", err)
			}
			if res != nil {
				t.Errorf("Scan() result = %+v, want nil", res)
			}
		})
	}
}

func TestScanFirstLoadBalancerWins(t *testing.T) {
	f := &fakeFleet{
		stacks: []domain.Stack{
			{Name: "utility", State: domain.StateActive},
			{Name: "utility", State: domain.StateActive},
		},
		services: map[string][]domain.Service{
			"utility": {lbService("1s1"), lbService("1s2")},
		},
	}

	res, err := newScanner(f).Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if res.LoadBalancer.ID != "1s1" {
		t.Errorf("LoadBalancer = %v, want 1s1", res.LoadBalancer.ID)
	}
}

func TestScanSkipsInvalidLabels(t *testing.T) {
	f := &fakeFleet{
		stacks: []domain.Stack{{Name: "utility", State: domain.StateActive}, {Name: "app", State: domain.StateActive}},
		services: map[string][]domain.Service{
			"utility": {lbService("1s1")},
			"app": {
				linked("1s2", "bad", map[string]string{domain.LabelPort: "http"}),
				linked("1s3", "good", map[string]string{domain.LabelPort: "8080"}),
			},
		},
	}

	res, err := newScanner(f).Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(res.Entries) != 1 || res.Entries[0].ServiceID != "1s3" {
		t.Errorf("Entries = %v, want only 1s3", res.Entries)
	}
	if len(res.Skipped) != 1 || res.Skipped[0].ServiceID != "1s2" {
		t.Errorf("Skipped = %v, want 1s2", res.Skipped)
	}
}

func TestScanPropagatesAPIErrors(t *testing.T) {
	f := &fakeFleet{
		stacks:   []domain.Stack{{Name: "utility", State: domain.StateActive}, {Name: "app", State: domain.StateActive}},
		services: map[string][]domain.Service{"utility": {lbService("1s1")}},
		failOn:   "app",
	}

	_, err := newScanner(f).Scan(context.Background())
	var apiErr *domain.OrchestrationAPIError
	if !errors.As(err, &apiErr) {
		t.Errorf("Scan() error = %v, want *OrchestrationAPIError", err)
	}
}

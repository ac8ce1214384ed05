package scanner

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrSnakeDoc/lbsync/internal/domain"
	"github.com/MrSnakeDoc/lbsync/internal/logger"
)

// Fleet is the read side of the platform API the scanner needs.
type Fleet interface {
	ListStacks(ctx context.Context) ([]domain.Stack, error)
	ListServices(ctx context.Context, stack domain.Stack) ([]domain.Service, error)
}

// Skipped is a participating service left out of the routing table.
type Skipped struct {
	StackName string `json:"stack" yaml:"stack"`
	ServiceID string `json:"serviceId" yaml:"serviceId"`
	Reason    string `json:"reason" yaml:"reason"`
}

// Result is the desired load-balancer state computed from one snapshot.
type Result struct {
	LoadBalancer domain.Service
	Entries      []domain.ServiceLinkEntry
	Skipped      []Skipped
	Stacks       int // active stacks inspected
}

// Scanner walks every active stack and aggregates the routing table.
type Scanner struct {
	fleet  Fleet
	routes domain.RouteConfig
	logger logger.Logger
}

// New creates a scanner.
func New(fleet Fleet, routes domain.RouteConfig, log logger.Logger) *Scanner {
	return &Scanner{
		fleet:  fleet,
		routes: routes,
		logger: log,
	}
}

// Scan fetches a fresh snapshot and computes the routing table.
// Entries follow stack-then-service order. It fails with
// domain.ErrLoadBalancerNotFound when no active utility stack hosts the lb.
func (s *Scanner) Scan(ctx context.Context) (*Result, error) {
	stacks, err := s.fleet.ListStacks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stacks: %w", err)
	}

	s.logger.Debug("scanning stacks", logger.Int("count", len(stacks)))

	res := &Result{Entries: []domain.ServiceLinkEntry{}}
	var lb *domain.Service

	for _, stack := range stacks {
		if !stack.IsActive() {
			s.logger.Debug("ignoring inactive stack",
				logger.String("stack", stack.Name),
				logger.String("state", stack.State))
			continue
		}
		res.Stacks++

		services, err := s.fleet.ListServices(ctx, stack)
		if err != nil {
			return nil, fmt.Errorf("failed to list services of stack %s: %w", stack.Name, err)
		}

		if lb == nil && domain.IsLoadBalancerStack(stack) {
			lb = s.findLoadBalancer(stack, services)
		}

		for _, svc := range services {
			if !domain.IsLoadBalanced(svc) {
				continue
			}
			entry, err := domain.BuildEntry(stack, svc, s.routes)
			if err != nil {
				var labelErr *domain.InvalidLabelError
				if !errors.As(err, &labelErr) {
					return nil, err
				}
				s.logger.Warn("skipping service with invalid labels",
					logger.String("stack", stack.Name),
					logger.String("service", svc.Name),
					logger.Error(err))
				res.Skipped = append(res.Skipped, Skipped{
					StackName: stack.Name,
					ServiceID: svc.ID,
					Reason:    labelErr.Error(),
				})
				continue
			}
			s.logger.Debug("adding service to load balancer",
				logger.String("stack", stack.Name),
				logger.String("service", svc.Name),
				logger.Strings("ports", entry.Ports))
			res.Entries = append(res.Entries, entry)
		}
	}

	if lb == nil {
		return nil, domain.ErrLoadBalancerNotFound
	}
	res.LoadBalancer = *lb
	return res, nil
}

func (s *Scanner) findLoadBalancer(stack domain.Stack, services []domain.Service) *domain.Service {
	found, ok := domain.FindLoadBalancer(services)
	if !ok {
		s.logger.Warn("load-balancer stack has no lb service", logger.String("stack", stack.Name))
		return nil
	}
	s.logger.Debug("found load balancer",
		logger.String("stack", stack.Name),
		logger.String("service_id", found.ID))
	return &found
}

package domain

const (
	// LoadBalancerStackName is the stack hosting the shared load balancer.
	LoadBalancerStackName = "utility"
	// LoadBalancerServiceName is the load-balancer service inside that stack.
	LoadBalancerServiceName = "lb"
)

// IsLoadBalanced reports whether a service opted in to load balancing.
func IsLoadBalanced(svc Service) bool {
	if svc.Type != TypeService && svc.Type != TypeExternalService {
		return false
	}
	return svc.Label(LabelLink, "false") == "true"
}

// IsLoadBalancerStack reports whether the stack hosts the load balancer.
func IsLoadBalancerStack(stack Stack) bool {
	return stack.Name == LoadBalancerStackName
}

// IsLoadBalancerService reports whether the service is the designated
// load balancer.
func IsLoadBalancerService(svc Service) bool {
	return svc.Type == TypeLoadBalancerService && svc.Name == LoadBalancerServiceName
}

// FindLoadBalancer returns the first service that is the designated load
// balancer.
func FindLoadBalancer(services []Service) (Service, bool) {
	for _, svc := range services {
		if IsLoadBalancerService(svc) {
			return svc, true
		}
	}
	return Service{}, false
}

package domain

import (
	"errors"
	"fmt"
)

// ErrLoadBalancerNotFound means no active "utility" stack hosts an "lb"
// loadBalancerService. Nothing is pushed when it happens.
var ErrLoadBalancerNotFound = errors.New("could not find the load-balancer service (stack utility, service lb)")

// ErrMissingEnvironment means a service change event carries no
// data.resource.links.environment. Such an event cannot be validated and
// never triggers a pass.
var ErrMissingEnvironment = errors.New("service event without an environment link")

// OrchestrationAPIError is any failed call to the platform API: a non-2xx
// response, a transport failure or a request timeout.
type OrchestrationAPIError struct {
	Method  string
	URL     string
	Status  int    // 0 when no response was received
	Body    string // truncated response body
	Timeout bool
	Err     error
}

func (e *OrchestrationAPIError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("orchestration api %s %s: timeout: %v", e.Method, e.URL, e.Err)
	case e.Status == 0:
		return fmt.Sprintf("orchestration api %s %s: %v", e.Method, e.URL, e.Err)
	default:
		return fmt.Sprintf("orchestration api %s %s: status %d: %s", e.Method, e.URL, e.Status, e.Body)
	}
}

func (e *OrchestrationAPIError) Unwrap() error { return e.Err }

// Retryable is true for timeouts and transport failures. A response with a
// non-2xx status is always fatal.
func (e *OrchestrationAPIError) Retryable() bool {
	return e.Timeout || e.Status == 0
}

// IsRetryable reports whether err (or anything it wraps) is a retryable
// orchestration API failure.
func IsRetryable(err error) bool {
	var apiErr *OrchestrationAPIError
	return errors.As(err, &apiErr) && apiErr.Retryable()
}

// InvalidLabelError reports a label whose value cannot be used.
type InvalidLabelError struct {
	ServiceID string
	Label     string
	Value     string
}

func (e *InvalidLabelError) Error() string {
	return fmt.Sprintf("service %s: invalid %s label %q", e.ServiceID, e.Label, e.Value)
}

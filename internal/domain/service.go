package domain

// Service types reported by the platform.
const (
	TypeService             = "service"
	TypeExternalService     = "externalService"
	TypeLoadBalancerService = "loadBalancerService"
)

// Stack states. Only active stacks take part in a reconciliation.
const (
	StateActive = "active"
)

// Stack is a named group of services (an "environment" in the platform API).
type Stack struct {
	ID    string
	Name  string
	State string

	// ServicesLink lists the services that belong to this stack.
	ServicesLink string
}

// IsActive reports whether the stack is running.
func (s Stack) IsActive() bool {
	return s.State == StateActive
}

// Service is a read-only snapshot of a deployable unit inside a stack.
//
// Snapshots are fetched at the start of every reconciliation and thrown
// away at the end of it.
type Service struct {
	ID        string
	Name      string
	Type      string
	State     string
	StackName string

	// Labels are the launch configuration labels (lb.link, lb.port, ...).
	Labels map[string]string

	// SelfLink and SetServiceLinksAction are only meaningful on the
	// load-balancer service: they are the targets of the two writes.
	SelfLink              string
	SetServiceLinksAction string
}

// Label returns the label value, or def when the label is absent.
func (s Service) Label(key, def string) string {
	if v, ok := s.Labels[key]; ok {
		return v
	}
	return def
}

// Certificate is a reference to a certificate known to the platform.
type Certificate struct {
	ID   string
	Name string
}

// CertificateIDs extracts the ids, preserving order.
func CertificateIDs(certs []Certificate) []string {
	ids := make([]string, 0, len(certs))
	for _, c := range certs {
		ids = append(ids, c.ID)
	}
	return ids
}

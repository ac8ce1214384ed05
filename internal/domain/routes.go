package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Labels read from a service's launch configuration.
const (
	LabelLink    = "lb.link"
	LabelPort    = "lb.port"
	LabelBranch  = "lb.branch"
	LabelRepo    = "lb.repo"
	LabelOrg     = "lb.org"
	LabelDomain  = "lb.domain"
	LabelAliases = "lb.aliases"
)

const (
	DefaultDomain     = "drophosting.co.uk"
	DefaultHTTPPort   = 80
	DefaultHTTPSPort  = 443
	DefaultTargetPort = "80"
)

// RouteConfig holds the load balancer's external listeners and the domain
// used when a service does not set lb.domain.
type RouteConfig struct {
	Domain    string
	HTTPPort  int
	HTTPSPort int
}

// DefaultRouteConfig returns the stock listeners and domain.
func DefaultRouteConfig() RouteConfig {
	return RouteConfig{
		Domain:    DefaultDomain,
		HTTPPort:  DefaultHTTPPort,
		HTTPSPort: DefaultHTTPSPort,
	}
}

// RouteRule maps an external hostname and port to a service port.
type RouteRule struct {
	Hostname   string
	Port       int
	TargetPort int

	// DeclaredTarget is the lb.port text as written (ex: "03000"). It is
	// what gets pushed; TargetPort is only its validated value.
	DeclaredTarget string
}

// String encodes the rule the way the load balancer expects it:
// "{hostname}:{port}={targetPort}".
func (r RouteRule) String() string {
	target := r.DeclaredTarget
	if target == "" {
		target = strconv.Itoa(r.TargetPort)
	}
	return r.Hostname + ":" + strconv.Itoa(r.Port) + "=" + target
}

// ServiceLinkEntry is the routing unit pushed to the load balancer for one
// service.
type ServiceLinkEntry struct {
	ServiceID string   `json:"serviceId" yaml:"serviceId"`
	Ports     []string `json:"ports" yaml:"ports"`
}

// StackHostname derives the hostname of a stack: dashes become dots.
func StackHostname(stackName, domain string) string {
	return strings.ReplaceAll(stackName, "-", ".") + "." + domain
}

// CanonicalHostname returns branch.repo.org.domain when all three labels are
// set, and the stack hostname otherwise. Never a partial combination.
func CanonicalHostname(stackName string, svc Service, cfg RouteConfig) string {
	domain := svc.Label(LabelDomain, cfg.Domain)
	branch := svc.Label(LabelBranch, "")
	repo := svc.Label(LabelRepo, "")
	org := svc.Label(LabelOrg, "")

	if branch == "" || repo == "" || org == "" {
		return StackHostname(stackName, domain)
	}
	return branch + "." + repo + "." + org + "." + domain
}

// ParseAliases splits the lb.aliases label. All whitespace is stripped and
// empty items are dropped.
func ParseAliases(raw string) []string {
	raw = strings.Join(strings.Fields(raw), "")
	if raw == "" {
		return nil
	}
	aliases := make([]string, 0, strings.Count(raw, ",")+1)
	for _, a := range strings.Split(raw, ",") {
		if a != "" {
			aliases = append(aliases, a)
		}
	}
	return aliases
}

// BuildRules computes the routing rules of a participating service:
// canonical HTTP, canonical HTTPS, then one HTTP rule per alias in label
// order. Aliases never get an HTTPS rule.
func BuildRules(stack Stack, svc Service, cfg RouteConfig) ([]RouteRule, error) {
	rawPort := svc.Label(LabelPort, DefaultTargetPort)
	declared := strings.TrimSpace(rawPort)
	target, err := strconv.Atoi(declared)
	if err != nil || target < 1 || target > 65535 {
		return nil, &InvalidLabelError{ServiceID: svc.ID, Label: LabelPort, Value: rawPort}
	}

	host := CanonicalHostname(stack.Name, svc, cfg)
	aliases := ParseAliases(svc.Label(LabelAliases, ""))

	rules := make([]RouteRule, 0, 2+len(aliases))
	rules = append(rules,
		RouteRule{Hostname: host, Port: cfg.HTTPPort, TargetPort: target, DeclaredTarget: declared},
		RouteRule{Hostname: host, Port: cfg.HTTPSPort, TargetPort: target, DeclaredTarget: declared},
	)
	for _, alias := range aliases {
		rules = append(rules, RouteRule{Hostname: alias, Port: cfg.HTTPPort, TargetPort: target, DeclaredTarget: declared})
	}
	return rules, nil
}

// BuildEntry packages the rules of a service into its ServiceLinkEntry.
func BuildEntry(stack Stack, svc Service, cfg RouteConfig) (ServiceLinkEntry, error) {
	rules, err := BuildRules(stack, svc, cfg)
	if err != nil {
		return ServiceLinkEntry{}, fmt.Errorf("failed to build routes for %s/%s: %w", stack.Name, svc.Name, err)
	}
	ports := make([]string, 0, len(rules))
	for _, r := range rules {
		ports = append(ports, r.String())
	}
	return ServiceLinkEntry{ServiceID: svc.ID, Ports: ports}, nil
}

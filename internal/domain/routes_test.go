package domain

import (
	"errors"
	"reflect"
	"testing"
)

func TestCanonicalHostname(t *testing.T) {
	cfg := DefaultRouteConfig()

	tests := []struct {
		name     string
		stack    string
		labels   map[string]string
		expected string
	}{
		{
			name:     "no naming labels falls back to stack",
			stack:    "my-app",
			labels:   map[string]string{},
			expected: "my.app.drophosting.co.uk",
		},
		{
			name:  "branch repo org",
			stack: "my-app",
			labels: map[string]string{
				LabelBranch: "develop",
				LabelRepo:   "shop",
				LabelOrg:    "acme",
			},
			expected: "develop.shop.acme.drophosting.co.uk",
		},
		{
			name:  "missing branch",
			stack: "my-app",
			labels: map[string]string{
				LabelRepo: "shop",
				LabelOrg:  "acme",
			},
			expected: "my.app.drophosting.co.uk",
		},
		{
			name:  "empty repo",
			stack: "my-app",
			labels: map[string]string{
				LabelBranch: "develop",
				LabelRepo:   "",
				LabelOrg:    "acme",
			},
			expected: "my.app.drophosting.co.uk",
		},
		{
			name:  "missing org",
			stack: "my-app",
			labels: map[string]string{
				LabelBranch: "develop",
				LabelRepo:   "shop",
			},
			expected: "my.app.drophosting.co.uk",
		},
		{
			name:  "custom domain",
			stack: "blog",
			labels: map[string]string{
				LabelDomain: "example.org",
			},
			expected: "blog.example.org",
		},
		{
			name:     "casing is preserved",
			stack:    "My-App",
			labels:   map[string]string{},
			expected: "My.App.drophosting.co.uk",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := Service{ID: "1s1", Labels: tt.labels}
			got := CanonicalHostname(tt.stack, svc, cfg)
			if got != tt.expected {
				t.Errorf("CanonicalHostname() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestParseAliases(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected []string
	}{
		{name: "empty", raw: "", expected: nil},
		{name: "blank", raw: "   ", expected: nil},
		{name: "single", raw: "foo.com", expected: []string{"foo.com"}},
		{name: "spaces stripped", raw: "foo.com, bar.com", expected: []string{"foo.com", "bar.com"}},
		{name: "inner spaces stripped", raw: " foo .com ,bar.com ", expected: []string{"foo.com", "bar.com"}},
		{name: "empty items dropped", raw: "foo.com,,bar.com,", expected: []string{"foo.com", "bar.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseAliases(tt.raw)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("ParseAliases(%q) = %v, want %v", tt.raw, got, tt.expected)
			}
		})
	}
}

func TestBuildEntry(t *testing.T) {
	cfg := DefaultRouteConfig()
	stack := Stack{Name: "my-app", State: StateActive}

	tests := []struct {
		name     string
		labels   map[string]string
		cfg      RouteConfig
		expected []string
	}{
		{
			name:   "default port",
			labels: map[string]string{LabelLink: "true"},
			cfg:    cfg,
			expected: []string{
				"my.app.drophosting.co.uk:80=80",
				"my.app.drophosting.co.uk:443=80",
			},
		},
		{
			name:   "declared port kept as written",
			labels: map[string]string{LabelLink: "true", LabelPort: "03000"},
			cfg:    cfg,
			expected: []string{
				"my.app.drophosting.co.uk:80=03000",
				"my.app.drophosting.co.uk:443=03000",
			},
		},
		{
			name:   "declared port",
			labels: map[string]string{LabelLink: "true", LabelPort: "3000"},
			cfg:    cfg,
			expected: []string{
				"my.app.drophosting.co.uk:80=3000",
				"my.app.drophosting.co.uk:443=3000",
			},
		},
		{
			name: "aliases are http only",
			labels: map[string]string{
				LabelLink:    "true",
				LabelPort:    "3000",
				LabelAliases: "foo.com, bar.com",
			},
			cfg: cfg,
			expected: []string{
				"my.app.drophosting.co.uk:80=3000",
				"my.app.drophosting.co.uk:443=3000",
				"foo.com:80=3000",
				"bar.com:80=3000",
			},
		},
		{
			name: "custom listeners",
			labels: map[string]string{
				LabelLink:   "true",
				LabelPort:   "8080",
				LabelBranch: "main",
				LabelRepo:   "api",
				LabelOrg:    "acme",
			},
			cfg: RouteConfig{Domain: "example.org", HTTPPort: 8000, HTTPSPort: 8443},
			expected: []string{
				"main.api.acme.example.org:8000=8080",
				"main.api.acme.example.org:8443=8080",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := Service{ID: "1s42", Name: "web", Type: TypeService, Labels: tt.labels}
			entry, err := BuildEntry(stack, svc, tt.cfg)
			if err != nil {
				t.Fatalf("BuildEntry() error = %v", err)
			}
			if entry.ServiceID != "1s42" {
				t.Errorf("BuildEntry() ServiceID = %v, want 1s42", entry.ServiceID)
			}
			if !reflect.DeepEqual(entry.Ports, tt.expected) {
				t.Errorf("BuildEntry() Ports = %v, want %v", entry.Ports, tt.expected)
			}
		})
	}
}

func TestBuildRulesCount(t *testing.T) {
	stack := Stack{Name: "shop"}
	for _, aliases := range []string{"", "a.com", "a.com,b.com", "a.com,b.com,c.com"} {
		svc := Service{ID: "1s1", Labels: map[string]string{LabelAliases: aliases}}
		rules, err := BuildRules(stack, svc, DefaultRouteConfig())
		if err != nil {
			t.Fatalf("BuildRules() error = %v", err)
		}
		want := 2 + len(ParseAliases(aliases))
		if len(rules) != want {
			t.Errorf("BuildRules(aliases=%q) returned %d rules, want %d", aliases, len(rules), want)
		}
		if rules[0].Port != DefaultHTTPPort || rules[1].Port != DefaultHTTPSPort {
			t.Errorf("BuildRules() canonical ports = %d,%d, want 80,443", rules[0].Port, rules[1].Port)
		}
		for _, r := range rules[2:] {
			if r.Port != DefaultHTTPPort {
				t.Errorf("alias rule %v uses port %d, want %d", r.Hostname, r.Port, DefaultHTTPPort)
			}
		}
	}
}

func TestBuildEntryInvalidPort(t *testing.T) {
	for _, port := range []string{"http", "", "0", "70000", "-1"} {
		svc := Service{ID: "1s7", Labels: map[string]string{LabelPort: port}}
		_, err := BuildEntry(Stack{Name: "x"}, svc, DefaultRouteConfig())
		if err == nil {
			t.Errorf("BuildEntry() with port %q should return error", port)
			continue
		}
		var labelErr *InvalidLabelError
		if !errors.As(err, &labelErr) {
			t.Errorf("BuildEntry() error = %T, want *InvalidLabelError", err)
		}
	}
}

func TestBuildEntryDeterministic(t *testing.T) {
	stack := Stack{Name: "my-app"}
	svc := Service{ID: "1s1", Labels: map[string]string{LabelAliases: "x.com,y.com", LabelPort: "9000"}}

	first, err := BuildEntry(stack, svc, DefaultRouteConfig())
	if err != nil {
		t.Fatalf("BuildEntry() error = %v", err)
	}
	for i := 0; i < 10; i++ {
		again, _ := BuildEntry(stack, svc, DefaultRouteConfig())
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("BuildEntry() not deterministic: %v vs %v", first, again)
		}
	}
}

func TestRouteRuleString(t *testing.T) {
	tests := []struct {
		rule     RouteRule
		expected string
	}{
		{RouteRule{Hostname: "a.com", Port: 80, TargetPort: 3000}, "a.com:80=3000"},
		{RouteRule{Hostname: "a.com", Port: 443, TargetPort: 3000, DeclaredTarget: "03000"}, "a.com:443=03000"},
	}
	for _, tt := range tests {
		if got := tt.rule.String(); got != tt.expected {
			t.Errorf("String() = %q, want %q", got, tt.expected)
		}
	}
}

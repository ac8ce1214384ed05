package commands

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/MrSnakeDoc/lbsync/internal/domain"
	"github.com/MrSnakeDoc/lbsync/internal/reconciler"
	"github.com/MrSnakeDoc/lbsync/internal/scanner"
)

func samplePlan() *reconciler.Plan {
	return &reconciler.Plan{
		LoadBalancerID: "1s1",
		ServiceLinks: []domain.ServiceLinkEntry{
			{ServiceID: "1s5", Ports: []string{"web.example.org:80=8080"}},
		},
		CertificateIDs: []string{"1c1"},
		Skipped:        []scanner.Skipped{{StackName: "broken", ServiceID: "1s9", Reason: "invalid lb.port label"}},
	}
}

func TestWritePlan(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		if err := writePlan(&buf, samplePlan(), "json"); err != nil {
			t.Fatalf("writePlan() error = %v", err)
		}
		var got reconciler.Plan
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("invalid json: %v", err)
		}
		if got.LoadBalancerID != "1s1" || len(got.ServiceLinks) != 1 || got.ServiceLinks[0].Ports[0] != "web.example.org:80=8080" {
			t.Errorf("plan = %+v", got)
		}
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		if err := writePlan(&buf, samplePlan(), "yaml"); err != nil {
			t.Fatalf("writePlan() error = %v", err)
		}
		if !strings.Contains(buf.String(), "loadBalancerId: 1s1") {
			t.Errorf("yaml output missing load balancer id:\n%s", buf.String())
		}
		var got reconciler.Plan
		if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("invalid yaml: %v", err)
		}
		if len(got.Skipped) != 1 || got.Skipped[0].ServiceID != "1s9" {
			t.Errorf("skipped = %+v", got.Skipped)
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		if err := writePlan(&bytes.Buffer{}, samplePlan(), "toml"); err == nil {
			t.Error("writePlan() should reject unknown formats")
		}
	})
}

func TestPlanRejectsFormatBeforeLoading(t *testing.T) {
	cmd := Root()
	cmd.SetArgs([]string{"plan", "-o", "xml"})
	cmd.SetOut(&bytes.Buffer{})
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "unsupported output format") {
		t.Errorf("Execute() error = %v", err)
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := Root()
	cmd.SetArgs([]string{"version"})
	cmd.SetOut(&out)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.HasPrefix(out.String(), "lbsync ") {
		t.Errorf("version output = %q", out.String())
	}
}

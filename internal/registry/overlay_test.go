package registry

import (
	"os"
	"path/filepath"
	"testing"
)

func writeOverlay(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "overlay.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write overlay fixture: %v", err)
	}
	return path
}

func TestLoadOverlay_RegistersAdditionalAgents(t *testing.T) {
	path := writeOverlay(t, `
version: 1
agents:
  - agent_id: compliance_reviewer
    name: Compliance Reviewer
    tier: business_domain
    coordination_priority: 60
    capability:
      specialization_domains: [compliance, risk_assessment]
`)

	r := New(nil)
	if err := LoadOverlay(r, path); err != nil {
		t.Fatalf("load overlay: %v", err)
	}

	cfg, ok := r.Get("compliance_reviewer")
	if !ok {
		t.Fatal("expected overlay agent to be registered")
	}
	if cfg.Tier != TierBusinessDomain {
		t.Fatalf("expected business_domain tier, got %v", cfg.Tier)
	}
	if !cfg.Capability.HasDomain("compliance") {
		t.Fatalf("expected compliance domain, got %v", cfg.Capability.SpecializationDomains)
	}
}

func TestLoadOverlay_RejectsUnsupportedVersion(t *testing.T) {
	path := writeOverlay(t, `
version: 99
agents: []
`)
	r := New(nil)
	if err := LoadOverlay(r, path); err == nil {
		t.Fatal("expected an error for an unsupported overlay version")
	}
}

func TestLoadOverlay_RejectsDuplicateAgentID(t *testing.T) {
	path := writeOverlay(t, `
version: 1
agents:
  - agent_id: dup
    tier: specialists
  - agent_id: dup
    tier: specialists
`)
	r := New(nil)
	if err := LoadOverlay(r, path); err == nil {
		t.Fatal("expected duplicate agent_id in overlay to be rejected")
	}
}

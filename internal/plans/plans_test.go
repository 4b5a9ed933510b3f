package plans

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveBuiltinPlans(t *testing.T) {
	tests := []struct {
		plan Plan
		max  int64
	}{
		{Free, 5},
		{Pro, Unlimited},
		{Team, Unlimited},
		{Enterprise, Unlimited},
	}
	for _, tt := range tests {
		limits := Resolve(tt.plan, "user")
		if limits.MaxAIGenerationsPerMonth != tt.max {
			t.Errorf("%s: expected max %d, got %d", tt.plan, tt.max, limits.MaxAIGenerationsPerMonth)
		}
		if !limits.CanGenerateAI {
			t.Errorf("%s: expected can_generate_ai", tt.plan)
		}
	}
}

func TestResolveAdminOverride(t *testing.T) {
	limits := Resolve(Free, RoleAdmin)
	if limits.MaxAIGenerationsPerMonth != Unlimited {
		t.Fatalf("expected unlimited for admin, got %d", limits.MaxAIGenerationsPerMonth)
	}
	if !limits.CanGenerateAI {
		t.Fatal("expected can_generate_ai for admin")
	}
}

func TestResolveUnknownPlanFallsBackToFree(t *testing.T) {
	limits := Resolve(Plan("GOLD"), "user")
	if limits.MaxAIGenerationsPerMonth != 5 {
		t.Fatalf("expected FREE limits for unknown plan, got %d", limits.MaxAIGenerationsPerMonth)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want Plan
	}{
		{"FREE", Free},
		{"PRO", Pro},
		{"TEAM", Team},
		{"ENTERPRISE", Enterprise},
		{"", Free},
		{"pro", Free},
		{"GOLD", Free},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestLoadCatalogMergesOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plans.yaml")
	content := "FREE:\n  max_ai_generations_per_month: 10\n  can_generate_ai: true\n" +
		"STARTER:\n  max_ai_generations_per_month: 100\n  can_generate_ai: true\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	t.Cleanup(ResetCatalog)

	if err := LoadCatalog(path); err != nil {
		t.Fatalf("load catalog: %v", err)
	}

	if limits := Resolve(Free, "user"); limits.MaxAIGenerationsPerMonth != 10 {
		t.Fatalf("expected overridden FREE max 10, got %d", limits.MaxAIGenerationsPerMonth)
	}
	if limits := Resolve(Plan("STARTER"), "user"); limits.MaxAIGenerationsPerMonth != 100 {
		t.Fatalf("expected STARTER max 100, got %d", limits.MaxAIGenerationsPerMonth)
	}
	// Untouched builtins survive a partial override file.
	if limits := Resolve(Pro, "user"); limits.MaxAIGenerationsPerMonth != Unlimited {
		t.Fatalf("expected PRO untouched, got %d", limits.MaxAIGenerationsPerMonth)
	}
	if Normalize("STARTER") != Plan("STARTER") {
		t.Fatal("expected STARTER to be a known plan after load")
	}
}

func TestLoadCatalogMissingFileIsNoop(t *testing.T) {
	if err := LoadCatalog(filepath.Join(t.TempDir(), "absent.yaml")); err != nil {
		t.Fatalf("expected nil for missing file, got %v", err)
	}
	if err := LoadCatalog(""); err != nil {
		t.Fatalf("expected nil for empty path, got %v", err)
	}
}

func TestLoadCatalogRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plans.yaml")
	if err := os.WriteFile(path, []byte("FREE: [not a map"), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := LoadCatalog(path); err == nil {
		t.Fatal("expected parse error")
	}
}

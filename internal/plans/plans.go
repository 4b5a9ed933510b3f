// Package plans maps subscription plans to AI generation limits.
package plans

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

type Plan string

const (
	Free       Plan = "FREE"
	Pro        Plan = "PRO"
	Team       Plan = "TEAM"
	Enterprise Plan = "ENTERPRISE"
)

// Unlimited marks a plan with no monthly ceiling. The gate skips the monthly
// quota check entirely for these plans.
const Unlimited int64 = -1

// RoleAdmin is the global operator role. It receives unlimited entitled
// limits regardless of the team's plan.
const RoleAdmin = "admin"

type Limits struct {
	MaxAIGenerationsPerMonth int64 `yaml:"max_ai_generations_per_month"`
	CanGenerateAI            bool  `yaml:"can_generate_ai"`
}

var builtin = map[Plan]Limits{
	Free:       {MaxAIGenerationsPerMonth: 5, CanGenerateAI: true},
	Pro:        {MaxAIGenerationsPerMonth: Unlimited, CanGenerateAI: true},
	Team:       {MaxAIGenerationsPerMonth: Unlimited, CanGenerateAI: true},
	Enterprise: {MaxAIGenerationsPerMonth: Unlimited, CanGenerateAI: true},
}

var (
	mu      sync.RWMutex
	catalog = cloneCatalog(builtin)
)

func cloneCatalog(src map[Plan]Limits) map[Plan]Limits {
	dst := make(map[Plan]Limits, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// LoadCatalog merges plan overrides from a YAML file into the built-in
// catalog. A missing path is a no-op so deployments without overrides need no
// file.
func LoadCatalog(path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read plans file: %w", err)
	}

	var overrides map[Plan]Limits
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return fmt.Errorf("parse plans file: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()
	for plan, limits := range overrides {
		catalog[plan] = limits
	}
	return nil
}

// ResetCatalog restores the built-in catalog. Used by tests.
func ResetCatalog() {
	mu.Lock()
	catalog = cloneCatalog(builtin)
	mu.Unlock()
}

// Normalize maps an unknown or empty plan name to FREE.
func Normalize(plan string) Plan {
	p := Plan(plan)
	mu.RLock()
	_, ok := catalog[p]
	mu.RUnlock()
	if !ok {
		return Free
	}
	return p
}

// Resolve returns the limits for a plan, with the global admin override
// applied. It is a pure lookup: the caller passes the acting user's global
// role, and scattered role checks stay out of the gate and the handlers.
func Resolve(plan Plan, role string) Limits {
	if role == RoleAdmin {
		return Limits{MaxAIGenerationsPerMonth: Unlimited, CanGenerateAI: true}
	}
	mu.RLock()
	limits, ok := catalog[plan]
	mu.RUnlock()
	if !ok {
		mu.RLock()
		limits = catalog[Free]
		mu.RUnlock()
	}
	return limits
}

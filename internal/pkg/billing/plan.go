package billing

import (
	"strings"

	"github.com/ManuelReschke/TherapyGames/internal/pkg/entitlements"
)

// Lemon Squeezy variant ids of the store catalog.
const (
	VariantProMonthly     = "482161"
	VariantProYearly      = "482164"
	VariantCabinetMonthly = "482170"
	VariantCabinetYearly  = "482173"
)

var defaultVariantPlans = map[string]entitlements.Plan{
	VariantProMonthly:     entitlements.PlanPro,
	VariantProYearly:      entitlements.PlanPro,
	VariantCabinetMonthly: entitlements.PlanCabinet,
	VariantCabinetYearly:  entitlements.PlanCabinet,
}

// PlanResolver maps provider variant ids to internal plans using a fixed table.
type PlanResolver struct {
	variants map[string]entitlements.Plan
}

// NewPlanResolver copies the given table so later changes by the caller have no effect.
func NewPlanResolver(variants map[string]entitlements.Plan) *PlanResolver {
	table := make(map[string]entitlements.Plan, len(variants))
	for id, plan := range variants {
		table[strings.TrimSpace(id)] = plan
	}
	return &PlanResolver{variants: table}
}

// DefaultPlanResolver returns the resolver for the production catalog.
func DefaultPlanResolver() *PlanResolver {
	return NewPlanResolver(defaultVariantPlans)
}

// Resolve never grants access for an unknown variant: it falls back to free.
func (r *PlanResolver) Resolve(variantID string) entitlements.Plan {
	if r == nil {
		return entitlements.PlanFree
	}
	plan, ok := r.variants[strings.TrimSpace(variantID)]
	if !ok {
		return entitlements.PlanFree
	}
	return entitlements.ParsePlan(string(plan))
}

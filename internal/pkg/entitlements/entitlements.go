package entitlements

import "strings"

type Plan string

const (
	PlanFree    Plan = "free"
	PlanPro     Plan = "pro"
	PlanCabinet Plan = "cabinet"
)

// ParsePlan normalizes a stored plan value. Anything unknown is treated as free.
func ParsePlan(raw string) Plan {
	switch Plan(strings.ToLower(strings.TrimSpace(raw))) {
	case PlanPro:
		return PlanPro
	case PlanCabinet:
		return PlanCabinet
	default:
		return PlanFree
	}
}

// IsPaid reports whether the plan grants access beyond the free tier.
func (p Plan) IsPaid() bool {
	return p == PlanPro || p == PlanCabinet
}

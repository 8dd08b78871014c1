// Package fraud scores orders at creation time. The rule engine is the only
// place a fraud score, risk level, or review flag is ever computed.
package fraud

import (
	"github.com/dukerupert/sindri/internal/domain"
)

// Score thresholds. Orders at or above FlagThreshold are routed to manual
// review before confirmation.
const (
	FlagThreshold   = 0.6
	highThreshold   = 0.7
	mediumThreshold = 0.4
)

// Facts are the inputs to scoring, assembled by the order service.
type Facts struct {
	TotalCents      int64
	PriorOrderCount int
	EmailVerified   bool
	ShippingAddress string
	BillingAddress  string
}

// Assessment is the complete scoring result. Reasons name the rules that
// fired, in rule order, and feed the narrative.
type Assessment struct {
	Score   float64
	Level   domain.RiskLevel
	Flagged bool
	Reasons []string
}

// RuleEngine applies the additive fraud rules.
type RuleEngine struct{}

// NewRuleEngine creates the rule engine.
func NewRuleEngine() *RuleEngine {
	return &RuleEngine{}
}

// Score evaluates every rule against the facts. Rule weights add up and
// the total is capped at 1.0.
func (e *RuleEngine) Score(f Facts) Assessment {
	var (
		score   float64
		reasons []string
	)

	if f.TotalCents > 100000 {
		score += 0.3
		reasons = append(reasons, "order total exceeds $1000")
	}
	if f.PriorOrderCount == 0 && f.TotalCents > 50000 {
		score += 0.4
		reasons = append(reasons, "first order over $500")
	}
	if f.ShippingAddress != f.BillingAddress {
		score += 0.2
		reasons = append(reasons, "shipping and billing addresses differ")
	}
	if !f.EmailVerified {
		score += 0.1
		reasons = append(reasons, "email address not verified")
	}

	if score > 1.0 {
		score = 1.0
	}

	return Assessment{
		Score:   score,
		Level:   levelFor(score),
		Flagged: score >= FlagThreshold,
		Reasons: reasons,
	}
}

// levelFor buckets a score. RiskCritical is reserved for manual escalation
// during admin review; no rule combination produces it.
func levelFor(score float64) domain.RiskLevel {
	switch {
	case score >= highThreshold:
		return domain.RiskHigh
	case score >= mediumThreshold:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}

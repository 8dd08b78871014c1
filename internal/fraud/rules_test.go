package fraud

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dukerupert/sindri/internal/domain"
)

func TestRuleEngine_Score(t *testing.T) {
	engine := NewRuleEngine()

	tests := []struct {
		name        string
		facts       Facts
		wantScore   float64
		wantLevel   domain.RiskLevel
		wantFlagged bool
	}{
		{
			name: "clean repeat customer",
			facts: Facts{
				TotalCents:      5400,
				PriorOrderCount: 5,
				EmailVerified:   true,
				ShippingAddress: "1 Main St",
				BillingAddress:  "1 Main St",
			},
			wantScore:   0,
			wantLevel:   domain.RiskLow,
			wantFlagged: false,
		},
		{
			name: "unverified email only",
			facts: Facts{
				TotalCents:      5400,
				PriorOrderCount: 5,
				EmailVerified:   false,
				ShippingAddress: "1 Main St",
				BillingAddress:  "1 Main St",
			},
			wantScore:   0.1,
			wantLevel:   domain.RiskLow,
			wantFlagged: false,
		},
		{
			name: "first large order with mismatched addresses",
			facts: Facts{
				TotalCents:      60000,
				PriorOrderCount: 0,
				EmailVerified:   true,
				ShippingAddress: "1 Main St",
				BillingAddress:  "9 Other Ave",
			},
			wantScore:   0.6,
			wantLevel:   domain.RiskMedium,
			wantFlagged: true,
		},
		{
			name: "high value repeat customer",
			facts: Facts{
				TotalCents:      150000,
				PriorOrderCount: 12,
				EmailVerified:   true,
				ShippingAddress: "1 Main St",
				BillingAddress:  "1 Main St",
			},
			wantScore:   0.3,
			wantLevel:   domain.RiskLow,
			wantFlagged: false,
		},
		{
			name: "everything fires, capped at one",
			facts: Facts{
				TotalCents:      150000,
				PriorOrderCount: 0,
				EmailVerified:   false,
				ShippingAddress: "1 Main St",
				BillingAddress:  "9 Other Ave",
			},
			wantScore:   1.0,
			wantLevel:   domain.RiskHigh,
			wantFlagged: true,
		},
		{
			name: "large total exactly at first-order boundary does not fire",
			facts: Facts{
				TotalCents:      50000,
				PriorOrderCount: 0,
				EmailVerified:   true,
				ShippingAddress: "1 Main St",
				BillingAddress:  "1 Main St",
			},
			wantScore:   0,
			wantLevel:   domain.RiskLow,
			wantFlagged: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engine.Score(tt.facts)
			assert.InDelta(t, tt.wantScore, got.Score, 1e-9)
			assert.Equal(t, tt.wantLevel, got.Level)
			assert.Equal(t, tt.wantFlagged, got.Flagged)
		})
	}
}

func TestRuleEngine_Score_Reasons(t *testing.T) {
	engine := NewRuleEngine()

	got := engine.Score(Facts{
		TotalCents:      60000,
		PriorOrderCount: 0,
		EmailVerified:   true,
		ShippingAddress: "1 Main St",
		BillingAddress:  "9 Other Ave",
	})

	assert.Equal(t, []string{
		"first order over $500",
		"shipping and billing addresses differ",
	}, got.Reasons)
}

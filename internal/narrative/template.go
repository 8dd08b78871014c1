package narrative

import (
	"context"
	"fmt"
	"strings"
)

// TemplateProvider renders a deterministic narrative from the assessment
// facts. It is both the default provider and the fallback when an external
// provider fails or times out.
type TemplateProvider struct{}

// NewTemplateProvider creates the templated narrative provider.
func NewTemplateProvider() Provider {
	return &TemplateProvider{}
}

// Generate never fails and ignores the context.
func (p *TemplateProvider) Generate(_ context.Context, req Request) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Order %s scored %.2f (%s risk).", req.OrderNumber, req.FraudScore, req.RiskLevel)
	if len(req.Reasons) > 0 {
		fmt.Fprintf(&b, " Signals: %s.", strings.Join(req.Reasons, "; "))
	} else {
		b.WriteString(" No risk signals fired.")
	}
	return b.String(), nil
}

// Package narrative produces the human-readable risk explanation attached
// to flagged orders. Providers only ever produce prose; the numeric score
// and risk level are fixed before a provider is consulted and no provider
// output can change them.
package narrative

import "context"

// Request carries the facts a provider may describe.
type Request struct {
	OrderNumber string
	TotalCents  int64
	FraudScore  float64
	RiskLevel   string
	Reasons     []string
}

// Provider turns a risk assessment into prose. Implementations may call
// external services; callers bound them with a context deadline and fall
// back to a templated narrative on error.
type Provider interface {
	Generate(ctx context.Context, req Request) (string, error)
}

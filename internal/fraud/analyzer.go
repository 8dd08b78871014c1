package fraud

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dukerupert/sindri/internal/narrative"
)

// DefaultNarrativeTimeout bounds how long Analyze waits for an external
// narrative provider before falling back to templated prose.
const DefaultNarrativeTimeout = 3 * time.Second

// Analyzer combines rule scoring with narrative generation. Narration is
// best effort: a slow or failing provider degrades to the template and the
// assessment numbers are never affected.
type Analyzer struct {
	engine   *RuleEngine
	provider narrative.Provider
	fallback narrative.Provider
	timeout  time.Duration
	failures prometheus.Counter
	logger   *slog.Logger
}

// NewAnalyzer creates an analyzer. A nil provider means templated
// narratives only; a non-positive timeout falls back to the default. The
// failures counter may be nil.
func NewAnalyzer(provider narrative.Provider, timeout time.Duration, failures prometheus.Counter, logger *slog.Logger) *Analyzer {
	if timeout <= 0 {
		timeout = DefaultNarrativeTimeout
	}
	fallback := narrative.NewTemplateProvider()
	if provider == nil {
		provider = fallback
	}
	return &Analyzer{
		engine:   NewRuleEngine(),
		provider: provider,
		fallback: fallback,
		timeout:  timeout,
		failures: failures,
		logger:   logger,
	}
}

// Analyze scores the facts and produces a narrative for the assessment.
func (a *Analyzer) Analyze(ctx context.Context, orderNumber string, f Facts) (Assessment, string) {
	assessment := a.engine.Score(f)

	req := narrative.Request{
		OrderNumber: orderNumber,
		TotalCents:  f.TotalCents,
		FraudScore:  assessment.Score,
		RiskLevel:   string(assessment.Level),
		Reasons:     assessment.Reasons,
	}

	narrCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	text, err := a.provider.Generate(narrCtx, req)
	if err != nil {
		if a.failures != nil {
			a.failures.Inc()
		}
		a.logger.Warn("narrative provider failed, using template",
			"order_number", orderNumber,
			"error", err,
		)
		text, _ = a.fallback.Generate(ctx, req)
	}
	return assessment, text
}

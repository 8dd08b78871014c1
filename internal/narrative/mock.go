package narrative

import "context"

// MockProvider is a test implementation of Provider.
type MockProvider struct {
	GenerateFunc func(ctx context.Context, req Request) (string, error)
}

// Generate delegates to the configured function or returns a fixed string.
func (m *MockProvider) Generate(ctx context.Context, req Request) (string, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, req)
	}
	return "mock narrative", nil
}

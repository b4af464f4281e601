package timeout

import (
	"context"
	"time"
)

// Config is the timeout manager's own config type.
type Config struct {
	// DefaultTimeout applies to kinds without an override. Zero disables
	// the deadline and leaves timing out to the driver.
	DefaultTimeout time.Duration
	// PerKind overrides DefaultTimeout for named catalog queries.
	PerKind map[string]time.Duration
}

// Manager resolves catalog query deadlines by query kind.
type Manager struct {
	defaultTimeout time.Duration
	perKind        map[string]time.Duration
}

// NewManager creates a new Manager. Panics on negative durations.
func NewManager(config Config) *Manager {
	if config.DefaultTimeout < 0 {
		panic("timeout: default timeout must be >= 0")
	}
	perKind := make(map[string]time.Duration, len(config.PerKind))
	for kind, d := range config.PerKind {
		if d < 0 {
			panic("timeout: timeout for " + kind + " must be >= 0")
		}
		perKind[kind] = d
	}
	return &Manager{defaultTimeout: config.DefaultTimeout, perKind: perKind}
}

// GetTimeout returns the timeout for kind, falling back to the default.
func (m *Manager) GetTimeout(kind string) time.Duration {
	if d, ok := m.perKind[kind]; ok && d > 0 {
		return d
	}
	return m.defaultTimeout
}

// WithTimeout derives a context carrying the deadline for kind. When the
// resolved timeout is zero the parent is returned with a no-op cancel.
func (m *Manager) WithTimeout(ctx context.Context, kind string) (context.Context, context.CancelFunc) {
	d := m.GetTimeout(kind)
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

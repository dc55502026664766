package corovisor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestGlobalLoggerDefaultsToNoOp verifies getGlobalLogger's zero-value
// behavior: with no SetStructuredLogger call, resolveConfig still gets a
// usable, non-nil Logger.
func TestGlobalLoggerDefaultsToNoOp(t *testing.T) {
	defer SetStructuredLogger(nil)
	SetStructuredLogger(nil)

	cfg, err := resolveConfig(nil)
	require.NoError(t, err)
	require.NotNil(t, cfg.logger)
	require.False(t, cfg.logger.IsEnabled(LevelError))
}

// TestResolveConfigFallsBackToGlobalLogger verifies that a Runtime
// constructed without WithLogger picks up whatever SetStructuredLogger last
// configured, rather than always defaulting straight to a no-op logger.
func TestResolveConfigFallsBackToGlobalLogger(t *testing.T) {
	custom := NewNoOpLogger()
	SetStructuredLogger(custom)
	defer SetStructuredLogger(nil)

	cfg, err := resolveConfig(nil)
	require.NoError(t, err)
	require.Same(t, custom, cfg.logger)
}

// TestWithLoggerOverridesGlobalLogger verifies WithLogger still wins over
// whatever the package-level default is.
func TestWithLoggerOverridesGlobalLogger(t *testing.T) {
	SetStructuredLogger(NewNoOpLogger())
	defer SetStructuredLogger(nil)

	explicit := NewNoOpLogger()
	cfg, err := resolveConfig([]Option{WithLogger(explicit)})
	require.NoError(t, err)
	require.Same(t, explicit, cfg.logger)
}

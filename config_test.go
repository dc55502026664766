package corovisor

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestResolveConfigDefaults(t *testing.T) {
	cfg, err := resolveConfig(nil)
	require.NoError(t, err)

	require.Equal(t, runtime.NumCPU(), cfg.workerCount)
	require.Equal(t, 100*time.Microsecond, cfg.ioTimeoutResolution)
	require.False(t, cfg.metricsEnabled)
	require.NotNil(t, cfg.logger)
}

func TestWithWorkerCountRejectsNonPositive(t *testing.T) {
	_, err := resolveConfig([]Option{WithWorkerCount(0)})
	require.Error(t, err)

	_, err = resolveConfig([]Option{WithWorkerCount(-1)})
	require.Error(t, err)
}

func TestWithWorkerCountApplies(t *testing.T) {
	cfg, err := resolveConfig([]Option{WithWorkerCount(7)})
	require.NoError(t, err)
	require.Equal(t, 7, cfg.workerCount)
}

func TestWithStackSizeRoundsToPage(t *testing.T) {
	cfg, err := resolveConfig([]Option{WithStackSize(1)})
	require.NoError(t, err)
	require.Equal(t, defaultPageSize, cfg.stackSize)

	cfg, err = resolveConfig([]Option{WithStackSize(defaultPageSize * 2)})
	require.NoError(t, err)
	require.Equal(t, defaultPageSize*2, cfg.stackSize)
}

func TestWithIOTimeoutResolutionRejectsNonPositive(t *testing.T) {
	_, err := resolveConfig([]Option{WithIOTimeoutResolution(0)})
	require.Error(t, err)
}

func TestWithMetricsToggles(t *testing.T) {
	cfg, err := resolveConfig([]Option{WithMetrics(true)})
	require.NoError(t, err)
	require.True(t, cfg.metricsEnabled)
}

func TestNilOptionIsSkipped(t *testing.T) {
	cfg, err := resolveConfig([]Option{nil, WithWorkerCount(3), nil})
	require.NoError(t, err)
	require.Equal(t, 3, cfg.workerCount)
}

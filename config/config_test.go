package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venkat7568/tradego/risk"
	"github.com/venkat7568/tradego/scheduler"
)

func TestDefaultValidates(t *testing.T) {
	t.Parallel()
	assert.NoError(t, Default().Validate())
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
account:
  mode: paper
  starting_capital: 500000
universe:
  - RELIANCE
  - TCS
scheduler:
  decision_interval: 10m
  monitor_interval: 20s
  workers: 2
  max_snapshot_age: 3m
store:
  type: memory
`), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.InDelta(t, 500_000, cfg.Account.StartingCapital, 1e-9)
	assert.Equal(t, []string{"RELIANCE", "TCS"}, cfg.Universe)

	sched, err := cfg.SchedulerConfig()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, sched.DecisionInterval)
	assert.Equal(t, 2, sched.Workers)

	// Sections absent from the file keep their defaults.
	assert.Equal(t, risk.DefaultLimits().MaxOpenPositions, cfg.Risk.MaxOpenPositions)
	exec, err := cfg.ExecutionConfig()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, exec.FillWait)
}

func TestLoadJSONFallback(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "account": {"mode": "live", "starting_capital": 2000000},
  "store": {"type": "memory"}
}`), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "live", cfg.Account.Mode)
}

func TestValidateRejectsBadCadence(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Scheduler.MonitorInterval = "10m" // longer than a forced exit can tolerate
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Scheduler.DecisionInterval = "oops"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Execution.FillPollRate = "1m" // slower than the whole fill wait
	assert.Error(t, cfg.Validate())
}

func TestFileSettingsReloadOnChange(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.json")
	initial := scheduler.Settings{TradingEnabled: false, Limits: risk.DefaultLimits()}
	require.NoError(t, WriteDefault(path, initial))

	src := NewFileSettings(path)
	got, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, got.TradingEnabled)

	// Rewrite with trading enabled and a bumped mtime.
	buf := []byte(`{"trading_enabled": true, "limits": ` + mustLimitsJSON(t) + `}`)
	require.NoError(t, os.WriteFile(path, buf, 0644))
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))

	got, err = src.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, got.TradingEnabled)
}

func TestFileSettingsRejectsInvalidLimits(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"trading_enabled": true, "limits": {"max_open_positions": 0}}`), 0644))

	_, err := NewFileSettings(path).Load(context.Background())
	assert.Error(t, err)
}

func mustLimitsJSON(t *testing.T) string {
	t.Helper()
	return `{
	  "max_open_positions": 5,
	  "max_portfolio_heat_pct": 0.03,
	  "max_capital_deployed_pct": 0.5,
	  "max_sector_positions": 2,
	  "correlation_threshold": 0.7,
	  "max_daily_loss_pct": 0.02,
	  "min_risk_pct": 0.005,
	  "max_risk_pct": 0.01,
	  "risk_confidence_floor": 0.65,
	  "max_position_pct_of_capital": 0.1,
	  "min_rr_intraday": 1.5,
	  "min_rr_carry": 1.2
	}`
}

package di

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/harmonia/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		DataDir:           t.TempDir(),
		LogLevel:          "info",
		Port:              8010,
		SweepWorkers:      1,
		ToleranceFraction: 0.05,
		Backup: &config.BackupConfig{
			Enabled: false,
		},
	}
}

func TestWire_WithoutBackupConfigured(t *testing.T) {
	cfg := testConfig(t)

	container, err := Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { container.Close() })

	assert.Nil(t, container.BackupService)

	require.NotNil(t, container.ScenarioService)
	require.NotNil(t, container.ChartsService)
	require.NotNil(t, container.WorkProcessor)

	// Reference scenarios ride along with wiring.
	all, err := container.ScenarioService.List()
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestWire_BackupRequiresBucket(t *testing.T) {
	cfg := testConfig(t)
	cfg.Backup.Enabled = true

	_, err := Wire(cfg, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backup")
}

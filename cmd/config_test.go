package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tclemos/matter-bench/benchmark"
)

func testCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("log-level", "info", "")
	cmd.Flags().String("log-format", "console", "")
	addRunFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestRunConfigDefaults(t *testing.T) {
	v, err := newViper(testCommand(t), "")
	require.NoError(t, err)

	cfg, err := runConfig(v)
	require.NoError(t, err)

	assert.Equal(t, benchmark.DefaultNodeID, cfg.NodeID)
	assert.Equal(t, benchmark.DefaultDeviceName, cfg.DeviceName)
	assert.Equal(t, benchmark.DefaultOutputFile, cfg.OutputFile)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, benchmark.DefaultOverheadModel(), cfg.Model)
	assert.Empty(t, cfg.StoreType)
}

func TestRunConfigFlags(t *testing.T) {
	cmd := testCommand(t,
		"--output", "out.csv",
		"--seed", "9",
		"--device-name", "bench",
		"--store", "memory",
		"--log-level", "warn",
	)
	v, err := newViper(cmd, "")
	require.NoError(t, err)

	cfg, err := runConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "out.csv", cfg.OutputFile)
	assert.Equal(t, int64(9), cfg.Seed)
	assert.Equal(t, "bench", cfg.DeviceName)
	assert.Equal(t, "memory", cfg.StoreType)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestRunConfigEnvLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")

	v, err := newViper(testCommand(t), "")
	require.NoError(t, err)
	cfg, err := runConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestRunConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
output: from-file.csv
overhead:
  transport: 48
  presentation_floor: 4
`), 0o644))

	t.Setenv("MATTER_BENCH_OVERHEAD_SESSION", "30")

	v, err := newViper(testCommand(t, "--device-name", "flagged"), path)
	require.NoError(t, err)
	cfg, err := runConfig(v)
	require.NoError(t, err)

	assert.Equal(t, "from-file.csv", cfg.OutputFile)
	assert.Equal(t, "flagged", cfg.DeviceName)
	assert.Equal(t, 48, cfg.Model.Transport)
	assert.Equal(t, 30, cfg.Model.Session)
	assert.Equal(t, 25, cfg.Model.Application)
	assert.Equal(t, 4, cfg.Model.PresentationFloor)
	assert.Equal(t, 10, cfg.Model.StructureDivisor)
}

func TestRunConfigRejectsInvalidModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.yaml")
	require.NoError(t, os.WriteFile(path, []byte("overhead:\n  structure_divisor: 0\n"), 0o644))

	v, err := newViper(testCommand(t), path)
	require.NoError(t, err)
	_, err = runConfig(v)
	assert.ErrorIs(t, err, benchmark.ErrInvalidModel)
}

func TestRunConfigPebbleNeedsPath(t *testing.T) {
	v, err := newViper(testCommand(t, "--store", "pebble"), "")
	require.NoError(t, err)
	_, err = runConfig(v)
	assert.Error(t, err)
}

func TestRunConfigRejectsSessionSeparator(t *testing.T) {
	v, err := newViper(testCommand(t, "--benchmark-id", "lab/2"), "")
	require.NoError(t, err)
	_, err = runConfig(v)
	assert.ErrorIs(t, err, benchmark.ErrInvalidSession)
}

func TestNewViperMissingConfig(t *testing.T) {
	_, err := newViper(testCommand(t), filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

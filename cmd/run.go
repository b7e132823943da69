package cmd

import (
	"github.com/spf13/cobra"
	"github.com/tclemos/matter-bench/benchmark"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one Matter OSI research session (the default command)",
	RunE:  runSession,
}

func runSession(cmd *cobra.Command, args []string) error {
	v, err := newViper(cmd, cfgFile)
	if err != nil {
		return err
	}
	cfg, err := runConfig(v)
	if err != nil {
		return err
	}
	return benchmark.RunBenchmark(cmd.Context(), cfg)
}

func init() {
	rootCmd.AddCommand(runCmd)
	addRunFlags(runCmd)
}

func addRunFlags(cmd *cobra.Command) {
	def := benchmark.DefaultConfig()

	cmd.Flags().String("output", def.OutputFile, "CSV file research rows are appended to")
	cmd.Flags().Uint64("node-id", def.NodeID, "Node ID of the simulated device")
	cmd.Flags().String("device-name", def.DeviceName, "Name of the simulated device")
	cmd.Flags().Int64("seed", 0, "Seed for temperature and level values (0 for time based)")
	cmd.Flags().String("benchmark-id", "", "Session ID tag for logs and the record store (default: new ULID)")

	// Record store flags
	cmd.Flags().String("store", "", "Record store backend: 'pebble', 'memory' or empty to disable")
	cmd.Flags().String("store-path", "", "Path of the pebble record store")
	cmd.Flags().Int64("block-cache-size", def.BlockCacheSize, "Pebble block cache size in bytes (negative for disabled)")

	cmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9102)")
}

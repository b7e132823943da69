package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tclemos/matter-bench/benchmark"
)

// summaryCmd analyses previously collected research data
var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Summarise collected research data from the CSV file or the record store",
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := newViper(cmd, cfgFile)
		if err != nil {
			return err
		}
		if err := benchmark.SetupLog(v.GetString("log-format"), v.GetString("log-level")); err != nil {
			return err
		}

		records, err := loadRecords(v)
		if err != nil {
			return err
		}

		s, err := benchmark.Summarize(records)
		if err != nil {
			return err
		}
		s.Log()
		return nil
	},
}

func loadRecords(v *viper.Viper) ([]benchmark.Metrics, error) {
	storePath := v.GetString("store-path")
	if storePath == "" {
		return benchmark.ReadCSV(v.GetString("input"))
	}

	store, err := benchmark.NewPebbleStore(benchmark.StoreConfig{
		Type:           benchmark.StoreTypePebble,
		Path:           storePath,
		ReadOnly:       true,
		BlockCacheSize: -1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open record store: %w", err)
	}
	defer store.Close()

	return store.Records(v.GetString("session"))
}

func init() {
	rootCmd.AddCommand(summaryCmd)

	summaryCmd.Flags().String("input", benchmark.DefaultOutputFile, "CSV file to summarise")
	summaryCmd.Flags().String("store-path", "", "Read records from this pebble store instead of the CSV file")
	summaryCmd.Flags().String("session", "", "Only summarise this session from the record store (default: all)")
}

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tclemos/matter-bench/benchmark"
)

const envPrefix = "MATTER_BENCH"

// newViper layers defaults, the optional config file, MATTER_BENCH_* env vars
// and the command's flags, in increasing priority.
func newViper(cmd *cobra.Command, configFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	model := benchmark.DefaultOverheadModel()
	v.SetDefault("overhead.transport", model.Transport)
	v.SetDefault("overhead.session", model.Session)
	v.SetDefault("overhead.application", model.Application)
	v.SetDefault("overhead.tlv_base", model.TLVBase)
	v.SetDefault("overhead.structure_divisor", model.StructureDivisor)
	v.SetDefault("overhead.compression_divisor", model.CompressionDivisor)
	v.SetDefault("overhead.presentation_floor", model.PresentationFloor)

	if err := v.BindEnv("log-level", envPrefix+"_LOG_LEVEL", "LOG_LEVEL"); err != nil {
		return nil, err
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", configFile, err)
		}
	}

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}
	return v, nil
}

// runConfig maps the layered settings onto a benchmark.Config
func runConfig(v *viper.Viper) (benchmark.Config, error) {
	cfg := benchmark.DefaultConfig()

	cfg.NodeID = v.GetUint64("node-id")
	cfg.DeviceName = v.GetString("device-name")
	cfg.OutputFile = v.GetString("output")
	cfg.Seed = v.GetInt64("seed")
	cfg.BenchmarkID = v.GetString("benchmark-id")
	cfg.LogFormat = v.GetString("log-format")
	cfg.LogLevel = v.GetString("log-level")
	cfg.StoreType = v.GetString("store")
	cfg.StorePath = v.GetString("store-path")
	cfg.BlockCacheSize = v.GetInt64("block-cache-size")
	cfg.MetricsAddr = v.GetString("metrics-addr")

	cfg.Model = benchmark.OverheadModel{
		Transport:          v.GetInt("overhead.transport"),
		Session:            v.GetInt("overhead.session"),
		Application:        v.GetInt("overhead.application"),
		TLVBase:            v.GetInt("overhead.tlv_base"),
		StructureDivisor:   v.GetInt("overhead.structure_divisor"),
		CompressionDivisor: v.GetInt("overhead.compression_divisor"),
		PresentationFloor:  v.GetInt("overhead.presentation_floor"),
	}
	if err := cfg.Model.Validate(); err != nil {
		return cfg, err
	}

	if err := benchmark.ValidateSessionID(cfg.BenchmarkID); err != nil {
		return cfg, err
	}
	if cfg.StoreType == string(benchmark.StoreTypePebble) && cfg.StorePath == "" {
		return cfg, fmt.Errorf("--store-path is required with --store=pebble")
	}
	return cfg, nil
}

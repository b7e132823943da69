package benchmark

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// ResearchCycles is the number of operation cycles in one session
	ResearchCycles = 50

	// DefaultOutputFile is where research rows are appended
	DefaultOutputFile = "matter_research_data.csv"

	progressEvery = 10
)

// ErrCounterExhausted is returned when the message counter would wrap around
var ErrCounterExhausted = errors.New("message counter exhausted")

// Config defines the benchmark parameters passed from CLI
type Config struct {
	NodeID      uint64        // node identifier of the simulated device
	DeviceName  string        // human-readable device name
	OutputFile  string        // CSV file rows are appended to
	Seed        int64         // RNG seed, 0 picks a time based seed
	BenchmarkID string        // optional label for this session, a ULID when empty
	LogFormat   string        // "json" or "console", default is "console"
	LogLevel    string        // zerolog level name, default is "info"
	Model       OverheadModel // per-layer overhead constants

	// Record store configuration
	StoreType      string // "", "pebble" or "memory"
	StorePath      string // path to the pebble directory
	BlockCacheSize int64  // in bytes, negative means disabled

	MetricsAddr string // serve Prometheus metrics on this address when set
}

// DefaultConfig returns the compiled-in research configuration
func DefaultConfig() Config {
	return Config{
		NodeID:         DefaultNodeID,
		DeviceName:     DefaultDeviceName,
		OutputFile:     DefaultOutputFile,
		LogFormat:      "console",
		LogLevel:       "info",
		Model:          DefaultOverheadModel(),
		BlockCacheSize: 8 << 20,
	}
}

// RunBenchmark orchestrates a full research session
func RunBenchmark(ctx context.Context, cfg Config) error {
	if err := SetupLog(cfg.LogFormat, cfg.LogLevel); err != nil {
		return err
	}
	if cfg.BenchmarkID == "" {
		cfg.BenchmarkID = ulid.Make().String()
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	initialLog(cfg)

	store, err := NewRecordStore(StoreConfig{
		Type:           StoreType(cfg.StoreType),
		Path:           cfg.StorePath,
		BlockCacheSize: cfg.BlockCacheSize,
	})
	if err != nil {
		return fmt.Errorf("failed to create record store: %w", err)
	}
	if store != nil {
		defer store.Close()
	}

	var exporter *Exporter
	if cfg.MetricsAddr != "" {
		exporter = NewExporter()
		serveCtx, stop := context.WithCancel(ctx)
		defer stop()
		go func() {
			if err := exporter.Serve(serveCtx, cfg.MetricsAddr); err != nil {
				log.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	client, err := NewClient(ClientConfig{
		Device:    NewDevice(cfg.NodeID, cfg.DeviceName),
		Model:     cfg.Model,
		Rand:      rand.New(rand.NewSource(cfg.Seed)),
		Output:    cfg.OutputFile,
		SessionID: cfg.BenchmarkID,
		Store:     store,
		Exporter:  exporter,
	})
	if err != nil {
		return err
	}

	runErr := client.Run(ctx)

	if store != nil {
		if err := store.Flush(); err != nil {
			log.Error().Err(err).Msg("Flush failed")
			return errors.Join(runErr, err)
		}
		if ps, ok := store.(*PebbleStore); ok {
			stats := ps.Stats()
			log.Info().
				Uint64("memtable_size", stats.MemTableSize).
				Int64("flushes", stats.FlushOps).
				Int64("compactions", stats.CompactionOps).
				Int64("cache_hits", stats.CacheHits).
				Int64("cache_misses", stats.CacheMisses).
				Msg("Record store stats")
		}
	}
	if runErr != nil {
		return runErr
	}

	log.Info().Str("benchmark_id", cfg.BenchmarkID).Msg("Benchmark complete")
	return nil
}

func initialLog(cfg Config) {
	store := cfg.StoreType
	if store == "" {
		store = "disabled"
	}

	log.Info().
		Str("benchmark_id", cfg.BenchmarkID).
		Str("device", cfg.DeviceName).
		Str("node_id", fmt.Sprintf("0x%016X", cfg.NodeID)).
		Str("output", cfg.OutputFile).
		Int64("seed", cfg.Seed).
		Int("cycles", ResearchCycles).
		Str("record_store", store).
		Str("metrics_addr", cfg.MetricsAddr).
		Msg("Starting Matter OSI research session")
}

// SetupLog configures the global logger format and level
func SetupLog(format, level string) error {
	if level == "" {
		level = "info"
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(lvl)

	if strings.ToLower(format) == "json" {
		zerolog.TimeFieldFormat = time.RFC3339Nano
		log.Logger = log.Output(os.Stdout)
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"})
	}
	return nil
}

// ClientConfig holds everything a Client needs
type ClientConfig struct {
	Device    Device
	Model     OverheadModel
	Rand      *rand.Rand
	Output    string
	SessionID string
	Store     RecordStore // optional
	Exporter  *Exporter   // optional
}

// Client drives the research session for one simulated device
type Client struct {
	device    Device
	model     OverheadModel
	rng       *rand.Rand
	output    string
	sessionID string
	store     RecordStore
	exporter  *Exporter

	counter uint32

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// NewClient validates the configuration and creates a Client
func NewClient(cfg ClientConfig) (*Client, error) {
	if err := cfg.Model.Validate(); err != nil {
		return nil, err
	}
	if cfg.Store != nil {
		if err := ValidateSessionID(cfg.SessionID); err != nil {
			return nil, err
		}
	}
	if cfg.Output == "" {
		cfg.Output = DefaultOutputFile
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	return &Client{
		device:    cfg.Device,
		model:     cfg.Model,
		rng:       cfg.Rand,
		output:    cfg.Output,
		sessionID: cfg.SessionID,
		store:     cfg.Store,
		exporter:  cfg.Exporter,
		sleep:     sleepContext,
		now:       time.Now,
	}, nil
}

// MessageCounter returns the id of the last record built
func (c *Client) MessageCounter() uint32 {
	return c.counter
}

// Run commissions the device and then repeats the operation cycle
// ResearchCycles times. The first reporting error aborts the session.
func (c *Client) Run(ctx context.Context) error {
	log.Info().
		Str("device", c.device.Name).
		Str("node_id", fmt.Sprintf("0x%016X", c.device.NodeID)).
		Str("output", c.output).
		Msg("Matter protocol client started")

	if err := c.Step(ctx, CommissioningOperation{}); err != nil {
		return err
	}

	for cycle := 1; cycle <= ResearchCycles; cycle++ {
		log.Info().Int("cycle", cycle).Int("of", ResearchCycles).Msg("Research cycle")

		for _, t := range cycleOperations {
			op, err := CreateOperation(t)
			if err != nil {
				return err
			}
			if err := c.Step(ctx, op); err != nil {
				return err
			}
		}

		if cycle%progressEvery == 0 {
			log.Info().
				Int("percent", cycle*100/ResearchCycles).
				Msg("Research progress")
		}
	}

	log.Info().
		Uint32("messages", c.counter).
		Str("output", c.output).
		Msg("Research data collection completed")
	return nil
}

// Step builds, reports and then waits out one operation
func (c *Client) Step(ctx context.Context, op Operation) error {
	m, err := c.Analyze(op)
	if err != nil {
		return err
	}
	if err := c.report(m); err != nil {
		return err
	}

	if d := op.Delay(); d > 0 {
		return c.sleep(ctx, d)
	}
	return ctx.Err()
}

// Analyze builds the operation payload and the record for it
func (c *Client) Analyze(op Operation) (Metrics, error) {
	if c.counter == math.MaxUint32 {
		return Metrics{}, ErrCounterExhausted
	}

	payload := op.Build(c.device, c.rng)
	c.counter++
	m := c.model.Build(c.counter, op.Type(), payload.Bytes, c.now())

	log.Info().
		Fields(payload.Fields).
		Str("operation", op.Name()).
		Uint32("message_id", m.MessageID).
		Msg("Operation analysis")
	return m, nil
}

func (c *Client) report(m Metrics) error {
	m.LogDetailed()

	if err := m.AppendCSV(c.output); err != nil {
		return fmt.Errorf("message %d: %w", m.MessageID, err)
	}
	if c.store != nil {
		if err := c.store.Put(c.sessionID, m); err != nil {
			return fmt.Errorf("message %d: failed to store record: %w", m.MessageID, err)
		}
	}
	if c.exporter != nil {
		c.exporter.Observe(m)
	}
	return nil
}

// sleepContext waits for d unless ctx is done first
func sleepContext(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

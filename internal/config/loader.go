package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ErrHelpRequested is returned when the user requests help via --help.
var ErrHelpRequested = errors.New("help requested")

// Loader handles loading configuration from files and command-line flags.
type Loader struct{}

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses command-line arguments and an optional config file (JSON or
// YAML via --config) into a Config. Precedence: defaults, then file values,
// then explicit flags.
func (Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flags := cmd.Flags()
	if helpFlag := flags.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}

	cfg := Default()

	configPath, _ := flags.GetString("config")
	if configPath != "" {
		v := viper.New()
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
		if err := v.Unmarshal(cfg); err != nil {
			return nil, err
		}
		cfg.ConfigFile = configPath
	}

	applyFlagOverrides(cfg, flags)
	return cfg, nil
}

// RegisterFlags registers all CLI flags on a cobra command.
func RegisterFlags(cmd *cobra.Command) {
	configureFlags(cmd.Flags())
}

func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "reqlens",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

func configureFlags(flags *pflag.FlagSet) {
	d := Default()

	// Engine capacity flags
	flags.Int("ring-capacity", d.RingCapacity, "Recent events retained per stream")
	flags.Int("sketch-sig-figs", d.SketchSigFigs, "Latency histogram precision (1-5 significant figures)")
	flags.Int64("max-track-ms", d.MaxTrackMs, "Highest trackable latency in milliseconds")
	flags.Bool("enable-query-metrics", false, "Profile database queries on an independent stream")
	flags.Int("max-events-per-sec", 0, "Shed profiling events above this rate (0 means unlimited)")

	// Dashboard flags
	flags.String("addr", d.Dashboard.Addr, "Listen address for the demo service and dashboard")
	flags.String("base-path", d.Dashboard.BasePath, "URL prefix the dashboard is mounted under")
	flags.Duration("live-interval", d.Dashboard.LiveInterval, "Interval between websocket live-feed frames")

	// Health flags
	flags.StringSlice("threshold", nil, "Performance assertion, e.g. 'http_req_duration:p95 < 200' (repeatable)")

	// Tracing flags
	flags.String("tracing-endpoint", "", "OTLP endpoint for request spans (empty disables tracing)")
	flags.String("tracing-protocol", d.Tracing.Protocol, "OTLP protocol: grpc or http")
	flags.Bool("tracing-insecure", false, "Skip TLS verification for the OTLP exporter")

	// Demo flags
	flags.Bool("demo-traffic", false, "Generate traffic against the demo service")
	flags.Int("demo-rate", d.Demo.RateRPS, "Demo traffic rate in requests per second")
	flags.Int("demo-workers", d.Demo.Workers, "Demo traffic worker count")

	flags.String("log-level", d.LogLevel, "Log level: debug, info, warn, or error")
	flags.String("config", "", "Path to configuration file (JSON or YAML)")
	flags.Bool("init-config", false, "Write an example YAML config to stdout and exit")
}

// applyFlagOverrides copies explicitly set flags over file/default values.
func applyFlagOverrides(cfg *Config, flags *pflag.FlagSet) {
	set := func(name string, apply func()) {
		if flags.Changed(name) {
			apply()
		}
	}

	set("ring-capacity", func() { cfg.RingCapacity, _ = flags.GetInt("ring-capacity") })
	set("sketch-sig-figs", func() { cfg.SketchSigFigs, _ = flags.GetInt("sketch-sig-figs") })
	set("max-track-ms", func() { cfg.MaxTrackMs, _ = flags.GetInt64("max-track-ms") })
	set("enable-query-metrics", func() { cfg.EnableQueryMetrics, _ = flags.GetBool("enable-query-metrics") })
	set("max-events-per-sec", func() { cfg.MaxEventsPerSec, _ = flags.GetInt("max-events-per-sec") })
	set("threshold", func() { cfg.Thresholds, _ = flags.GetStringSlice("threshold") })
	set("log-level", func() { cfg.LogLevel, _ = flags.GetString("log-level") })

	set("addr", func() { cfg.Dashboard.Addr, _ = flags.GetString("addr") })
	set("base-path", func() { cfg.Dashboard.BasePath, _ = flags.GetString("base-path") })
	set("live-interval", func() {
		if d, err := flags.GetDuration("live-interval"); err == nil && d > 0 {
			cfg.Dashboard.LiveInterval = d
		}
	})

	set("tracing-endpoint", func() { cfg.Tracing.Endpoint, _ = flags.GetString("tracing-endpoint") })
	set("tracing-protocol", func() { cfg.Tracing.Protocol, _ = flags.GetString("tracing-protocol") })
	set("tracing-insecure", func() { cfg.Tracing.Insecure, _ = flags.GetBool("tracing-insecure") })

	set("demo-traffic", func() { cfg.Demo.Traffic, _ = flags.GetBool("demo-traffic") })
	set("demo-rate", func() { cfg.Demo.RateRPS, _ = flags.GetInt("demo-rate") })
	set("demo-workers", func() { cfg.Demo.Workers, _ = flags.GetInt("demo-workers") })
}

// WantsExampleConfig reports whether --init-config was requested.
func WantsExampleConfig(args []string) bool {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		return false
	}
	want, _ := cmd.Flags().GetBool("init-config")
	return want
}

func displayHelp(cmd *cobra.Command) {
	cmd.SetOut(os.Stdout)
	_ = cmd.Usage()
}

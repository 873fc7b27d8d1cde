// Package config loads and validates profiler configuration from files and
// command-line flags.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds every recognized option. Capacities are fixed at startup;
// the engine never resizes under load.
type Config struct {
	// RingCapacity bounds each recent-event stream (requests, queries).
	RingCapacity int `mapstructure:"ring_capacity"`
	// SketchSigFigs is the latency histogram precision (1..5).
	SketchSigFigs int `mapstructure:"sketch_sig_figs"`
	// MaxTrackMs is the highest latency the sketches track, in milliseconds.
	MaxTrackMs int64 `mapstructure:"max_track_ms"`
	// EnableQueryMetrics activates the database query stream.
	EnableQueryMetrics bool `mapstructure:"enable_query_metrics"`
	// MaxEventsPerSec sheds profiling events above this rate (0 = unlimited).
	// Shed requests are still served, just not profiled.
	MaxEventsPerSec int `mapstructure:"max_events_per_sec"`
	// Thresholds are performance assertions surfaced on the health endpoint.
	Thresholds []string `mapstructure:"thresholds"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"log_level"`

	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Demo      DemoConfig      `mapstructure:"demo"`

	ConfigFile string `mapstructure:"-"`
}

// DashboardConfig controls the operator dashboard server.
type DashboardConfig struct {
	Addr         string        `mapstructure:"addr"`
	BasePath     string        `mapstructure:"base_path"`
	LiveInterval time.Duration `mapstructure:"live_interval"`
}

// TracingConfig controls the optional OpenTelemetry exporter.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // "grpc" or "http"
	Insecure    bool    `mapstructure:"insecure"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

// Enabled reports whether an exporter endpoint is configured.
func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != ""
}

// DemoConfig controls the demo binary's self-generated traffic.
type DemoConfig struct {
	Traffic bool `mapstructure:"traffic"`
	RateRPS int  `mapstructure:"rate"`
	Workers int  `mapstructure:"workers"`
}

// Default returns the configuration used when nothing is specified.
func Default() *Config {
	return &Config{
		RingCapacity:  1000,
		SketchSigFigs: 3,
		MaxTrackMs:    60_000,
		LogLevel:      "info",
		Dashboard: DashboardConfig{
			Addr:         ":8080",
			BasePath:     "/profiler",
			LiveInterval: 2 * time.Second,
		},
		Tracing: TracingConfig{
			Protocol:   "grpc",
			SampleRate: 1.0,
		},
		Demo: DemoConfig{
			RateRPS: 20,
			Workers: 4,
		},
	}
}

// ValidationError aggregates every configuration issue found.
type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

// Issues returns a copy of the individual problems.
func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

// Validate checks every option and reports all issues at once.
func (c Config) Validate() error {
	var issues []string

	if c.RingCapacity < 1 {
		issues = append(issues, "ring_capacity must be >= 1")
	}
	if c.SketchSigFigs < 1 || c.SketchSigFigs > 5 {
		issues = append(issues, "sketch_sig_figs must be between 1 and 5")
	}
	if c.MaxTrackMs <= 0 {
		issues = append(issues, "max_track_ms must be > 0")
	}
	if c.MaxEventsPerSec < 0 {
		issues = append(issues, "max_events_per_sec must be >= 0")
	}
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "", "debug", "info", "warn", "error":
	default:
		issues = append(issues, fmt.Sprintf("log_level %q is not supported", c.LogLevel))
	}

	if strings.TrimSpace(c.Dashboard.Addr) == "" {
		issues = append(issues, "dashboard.addr is required")
	}
	if c.Dashboard.BasePath != "" && !strings.HasPrefix(c.Dashboard.BasePath, "/") {
		issues = append(issues, "dashboard.base_path must start with '/'")
	}
	if c.Dashboard.LiveInterval < 100*time.Millisecond {
		issues = append(issues, "dashboard.live_interval must be >= 100ms")
	}

	if c.Tracing.Enabled() {
		switch strings.ToLower(c.Tracing.Protocol) {
		case "", "grpc", "http":
		default:
			issues = append(issues, fmt.Sprintf("tracing.protocol %q is not supported (use grpc or http)", c.Tracing.Protocol))
		}
		if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1.0 {
			issues = append(issues, "tracing.sample_rate must be between 0.0 and 1.0")
		}
	}

	if c.Demo.Traffic {
		if c.Demo.RateRPS < 1 {
			issues = append(issues, "demo.rate must be >= 1 when demo traffic is enabled")
		}
		if c.Demo.Workers < 1 {
			issues = append(issues, "demo.workers must be >= 1 when demo traffic is enabled")
		}
	}

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

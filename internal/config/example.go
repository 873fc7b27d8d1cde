package config

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// exampleConfig mirrors Config with yaml tags so WriteExample emits keys in
// the same spelling the file loader accepts.
type exampleConfig struct {
	RingCapacity       int      `yaml:"ring_capacity"`
	SketchSigFigs      int      `yaml:"sketch_sig_figs"`
	MaxTrackMs         int64    `yaml:"max_track_ms"`
	EnableQueryMetrics bool     `yaml:"enable_query_metrics"`
	MaxEventsPerSec    int      `yaml:"max_events_per_sec"`
	Thresholds         []string `yaml:"thresholds"`
	LogLevel           string   `yaml:"log_level"`
	Dashboard          struct {
		Addr         string `yaml:"addr"`
		BasePath     string `yaml:"base_path"`
		LiveInterval string `yaml:"live_interval"`
	} `yaml:"dashboard"`
	Tracing struct {
		Endpoint    string  `yaml:"endpoint"`
		Protocol    string  `yaml:"protocol"`
		Insecure    bool    `yaml:"insecure"`
		ServiceName string  `yaml:"service_name"`
		SampleRate  float64 `yaml:"sample_rate"`
	} `yaml:"tracing"`
}

// WriteExample writes a commented YAML config with every recognized option
// at its default value.
func WriteExample(w io.Writer) error {
	d := Default()

	ex := exampleConfig{
		RingCapacity:       d.RingCapacity,
		SketchSigFigs:      d.SketchSigFigs,
		MaxTrackMs:         d.MaxTrackMs,
		EnableQueryMetrics: d.EnableQueryMetrics,
		MaxEventsPerSec:    d.MaxEventsPerSec,
		Thresholds:         []string{"http_req_duration:p95 < 500", "http_req_failed:rate < 0.01"},
		LogLevel:           d.LogLevel,
	}
	ex.Dashboard.Addr = d.Dashboard.Addr
	ex.Dashboard.BasePath = d.Dashboard.BasePath
	ex.Dashboard.LiveInterval = d.Dashboard.LiveInterval.String()
	ex.Tracing.Protocol = d.Tracing.Protocol
	ex.Tracing.SampleRate = d.Tracing.SampleRate

	if _, err := fmt.Fprintln(w, "# reqlens configuration (defaults shown)"); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(ex); err != nil {
		return err
	}
	return enc.Close()
}

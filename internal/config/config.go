// Package config loads the pipeline settings file. The file mirrors the
// deployment's settings.yml; environment variables override connection
// fields and CLI flags override everything.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"commodity-cpi/internal/cpi"
	"commodity-cpi/pkg/platform"
)

const dateFormat = "2006-01-02"

// Settings is the full configuration surface consumed by the pipeline.
type Settings struct {
	ClickHouse ClickHouseSettings `yaml:"clickhouse"`
	Postgres   PostgresSettings   `yaml:"postgres"`
	Windows    WindowSettings     `yaml:"windows"`
	// Tier selects the hierarchy level whose categories carry weights.
	Tier   string         `yaml:"tier"`
	Output OutputSettings `yaml:"output"`
}

type ClickHouseSettings struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// PostgresSettings configures the optional relational weight provider. An
// empty DSN means weights come from the analytical store.
type PostgresSettings struct {
	WeightDSN string `yaml:"weight_dsn"`
}

type WindowSettings struct {
	BaseStart     string `yaml:"base_start"`
	BaseEnd       string `yaml:"base_end"`
	AnalysisStart string `yaml:"analysis_start"`
	AnalysisEnd   string `yaml:"analysis_end"`
}

type OutputSettings struct {
	Dir string `yaml:"dir"`
}

// Default returns the settings used when no file is present.
func Default() *Settings {
	return &Settings{
		ClickHouse: ClickHouseSettings{
			Host:     "localhost",
			Port:     9000,
			Database: "commodity",
			User:     "default",
		},
		Windows: WindowSettings{
			BaseStart:     "2025-05-17",
			BaseEnd:       "2026-05-17",
			AnalysisStart: "2025-05-17",
			AnalysisEnd:   "2028-05-15",
		},
		Tier:   "3",
		Output: OutputSettings{Dir: "output"},
	}
}

// Load reads settings from path, falling back to defaults when the file does
// not exist, then applies environment overrides.
func Load(path string) (*Settings, error) {
	s := Default()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	s.ClickHouse.Host = platform.GetEnv("CLICKHOUSE_HOST", s.ClickHouse.Host)
	s.ClickHouse.Port = platform.GetEnvInt("CLICKHOUSE_PORT", s.ClickHouse.Port)
	s.ClickHouse.Database = platform.GetEnv("CLICKHOUSE_DATABASE", s.ClickHouse.Database)
	s.ClickHouse.User = platform.GetEnv("CLICKHOUSE_USER", s.ClickHouse.User)
	s.ClickHouse.Password = platform.GetEnv("CLICKHOUSE_PASSWORD", s.ClickHouse.Password)
	s.Postgres.WeightDSN = platform.GetEnv("WEIGHT_DSN", s.Postgres.WeightDSN)

	return s, nil
}

// Params builds pipeline parameters from the configured windows and tier.
func (s *Settings) Params() (cpi.Params, error) {
	base, err := parseWindow(s.Windows.BaseStart, s.Windows.BaseEnd)
	if err != nil {
		return cpi.Params{}, fmt.Errorf("invalid base window: %w", err)
	}
	analysis, err := parseWindow(s.Windows.AnalysisStart, s.Windows.AnalysisEnd)
	if err != nil {
		return cpi.Params{}, fmt.Errorf("invalid analysis window: %w", err)
	}
	return cpi.Params{
		BaseWindow:     base,
		AnalysisWindow: analysis,
		Tier:           s.Tier,
	}, nil
}

func parseWindow(start, end string) (cpi.Window, error) {
	s, err := time.Parse(dateFormat, start)
	if err != nil {
		return cpi.Window{}, fmt.Errorf("bad start date %q: %w", start, err)
	}
	e, err := time.Parse(dateFormat, end)
	if err != nil {
		return cpi.Window{}, fmt.Errorf("bad end date %q: %w", end, err)
	}
	if e.Before(s) {
		return cpi.Window{}, fmt.Errorf("window end %s precedes start %s", end, start)
	}
	return cpi.Window{Start: s, End: e}, nil
}

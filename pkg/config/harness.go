package config

import (
	"fmt"
	"os"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// HarnessConfig is the process-wide configuration layer: everything that
// isn't re-derived per run. Loaded from an optional YAML file, then the
// environment variables are layered on top (env always wins over the
// YAML-loaded value, an override-after-parse idiom).
type HarnessConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	ReportDir string `yaml:"report_dir"`
	KeepLastN int    `yaml:"keep_last_n"`

	MetricsAddr string `yaml:"metrics_addr"`
}

// DefaultHarnessConfig returns the harness's baseline configuration, with
// paths resolved through adrg/xdg instead of a hardcoded "./reports".
func DefaultHarnessConfig() *HarnessConfig {
	reportDir, err := xdg.DataFile("dst-sim/reports/.keep")
	if err != nil {
		reportDir = "./reports"
	} else {
		reportDir = reportDir[:len(reportDir)-len("/.keep")]
	}
	return &HarnessConfig{
		LogLevel:  "info",
		LogFormat: "text",
		ReportDir: reportDir,
		KeepLastN: 50,
	}
}

// LoadHarnessConfig loads a YAML file if present, falling back to the
// default when path is empty or does not exist.
func LoadHarnessConfig(path string) (*HarnessConfig, error) {
	cfg := DefaultHarnessConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read harness config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse harness config: %w", err)
	}
	return cfg, nil
}

func (c *HarnessConfig) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal harness config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

func (c *HarnessConfig) Validate() error {
	if c.ReportDir == "" {
		return fmt.Errorf("report_dir is required")
	}
	if c.KeepLastN < 0 {
		return fmt.Errorf("keep_last_n must be >= 0")
	}
	return nil
}

// ApplyEnv layers §6.1's environment overrides that affect ambient
// behaviour (as opposed to SimConfig) on top of the YAML-loaded config.
func (c *HarnessConfig) ApplyEnv(env *EnvOverrides) {
	if env.LogSpec != "" {
		c.LogLevel = env.LogSpec
	}
}

package roiconv

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config is the roiconv configuration loaded from YAML. Command line flags override it.
type Config struct {
	// Style defaults substituted for absent shape style attributes.
	Style Style `yaml:"style"`

	// Image processing defaults
	Processing struct {
		Encoding           string `yaml:"encoding"`
		JPEGQuality        int    `yaml:"jpegQuality"`
		DownsamplingFilter string `yaml:"downsamplingFilter"`
		UpsamplingFilter   string `yaml:"upsamplingFilter"`

		// Workers is the number of images processed concurrently.
		Workers int `yaml:"workers"`
	} `yaml:"processing"`

	// Output defaults
	Output struct {
		// NumShards is the number of TFRecord shard files.
		NumShards int `yaml:"numShards"`

		// FillStyle writes the resolved style of every shape instead of leaving absent
		// attributes absent.
		FillStyle bool `yaml:"fillStyle"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{Style: DefaultStyle()}

	cfg.Processing.Encoding = "jpg"
	cfg.Processing.JPEGQuality = 90
	cfg.Processing.DownsamplingFilter = "box"
	cfg.Processing.UpsamplingFilter = "linear"
	cfg.Processing.Workers = 2 * runtime.NumCPU()

	cfg.Output.NumShards = 1

	return cfg
}

// ProcessOptions returns the image processing options configured in cfg.
func (cfg *Config) ProcessOptions() ProcessOptions {
	return ProcessOptions{
		DownsamplingFilter: cfg.Processing.DownsamplingFilter,
		UpsamplingFilter:   cfg.Processing.UpsamplingFilter,
		Encoding:           cfg.Processing.Encoding,
		JPEGQuality:        cfg.Processing.JPEGQuality,
		Workers:            cfg.Processing.Workers,
	}
}

// LoadConfig loads configuration from a YAML file.
// If the file doesn't exist, it returns the default configuration.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file.
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

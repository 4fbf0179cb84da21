package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// fileHeader holds the keys that steer how a configuration file is applied.
type fileHeader struct {
	Preset           string `yaml:"preset" json:"preset"`
	EffectiveRowBits *int   `yaml:"effective_row_bits" json:"effective_row_bits"`
}

// Load reads a YAML or JSON configuration file. The format follows the file
// extension. Keys that the file does not set keep their default values. A
// "preset" key selects the DRAM part before the device overrides apply.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var unmarshal func([]byte, any) error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		unmarshal = yaml.Unmarshal
	case ".json":
		unmarshal = json.Unmarshal
	default:
		return nil, fmt.Errorf("%w: unsupported config file %q",
			ErrInvalidValue, path)
	}

	return parse(data, unmarshal)
}

// Parse reads a YAML document as Load does.
func Parse(data []byte) (*Config, error) {
	return parse(data, yaml.Unmarshal)
}

func parse(data []byte, unmarshal func([]byte, any) error) (*Config, error) {
	header := fileHeader{}
	if err := unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}

	c := Default()

	if header.Preset != "" {
		d, err := Preset(header.Preset)
		if err != nil {
			return nil, err
		}

		c.Device = d
	}

	if err := unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}

	if header.EffectiveRowBits == nil {
		c.EffectiveRowBits = log2(c.Device.NumRows)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return &c, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

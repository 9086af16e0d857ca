package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// yamlPreset mirrors Defaults with pointers so unset keys keep the current value
type yamlPreset struct {
	BPM       *float64 `yaml:"bpm"`
	PPQ       *int     `yaml:"ppq"`
	Frequency *string  `yaml:"frequency"`
	Amplitude *int     `yaml:"amplitude"`
	Depth     *int     `yaml:"depth"`
	Width     *int     `yaml:"width"`
	Bipolar   *bool    `yaml:"bipolar"`
}

// ApplyPreset overlays the keys present in a YAML preset file on the defaults
func (c *Config) ApplyPreset(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read preset file: %w", err)
	}

	var p yamlPreset
	if err := yaml.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("failed to parse preset file: %w", err)
	}

	d := &c.Defaults
	if p.BPM != nil {
		d.BPM = *p.BPM
	}
	if p.PPQ != nil {
		d.PPQ = *p.PPQ
	}
	if p.Frequency != nil {
		d.Frequency = *p.Frequency
	}
	if p.Amplitude != nil {
		d.Amplitude = *p.Amplitude
	}
	if p.Depth != nil {
		d.Depth = *p.Depth
	}
	if p.Width != nil {
		d.Width = *p.Width
	}
	if p.Bipolar != nil {
		d.Bipolar = *p.Bipolar
	}
	c.PresetPath = path
	return nil
}

// MarshalPreset renders defaults as a YAML preset
func MarshalPreset(d Defaults) ([]byte, error) {
	return yaml.Marshal(d)
}

package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"retrocrop/host/serial"
)

// Config is the host tool configuration. Command line flags override it.
type Config struct {
	Serial  serial.Config `yaml:"serial"`
	Monitor MonitorConfig `yaml:"monitor"`

	// Timeout bounds each command's ACK wait, in milliseconds
	Timeout int `yaml:"timeout_ms"`
}

// MonitorConfig configures the Prometheus exporter
type MonitorConfig struct {
	Listen   string `yaml:"listen"`
	Interval int    `yaml:"interval_ms"`
}

func defaultConfig() *Config {
	return &Config{
		Serial: *serial.DefaultConfig("/dev/ttyUSB0"),
		Monitor: MonitorConfig{
			Listen:   ":9464",
			Interval: 1000,
		},
		Timeout: 2000,
	}
}

// LoadConfig reads a YAML file over the defaults
func LoadConfig(filename string) (*Config, error) {
	config := defaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", filename, err)
	}
	return config, nil
}

// Validate checks the settings that have no usable fallback
func (c *Config) Validate() error {
	if err := c.Serial.Validate(); err != nil {
		return err
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout_ms must be positive")
	}
	if c.Monitor.Interval <= 0 {
		return fmt.Errorf("monitor.interval_ms must be positive")
	}
	return nil
}

func (c *Config) timeout() time.Duration {
	return time.Duration(c.Timeout) * time.Millisecond
}

func (c *Config) interval() time.Duration {
	return time.Duration(c.Monitor.Interval) * time.Millisecond
}

package robot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// DefaultConfigFile is the config path used when none is given.
const DefaultConfigFile = "armconsole.json"

// DefaultBaudRate is the link speed the arm controller ships with.
const DefaultBaudRate = 115200

// Config holds the console configuration
type Config struct {
	Port     string  `json:"port" mapstructure:"port"`
	BaudRate int     `json:"baud_rate" mapstructure:"baud_rate"`
	Speed    float64 `json:"speed" mapstructure:"speed"`
	// Mode is the 1-based controller command mode sent on connect; 0 leaves it unchanged.
	Mode     int    `json:"mode,omitempty" mapstructure:"mode"`
	TraceDir string `json:"trace_dir,omitempty" mapstructure:"trace_dir"`
	Gains    Gains  `json:"gains,omitempty" mapstructure:"gains"`
}

// DefaultConfig returns the configuration used when no file exists
func DefaultConfig() *Config {
	return &Config{
		BaudRate: DefaultBaudRate,
		Speed:    DefaultSpeed,
	}
}

// IsConfigured returns true if a serial port has been chosen
func (c *Config) IsConfigured() bool {
	return c.Port != ""
}

// Validate checks the values the core relies on
func (c *Config) Validate() error {
	if c.BaudRate <= 0 {
		return fmt.Errorf("invalid baud rate %d", c.BaudRate)
	}
	if err := ValidateSpeed(c.Speed); err != nil {
		return err
	}
	if c.Mode < 0 {
		return fmt.Errorf("invalid mode %d", c.Mode)
	}
	return nil
}

// LoadConfigFrom loads configuration from a specific file.
// ARMCONSOLE_* environment variables override file values.
func LoadConfigFrom(path string) (*Config, error) {
	def := DefaultConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetDefault("port", def.Port)
	v.SetDefault("baud_rate", def.BaudRate)
	v.SetDefault("speed", def.Speed)
	v.SetDefault("mode", def.Mode)
	v.SetDefault("trace_dir", def.TraceDir)
	v.SetEnvPrefix("ARMCONSOLE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ConfigExists returns true if a config file exists at path
func ConfigExists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, os.ErrNotExist)
}

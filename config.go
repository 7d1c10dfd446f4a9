package main

import (
	"errors"
	"flag"
	"os"
	"strconv"
)

// Config holds the application configuration
type Config struct {
	// SerialPort is the path to the module's serial port (e.g. "/dev/ttyUSB0")
	SerialPort string
	// BaudRate is the baud rate for serial communication with the module (e.g. 115200)
	BaudRate int
	// URL is the remote firmware image to download through the module
	URL string
	// OutputFile is the local path the image is staged through
	OutputFile string
	// LogLevel sets the logging level (e.g. "debug", "info", "warn", "error")
	LogLevel string
	// LogFormat selects "text" or "json" output
	LogFormat string
	// HexDump enables a debug-level hex transcript of downloaded data
	HexDump bool
}

// validate checks the required values for non-emptiness. Missing values are
// fatal; there is no interactive prompting.
func (c *Config) validate() error {
	if c.SerialPort == "" {
		return errors.New("serial port is required")
	}
	if c.URL == "" {
		return errors.New("url is required")
	}
	if c.OutputFile == "" {
		return errors.New("output file is required")
	}
	return nil
}

// ConfigOption is a function that modifies a Config
type ConfigOption func(*Config) error

// LoadConfig creates a new config by applying the given options in order
func LoadConfig(opts ...ConfigOption) (*Config, error) {
	config := &Config{}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, err
		}
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// WithDefaults applies default configuration values
func WithDefaults() ConfigOption {
	return func(c *Config) error {
		c.BaudRate = 115200
		c.LogLevel = "info"
		c.LogFormat = "text"
		return nil
	}
}

// WithEnv loads configuration from environment variables
func WithEnv() ConfigOption {
	return func(c *Config) error {
		if serial := os.Getenv("SERIAL_PORT"); serial != "" {
			c.SerialPort = serial
		}

		if baud := os.Getenv("BAUD_RATE"); baud != "" {
			if b, err := strconv.Atoi(baud); err == nil {
				c.BaudRate = b
			}
		}

		if url := os.Getenv("FOTA_URL"); url != "" {
			c.URL = url
		}

		if out := os.Getenv("FOTA_OUTPUT"); out != "" {
			c.OutputFile = out
		}

		if level := os.Getenv("LOG_LEVEL"); level != "" {
			c.LogLevel = level
		}

		if format := os.Getenv("LOG_FORMAT"); format != "" {
			c.LogFormat = format
		}

		return nil
	}
}

// WithFlags loads configuration from command-line flags
func WithFlags(fSet *flag.FlagSet) ConfigOption {
	return func(c *Config) error {
		fSet.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "serial-port":
				c.SerialPort = f.Value.String()
			case "baud-rate":
				if b, err := strconv.Atoi(f.Value.String()); err == nil {
					c.BaudRate = b
				}
			case "url":
				c.URL = f.Value.String()
			case "output":
				c.OutputFile = f.Value.String()
			case "log-level":
				c.LogLevel = f.Value.String()
			case "log-format":
				c.LogFormat = f.Value.String()
			case "hex-dump":
				c.HexDump = f.Value.String() == "true"
			}
		})
		return nil
	}
}

package modem

import (
	"time"
)

// Config carries the session settings. Use NewConfigBuilder to construct one
// with validated defaults.
type Config struct {
	// Dialer opens the transport. Required.
	Dialer Dialer
	// QueueSize is the receive ring capacity in bytes.
	QueueSize int
	// ReadBufSize is the size of the reader goroutine's scratch buffer.
	ReadBufSize int
	// WriteTimeout bounds the single write performed by SendCommand.
	WriteTimeout time.Duration
	// CloseTimeout bounds how long Close waits for the reader goroutine.
	CloseTimeout time.Duration
}

func (c *Config) validate() error {
	if c.Dialer == nil {
		return ErrNoDialer
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.QueueSize == 0 {
		c.QueueSize = DefaultRingSize
	}
	if c.ReadBufSize == 0 {
		c.ReadBufSize = 256
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 2 * time.Second
	}
	if c.CloseTimeout == 0 {
		c.CloseTimeout = time.Second
	}
}

// ConfigBuilder assembles a Config fluently.
type ConfigBuilder struct {
	config Config
}

// NewConfigBuilder returns a builder pre-loaded with defaults.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{}
}

// WithDialer sets the transport dialer.
func (b *ConfigBuilder) WithDialer(d Dialer) *ConfigBuilder {
	b.config.Dialer = d
	return b
}

// WithQueueSize sets the receive ring capacity.
func (b *ConfigBuilder) WithQueueSize(n int) *ConfigBuilder {
	b.config.QueueSize = n
	return b
}

// WithWriteTimeout bounds command writes.
func (b *ConfigBuilder) WithWriteTimeout(t time.Duration) *ConfigBuilder {
	b.config.WriteTimeout = t
	return b
}

// WithCloseTimeout bounds reader shutdown.
func (b *ConfigBuilder) WithCloseTimeout(t time.Duration) *ConfigBuilder {
	b.config.CloseTimeout = t
	return b
}

// Build validates the assembled configuration and fills in defaults.
func (b *ConfigBuilder) Build() (Config, error) {
	config := b.config
	if err := config.validate(); err != nil {
		return Config{}, err
	}
	config.setDefaults()
	return config, nil
}

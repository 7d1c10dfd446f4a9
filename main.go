package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/phsym/console-slog"

	"i4.energy/across/fotaflash/fota"
	"i4.energy/across/fotaflash/modem"
)

func main() {
	flag.String("serial-port", "", "Serial port to connect to the module")
	flag.Int("baud-rate", 115200, "Baud rate for serial communication")
	flag.String("url", "", "HTTP URL of the firmware image to download")
	flag.String("output", "", "Local file the image is staged through")
	flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.String("log-format", "text", "Log format (text, json)")
	flag.Bool("hex-dump", false, "Log a hex transcript of downloaded data at debug level")
	flag.Parse()

	config, err := LoadConfig(WithDefaults(), WithEnv(), WithFlags(flag.CommandLine))
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := newLogger(config)

	modemConfig, err := modem.NewConfigBuilder().
		WithDialer(modem.SerialDialer{
			PortName: config.SerialPort,
			BaudRate: config.BaudRate,
		}).
		Build()
	if err != nil {
		logger.Error("Failed to create modem config", "error", err)
		os.Exit(1)
	}

	// One session per invocation; Ctrl-C cancels in-flight waits and the
	// deferred close tears the reader down before exit.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sess, err := modem.New(ctx, modemConfig)
	if err != nil {
		logger.Error("Failed to open serial port", "port", config.SerialPort, "error", err)
		os.Exit(1)
	}

	logger.Info("Serial port opened", "port", config.SerialPort, "baud", config.BaudRate)

	workflow := fota.New(sess, fileStore{path: config.OutputFile}, logger, fota.Config{
		URL:     config.URL,
		HexDump: config.HexDump,
	})

	runErr := workflow.Run(ctx)

	if err := sess.Close(); err != nil {
		logger.Error("Failed to close session", "error", err)
	}

	if runErr != nil {
		logger.Error("Update failed", "error", runErr)
		os.Exit(1)
	}
}

func newLogger(config *Config) *slog.Logger {
	logLevel := slog.LevelInfo
	switch config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	var handler slog.Handler
	if config.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	} else {
		handler = console.NewHandler(os.Stderr, &console.HandlerOptions{Level: logLevel})
	}
	return slog.New(handler)
}

// fileStore stages the firmware image through a local file: the download
// writes it, the upload reads it back.
type fileStore struct {
	path string
}

func (f fileStore) Create() (io.WriteCloser, error) {
	return os.Create(f.path)
}

func (f fileStore) Open() (io.ReadCloser, error) {
	return os.Open(f.path)
}

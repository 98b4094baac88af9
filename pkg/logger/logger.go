package logger

import (
	"os"

	"github.com/rs/zerolog"
)

// Package-level variable that holds our configured logger instance.
// It starts with a disabled logger to be safe until it's initialized.
var Log zerolog.Logger = zerolog.New(nil).Level(zerolog.Disabled)

// InitLogger initializes the global logger with the desired configuration.
// This function should be called once, from main().
func InitLogger(isDevelopment bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMicro

	if isDevelopment {
		outputWriter := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05.000000",
		}
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		Log = zerolog.New(outputWriter).With().Timestamp().Caller().Logger()
		return
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	Log = zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// Get returns the global logger instance.
// This is useful if you need to pass the logger to other libraries that don't use this package directly.
func Get() *zerolog.Logger {
	return &Log
}

// ForSubscription returns a child logger tagged with the venue/symbol pair a
// subscription task is driving, so every log line from that task's goroutine
// can be filtered without threading a logger through every call.
func ForSubscription(venue, symbol string) zerolog.Logger {
	return Log.With().Str("venue", venue).Str("symbol", symbol).Logger()
}

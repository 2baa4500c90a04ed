// =============================================================================
// logging.go - Diagnostic Logging
// =============================================================================
//
// Diagnostics are separate from what the shell shows the operator. They go
// through a zap logger, quiet by default (warn), tagged with a ULID session
// id so that lines from concurrent runs sharing a log file can be told
// apart. The [log] table of the config file picks level, format and file.
//
// =============================================================================

package main

import (
	"io"
	"os"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newLogger builds the diagnostic logger. Output goes to stderr unless a
// file is configured. The returned close function syncs and releases the
// file.
func newLogger(cfg LogConfig, stderr io.Writer) (*zap.Logger, func(), error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		level = zapcore.WarnLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder

	var encoder zapcore.Encoder
	if cfg.Format == "json" {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	var (
		writeSyncer zapcore.WriteSyncer
		file        *os.File
	)
	switch cfg.File {
	case "", "stderr":
		writeSyncer = zapcore.AddSync(stderr)
	case "stdout":
		writeSyncer = zapcore.AddSync(os.Stdout)
	default:
		file, err = os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, err
		}
		writeSyncer = zapcore.AddSync(file)
	}

	core := zapcore.NewCore(encoder, writeSyncer, level)
	logger := zap.New(core, zap.AddCaller()).With(zap.String("session", newSessionID()))

	closeFn := func() {
		_ = logger.Sync()
		if file != nil {
			file.Close()
		}
	}
	return logger, closeFn, nil
}

func parseLevel(level string) (zapcore.Level, error) {
	var l zapcore.Level
	err := l.UnmarshalText([]byte(level))
	return l, err
}

// newSessionID returns a sortable identifier used to correlate the log
// lines of one invocation.
func newSessionID() string {
	return ulid.Make().String()
}

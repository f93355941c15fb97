package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config controls where Reeves' structured logs go and at what level —
// shared between the `--debug` server/CLI path and the sandboxed extractor
// child process, which each get their own log file under DefaultLogDir.
type Config struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string
	// FilePath is the rotating log file to write to.
	FilePath string
	// MaxSizeMB is the file size, in MB, that triggers rotation.
	MaxSizeMB int
	// MaxFiles caps how many rotated files (server.log.1, .2, ...) survive.
	MaxFiles int
	// WriteToStderr additionally mirrors every record to stderr.
	WriteToStderr bool
}

// DefaultConfig is the baseline 10MB/5-file rotation policy for the server
// log, one `reeves logs` tail or follow away via --debug.
func DefaultConfig() Config {
	return Config{
		Level:         "info",
		FilePath:      DefaultLogPath(),
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: true,
	}
}

// DebugConfig is DefaultConfig with the level lowered to debug, the
// configuration `reeves --debug <subcommand>` installs.
func DebugConfig() Config {
	cfg := DefaultConfig()
	cfg.Level = "debug"
	return cfg
}

// Setup builds a JSON slog.Logger backed by a RotatingWriter and returns it
// alongside a cleanup func that flushes and closes the underlying file; the
// caller (cobra's PersistentPostRunE) must run cleanup before exit.
func Setup(cfg Config) (*slog.Logger, func(), error) {
	if err := EnsureLogDir(); err != nil {
		return nil, nil, err
	}

	writer, err := NewRotatingWriter(cfg.FilePath, cfg.MaxSizeMB, cfg.MaxFiles)
	if err != nil {
		return nil, nil, err
	}

	var output io.Writer = writer
	if cfg.WriteToStderr {
		output = io.MultiWriter(writer, os.Stderr)
	}

	handler := slog.NewJSONHandler(output, &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	})
	logger := slog.New(handler)

	cleanup := func() {
		_ = writer.Sync()
		_ = writer.Close()
	}
	return logger, cleanup, nil
}

// SetupDefault installs DebugConfig as the process-wide default logger and
// returns its cleanup func, for entry points that don't go through cobra's
// PersistentPreRunE/PostRunE pair.
func SetupDefault() (func(), error) {
	logger, cleanup, err := Setup(DebugConfig())
	if err != nil {
		return nil, err
	}

	slog.SetDefault(logger)
	return cleanup, nil
}

// parseLevel converts string level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LevelFromString converts string level to slog.Level (exported for use by log viewer).
func LevelFromString(level string) slog.Level {
	return parseLevel(level)
}

package logging

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultLogDir returns the default log directory (~/.reeves/logs/).
// Falls back to temp directory if home directory is unavailable.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".reeves", "logs")
	}
	return filepath.Join(home, ".reeves", "logs")
}

// DefaultLogPath returns the default server log path.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "server.log")
}

// SandboxLogPath returns the log path for sandboxed extractor child processes.
func SandboxLogPath() string {
	return filepath.Join(DefaultLogDir(), "sandbox.log")
}

// LogSource represents the source of logs to view.
type LogSource string

const (
	// LogSourceServer is the orchestrator/server process logs (default).
	LogSourceServer LogSource = "server"
	// LogSourceSandbox is the sandboxed extractor child process logs.
	LogSourceSandbox LogSource = "sandbox"
	// LogSourceAll combines all log sources.
	LogSourceAll LogSource = "all"
)

// FindLogFile attempts to find the log file for viewing.
// Priority:
// 1. Explicit path (if provided)
// 2. ~/.reeves/logs/server.log (default)
//
// Returns an error if no log file is found.
func FindLogFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit, nil
		}
		return "", fmt.Errorf("log file not found: %s", explicit)
	}

	path := DefaultLogPath()
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("no log file found. Reeves may not have run with --debug yet.\nExpected at: %s", path)
}

// FindLogFileBySource finds log files based on the source type.
// Returns a list of log file paths that exist.
func FindLogFileBySource(source LogSource, explicit string) ([]string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return []string{explicit}, nil
		}
		return nil, fmt.Errorf("log file not found: %s", explicit)
	}

	var paths []string
	var checked []string

	switch source {
	case LogSourceServer:
		serverPath := DefaultLogPath()
		checked = append(checked, serverPath)
		if _, err := os.Stat(serverPath); err == nil {
			paths = append(paths, serverPath)
		}

	case LogSourceSandbox:
		sandboxPath := SandboxLogPath()
		checked = append(checked, sandboxPath)
		if _, err := os.Stat(sandboxPath); err == nil {
			paths = append(paths, sandboxPath)
		}

	case LogSourceAll:
		serverPath := DefaultLogPath()
		sandboxPath := SandboxLogPath()
		checked = append(checked, serverPath, sandboxPath)

		if _, err := os.Stat(serverPath); err == nil {
			paths = append(paths, serverPath)
		}
		if _, err := os.Stat(sandboxPath); err == nil {
			paths = append(paths, sandboxPath)
		}

	default:
		return nil, fmt.Errorf("unknown log source: %s (use: server, sandbox, all)", source)
	}

	if len(paths) == 0 {
		hint := getLogHint(source)
		return nil, fmt.Errorf("no log files found for source '%s'.\nChecked: %v\n\n%s", source, checked, hint)
	}

	return paths, nil
}

// ParseLogSource parses a string into a LogSource.
func ParseLogSource(s string) LogSource {
	switch s {
	case "sandbox":
		return LogSourceSandbox
	case "all":
		return LogSourceAll
	default:
		return LogSourceServer
	}
}

// EnsureLogDir creates the log directory if it doesn't exist.
func EnsureLogDir() error {
	dir := DefaultLogDir()
	return os.MkdirAll(dir, 0o755)
}

// getLogHint returns a helpful message on how to generate logs for the given source.
func getLogHint(source LogSource) string {
	switch source {
	case LogSourceServer:
		return "To generate server logs:\n  reeves --debug serve"
	case LogSourceSandbox:
		return "No reeves command writes sandbox logs; debug logs from\n  reeves --debug analyze-and-save <crate_path>\ngo to the server log."
	case LogSourceAll:
		return "To generate logs:\n  reeves --debug serve\n  reeves --debug analyze-and-save <crate_path>"
	default:
		return ""
	}
}

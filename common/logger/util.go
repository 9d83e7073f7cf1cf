package logger

import (
	"fmt"
	"os"
	"path/filepath"
)

// ensureLogsAreWritable creates the directory of logFile if needed and checks new files can be
// created in it, which lumberjack needs to rotate logs.
func ensureLogsAreWritable(logFile string) error {
	if logFile == "" {
		return fmt.Errorf("log type %s requires a log file", LogFile)
	}

	logsDir := filepath.Dir(logFile)
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("unable to create logging directory %s: %w", logsDir, err)
	}

	tempFile, err := os.CreateTemp(logsDir, fmt.Sprintf(".%d.*.tmp", os.Getpid()))
	if err != nil {
		return fmt.Errorf("creating files in the logging directory failed, write access is required for log rotation (%s): %w", logsDir, err)
	}
	if err = tempFile.Close(); err != nil {
		return err
	}
	return os.Remove(tempFile.Name())
}

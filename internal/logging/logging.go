package logging

import (
	"fmt"
	"path/filepath"
	"time"
)

// LogFilePath returns logsDir/<name>.<YYYYMMDD_HHMMSS>.log for a run started at start.
func LogFilePath(logsDir, name string, start time.Time) string {
	return filepath.Join(logsDir, fmt.Sprintf("%s.%s.log", name, start.Format("20060102_150405")))
}

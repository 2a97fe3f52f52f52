// Package logging provides config-driven categorized file logging for
// clausewise. Logs are written to .clausewise/logs/ with one file per
// category; when debug mode is off nothing is written at all.
package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Category names a log stream.
type Category string

const (
	CategorySession   Category = "session"   // REPL turns, session lifecycle
	CategoryAPI       Category = "api"       // model calls
	CategoryAgent     Category = "agent"     // dispatch loop decisions
	CategoryTools     Category = "tools"     // tool registration and execution
	CategorySegmenter Category = "segmenter" // document loading and splitting
	CategorySkills    Category = "skills"    // skill loading and matching
)

type fileLogger struct {
	logger *log.Logger
	file   *os.File
}

var (
	mu         sync.Mutex
	loggers    = make(map[Category]*fileLogger)
	logsDir    string
	enabled    bool
	categories map[string]bool // nil means all categories
)

// Initialize sets up the logging directory. When debugMode is false the
// package is a no-op. cats restricts output to the named categories; an
// empty map enables all of them.
func Initialize(workspace string, debugMode bool, cats map[string]bool) error {
	mu.Lock()
	defer mu.Unlock()

	closeAllLocked()
	enabled = debugMode
	if len(cats) > 0 {
		categories = cats
	} else {
		categories = nil
	}
	if !enabled {
		return nil
	}

	logsDir = filepath.Join(workspace, ".clausewise", "logs")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return fmt.Errorf("create logs dir: %w", err)
	}
	return nil
}

// Close flushes and closes every open log file.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	closeAllLocked()
}

func closeAllLocked() {
	for _, l := range loggers {
		_ = l.file.Close()
	}
	loggers = make(map[Category]*fileLogger)
}

func categoryEnabled(cat Category) bool {
	if !enabled {
		return false
	}
	if categories == nil {
		return true
	}
	return categories[string(cat)]
}

func get(cat Category) *fileLogger {
	if l, ok := loggers[cat]; ok {
		return l
	}
	path := filepath.Join(logsDir, fmt.Sprintf("%s_%s.log", cat, time.Now().Format("20060102")))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil
	}
	l := &fileLogger{
		logger: log.New(f, "", log.LstdFlags|log.Lmicroseconds),
		file:   f,
	}
	loggers[cat] = l
	return l
}

// Debugf writes a formatted line to the category's log file. Safe to call
// before Initialize and from multiple goroutines.
func Debugf(cat Category, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if !categoryEnabled(cat) {
		return
	}
	if l := get(cat); l != nil {
		l.logger.Printf("[%s] %s", cat, fmt.Sprintf(format, args...))
	}
}

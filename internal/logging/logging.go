// Package logging configures the supervisor's structured logger the way
// the teacher configures its LSP logger (internal/server/server.go's
// configureLogging), generalized to a four-level scheme that can be
// mutated at runtime by the LOGGING request tag (spec §4.8).
package logging

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

// ErrUnknownLevel is returned by SetLevel for a level outside the four
// accepted values.
var ErrUnknownLevel = errors.New("logging: unknown level")

// Level is the closed four-level scheme the supervisor exposes on the wire,
// mapped onto commonlog's five-level verbosity (spec §4.8: "same four-level
// scheme as the teacher").
type Level string

const (
	LevelDebug   Level = "debug"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// IsValid reports whether l is one of the four accepted levels.
func (l Level) IsValid() bool {
	switch l {
	case LevelDebug, LevelInfo, LevelWarning, LevelError:
		return true
	}
	return false
}

// verbosity maps a Level onto commonlog's Configure verbosity scale
// (1=Error, 2=Warning, 4=Info, 5=Debug), matching the teacher's mapping
// exactly (internal/server/server.go in the teacher skips verbosity 3,
// Notice, since the wire protocol has no equivalent level).
func (l Level) verbosity() int {
	switch l {
	case LevelDebug:
		return 5
	case LevelInfo:
		return 4
	case LevelError:
		return 1
	default:
		return 2
	}
}

// Config is the supervisor's mutable ambient logger: a single commonlog
// root configured at a Level that LOGGING requests may change at runtime,
// handing out named sub-loggers per component (spec §4.8 "component
// constructors take a logger as their first dependency").
type Config struct {
	mu    sync.Mutex
	level Level
}

// New configures commonlog at level and returns a Config tracking it.
func New(level Level) *Config {
	if !level.IsValid() {
		level = LevelWarning
	}
	c := &Config{level: level}
	commonlog.Configure(level.verbosity(), nil)
	return c
}

// SetLevel reconfigures the root logger's verbosity at runtime, answering
// the LOGGING request tag (spec §4.8).
func (c *Config) SetLevel(level Level) error {
	if !level.IsValid() {
		return ErrUnknownLevel
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.level = level
	commonlog.Configure(level.verbosity(), nil)
	return nil
}

// Level returns the currently configured level.
func (c *Config) Level() Level {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.level
}

// Named returns a sub-logger scoped to name (e.g. "dispatcher", "worker"),
// the dependency every component constructor takes per spec §4.8.
func (c *Config) Named(name string) commonlog.Logger {
	return commonlog.GetLogger(name)
}

package logger

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/iostrovok/fileserve/logger/config"
	"github.com/iostrovok/fileserve/logger/level"
)

// Logger collects fields and writes them as one JSON object per line.
// A logger is meant for one request or one task; use Clone to hand
// a copy to another goroutine.
type Logger struct {
	mu     sync.RWMutex
	config *config.Config

	err    error
	Fields Fields
}

func New() *Logger {
	return &Logger{
		Fields: Fields{},

		// default config
		config: config.NewConfig(),
	}
}

func (l *Logger) SetConfig(cf *config.Config) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.config = cf.Clone()
	return l
}

func (l *Logger) Config() *config.Config {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.config.Clone()
}

// Clone returns a logger with a copy of the fields and of the error.
func (l *Logger) Clone() *Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return &Logger{
		Fields: l.Fields.clone(),
		config: l.config.Clone(),
		err:    l.err,
	}
}

func (l *Logger) Add(key string, value any) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.Fields[key] = value
	return l
}

// AddDebug adds the field only when the logger runs at debug level or above.
func (l *Logger) AddDebug(key string, value any) *Logger {
	if !l.IsDebug() {
		return l
	}

	return l.Add(key, value)
}

func (l *Logger) Merge(m map[string]any) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.Fields = l.Fields.Merge(m)
	return l
}

func (l *Logger) IsDebug() bool {
	return l.config.Level() >= level.DebugLevel
}

func (l *Logger) Level() level.Level {
	return l.config.Level()
}

func (l *Logger) SetLevel(lvl level.Level) *Logger {
	l.config.SetLevel(lvl)
	return l
}

// Error attaches err to the next entries; several errors are chained.
func (l *Logger) Error(err error) *Logger {
	if err == nil {
		return l
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.err == nil {
		l.err = err
	} else {
		l.err = errors.Wrap(l.err, err.Error())
	}

	return l
}

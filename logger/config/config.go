package config

import (
	"io"
	"os"
	"sync"

	"github.com/iostrovok/fileserve/logger/level"
)

// All standard fields as constants
const (
	DefaultTimestampFormat = "2006-01-02T15:04:05.999Z07:00"

	MessageField      = "message"       // log message. type: text
	ErrorMessageField = "error.message" // error message. type: text
	TimestampField    = "@timestamp"    // time of the entry. type: date
	LevelField        = "@level"        // level of the entry. type: keyword
)

// Config is shared by every logger cloned from it. Writes to the
// writer are serialized, so one entry is never interleaved with another.
type Config struct {
	mu sync.RWMutex

	level  level.Level
	writer *lockedWriter
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (lw *lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	return lw.w.Write(p)
}

func NewConfig() *Config {
	return &Config{
		// default out
		writer: &lockedWriter{w: os.Stdout},

		// default level
		level: level.InfoLevel,
	}
}

// Clone copies the level; the writer (and its lock) stays shared.
func (cf *Config) Clone() *Config {
	cf.mu.RLock()
	defer cf.mu.RUnlock()

	return &Config{
		writer: cf.writer,
		level:  cf.level,
	}
}

func (cf *Config) Level() level.Level {
	cf.mu.RLock()
	defer cf.mu.RUnlock()

	return cf.level
}

func (cf *Config) SetLevel(lvl level.Level) *Config {
	cf.mu.Lock()
	defer cf.mu.Unlock()

	cf.level = lvl
	return cf
}

func (cf *Config) Writer() io.Writer {
	cf.mu.RLock()
	defer cf.mu.RUnlock()

	return cf.writer
}

func (cf *Config) SetWriter(writer io.Writer) *Config {
	cf.mu.Lock()
	defer cf.mu.Unlock()

	cf.writer = &lockedWriter{w: writer}
	return cf
}

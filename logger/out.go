package logger

import (
	"fmt"
	"os"
	"time"

	"github.com/iostrovok/fileserve/logger/config"
	"github.com/iostrovok/fileserve/logger/level"
)

// Log writes the collected fields at lvl, if the configured level allows it.
func (l *Logger) Log(lvl level.Level, msg string) {
	if !l.Enabled(lvl) {
		return
	}

	l.mu.RLock()
	entry := l.Fields.clone()
	err := l.err
	l.mu.RUnlock()

	entry[config.TimestampField] = time.Now().UTC().Format(config.DefaultTimestampFormat)
	entry[config.LevelField] = lvl.String()
	entry[config.MessageField] = msg
	if err != nil {
		entry[config.ErrorMessageField] = err.Error()
	}

	if _, err := l.config.Writer().Write(entry.Json()); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
	}
}

func (l *Logger) Enabled(lvl level.Level) bool {
	return lvl <= l.config.Level()
}

func (l *Logger) Logf(lvl level.Level, format string, data ...any) {
	if !l.Enabled(lvl) {
		return
	}

	l.Log(lvl, fmt.Sprintf(format, data...))
}

func (l *Logger) Tracef(format string, data ...any) {
	l.Logf(level.TraceLevel, format, data...)
}

func (l *Logger) Debugf(format string, data ...any) {
	l.Logf(level.DebugLevel, format, data...)
}

func (l *Logger) Infof(format string, data ...any) {
	l.Logf(level.InfoLevel, format, data...)
}

func (l *Logger) Printf(format string, data ...any) {
	l.Logf(level.InfoLevel, format, data...)
}

func (l *Logger) Warnf(format string, data ...any) {
	l.Logf(level.WarnLevel, format, data...)
}

func (l *Logger) Errorf(format string, data ...any) {
	l.Logf(level.ErrorLevel, format, data...)
}

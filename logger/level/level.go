package level

import (
	"strings"

	"github.com/pkg/errors"
)

// Level type
type Level int

// Higher levels are more verbose: a logger set to InfoLevel writes
// Panic, Fatal, Error, Warn and Info entries.
const (
	PanicLevel Level = iota
	FatalLevel
	ErrorLevel
	WarnLevel
	InfoLevel
	DebugLevel
	TraceLevel
)

var names = [...]string{
	PanicLevel: "panic",
	FatalLevel: "fatal",
	ErrorLevel: "error",
	WarnLevel:  "warning",
	InfoLevel:  "info",
	DebugLevel: "debug",
	TraceLevel: "trace",
}

// String converts the Level to a string. E.g. PanicLevel becomes "panic".
func (level Level) String() string {
	if level < PanicLevel || level > TraceLevel {
		return "unknown"
	}

	return names[level]
}

// Parse takes a level name, case-insensitive.
func Parse(lvl string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "panic":
		return PanicLevel, nil
	case "fatal":
		return FatalLevel, nil
	case "error":
		return ErrorLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "info":
		return InfoLevel, nil
	case "debug":
		return DebugLevel, nil
	case "trace":
		return TraceLevel, nil
	}

	return -1, errors.Errorf("not a valid log level: %q", lvl)
}

// UnmarshalText lets config decoders read levels by name.
func (level *Level) UnmarshalText(text []byte) error {
	l, err := Parse(string(text))
	if err != nil {
		return err
	}

	*level = l
	return nil
}

func (level Level) MarshalText() ([]byte, error) {
	if level < PanicLevel || level > TraceLevel {
		return nil, errors.Errorf("not a valid log level: %d", int(level))
	}

	return []byte(level.String()), nil
}

// Set and Type make *Level usable as a command line flag value.
func (level *Level) Set(value string) error {
	return level.UnmarshalText([]byte(value))
}

func (level *Level) Type() string {
	return "level"
}

package fileserve

import (
	"net"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	"github.com/iostrovok/fileserve/logger/level"
)

const (
	DefaultHost            = "0.0.0.0"
	DefaultPort            = 5000
	DefaultServerName      = "fileserve"
	DefaultIdleTimeout     = 60 * time.Second
	DefaultReadTimeout     = 30 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
)

// Config is fixed once a Server is built from it.
type Config struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
	// Root is the document root, the current directory by default.
	Root string `toml:"root"`

	ServerName string      `toml:"server_name"`
	LogLevel   level.Level `toml:"log_level"`

	// IdleTimeout bounds keep-alive connections waiting for the next request.
	IdleTimeout Duration `toml:"idle_timeout"`
	// ReadTimeout bounds reading one request, headers included.
	ReadTimeout Duration `toml:"read_timeout"`
	// WriteTimeout bounds writing one response; zero lets large files
	// take as long as they need.
	WriteTimeout    Duration `toml:"write_timeout"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`

	// Concurrency caps simultaneous connections, zero means fasthttp's default.
	Concurrency   int `toml:"concurrency"`
	MaxConnsPerIP int `toml:"max_conns_per_ip"`
}

// Duration reads "90s" style values from config files.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return errors.Wrapf(err, "duration %q", text)
	}

	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func DefaultConfig() Config {
	return Config{
		Host:            DefaultHost,
		Port:            DefaultPort,
		Root:            ".",
		ServerName:      DefaultServerName,
		LogLevel:        level.InfoLevel,
		IdleTimeout:     Duration{DefaultIdleTimeout},
		ReadTimeout:     Duration{DefaultReadTimeout},
		ShutdownTimeout: Duration{DefaultShutdownTimeout},
	}
}

// LoadConfig reads a TOML file over the defaults. An empty file name
// returns the defaults.
func LoadConfig(file string) (Config, error) {
	cfg := DefaultConfig()
	if file == "" {
		return cfg, nil
	}

	f, err := os.Open(file)
	if err != nil {
		return cfg, errors.Wrap(err, "config")
	}
	defer func() {
		_ = f.Close()
	}()

	dec := toml.NewDecoder(f).DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, errors.Wrapf(err, "config %s", file)
	}

	return cfg, cfg.Validate()
}

func (cfg Config) Validate() error {
	if cfg.Port < 0 || cfg.Port > 65535 {
		return errors.Errorf("port %d out of range", cfg.Port)
	}

	if cfg.Root == "" {
		return errors.New("document root is empty")
	}

	if cfg.LogLevel < level.PanicLevel || cfg.LogLevel > level.TraceLevel {
		return errors.Errorf("log level %d out of range", int(cfg.LogLevel))
	}

	for name, d := range map[string]Duration{
		"idle_timeout":     cfg.IdleTimeout,
		"read_timeout":     cfg.ReadTimeout,
		"write_timeout":    cfg.WriteTimeout,
		"shutdown_timeout": cfg.ShutdownTimeout,
	} {
		if d.Duration < 0 {
			return errors.Errorf("%s is negative", name)
		}
	}

	if cfg.Concurrency < 0 || cfg.MaxConnsPerIP < 0 {
		return errors.New("connection limits must not be negative")
	}

	return nil
}

// Addr is the listen address, host:port.
func (cfg Config) Addr() string {
	return net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
}

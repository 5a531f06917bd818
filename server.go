// Package fileserve serves a directory tree over HTTP.
//
// A Server is built from an immutable Config: the document root, listen
// address and connection limits are fixed at construction, so several
// servers can run side by side in one process.
package fileserve

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"github.com/valyala/fasthttp"

	"github.com/iostrovok/fileserve/logger"
	"github.com/iostrovok/fileserve/logger/config"
	"github.com/iostrovok/fileserve/logger/level"
	"github.com/iostrovok/fileserve/resolver"
	"github.com/iostrovok/fileserve/static"
)

type Server struct {
	ctx context.Context

	cfg  Config
	srv  *fasthttp.Server
	root *resolver.Resolver
	set  *HandlerSet

	logConfig *config.Config
}

func New(cfg Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// a zero timeout would cut every shutdown short
	if cfg.ShutdownTimeout.Duration == 0 {
		cfg.ShutdownTimeout = Duration{DefaultShutdownTimeout}
	}

	root, err := resolver.New(cfg.Root)
	if err != nil {
		return nil, errors.Wrap(err, "fileserve")
	}

	server := &Server{
		ctx:       context.Background(),
		cfg:       cfg,
		root:      root,
		logConfig: config.NewConfig().SetLevel(cfg.LogLevel),
	}

	server.set = Set("static").
		Use(NewFileHandler(static.FileServer(root))).
		Last(&AccessLog{})

	server.srv = &fasthttp.Server{
		Handler:         server.ServeHTTP,
		Name:            cfg.ServerName,
		IdleTimeout:     cfg.IdleTimeout.Duration,
		ReadTimeout:     cfg.ReadTimeout.Duration,
		WriteTimeout:    cfg.WriteTimeout.Duration,
		Concurrency:     cfg.Concurrency,
		MaxConnsPerIP:   cfg.MaxConnsPerIP,
		CloseOnShutdown: true,
		Logger:          server.Logger().Add("component", "fasthttp"),
	}

	return server, nil
}

func (server *Server) Config() Config {
	return server.cfg
}

// Root returns the canonical document root.
func (server *Server) Root() string {
	return server.root.Root()
}

func (server *Server) Server() *fasthttp.Server {
	return server.srv
}

func (server *Server) LoggerWriter() io.Writer {
	return server.logConfig.Writer()
}

func (server *Server) SetLoggerWriter(loggerWriter io.Writer) *Server {
	server.logConfig.SetWriter(loggerWriter)
	server.srv.Logger = server.Logger().Add("component", "fasthttp")
	return server
}

func (server *Server) SetLogLevel(lvl level.Level) *Server {
	server.logConfig.SetLevel(lvl)
	return server
}

func (server *Server) LogLevel() level.Level {
	return server.logConfig.Level()
}

// Logger returns a new logger writing where the server logs.
func (server *Server) Logger() *logger.Logger {
	return logger.New().SetConfig(server.logConfig)
}

// Before adds handlers running ahead of the file handler for every request.
func (server *Server) Before(h ...IHandler) *Server {
	server.set.Before(h...)
	return server
}

// After adds handlers running once the file handler succeeded.
func (server *Server) After(h ...IHandler) *Server {
	server.set.After(h...)
	return server
}

// Last replaces the access log with another final handler.
func (server *Server) Last(h ILastHandler) *Server {
	server.set.Last(h)
	return server
}

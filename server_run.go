package fileserve

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/valyala/fasthttp"
	"golang.org/x/sync/errgroup"

	"github.com/iostrovok/fileserve/static"
)

// Run listens on the configured address and serves until ctx is done or
// the process gets SIGINT, SIGTERM or SIGQUIT.
func (server *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", server.cfg.Addr())
	if err != nil {
		return errors.Wrap(err, "listen")
	}

	return server.Serve(ctx, ln)
}

// Serve serves connections from ln until ctx is done or a stop signal
// arrives, then shuts the server down gracefully.
func (server *Server) Serve(ctx context.Context, ln net.Listener) error {
	errGroup, errCtx := errgroup.WithContext(ctx)
	server.ctx = errCtx

	errGroup.Go(func() error {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT)
		defer signal.Stop(ch)

		var reason string
		select {
		case <-errCtx.Done():
			reason = context.Cause(errCtx).Error()
		case sig := <-ch:
			reason = "signal " + sig.String()
		}

		server.Logger().Add("reason", reason).Infof("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.cfg.ShutdownTimeout.Duration)
		defer cancel()

		return errors.Wrap(server.srv.ShutdownWithContext(shutdownCtx), "server shutdown")
	})

	errGroup.Go(func() error {
		server.Logger().
			Add("addr", ln.Addr().String()).
			Add("root", server.Root()).
			Infof("serving")

		return errors.Wrap(server.srv.Serve(ln), "serve")
	})

	err := errGroup.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}

// ServeHTTP runs the handler set for one request. It never panics: a
// failing request gets a 500 and leaves other connections alone.
func (server *Server) ServeHTTP(fastCtx *fasthttp.RequestCtx) {
	ctx := NewContext(server.ctx, fastCtx, server.Logger())

	defer func() {
		if r := recover(); r != nil {
			static.Error(fastCtx, "500 Internal Server Error", fasthttp.StatusInternalServerError)
			_ = server.set.RunLast(ctx, errors.Errorf("panic: %v", r))
		}
	}()

	err := server.set.Run(ctx)
	_ = server.set.RunLast(ctx, err)
}

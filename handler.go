package fileserve

import (
	"github.com/valyala/fasthttp"

	"github.com/iostrovok/fileserve/static"
)

type IHandler interface {
	Run(ctx *Context) error

	// for debug goals only
	Name() string
}

type ILastHandler interface {
	Run(ctx *Context, err error) error
	Name() string
}

// FileHandler is the main handler: it answers from the document root.
type FileHandler struct {
	httpHandler static.Handler
}

func NewFileHandler(h static.Handler) *FileHandler {
	return &FileHandler{httpHandler: h}
}

func (h *FileHandler) Name() string { return "file" }

func (h *FileHandler) Run(ctx *Context) error {
	ctx.logger.AddDebug("url_path_income", ctx.Path()).
		AddDebug("url_path_normalized", string(ctx.fastCtx.Path()))

	return h.httpHandler.ServeHTTP(ctx.fastCtx)
}

// AccessLog writes one entry per request. Server errors are logged at error
// level, rejected requests (403, 404, 405, 416) at warning level.
type AccessLog struct{}

func (a *AccessLog) Name() string { return "access-log" }

func (a *AccessLog) Run(ctx *Context, err error) error {
	resp := &ctx.fastCtx.Response
	status := resp.StatusCode()

	lg := ctx.logger.Merge(map[string]any{
		"method":      ctx.Method(),
		"path":        ctx.Path(),
		"status":      status,
		"bytes":       responseSize(resp),
		"remote_addr": ctx.fastCtx.RemoteAddr().String(),
		"duration_ms": float64(ctx.Elapsed().Microseconds()) / 1000,
	})

	if lg.IsDebug() {
		lg.Add("handlers", ctx.CalledHandles())
	}

	switch {
	case status >= fasthttp.StatusInternalServerError:
		lg.Error(err).Errorf("%s %s", ctx.Method(), ctx.Path())
	case status >= fasthttp.StatusBadRequest:
		lg.Error(err).Warnf("%s %s", ctx.Method(), ctx.Path())
	default:
		lg.Infof("%s %s", ctx.Method(), ctx.Path())
	}

	return nil
}

// responseSize never touches a body stream: reading it would consume the file.
func responseSize(resp *fasthttp.Response) int {
	if n := resp.Header.ContentLength(); n > 0 || resp.IsBodyStream() {
		return n
	}

	return len(resp.Body())
}

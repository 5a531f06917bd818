package fileserve

import (
	"context"
	"hash/crc64"
	"strconv"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/iostrovok/fileserve/logger"
)

var table = crc64.MakeTable(crc64.ISO)

// Context lives for one request. It is not shared between goroutines.
type Context struct {
	baseCtx context.Context // server context

	uniqId uint64 // uniq request id, for logs and debug purposes.
	start  time.Time

	fastCtx *fasthttp.RequestCtx

	data map[string]any
	// isStopped doesn't call all next handlers
	isStopped bool

	logger *logger.Logger

	handleDebugPipeline []string
}

func NewContext(baseCtx context.Context, fastCtx *fasthttp.RequestCtx, lg *logger.Logger) *Context {
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	now := time.Now()
	id := crc64.Checksum([]byte(strconv.FormatInt(now.UnixNano(), 10)+
		strconv.FormatUint(fastCtx.ID(), 10)+string(fastCtx.URI().PathOriginal())), table)

	return &Context{
		baseCtx:             baseCtx,
		uniqId:              id,
		start:               now,
		fastCtx:             fastCtx,
		data:                map[string]any{},
		logger:              lg.Add("request_id", strconv.FormatUint(id, 16)),
		handleDebugPipeline: []string{},
	}
}

// Method returns request's method
func (ctx *Context) Method() string {
	return string(ctx.fastCtx.Method())
}

// Path returns the request path as the client sent it, still escaped.
func (ctx *Context) Path() string {
	return string(ctx.fastCtx.URI().PathOriginal())
}

// Ctx returns the context of the connection; it is done when the server
// shuts down.
func (ctx *Context) Ctx() context.Context {
	return ctx.fastCtx
}

// GlobalContext returns the context the server was started with.
func (ctx *Context) GlobalContext() context.Context {
	return ctx.baseCtx
}

func (ctx *Context) FastCtx() *fasthttp.RequestCtx {
	return ctx.fastCtx
}

func (ctx *Context) Logger() *logger.Logger {
	return ctx.logger
}

func (ctx *Context) UniqId() uint64 {
	return ctx.uniqId
}

// Elapsed is the time since the request reached the handlers.
func (ctx *Context) Elapsed() time.Duration {
	return time.Since(ctx.start)
}

func (ctx *Context) Set(key string, value any) *Context {
	ctx.data[key] = value

	return ctx
}

func (ctx *Context) Get(key string) any {
	return ctx.data[key]
}

// Stop stops calling all next handlers; the last handler still runs.
func (ctx *Context) Stop() *Context {
	ctx.isStopped = true
	ctx.logger.AddDebug("is_stopped", true)

	return ctx
}

func (ctx *Context) Stopped() bool {
	return ctx.isStopped
}

// AddDebugHandleName collects the names of the handlers that were called
func (ctx *Context) AddDebugHandleName(name string) *Context {
	if ctx.logger.IsDebug() {
		ctx.handleDebugPipeline = append(ctx.handleDebugPipeline, name)
	}

	return ctx
}

// CalledHandles is a simple getter
func (ctx *Context) CalledHandles() []string {
	if !ctx.logger.IsDebug() {
		return []string{"available in debug mode only"}
	}

	return ctx.handleDebugPipeline
}

// Package static answers GET and HEAD requests with files and generated
// directory listings from a document root.
package static

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/valyala/fasthttp"

	"github.com/iostrovok/fileserve/resolver"
)

// AllowedMethods is sent in the Allow header of 405 responses.
const AllowedMethods = fasthttp.MethodGet + ", " + fasthttp.MethodHead

var ErrMethodNotAllowed = errors.New("method not allowed")

type Handler interface {
	ServeHTTP(ctx *fasthttp.RequestCtx) error
}

// FileServer returns a handler serving the tree behind root.
func FileServer(root *resolver.Resolver) Handler {
	return &fileHandler{root: root}
}

type fileHandler struct {
	root *resolver.Resolver
}

// ServeHTTP always writes a complete response. The returned error only
// describes what went wrong, for logging.
func (f *fileHandler) ServeHTTP(ctx *fasthttp.RequestCtx) error {
	switch string(ctx.Method()) {
	case fasthttp.MethodGet:
	case fasthttp.MethodHead:
		ctx.Response.SkipBody = true
	default:
		ctx.Response.Header.Set("Allow", AllowedMethods)
		msg, code := toHTTPError(ErrMethodNotAllowed)
		Error(ctx, msg, code)
		return errors.Wrap(ErrMethodNotAllowed, string(ctx.Method()))
	}

	// the raw path: fasthttp's own normalization would hide ".." escapes
	upath := string(ctx.URI().PathOriginal())

	target, err := f.root.Resolve(upath)
	if err != nil {
		msg, code := toHTTPError(err)
		Error(ctx, msg, code)
		return err
	}

	// redirect to canonical path: / at end of directory url,
	// so that relative links in listings and index pages resolve.
	// The location is rebuilt from the normalized path: the raw one may
	// start with "//" and name another host.
	if target.RequestedDir && !strings.HasSuffix(upath, "/") {
		localRedirect(ctx, target.DirURLPath)
		return nil
	}

	switch target.Kind {
	case resolver.KindDirectory:
		return dirList(ctx, target, f.root)
	case resolver.KindFile:
		return serveFile(ctx, target)
	}

	Error(ctx, "500 Internal Server Error", fasthttp.StatusInternalServerError)
	return errors.Errorf("unexpected target kind %s", target.Kind)
}

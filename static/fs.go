package static

import (
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/valyala/fasthttp"

	"github.com/iostrovok/fileserve/internal/text"
	"github.com/iostrovok/fileserve/resolver"
)

// errNoOverlap is returned by parseRange if the first byte of the range
// lies at or after the end of the content.
var errNoOverlap = errors.New("invalid range: failed to overlap")

// sectionFile streams part of a file and closes it once fasthttp is done
// with the body, including when the client goes away mid-transfer.
type sectionFile struct {
	*io.SectionReader
	file *os.File
}

func (s *sectionFile) Close() error {
	return s.file.Close()
}

// serveFile answers with the file behind target, honouring
// If-Modified-Since, If-Range and a single-range Range header.
func serveFile(ctx *fasthttp.RequestCtx, target resolver.Target) error {
	file, err := os.Open(target.Path)
	if err != nil {
		msg, code := toHTTPError(err)
		Error(ctx, msg, code)
		return errors.Wrap(err, "open")
	}

	// the file may have changed since it was resolved; trust the open descriptor
	info, err := file.Stat()
	if err != nil || !info.Mode().IsRegular() {
		_ = file.Close()
		if err == nil {
			err = resolver.ErrNotFound
		}
		msg, code := toHTTPError(err)
		Error(ctx, msg, code)
		return errors.Wrap(err, "stat")
	}

	size := info.Size()
	modTime := info.ModTime()

	setLastModified(ctx, modTime)
	if checkIfModifiedSince(ctx, modTime) == condFalse {
		_ = file.Close()
		writeNotModified(ctx)
		return nil
	}

	ctx.Response.Header.Set("Content-Type", target.MimeType)
	ctx.Response.Header.Set("Accept-Ranges", "bytes")

	rangeHeader := string(ctx.Request.Header.Peek("Range"))
	if rangeHeader != "" && checkIfRange(ctx, modTime) == condFalse {
		rangeHeader = ""
	}

	code := fasthttp.StatusOK
	start, length := int64(0), size

	ra, ok, err := parseRange(rangeHeader, size)
	switch {
	case err != nil:
		_ = file.Close()
		ctx.Response.Header.Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		Error(ctx, "416 Requested Range Not Satisfiable", fasthttp.StatusRequestedRangeNotSatisfiable)
		return err
	case ok:
		// RFC 7233, Section 4.1:
		// "If a single part is being transferred, the server
		// generating the 206 response MUST generate a
		// Content-Range header field, describing what range
		// of the selected representation is enclosed, and a
		// payload consisting of the range."
		code = fasthttp.StatusPartialContent
		start, length = ra.start, ra.length
		ctx.Response.Header.Set("Content-Range", ra.contentRange(size))
	}

	ctx.Response.SetStatusCode(code)

	if ctx.IsHead() {
		_ = file.Close()
		ctx.Response.SkipBody = true
		ctx.Response.Header.SetContentLength(int(length))
		return nil
	}

	ctx.Response.SetBodyStream(&sectionFile{
		SectionReader: io.NewSectionReader(file, start, length),
		file:          file,
	}, int(length))

	return nil
}

// dirList writes a fresh HTML index of the immediate children of target.
func dirList(ctx *fasthttp.RequestCtx, target resolver.Target, root *resolver.Resolver) error {
	// os.ReadDir returns the entries sorted by name
	entries, err := os.ReadDir(target.Path)
	if err != nil {
		msg, code := toHTTPError(err)
		Error(ctx, msg, code)
		return errors.Wrap(err, "read directory")
	}

	title := htmlReplacer.Replace("Directory listing for " + target.URLPath)

	ctx.Response.Header.Set("Content-Type", "text/html; charset=utf-8")
	ctx.Response.Header.Set("Cache-Control", "no-cache")
	ctx.Response.SetStatusCode(fasthttp.StatusOK)

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	b.WriteString("<title>" + title + "</title>\n</head>\n<body>\n")
	b.WriteString("<h1>" + title + "</h1>\n<hr>\n<ul>\n")
	for _, entry := range entries {
		name := entry.Name()
		// a symlink counts as a directory only when its target stays
		// inside the document root
		if entry.IsDir() ||
			entry.Type()&fs.ModeSymlink != 0 && root.IsDir(filepath.Join(target.Path, name)) {
			name += "/"
		}
		// name may contain '?' or '#', which must be escaped to remain
		// part of the URL path, and not indicate the start of a query
		// string or fragment.
		href := url.URL{Path: name}
		b.WriteString(`<li><a href="` + htmlReplacer.Replace(href.String()) + `">` + htmlReplacer.Replace(name) + "</a></li>\n")
	}
	b.WriteString("</ul>\n<hr>\n</body>\n</html>\n")

	_, _ = ctx.WriteString(b.String())

	return nil
}

// condResult is the result of an HTTP request precondition check.
// See https://tools.ietf.org/html/rfc7232 section 3.
type condResult int

const (
	condNone condResult = iota
	condTrue
	condFalse
)

func checkIfModifiedSince(ctx *fasthttp.RequestCtx, modTime time.Time) condResult {
	ims := string(ctx.Request.Header.Peek("If-Modified-Since"))
	if ims == "" || isZeroTime(modTime) {
		return condNone
	}
	t, err := ParseTime(ims)
	if err != nil {
		return condNone
	}
	// The Last-Modified header truncates sub-second precision so
	// the modTime needs to be truncated too.
	modTime = modTime.Truncate(time.Second)
	if modTime.Before(t) || modTime.Equal(t) {
		return condFalse
	}
	return condTrue
}

func checkIfRange(ctx *fasthttp.RequestCtx, modTime time.Time) condResult {
	ir := text.TrimString(string(ctx.Request.Header.Peek("If-Range")))
	if ir == "" {
		return condNone
	}

	// no entity tags are generated, so none can match
	if strings.HasPrefix(ir, `"`) || strings.HasPrefix(ir, "W/") {
		return condFalse
	}

	if isZeroTime(modTime) {
		return condFalse
	}
	t, err := ParseTime(ir)
	if err != nil {
		return condFalse
	}
	if t.Unix() == modTime.Unix() {
		return condTrue
	}
	return condFalse
}

func setLastModified(ctx *fasthttp.RequestCtx, modTime time.Time) {
	if !isZeroTime(modTime) {
		ctx.Response.Header.Set("Last-Modified", modTime.UTC().Format(TimeFormat))
	}
}

func writeNotModified(ctx *fasthttp.RequestCtx) {
	// RFC 7232 section 4.1:
	// a sender SHOULD NOT generate representation metadata other than the
	// above listed fields unless said metadata exists for the purpose of
	// guiding cache updates (e.g., Last-Modified might be useful if the
	// response does not have an ETag field).
	ctx.Response.Header.Del("Content-Type")
	ctx.Response.Header.SetNoDefaultContentType(true)
	ctx.Response.Header.Del("Content-Length")
	ctx.Response.ResetBody()
	ctx.Response.SetStatusCode(fasthttp.StatusNotModified)
}

// localRedirect gives a Moved Permanently response. newPath is a decoded
// absolute path, it is escaped here.
func localRedirect(ctx *fasthttp.RequestCtx, newPath string) {
	newPath = (&url.URL{Path: newPath}).EscapedPath()
	if q := ctx.URI().QueryString(); len(q) > 0 {
		newPath += "?" + string(q)
	}

	ctx.Response.Header.Set("Location", newPath)
	ctx.Response.SetStatusCode(fasthttp.StatusMovedPermanently)
}

// httpRange specifies the byte range to be sent to the client.
type httpRange struct {
	start, length int64
}

func (r httpRange) contentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.start, r.start+r.length-1, size)
}

// parseRange parses a single byte-range Range header as per RFC 7233.
// ok is false when the header is absent or ignored (malformed, other units,
// several ranges); errNoOverlap is returned for an unsatisfiable range.
func parseRange(s string, size int64) (r httpRange, ok bool, err error) {
	s = text.TrimString(s)
	if s == "" {
		return r, false, nil // header not present
	}

	spec, found := text.CutPrefixFold(s, "bytes=")
	if !found || strings.Contains(spec, ",") {
		return r, false, nil
	}

	start, end, found := strings.Cut(spec, "-")
	if !found {
		return r, false, nil
	}
	start, end = text.TrimString(start), text.TrimString(end)

	if start == "" {
		// If no start is specified, end specifies the
		// range start relative to the end of the file,
		// and we are dealing with <suffix-length>.
		if !text.IsDigits(end) {
			return r, false, nil
		}
		n, err := strconv.ParseInt(end, 10, 64)
		if err != nil {
			return r, false, nil
		}
		if n == 0 || size == 0 {
			return r, false, errNoOverlap
		}
		if n > size {
			n = size
		}
		r.start = size - n
		r.length = n
		return r, true, nil
	}

	if !text.IsDigits(start) {
		return r, false, nil
	}
	i, err := strconv.ParseInt(start, 10, 64)
	if err != nil {
		return r, false, nil
	}

	var last int64
	if end == "" {
		// If no end is specified, range extends to end of the file.
		last = size - 1
	} else {
		if !text.IsDigits(end) {
			return r, false, nil
		}
		last, err = strconv.ParseInt(end, 10, 64)
		if err != nil || i > last {
			return r, false, nil
		}
	}

	if i >= size {
		// If the range begins after the size of the content,
		// then it does not overlap.
		return r, false, errNoOverlap
	}
	if last >= size {
		last = size - 1
	}

	r.start = i
	r.length = last - i + 1
	return r, true, nil
}

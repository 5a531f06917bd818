package static

import (
	"io/fs"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/valyala/fasthttp"

	"github.com/iostrovok/fileserve/internal/text"
	"github.com/iostrovok/fileserve/resolver"
)

// TimeFormat is the time format to use when generating times in HTTP
// headers. It is like time.RFC1123 but hard-codes GMT as the time
// zone. The time being formatted must be in UTC for Format to
// generate the correct format.
//
// For parsing this time format, see ParseTime.
const TimeFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

var htmlReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	// "&#34;" is shorter than "&quot;".
	`"`, "&#34;",
	// "&#39;" is shorter than "&apos;" and apos was not in HTML until HTML5.
	"'", "&#39;",
)

// Error replies with the specified plain text message and HTTP code.
// Any body written so far is dropped, headers are kept.
func Error(ctx *fasthttp.RequestCtx, msg string, code int) {
	ctx.Response.ResetBody()
	ctx.Response.Header.Del("Last-Modified")
	ctx.Response.Header.Del("Accept-Ranges")
	ctx.Response.Header.Set("Content-Type", "text/plain; charset=utf-8")
	ctx.Response.Header.Set("X-Content-Type-Options", "nosniff")
	ctx.Response.SetStatusCode(code)
	_, _ = ctx.WriteString(msg)
}

// toHTTPError returns a non-specific message and status code for err.
// The message never carries err.Error(): it would leak filesystem paths.
func toHTTPError(err error) (msg string, httpStatus int) {
	switch {
	case errors.Is(err, resolver.ErrForbidden):
		return "403 Forbidden", fasthttp.StatusForbidden
	case errors.Is(err, resolver.ErrNotFound),
		errors.Is(err, fs.ErrNotExist),
		errors.Is(err, syscall.ENOTDIR):
		return "404 Not Found", fasthttp.StatusNotFound
	case errors.Is(err, ErrMethodNotAllowed):
		return "405 Method Not Allowed", fasthttp.StatusMethodNotAllowed
	}

	return "500 Internal Server Error", fasthttp.StatusInternalServerError
}

var timeFormats = []string{
	TimeFormat,
	time.RFC850,
	time.ANSIC,
}

// ParseTime parses a time header (such as If-Modified-Since),
// trying each of the three formats allowed by HTTP/1.1:
// TimeFormat, time.RFC850, and time.ANSIC.
func ParseTime(value string) (t time.Time, err error) {
	value = text.TrimString(value)
	for _, layout := range timeFormats {
		t, err = time.Parse(layout, value)
		if err == nil {
			return
		}
	}
	return
}

var unixEpochTime = time.Unix(0, 0)

// isZeroTime reports whether t is obviously unspecified (either zero or Unix()=0).
func isZeroTime(t time.Time) bool {
	return t.IsZero() || t.Equal(unixEpochTime)
}

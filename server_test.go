package fileserve

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/iostrovok/fileserve/logger/level"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

// entries returns the log lines decoded as JSON objects.
func (b *syncBuffer) entries(t *testing.T) []map[string]any {
	t.Helper()

	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]map[string]any, 0)
	for _, line := range strings.Split(strings.TrimSpace(b.buf.String()), "\n") {
		if line == "" {
			continue
		}
		entry := map[string]any{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		out = append(out, entry)
	}

	return out
}

// accessEntry returns the first access log entry for path.
func (b *syncBuffer) accessEntry(t *testing.T, path string) map[string]any {
	t.Helper()

	for _, entry := range b.entries(t) {
		if entry["path"] == path && entry["status"] != nil {
			return entry
		}
	}

	t.Fatalf("no access log entry for %s", path)
	return nil
}

type testServer struct {
	*Server

	ln   *fasthttputil.InmemoryListener
	logs *syncBuffer
}

func siteRoot(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "readme.txt"), []byte("hello world"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "a.txt"), []byte("a"), 0o644))

	return root
}

func startServer(t *testing.T, setup ...func(s *Server)) *testServer {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Root = siteRoot(t)

	return startConfigServer(t, cfg, setup...)
}

func startConfigServer(t *testing.T, cfg Config, setup ...func(s *Server)) *testServer {
	t.Helper()

	server, err := New(cfg)
	require.NoError(t, err)

	logs := &syncBuffer{}
	server.SetLoggerWriter(logs)
	for _, f := range setup {
		f(server)
	}

	ln := fasthttputil.NewInmemoryListener()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- server.Serve(ctx, ln)
	}()

	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})

	return &testServer{Server: server, ln: ln, logs: logs}
}

// do writes one raw request line, so paths reach the server unnormalized.
func (ts *testServer) do(t *testing.T, method, uri string, headers ...string) *fasthttp.Response {
	t.Helper()

	conn, err := ts.ln.Dial()
	require.NoError(t, err)
	defer func() {
		_ = conn.Close()
	}()

	req := fmt.Sprintf("%s %s HTTP/1.1\r\nHost: test\r\nConnection: close\r\n", method, uri)
	for i := 0; i+1 < len(headers); i += 2 {
		req += headers[i] + ": " + headers[i+1] + "\r\n"
	}
	req += "\r\n"

	_, err = conn.Write([]byte(req))
	require.NoError(t, err)

	resp := &fasthttp.Response{}
	resp.SkipBody = method == fasthttp.MethodHead
	require.NoError(t, resp.Read(bufio.NewReader(conn)))

	return resp
}

func TestServer_Example(t *testing.T) {
	ts := startServer(t)

	resp := ts.do(t, "GET", "/readme.txt")
	assert.Equal(t, fasthttp.StatusOK, resp.StatusCode())
	assert.Equal(t, "hello world", string(resp.Body()))
	assert.Equal(t, 11, resp.Header.ContentLength())
	assert.Equal(t, "text/plain", string(resp.Header.ContentType()))
	assert.Equal(t, "bytes", string(resp.Header.Peek("Accept-Ranges")))
	assert.Equal(t, DefaultServerName, string(resp.Header.Server()))

	resp = ts.do(t, "GET", "/readme.txt", "Range", "bytes=0-4")
	assert.Equal(t, fasthttp.StatusPartialContent, resp.StatusCode())
	assert.Equal(t, "hello", string(resp.Body()))
	assert.Equal(t, "bytes 0-4/11", string(resp.Header.Peek("Content-Range")))

	resp = ts.do(t, "GET", "/../etc/passwd")
	assert.Equal(t, fasthttp.StatusForbidden, resp.StatusCode())

	resp = ts.do(t, "GET", "/missing.txt")
	assert.Equal(t, fasthttp.StatusNotFound, resp.StatusCode())
}

func TestServer_Head(t *testing.T) {
	ts := startServer(t)

	resp := ts.do(t, "HEAD", "/readme.txt")
	assert.Equal(t, fasthttp.StatusOK, resp.StatusCode())
	assert.Equal(t, 11, resp.Header.ContentLength())
	assert.Empty(t, resp.Body())
}

func TestServer_Statuses(t *testing.T) {
	ts := startServer(t)

	tests := map[string]struct {
		method string
		uri    string
		code   int
	}{
		"directory":      {"GET", "/docs/", fasthttp.StatusOK},
		"redirect":       {"GET", "/docs", fasthttp.StatusMovedPermanently},
		"encoded escape": {"GET", "/docs/%2e%2e/%2e%2e/x", fasthttp.StatusForbidden},
		"post":           {"POST", "/readme.txt", fasthttp.StatusMethodNotAllowed},
		"range":          {"GET", "/readme.txt", fasthttp.StatusRequestedRangeNotSatisfiable},
	}

	for name, tt := range tests {
		var headers []string
		if name == "range" {
			headers = []string{"Range", "bytes=20-30"}
		}

		resp := ts.do(t, tt.method, tt.uri, headers...)
		assert.Equal(t, tt.code, resp.StatusCode(), name)
	}

	for _, uri := range []string{"//evil.example/..", "//evil.example/%2e%2e", "//evil.example/../docs"} {
		resp := ts.do(t, "GET", uri)
		location := string(resp.Header.Peek("Location"))

		assert.Equal(t, fasthttp.StatusMovedPermanently, resp.StatusCode(), uri)
		assert.False(t, strings.HasPrefix(location, "//"), "%s -> %s", uri, location)
		assert.NotContains(t, location, "evil", uri)
	}
}

func TestServer_AccessLog(t *testing.T) {
	ts := startServer(t)

	ts.do(t, "GET", "/readme.txt")
	ts.do(t, "GET", "/missing.txt")

	ok := ts.logs.accessEntry(t, "/readme.txt")
	assert.Equal(t, "info", ok["@level"])
	assert.Equal(t, "GET", ok["method"])
	assert.EqualValues(t, 200, ok["status"])
	assert.EqualValues(t, 11, ok["bytes"])
	assert.NotEmpty(t, ok["request_id"])
	assert.NotEmpty(t, ok["remote_addr"])
	assert.Contains(t, ok, "duration_ms")

	missing := ts.logs.accessEntry(t, "/missing.txt")
	assert.Equal(t, "warning", missing["@level"])
	assert.EqualValues(t, 404, missing["status"])
	assert.NotEmpty(t, missing["error.message"])
	assert.NotEqual(t, ok["request_id"], missing["request_id"])
}

func TestServer_DebugLog(t *testing.T) {
	ts := startServer(t, func(s *Server) {
		s.SetLogLevel(level.DebugLevel)
	})

	ts.do(t, "GET", "/readme.txt")

	entry := ts.logs.accessEntry(t, "/readme.txt")
	assert.Equal(t, []any{"file", "access-log"}, entry["handlers"])
	assert.Equal(t, "/readme.txt", entry["url_path_income"])
}

type panicHandler struct{}

func (p *panicHandler) Name() string { return "panic" }

func (p *panicHandler) Run(ctx *Context) error {
	if ctx.Path() == "/boom" {
		panic("boom")
	}
	return nil
}

func TestServer_PanicRecovery(t *testing.T) {
	ts := startServer(t, func(s *Server) {
		s.Before(&panicHandler{})
	})

	resp := ts.do(t, "GET", "/boom")
	assert.Equal(t, fasthttp.StatusInternalServerError, resp.StatusCode())
	assert.Equal(t, "500 Internal Server Error", string(resp.Body()))

	entry := ts.logs.accessEntry(t, "/boom")
	assert.Equal(t, "error", entry["@level"])
	assert.Equal(t, "panic: boom", entry["error.message"])

	resp = ts.do(t, "GET", "/readme.txt")
	assert.Equal(t, fasthttp.StatusOK, resp.StatusCode())
}

type headerHandler struct {
	name, key, value string
	stop             bool
}

func (h *headerHandler) Name() string { return h.name }

func (h *headerHandler) Run(ctx *Context) error {
	ctx.FastCtx().Response.Header.Set(h.key, h.value)
	if h.stop {
		ctx.FastCtx().SetStatusCode(fasthttp.StatusTeapot)
		ctx.Stop()
	}
	return nil
}

func TestServer_Hooks(t *testing.T) {
	ts := startServer(t, func(s *Server) {
		s.Before(&headerHandler{name: "before", key: "X-Before", value: "1"})
		s.After(&headerHandler{name: "after", key: "X-After", value: "2"})
	})

	resp := ts.do(t, "GET", "/readme.txt")
	assert.Equal(t, fasthttp.StatusOK, resp.StatusCode())
	assert.Equal(t, "1", string(resp.Header.Peek("X-Before")))
	assert.Equal(t, "2", string(resp.Header.Peek("X-After")))
}

func TestServer_HookStops(t *testing.T) {
	ts := startServer(t, func(s *Server) {
		s.Before(&headerHandler{name: "gate", key: "X-Gate", value: "closed", stop: true})
	})

	resp := ts.do(t, "GET", "/readme.txt")
	assert.Equal(t, fasthttp.StatusTeapot, resp.StatusCode())
	assert.Equal(t, "closed", string(resp.Header.Peek("X-Gate")))
	assert.Empty(t, resp.Body())

	// the access log still runs
	entry := ts.logs.accessEntry(t, "/readme.txt")
	assert.EqualValues(t, fasthttp.StatusTeapot, entry["status"])
}

func TestServer_Concurrent(t *testing.T) {
	ts := startServer(t)

	wg := sync.WaitGroup{}
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			conn, err := ts.ln.Dial()
			if !assert.NoError(t, err) {
				return
			}
			defer func() {
				_ = conn.Close()
			}()

			uri := "/readme.txt"
			if i%2 == 1 {
				uri = "/docs/a.txt"
			}
			_, err = conn.Write([]byte("GET " + uri + " HTTP/1.1\r\nHost: test\r\nConnection: close\r\n\r\n"))
			if !assert.NoError(t, err) {
				return
			}

			resp := &fasthttp.Response{}
			if !assert.NoError(t, resp.Read(bufio.NewReader(conn))) {
				return
			}

			want := "hello world"
			if i%2 == 1 {
				want = "a"
			}
			assert.Equal(t, fasthttp.StatusOK, resp.StatusCode())
			assert.Equal(t, want, string(resp.Body()))
		}(i)
	}
	wg.Wait()
}

func TestServer_ZeroConfig(t *testing.T) {
	// a hand-built config, no defaults filled in
	ts := startConfigServer(t, Config{Root: siteRoot(t)})

	assert.Equal(t, DefaultShutdownTimeout, ts.Config().ShutdownTimeout.Duration)

	resp := ts.do(t, "GET", "/readme.txt")
	assert.Equal(t, fasthttp.StatusOK, resp.StatusCode())
	// cleanup checks that Serve returns nil once cancelled
}

func TestServer_LoggerWriter(t *testing.T) {
	ts := startServer(t)

	_, err := ts.LoggerWriter().Write([]byte(`{"path":"/manual","status":0}` + "\n"))
	require.NoError(t, err)

	entry := ts.logs.accessEntry(t, "/manual")
	assert.EqualValues(t, 0, entry["status"])
}

func TestNew(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Root = filepath.Join(t.TempDir(), "nope")
	_, err := New(cfg)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.Port = 70000
	_, err = New(cfg)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.Root = siteRoot(t)
	cfg.ServerName = "files"
	cfg.Concurrency = 10
	server, err := New(cfg)
	require.NoError(t, err)

	canonical, err := filepath.EvalSymlinks(cfg.Root)
	require.NoError(t, err)
	assert.Equal(t, canonical, server.Root())
	assert.Equal(t, "files", server.Server().Name)
	assert.Equal(t, 10, server.Server().Concurrency)
	assert.Equal(t, DefaultIdleTimeout, server.Server().IdleTimeout)
	assert.Equal(t, level.InfoLevel, server.LogLevel())
}

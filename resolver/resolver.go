// Package resolver maps request paths onto files below a document root.
//
// Every path handed out by a Resolver has been checked, after symlink
// resolution, to be the root itself or a descendant of it.
package resolver

import (
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"github.com/iostrovok/fileserve/internal/mimetype"
)

var (
	// ErrForbidden means the request path leads outside the document root.
	ErrForbidden = errors.New("path escapes document root")
	// ErrNotFound means nothing servable exists at the request path.
	ErrNotFound = errors.New("no such file or directory")
)

// DefaultIndexes are tried in order when a directory is requested.
var DefaultIndexes = []string{"index.html", "index.htm"}

type Kind int

const (
	KindFile Kind = iota + 1
	KindDirectory
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	}

	return "unknown"
}

// Target is a resolved request.
type Target struct {
	Kind Kind

	// Path is the canonical filesystem path, symlinks resolved.
	Path string
	// URLPath is the decoded and normalized request path.
	URLPath string
	Name    string

	Size     int64
	ModTime  time.Time
	MimeType string

	// RequestedDir is set when the request named a directory, also when
	// its index file became the target.
	RequestedDir bool
	// DirURLPath is the normalized, decoded path of the requested
	// directory with a trailing slash. Empty unless RequestedDir is set.
	DirURLPath string
}

type Resolver struct {
	root    string
	indexes []string
}

// New returns a Resolver for root. Root must be an existing directory;
// it is made absolute and its symlinks are resolved once, here.
func New(root string, indexes ...string) (*Resolver, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(err, "document root")
	}

	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, errors.Wrap(err, "document root")
	}

	info, err := os.Stat(canonical)
	if err != nil {
		return nil, errors.Wrap(err, "document root")
	}

	if !info.IsDir() {
		return nil, errors.Errorf("document root %q is not a directory", abs)
	}

	if len(indexes) == 0 {
		indexes = DefaultIndexes
	}

	return &Resolver{
		root:    canonical,
		indexes: append([]string(nil), indexes...),
	}, nil
}

// Root returns the canonical document root.
func (r *Resolver) Root() string {
	return r.root
}

// Resolve maps a raw (still percent-encoded) URL path to a Target.
// It returns ErrForbidden or ErrNotFound for the expected failures and a
// wrapped filesystem error for anything else.
func (r *Resolver) Resolve(requestPath string) (Target, error) {
	segments, err := Segments(requestPath)
	if err != nil {
		return Target{}, err
	}

	urlPath := "/" + strings.Join(segments, "/")
	name := filepath.Join(append([]string{r.root}, segments...)...)

	canonical, err := r.contain(name)
	if err != nil {
		return Target{}, err
	}

	info, err := os.Stat(canonical)
	if err != nil {
		return Target{}, statError(err)
	}

	switch {
	case info.IsDir():
		if urlPath != "/" {
			urlPath += "/"
		}

		if target, find := r.index(canonical, urlPath); find {
			return target, nil
		}

		return Target{
			Kind:         KindDirectory,
			Path:         canonical,
			URLPath:      urlPath,
			Name:         info.Name(),
			ModTime:      info.ModTime(),
			RequestedDir: true,
			DirURLPath:   urlPath,
		}, nil
	case info.Mode().IsRegular():
		return fileTarget(canonical, urlPath, info), nil
	}

	// devices, sockets and pipes are never served
	return Target{}, ErrNotFound
}

func (r *Resolver) index(dir, urlPath string) (Target, bool) {
	for _, index := range r.indexes {
		canonical, err := r.contain(filepath.Join(dir, index))
		if err != nil {
			continue
		}

		info, err := os.Stat(canonical)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}

		target := fileTarget(canonical, urlPath+index, info)
		target.RequestedDir = true
		target.DirURLPath = urlPath
		return target, true
	}

	return Target{}, false
}

// IsDir reports whether name, a path below the root, leads to a directory
// that is still inside the root once its symlinks are resolved.
func (r *Resolver) IsDir(name string) bool {
	canonical, err := r.contain(name)
	if err != nil {
		return false
	}

	info, err := os.Stat(canonical)
	return err == nil && info.IsDir()
}

// contain resolves symlinks in name and checks that the result is still
// below the root.
func (r *Resolver) contain(name string) (string, error) {
	canonical, err := filepath.EvalSymlinks(name)
	if err != nil {
		return "", statError(err)
	}

	if !Within(r.root, canonical) {
		return "", ErrForbidden
	}

	return canonical, nil
}

// Within reports whether name equals root or is nested under it.
// Both paths must be absolute and clean.
func Within(root, name string) bool {
	rel, err := filepath.Rel(root, name)
	if err != nil {
		return false
	}

	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}

	return !filepath.IsAbs(rel)
}

// Segments decodes and normalizes a raw URL path into its path elements.
// A ".." that would climb above the root yields ErrForbidden.
func Segments(requestPath string) ([]string, error) {
	if i := strings.IndexAny(requestPath, "?#"); i >= 0 {
		requestPath = requestPath[:i]
	}

	decoded, err := url.PathUnescape(requestPath)
	if err != nil {
		return nil, ErrNotFound
	}

	if strings.IndexByte(decoded, 0) >= 0 {
		return nil, ErrNotFound
	}

	segments := make([]string, 0, strings.Count(decoded, "/")+1)
	for _, segment := range strings.Split(decoded, "/") {
		switch segment {
		case "", ".":
			continue
		case "..":
			if len(segments) == 0 {
				return nil, ErrForbidden
			}
			segments = segments[:len(segments)-1]
			continue
		}

		// a separator smuggled inside one element, e.g. "a\b" on windows
		if filepath.Separator != '/' && strings.ContainsRune(segment, filepath.Separator) {
			return nil, ErrForbidden
		}

		segments = append(segments, segment)
	}

	return segments, nil
}

func fileTarget(canonical, urlPath string, info fs.FileInfo) Target {
	return Target{
		Kind:     KindFile,
		Path:     canonical,
		URLPath:  urlPath,
		Name:     info.Name(),
		Size:     info.Size(),
		ModTime:  info.ModTime(),
		MimeType: mimetype.ByName(info.Name()),
	}
}

func statError(err error) error {
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
		return ErrNotFound
	}

	return errors.Wrap(err, "stat")
}

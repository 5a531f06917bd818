// Package mimetype maps file extensions to content types.
//
// The table is fixed at compile time so responses do not depend on the
// mime.types files installed on the host.
package mimetype

import (
	"path/filepath"
	"strings"
)

// Default is used for every extension missing from the table.
const Default = "application/octet-stream"

var types = map[string]string{
	// text
	".css":  "text/css",
	".csv":  "text/csv",
	".htm":  "text/html",
	".html": "text/html",
	".ics":  "text/calendar",
	".js":   "text/javascript",
	".md":   "text/markdown",
	".mjs":  "text/javascript",
	".txt":  "text/plain",
	".xml":  "text/xml",

	// application
	".gz":    "application/gzip",
	".json":  "application/json",
	".map":   "application/json",
	".pdf":   "application/pdf",
	".rtf":   "application/rtf",
	".tar":   "application/x-tar",
	".wasm":  "application/wasm",
	".xhtml": "application/xhtml+xml",
	".zip":   "application/zip",

	// images
	".avif": "image/avif",
	".bmp":  "image/bmp",
	".gif":  "image/gif",
	".ico":  "image/vnd.microsoft.icon",
	".jpeg": "image/jpeg",
	".jpg":  "image/jpeg",
	".png":  "image/png",
	".svg":  "image/svg+xml",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".webp": "image/webp",

	// fonts
	".otf":   "font/otf",
	".ttf":   "font/ttf",
	".woff":  "font/woff",
	".woff2": "font/woff2",

	// audio / video
	".mp3":  "audio/mpeg",
	".mp4":  "video/mp4",
	".mpeg": "video/mpeg",
	".oga":  "audio/ogg",
	".ogg":  "audio/ogg",
	".ogv":  "video/ogg",
	".wav":  "audio/wav",
	".weba": "audio/webm",
	".webm": "video/webm",
}

// ByExtension returns the content type for ext (with the leading dot).
// Lookup is case-insensitive.
func ByExtension(ext string) string {
	if t, find := types[strings.ToLower(ext)]; find {
		return t
	}

	return Default
}

// ByName returns the content type for the extension of a file name.
func ByName(name string) string {
	return ByExtension(filepath.Ext(name))
}

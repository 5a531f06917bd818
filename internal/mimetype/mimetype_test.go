package mimetype

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var nameData = map[string]string{
	"index.html":        "text/html",
	"INDEX.HTM":         "text/html",
	"readme.txt":        "text/plain",
	"app.min.js":        "text/javascript",
	"photo.JPG":         "image/jpeg",
	"archive.tar.gz":    "application/gzip",
	"Makefile":          Default,
	"weird.unknownext":  Default,
	".hidden":           Default,
	"dir.with.dots/a.b": Default,
}

func TestByName(t *testing.T) {
	for in, out := range nameData {
		assert.Equal(t, out, ByName(in), in+" => "+out)
	}
}

func TestByExtension(t *testing.T) {
	assert.Equal(t, "application/json", ByExtension(".json"))
	assert.Equal(t, Default, ByExtension(""))
	assert.Equal(t, Default, ByExtension("json"))
}

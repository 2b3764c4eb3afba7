package storage

import (
	"path/filepath"
	"strings"

	"github.com/modeltap/modeltap/pkg/capture"
)

const maxSegmentLen = 120

// Router resolves the JSONL destination pair for an exchange. Requests
// carrying the batch header get a directory of their own under
// <dataDir>/requests/<batch>; everything else shares the top-level pair.
type Router struct {
	dataDir   string
	headerKey string
}

// NewRouter creates a Router rooted at dataDir. headerKey names the request
// header that carries the batch identifier; an empty key disables
// per-batch routing.
func NewRouter(dataDir, headerKey string) *Router {
	return &Router{
		dataDir:   dataDir,
		headerKey: strings.ToLower(headerKey),
	}
}

func (r *Router) Resolve(req *capture.Request) capture.Destinations {
	if r.headerKey != "" {
		if headerValue := req.Header(r.headerKey); headerValue != "" {
			baseDir := filepath.Join(r.dataDir, "requests", safeSegment(headerValue))
			return capture.Destinations{
				Input:  filepath.Join(baseDir, "input.jsonl"),
				Output: filepath.Join(baseDir, "output.jsonl"),
			}
		}
	}

	return capture.Destinations{
		Input:  filepath.Join(r.dataDir, "input.jsonl"),
		Output: filepath.Join(r.dataDir, "output.jsonl"),
	}
}

// safeSegment reduces an arbitrary header value to a path segment that
// cannot escape the data directory.
func safeSegment(value string) string {
	var b strings.Builder
	for _, c := range strings.TrimSpace(value) {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9',
			c == '-', c == '_', c == '.':
			b.WriteRune(c)
		default:
			b.WriteByte('_')
		}
	}

	cleaned := strings.Trim(b.String(), "._-")
	if len(cleaned) > maxSegmentLen {
		cleaned = cleaned[:maxSegmentLen]
	}
	if cleaned == "" {
		return "unknown"
	}
	return cleaned
}

package capture

import "strings"

// Endpoint describes one supported API operation by name and path suffixes.
type Endpoint struct {
	Name     string
	Suffixes []string
}

// Registry matches request paths against the supported endpoints. Matching
// is by path suffix so arbitrary routing prefixes (/v1, /proxy/openai, ...)
// are accepted; any query string is stripped first.
type Registry struct {
	endpoints []Endpoint
}

func NewRegistry(endpoints ...Endpoint) *Registry {
	return &Registry{endpoints: endpoints}
}

// DefaultRegistry supports chat completions only.
func DefaultRegistry() *Registry {
	return NewRegistry(Endpoint{
		Name:     "chat.completions",
		Suffixes: []string{"/chat/completions"},
	})
}

func normalizePath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		return path[:i]
	}
	return path
}

// Match returns the first endpoint whose suffix matches the path.
func (r *Registry) Match(path string) (Endpoint, bool) {
	cleanPath := normalizePath(path)
	for _, endpoint := range r.endpoints {
		for _, suffix := range endpoint.Suffixes {
			if strings.HasSuffix(cleanPath, suffix) {
				return endpoint, true
			}
		}
	}
	return Endpoint{}, false
}

// Supports reports whether the path targets any supported endpoint.
func (r *Registry) Supports(path string) bool {
	_, ok := r.Match(path)
	return ok
}

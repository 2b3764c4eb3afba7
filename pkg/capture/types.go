package capture

import "strings"

// Request is a transport-neutral summary of one observed HTTP request.
// Header keys are stored lowercased; hosts built on servers that keep
// canonical-case headers should lower them when filling Headers.
type Request struct {
	Method  string
	Path    string
	Headers map[string]string
	Body    string
}

// Header returns the named header value, matching case-insensitively.
func (r *Request) Header(key string) string {
	return r.Headers[strings.ToLower(key)]
}

// Response is a transport-neutral summary of one observed HTTP response.
type Response struct {
	StatusCode  int
	ContentType string
	Body        string
}

// Destinations is the resolved pair of storage locations for one exchange.
// The request payload goes to Input, the (aggregated) response to Output.
// Both are resolved together and stay fixed for the exchange lifetime.
type Destinations struct {
	Input  string
	Output string
}

func (d Destinations) valid() bool {
	return d.Input != "" && d.Output != ""
}

// StorageRouter resolves the destination pair for an exchange from request
// metadata. Implementations must be deterministic for identical metadata.
type StorageRouter interface {
	Resolve(req *Request) Destinations
}

// Appender persists one JSON-serializable value as a single line at the
// given destination. Appends are best-effort: failures are reported
// out-of-band (warning logs) and never surfaced to the caller.
type Appender interface {
	Append(destination string, payload any)
}

// RequestPreprocessor may rewrite a request payload before it is logged.
// Returning nil vetoes the exchange: nothing is logged and no correlation
// state is kept.
type RequestPreprocessor func(payload map[string]any, req *Request) map[string]any

// RedactFields returns a preprocessor that replaces the given top-level
// payload fields with "[redacted]" when present.
func RedactFields(keys ...string) RequestPreprocessor {
	return func(payload map[string]any, req *Request) map[string]any {
		for _, key := range keys {
			if _, ok := payload[key]; ok {
				payload[key] = "[redacted]"
			}
		}
		return payload
	}
}

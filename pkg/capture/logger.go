package capture

import (
	"net/http"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
)

// correlation associates an in-flight request with its resolved destination
// pair and parsed payload until the matching response is observed.
type correlation struct {
	dests   Destinations
	payload map[string]any
}

// Options configures a Logger. Router and Appender are required; Registry
// defaults to DefaultRegistry and Preprocessors may be empty.
type Options struct {
	Registry      *Registry
	Router        StorageRouter
	Appender      Appender
	Preprocessors []RequestPreprocessor
}

// Logger correlates request/response pairs of OpenAI-compatible traffic and
// persists both sides of every logged exchange. It never disrupts the
// traffic it observes: unsupported requests, unparsable bodies and vetoed
// exchanges are silent no-ops, and storage failures stay inside the
// Appender. Exchanges are keyed by an opaque id supplied by the hosting
// transport; each exchange's state is isolated, so concurrent exchanges
// never interleave each other's aggregation.
type Logger struct {
	registry      *Registry
	router        StorageRouter
	appender      Appender
	preprocessors []RequestPreprocessor

	mu       sync.Mutex
	inflight map[string]*correlation
}

func NewLogger(opts *Options) *Logger {
	registry := opts.Registry
	if registry == nil {
		registry = DefaultRegistry()
	}

	return &Logger{
		registry:      registry,
		router:        opts.Router,
		appender:      opts.Appender,
		preprocessors: opts.Preprocessors,
		inflight:      map[string]*correlation{},
	}
}

// Request observes one inbound request. When the request is loggable (POST
// to a supported endpoint with a JSON object body that survives the
// preprocessor chain) its payload is appended to the resolved input
// destination and correlation state is retained under exchangeID. The
// return value reports whether the exchange was logged; either way the
// caller proceeds with the exchange unchanged.
func (l *Logger) Request(exchangeID string, req *Request) bool {
	if req == nil || !strings.EqualFold(req.Method, http.MethodPost) {
		return false
	}
	if !l.registry.Supports(req.Path) {
		return false
	}
	if req.Body == "" {
		return false
	}

	var payload map[string]any
	if err := sonic.UnmarshalString(req.Body, &payload); err != nil || payload == nil {
		return false
	}

	for _, preprocess := range l.preprocessors {
		payload = preprocess(payload, req)
		if payload == nil {
			return false
		}
	}

	dests := l.router.Resolve(req)

	l.mu.Lock()
	l.inflight[exchangeID] = &correlation{dests: dests, payload: payload}
	l.mu.Unlock()

	l.appender.Append(dests.Input, payload)
	return true
}

// Response observes the response of a previously seen exchange. Streamed
// (SSE) bodies are reconstructed into a single chat-completion object before
// being appended to the output destination; plain JSON bodies are appended
// verbatim. The correlation entry is consumed either way.
func (l *Logger) Response(exchangeID string, res *Response) {
	if res == nil {
		return
	}

	l.mu.Lock()
	corr, ok := l.inflight[exchangeID]
	if ok {
		delete(l.inflight, exchangeID)
	}
	l.mu.Unlock()
	if !ok {
		return
	}

	if !corr.dests.valid() {
		return
	}
	if res.Body == "" {
		return
	}

	if IsEventStream(res.ContentType) {
		payload := Aggregate(ParseSSE(res.Body))
		if payload == nil {
			return
		}
		l.appender.Append(corr.dests.Output, payload)
		return
	}

	var payload any
	if err := sonic.UnmarshalString(res.Body, &payload); err != nil || payload == nil {
		return
	}
	l.appender.Append(corr.dests.Output, payload)
}

// Abandon drops the correlation state of an exchange whose response will
// never arrive. A request logged without a response is an acceptable
// terminal state, not an error.
func (l *Logger) Abandon(exchangeID string) {
	l.mu.Lock()
	delete(l.inflight, exchangeID)
	l.mu.Unlock()
}

// Pending returns the number of exchanges awaiting a response.
func (l *Logger) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.inflight)
}

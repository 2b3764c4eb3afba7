package proxy

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fasthttp/router"
	"github.com/modeltap/modeltap/internal/config"
	"github.com/modeltap/modeltap/pkg/capture"
	"github.com/valyala/fasthttp"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("CaptureProxy")

// Server is the hosting transport for the capture core: a reverse proxy
// that forwards traffic to one upstream OpenAI-compatible endpoint while
// teeing request and response bodies into the exchange logger.
type Server struct {
	srv      *fasthttp.Server
	addr     string
	upstream *fasthttp.HostClient
	host     string
	logger   *capture.Logger
}

// New creates a capture proxy in front of conf.UPSTREAM_URL.
func New(conf *config.Config, logger *capture.Logger) (*Server, error) {
	if conf.UPSTREAM_URL == "" {
		return nil, fmt.Errorf("UPSTREAM_URL is required")
	}

	u, err := url.Parse(conf.UPSTREAM_URL)
	if err != nil {
		return nil, fmt.Errorf("invalid UPSTREAM_URL %q: %w", conf.UPSTREAM_URL, err)
	}

	isTLS := u.Scheme == "https"
	addr := u.Host
	if u.Port() == "" {
		if isTLS {
			addr += ":443"
		} else {
			addr += ":80"
		}
	}

	s := &Server{
		addr: conf.LISTEN_ADDR,
		upstream: &fasthttp.HostClient{
			Addr:  addr,
			IsTLS: isTLS,
			// SSE responses are long-lived and must not be buffered whole
			StreamResponseBody: true,
			ReadTimeout:        0,
			WriteTimeout:       30 * time.Second,
		},
		host:   u.Host,
		logger: logger,
	}

	s.srv = &fasthttp.Server{Handler: s.Handler()}

	return s, nil
}

// Handler returns the proxy request handler, routing the admin endpoints
// and forwarding everything else upstream.
func (s *Server) Handler() fasthttp.RequestHandler {
	r := router.New()
	r.HandleOPTIONS = false
	r.HandleMethodNotAllowed = false

	r.GET("/healthz", func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusOK)
		_, _ = ctx.Write([]byte("OK"))
	})

	r.NotFound = s.handleExchange

	return r.Handler
}

// Start the proxy server
func (s *Server) Start() {
	slog.Info("Starting capture proxy...", slog.String("addr", s.addr), slog.String("upstream", s.host))
	go func() {
		if err := s.srv.ListenAndServe(s.addr); err != nil {
			slog.Error("Server shutdown", slog.Any("error", err))
		}
	}()
	slog.Info("Capture proxy started!")

	// Listen for OS interrupts
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	// Block till we receive an interrupt
	<-c
	slog.Info("Received interrupt...")

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	s.shutdown(ctx)
}

// shutdown shuts down the proxy server
func (s *Server) shutdown(ctx context.Context) {
	slog.Info("Gracefully shutting down capture proxy...")
	if err := s.srv.ShutdownWithContext(ctx); err != nil {
		slog.Error("Failed to shutdown the server", slog.Any("error", err))
	}
	slog.Info("Capture proxy shutdown!")
}

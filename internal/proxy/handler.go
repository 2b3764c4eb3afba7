package proxy

import (
	"bufio"
	"bytes"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/modeltap/modeltap/pkg/capture"
	"github.com/valyala/fasthttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// handleExchange forwards one request upstream and hands both sides of the
// exchange to the capture logger. The logger never fails the exchange; the
// only client-visible error is an unreachable upstream.
func (s *Server) handleExchange(ctx *fasthttp.RequestCtx) {
	exchangeID := uuid.NewString()

	_, span := tracer.Start(ctx, "Proxy.Exchange")
	span.SetAttributes(
		attribute.String("exchange.id", exchangeID),
		attribute.String("http.method", string(ctx.Method())),
		attribute.String("http.target", string(ctx.RequestURI())),
	)

	logged := s.logger.Request(exchangeID, &capture.Request{
		Method:  string(ctx.Method()),
		Path:    string(ctx.RequestURI()),
		Headers: headerMap(&ctx.Request.Header),
		Body:    string(ctx.PostBody()),
	})
	span.SetAttributes(attribute.Bool("exchange.logged", logged))

	upReq := fasthttp.AcquireRequest()
	upResp := fasthttp.AcquireResponse()
	ctx.Request.CopyTo(upReq)
	upReq.SetHost(s.host)

	if err := s.upstream.Do(upReq, upResp); err != nil {
		fasthttp.ReleaseRequest(upReq)
		fasthttp.ReleaseResponse(upResp)
		s.logger.Abandon(exchangeID)
		slog.ErrorContext(ctx, "Upstream request failed", slog.String("exchange_id", exchangeID), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		ctx.Error("bad gateway", fasthttp.StatusBadGateway)
		return
	}
	fasthttp.ReleaseRequest(upReq)

	statusCode := upResp.StatusCode()
	contentType := string(upResp.Header.ContentType())
	span.SetAttributes(attribute.Int("http.status_code", statusCode))

	if capture.IsEventStream(contentType) {
		upResp.Header.CopyTo(&ctx.Response.Header)
		ctx.Response.Header.SetContentLength(-1)

		bodyStream := upResp.BodyStream()
		logger := s.logger
		ctx.SetBodyStreamWriter(func(w *bufio.Writer) {
			defer span.End()
			defer fasthttp.ReleaseResponse(upResp)

			var tee bytes.Buffer
			reader := bufio.NewReader(io.TeeReader(bodyStream, &tee))
			for {
				line, err := reader.ReadBytes('\n')
				if len(line) > 0 {
					if _, werr := w.Write(line); werr != nil {
						break
					}
					// flush per line so the client sees chunks as they arrive
					if werr := w.Flush(); werr != nil {
						break
					}
				}
				if err != nil {
					break
				}
			}

			logger.Response(exchangeID, &capture.Response{
				StatusCode:  statusCode,
				ContentType: contentType,
				Body:        tee.String(),
			})
		})
		return
	}

	body := upResp.Body()
	upResp.Header.CopyTo(&ctx.Response.Header)
	ctx.SetBody(body)

	s.logger.Response(exchangeID, &capture.Response{
		StatusCode:  statusCode,
		ContentType: contentType,
		Body:        string(body),
	})
	fasthttp.ReleaseResponse(upResp)
	span.End()
}

// headerMap copies request headers into the lowercased map the capture
// core expects.
func headerMap(h *fasthttp.RequestHeader) map[string]string {
	headers := make(map[string]string, h.Len())
	h.VisitAll(func(k, v []byte) {
		headers[strings.ToLower(string(k))] = string(v)
	})
	return headers
}

package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/joaquindlz/wp-bot/internal/httputil"
	"github.com/joaquindlz/wp-bot/internal/metrics"
	"github.com/joaquindlz/wp-bot/internal/service"
	"github.com/joaquindlz/wp-bot/internal/tracing"
)

// ObservabilityMiddleware adds a span, request metrics and a completion log
// line to every status server request. Probes hit these endpoints often, so
// successful requests log at debug.
func ObservabilityMiddleware(logger *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := tracing.NewRequestID()

			ctx, span := tracing.StartSpan(r.Context(), "status_request",
				attribute.String("http.method", r.Method),
				attribute.String("http.route", r.URL.Path),
				attribute.String("client.address", httputil.GetClientIP(r)),
			)
			defer span.End()
			ctx = tracing.WithRequestID(ctx, requestID)
			r = r.WithContext(ctx)

			wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapper, r)

			duration := time.Since(start)
			status := strconv.Itoa(wrapper.statusCode)

			span.SetAttributes(
				attribute.Int("http.response.status_code", wrapper.statusCode),
				attribute.Int64("http.response.size", wrapper.responseSize),
			)
			if wrapper.statusCode >= 500 {
				tracing.SetSpanStatus(ctx, codes.Error, fmt.Sprintf("HTTP %d", wrapper.statusCode))
			} else {
				tracing.SetSpanStatus(ctx, codes.Ok, "")
			}

			labels := map[string]string{
				service.LogFieldMethod:     r.Method,
				service.LogFieldEndpoint:   r.URL.Path,
				service.LogFieldStatusCode: status,
			}
			metrics.IncrementCounter(metrics.HTTPRequestsTotal, labels, "Status server requests")
			metrics.RecordTimer(metrics.HTTPRequestDuration, duration, labels, "Status server request duration")

			fields := logrus.Fields{
				service.LogFieldRequestID:  requestID,
				service.LogFieldMethod:     r.Method,
				service.LogFieldURL:        r.URL.Path,
				service.LogFieldStatusCode: wrapper.statusCode,
				service.LogFieldDuration:   duration.Milliseconds(),
				service.LogFieldRemoteIP:   httputil.GetClientIP(r),
				service.LogFieldUserAgent:  r.Header.Get("User-Agent"),
				service.LogFieldSize:       wrapper.responseSize,
			}
			if traceID := tracing.TraceID(ctx); traceID != "" {
				fields[service.LogFieldTraceID] = traceID
			}

			level := logrus.DebugLevel
			if wrapper.statusCode >= 500 && wrapper.statusCode != http.StatusServiceUnavailable {
				level = logrus.ErrorLevel
			} else if wrapper.statusCode >= 400 && wrapper.statusCode < 500 {
				level = logrus.WarnLevel
			}
			logger.WithFields(fields).Log(level, "Status request completed")
		})
	}
}

// responseWrapper captures the status code and body size
type responseWrapper struct {
	http.ResponseWriter
	statusCode   int
	responseSize int64
}

func (rw *responseWrapper) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *responseWrapper) Write(data []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(data)
	rw.responseSize += int64(n)
	return n, err
}

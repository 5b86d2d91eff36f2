package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"gitlab.com/pdhero/retur/internal/metrics"
)

const requestIDHeader = "X-Request-ID"

// requestMiddleware tags each request with an id, logs it and records
// per-route metrics. Routes are labelled by their template so document
// numbers do not explode label cardinality.
func (s *Server) requestMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		route := routeName(r)
		wrw := newResponseWriterWrapper(w)

		next.ServeHTTP(wrw, r)

		elapsed := time.Since(start)
		code := wrw.GetStatusCode()
		metrics.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())

		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("route", route),
			zap.Int("status", code),
			zap.Int("bytes", wrw.BytesWritten()),
			zap.Duration("elapsed", elapsed),
		}
		if number := mux.Vars(r)["number"]; number != "" {
			fields = append(fields, zap.String("document_number", number))
		}

		switch {
		case code >= http.StatusInternalServerError:
			s.logger.Error("Request failed", fields...)
		case code >= http.StatusBadRequest:
			s.logger.Warn("Request rejected", fields...)
		default:
			s.logger.Info("Request handled", fields...)
		}
	})
}

func routeName(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return "unknown"
	}
	tpl, err := route.GetPathTemplate()
	if err != nil {
		return "unknown"
	}
	return r.Method + " " + tpl
}

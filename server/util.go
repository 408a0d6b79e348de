package server

import (
	"bufio"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/teranos/smrt/errors"
	"github.com/teranos/smrt/logger"
)

// RequestIDHeader carries the request ID in both directions
const RequestIDHeader = "X-Request-ID"

func (s *Server) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  2048,
		WriteBufferSize: 2048,
		CheckOrigin:     s.checkOrigin,
	}
}

// checkOrigin validates the Origin header against the configured allowed origins.
// Prefix matching allows any port.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")

	// direct clients and tests send no origin
	if origin == "" {
		return true
	}

	if len(s.allowedOrigins) == 0 {
		return strings.HasPrefix(origin, "http://localhost") ||
			strings.HasPrefix(origin, "https://localhost")
	}
	for _, allowed := range s.allowedOrigins {
		if allowed == "*" || strings.HasPrefix(origin, allowed) {
			return true
		}
	}
	return false
}

// corsMiddleware adds CORS headers for allowed origins and answers preflight requests
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.checkOrigin(r) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+RequestIDHeader)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestIDMiddleware tags each request with an ID, taken from the client when present
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	})
}

// statusRecorder captures the status code for access logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rr *statusRecorder) WriteHeader(code int) {
	rr.status = code
	rr.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer
func (rr *statusRecorder) Unwrap() http.ResponseWriter {
	return rr.ResponseWriter
}

// Hijack hands the connection to the websocket upgrader
func (rr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rr.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	rr.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		logger.LoggerFromContext(r.Context(), s.logger).Debugw("Request",
			logger.FieldMethod, r.Method,
			logger.FieldPath, r.URL.Path,
			logger.FieldStatus, rec.status,
			logger.FieldDurationMS, time.Since(start).Milliseconds())
	})
}

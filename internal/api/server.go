package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/inkyvoxel/interrogate/internal/api/middleware"
	"github.com/inkyvoxel/interrogate/internal/scan"
	sharedErrors "github.com/inkyvoxel/interrogate/internal/shared/errors"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	maxRequestBytes     = 1048576 // 1MB
	defaultMaxBatchSize = 50
)

// InterrogateRequest is the body of POST /api/v1/interrogate.
type InterrogateRequest struct {
	URL     string `json:"url"`
	Headers bool   `json:"headers"`
	Body    bool   `json:"body"`
	Robots  bool   `json:"robots"`
	All     bool   `json:"all"`
}

// BatchRequest is the body of POST /api/v1/batch.
type BatchRequest struct {
	URLs    []string `json:"urls"`
	Headers bool     `json:"headers"`
	Body    bool     `json:"body"`
	Robots  bool     `json:"robots"`
	All     bool     `json:"all"`
}

func buildOptions(headers, body, robots, all bool) scan.Options {
	opts := scan.Options{IncludeHeaders: headers, IncludeBody: body, IncludeRobots: robots}
	if all {
		opts = opts.All()
	}
	return opts
}

type Config struct {
	Scanner      scan.Interrogator
	Runner       *scan.Runner  // Batch worker pool (nil = sequential)
	ScanTimeout  time.Duration // Per-URL timeout (0 = request lifetime)
	BatchTimeout time.Duration // Whole-batch timeout (0 = request lifetime)
	MaxBatchSize int
	Version      string
	AuthToken    string
	Logger       *zap.Logger
	CORSOrigins  []string // Allowed CORS origins (empty = allow all)
	RateLimit    int      // Requests per second per IP (0 = disabled)
	RateBurst    int      // Burst size for rate limiter
}

type Server struct {
	cfg      Config
	mux      *http.ServeMux
	limiters *rateLimiterMap
}

func NewServer(cfg Config) *Server {
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = defaultMaxBatchSize
	}
	srv := &Server{
		cfg:      cfg,
		mux:      http.NewServeMux(),
		limiters: newRateLimiterMap(),
	}
	srv.routes()
	return srv
}

// Close stops background maintenance goroutines.
func (s *Server) Close() {
	s.limiters.stop()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Apply middleware chain: RequestID -> Logging -> RateLimit -> CORS -> Auth -> Handler
	handler := middleware.RequestID(s.withLogging(s.withRateLimit(s.withCORS(s.mux))))
	handler.ServeHTTP(w, r)
}

func (s *Server) routes() {
	// Version 1 API routes (primary)
	s.mux.Handle("/api/v1/health", s.withAuth(http.HandlerFunc(s.handleHealth)))
	s.mux.Handle("/api/v1/interrogate", s.withAuth(http.HandlerFunc(s.handleInterrogate)))
	s.mux.Handle("/api/v1/batch", s.withAuth(http.HandlerFunc(s.handleBatch)))

	// Unversioned aliases
	s.mux.Handle("/api/health", s.withAuth(http.HandlerFunc(s.handleHealth)))
	s.mux.Handle("/api/interrogate", s.withAuth(http.HandlerFunc(s.handleInterrogate)))
	s.mux.Handle("/api/batch", s.withAuth(http.HandlerFunc(s.handleBatch)))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, r)
		return
	}
	resp := map[string]string{"status": "ok"}
	if s.cfg.Version != "" {
		resp["version"] = s.cfg.Version
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleInterrogate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, r)
		return
	}
	if s.cfg.Scanner == nil {
		s.writeError(w, r, http.StatusInternalServerError, errors.New("scanner not configured"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	var req InterrogateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("%w: %v", sharedErrors.ErrInvalidInput, err))
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("%w: url", sharedErrors.ErrMissingRequired))
		return
	}

	ctx, cancel := s.scanContext(r.Context())
	defer cancel()

	report, err := s.cfg.Scanner.Scan(ctx, req.URL, buildOptions(req.Headers, req.Body, req.Robots, req.All))
	if err != nil {
		s.writeError(w, r, statusForScanError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, r)
		return
	}
	if s.cfg.Scanner == nil {
		s.writeError(w, r, http.StatusInternalServerError, errors.New("scanner not configured"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("%w: %v", sharedErrors.ErrInvalidInput, err))
		return
	}
	if len(req.URLs) == 0 {
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("%w: urls", sharedErrors.ErrMissingRequired))
		return
	}
	if len(req.URLs) > s.cfg.MaxBatchSize {
		s.writeError(w, r, http.StatusRequestEntityTooLarge, errors.New("too many urls in batch"))
		return
	}

	runner := s.cfg.Runner
	if runner == nil {
		runner = &scan.Runner{Concurrency: 1, Timeout: s.cfg.ScanTimeout}
	}
	ctx, cancel := s.batchContext(r.Context())
	defer cancel()

	results := runner.Run(ctx, req.URLs, s.cfg.Scanner, buildOptions(req.Headers, req.Body, req.Robots, req.All), nil)
	logger := s.requestLogger(r)
	for i := range results {
		if results[i].Err == nil {
			continue
		}
		results[i].Error = clientMessage(
			logger.With(zap.String("target", results[i].Target)),
			statusForScanError(results[i].Err),
			results[i].Err,
		)
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) scanContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.ScanTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.ScanTimeout)
}

func (s *Server) batchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.BatchTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.BatchTimeout)
}

// statusForScanError maps scan failures onto HTTP status codes.
func statusForScanError(err error) int {
	switch {
	case errors.Is(err, sharedErrors.ErrInvalidURL):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, sharedErrors.ErrFetchFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip rate limiting if disabled
		if s.cfg.RateLimit <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		clientIP := clientIPFromRequest(r)
		limiter := s.limiters.getLimiter(clientIP, s.cfg.RateLimit, s.cfg.RateBurst)

		if !limiter.Allow() {
			s.requestLogger(r).Warn("rate_limit_exceeded",
				zap.String("client_ip", clientIP),
			)
			s.writeError(w, r, http.StatusTooManyRequests, errors.New("rate limit exceeded"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIPFromRequest prefers the first X-Forwarded-For entry and strips the port.
func clientIPFromRequest(r *http.Request) string {
	clientIP := r.RemoteAddr
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if idx := strings.Index(forwarded, ","); idx > 0 {
			clientIP = strings.TrimSpace(forwarded[:idx])
		} else {
			clientIP = strings.TrimSpace(forwarded)
		}
	}
	if idx := strings.LastIndex(clientIP, ":"); idx > 0 && !strings.HasSuffix(clientIP, "]") {
		clientIP = clientIP[:idx]
	}
	return strings.Trim(clientIP, "[]")
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		allowOrigin := "*"
		if len(s.cfg.CORSOrigins) > 0 {
			allowOrigin = ""
			for _, allowedOrigin := range s.cfg.CORSOrigins {
				if allowedOrigin == origin {
					allowOrigin = origin
					break
				}
			}
		}

		if allowOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Auth-Token, X-Request-ID")
			w.Header().Set("Access-Control-Max-Age", "3600")
		}

		// Handle preflight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(lrw, r)

		if s.cfg.Logger != nil {
			s.cfg.Logger.Info("http_request",
				zap.String("request_id", middleware.GetRequestID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Int("status", lrw.statusCode),
				zap.Duration("duration", time.Since(start)),
				zap.Int64("bytes", lrw.bytesWritten),
			)
		}
	})
}

func (s *Server) withAuth(next http.Handler) http.Handler {
	if s.cfg.AuthToken == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("X-Auth-Token")
		// Use constant-time comparison to prevent timing attacks
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.AuthToken)) != 1 {
			s.writeError(w, r, http.StatusUnauthorized, errors.New("unauthorized"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// loggingResponseWriter wraps http.ResponseWriter to capture status code and bytes written
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	n, err := lrw.ResponseWriter.Write(b)
	lrw.bytesWritten += int64(n)
	return n, err
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	writeJSON(w, status, map[string]string{"error": clientMessage(s.requestLogger(r), status, err)})
}

// clientMessage returns the error text shown to API clients. Upstream details
// of 5xx failures (resolver output, dial errors) stay in the server log.
func clientMessage(logger *zap.Logger, status int, err error) string {
	if status < 500 {
		return err.Error()
	}
	switch {
	case errors.Is(err, sharedErrors.ErrFetchFailed):
		logger.Warn("upstream_fetch_failed", zap.Error(err), zap.Int("status", status))
		return sharedErrors.ErrFetchFailed.Error()
	case errors.Is(err, context.DeadlineExceeded):
		logger.Warn("scan_timed_out", zap.Error(err), zap.Int("status", status))
		return "scan timed out"
	default:
		logger.Error("internal_server_error", zap.Error(err), zap.Int("status", status))
		return "internal server error"
	}
}

// requestLogger creates a logger with request context (request ID, method, path)
func (s *Server) requestLogger(r *http.Request) *zap.Logger {
	if s.cfg.Logger == nil {
		return zap.NewNop()
	}
	return s.cfg.Logger.With(
		zap.String("request_id", middleware.GetRequestID(r.Context())),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	)
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

// rateLimiterMap manages per-IP rate limiters with automatic cleanup
type rateLimiterMap struct {
	mu       sync.Mutex
	limiters map[string]*ipLimiter
	done     chan struct{}
	stopOnce sync.Once
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newRateLimiterMap() *rateLimiterMap {
	m := &rateLimiterMap{
		limiters: make(map[string]*ipLimiter),
		done:     make(chan struct{}),
	}
	go m.cleanupLoop(time.Minute, 5*time.Minute)
	return m
}

func (m *rateLimiterMap) getLimiter(ip string, rps, burst int) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.limiters[ip]
	if !exists {
		if burst <= 0 {
			burst = rps
		}
		entry = &ipLimiter{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
		m.limiters[ip] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter
}

// cleanupLoop removes limiters that have been idle longer than maxIdle.
func (m *rateLimiterMap) cleanupLoop(interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.evictIdle(maxIdle)
		case <-m.done:
			return
		}
	}
}

func (m *rateLimiterMap) evictIdle(maxIdle time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for ip, entry := range m.limiters {
		if time.Since(entry.lastSeen) > maxIdle {
			delete(m.limiters, ip)
		}
	}
}

func (m *rateLimiterMap) stop() {
	m.stopOnce.Do(func() { close(m.done) })
}

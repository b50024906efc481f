// Package http is the JSON API surface. Routing is the stdlib mux; handlers
// decode, call a service, and encode. Identity comes from the X-User-ID
// header set by the authenticating proxy in front of this server.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	applog "fintrack/internal/log"
	"fintrack/internal/services"
)

type Server struct {
	http.Server
	transactions *services.TransactionService
	categories   *services.CategoryService
	budgets      *services.BudgetService
	dashboard    *services.DashboardService
	rateLimiter  *rateLimiter
	logger       *applog.StructuredLogger

	shutdownOnce sync.Once
}

// Simple in-memory rate limiter
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

// startCleanup runs periodic cleanup to remove stale client entries
func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries removes client entries older than 10 minutes
func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() { close(rl.stopCleanup) })
}

// allow admits up to 60 requests per client per minute.
func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]
	if !exists || now.Sub(client.lastRequest) > time.Minute {
		rl.clients[clientIP] = &clientInfo{lastRequest: now, requests: 1}
		return true
	}

	client.requests++
	client.lastRequest = now
	return client.requests <= 60
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, tx *services.TransactionService, cat *services.CategoryService, bud *services.BudgetService, dash *services.DashboardService, logger *applog.Logger) *Server {
	mux := http.NewServeMux()

	// The context logger rides on every request so deeper layers can pull a
	// component-scoped logger out of the context.
	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: applog.Middleware(logger)(mux),
		},
		transactions: tx,
		categories:   cat,
		budgets:      bud,
		dashboard:    dash,
		rateLimiter:  newRateLimiter(),
		logger:       applog.NewStructuredLogger(logger.WithComponent(applog.ComponentHTTP)),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /api/v1/dashboard", s.protect(s.handleDashboard))

	mux.HandleFunc("GET /api/v1/transactions", s.protect(s.handleListTransactions))
	mux.HandleFunc("POST /api/v1/transactions", s.protect(s.handleCreateTransaction))
	mux.HandleFunc("GET /api/v1/transactions/{id}", s.protect(s.handleGetTransaction))
	mux.HandleFunc("PUT /api/v1/transactions/{id}", s.protect(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/v1/transactions/{id}", s.protect(s.handleDeleteTransaction))

	mux.HandleFunc("GET /api/v1/categories", s.protect(s.handleListCategories))
	mux.HandleFunc("POST /api/v1/categories", s.protect(s.handleCreateCategory))
	mux.HandleFunc("GET /api/v1/categories/{id}", s.protect(s.handleGetCategory))
	mux.HandleFunc("PUT /api/v1/categories/{id}", s.protect(s.handleUpdateCategory))
	mux.HandleFunc("DELETE /api/v1/categories/{id}", s.protect(s.handleDeleteCategory))

	mux.HandleFunc("GET /api/v1/budgets", s.protect(s.handleListBudgets))
	mux.HandleFunc("POST /api/v1/budgets", s.protect(s.handleCreateBudget))
	mux.HandleFunc("GET /api/v1/budgets/month/{month}", s.protect(s.handleListBudgetsForMonth))
	mux.HandleFunc("GET /api/v1/budgets/{id}", s.protect(s.handleGetBudget))
	mux.HandleFunc("PUT /api/v1/budgets/{id}", s.protect(s.handleUpdateBudget))
	mux.HandleFunc("DELETE /api/v1/budgets/{id}", s.protect(s.handleDeleteBudget))

	return s
}

// protect stacks the ambient middleware on a handler: request logging with a
// request ID, security headers, write rate limiting, and header identity.
func (s *Server) protect(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Extract client IP (considering proxies)
		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		s.logger.LogHTTPStart(ctx, r, clientIP)

		if isWrite(r.Method) && !s.rateLimiter.allow(clientIP) {
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("X-Request-ID", requestID)

		userID, err := identify(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "missing or malformed X-User-ID header")
			return
		}
		r = r.WithContext(context.WithValue(r.Context(), userIDKey{}, userID))

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.logger.LogHTTPEnd(r.Context(), r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	}
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

type (
	requestIDKey struct{}
	userIDKey    struct{}
)

// identify reads the authenticated user from the X-User-ID header.
func identify(r *http.Request) (int64, error) {
	raw := r.Header.Get("X-User-ID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("bad user header %q", raw)
	}
	return id, nil
}

// userID returns the authenticated user set by protect. Handlers only run
// behind it, so a missing value is a programming error.
func userID(r *http.Request) int64 {
	id, _ := r.Context().Value(userIDKey{}).(int64)
	return id
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp if random fails
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ready")
}

// Shutdown stops background loops and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() { s.rateLimiter.stop() })
	return s.Server.Shutdown(ctx)
}

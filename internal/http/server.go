// Package http exposes the JSON API: CRUD for cards, purchases,
// categories, responsibles and billing cycles, the dashboard and
// monthly report aggregations, the bulk-import flow and the category
// suggestion endpoint.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"economize/internal/backend"
	"economize/internal/services"
)

// CategorySuggester is the advisory category oracle. A nil suggester
// degrades the endpoint to the default category.
type CategorySuggester interface {
	SuggestCategory(ctx context.Context, description string, categories []string) (string, error)
}

type Server struct {
	http.Server
	store       backend.Backend
	purchases   *services.PurchaseService
	importer    *services.ImportService
	suggester   CategorySuggester
	jwtSecret   string
	rateLimiter *rateLimiter

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
	rl.shutdownOnce.Do(func() {
		if rl.stopCleanup != nil {
			close(rl.stopCleanup)
		}
	})
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]

	if !exists {
		rl.clients[clientIP] = &clientInfo{
			lastRequest: now,
			requests:    1,
		}
		return true
	}

	// Reset counter if more than 1 minute has passed
	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	// Allow up to 120 requests per minute
	client.requests++
	client.lastRequest = now

	return client.requests <= 120
}

// NewServer configures routes and middleware, returning a
// ready-to-run http.Server.
func NewServer(addr string, store backend.Backend, purchases *services.PurchaseService, importer *services.ImportService, suggester CategorySuggester, jwtSecret string) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		store:       store,
		purchases:   purchases,
		importer:    importer,
		suggester:   suggester,
		jwtSecret:   jwtSecret,
		rateLimiter: newRateLimiter(),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /api/cards", s.protected(s.handleListCards))
	mux.HandleFunc("POST /api/cards", s.protected(s.handleCreateCard))
	mux.HandleFunc("DELETE /api/cards/{id}", s.protected(s.handleDeleteCard))

	mux.HandleFunc("GET /api/purchases", s.protected(s.handleListPurchases))
	mux.HandleFunc("POST /api/purchases", s.protected(s.handleCreatePurchase))
	mux.HandleFunc("PATCH /api/purchases/{id}", s.protected(s.handleUpdatePurchase))
	mux.HandleFunc("DELETE /api/purchases/{id}", s.protected(s.handleDeletePurchase))
	mux.HandleFunc("POST /api/purchases/batch-delete", s.protected(s.handleDeletePurchaseBatch))

	mux.HandleFunc("GET /api/categories", s.protected(s.handleListCategories))
	mux.HandleFunc("POST /api/categories", s.protected(s.handleCreateCategory))
	mux.HandleFunc("DELETE /api/categories/{id}", s.protected(s.handleDeleteCategory))

	mux.HandleFunc("GET /api/responsibles", s.protected(s.handleListResponsibles))
	mux.HandleFunc("POST /api/responsibles", s.protected(s.handleCreateResponsible))
	mux.HandleFunc("DELETE /api/responsibles/{id}", s.protected(s.handleDeleteResponsible))

	mux.HandleFunc("GET /api/cycles", s.protected(s.handleListCycles))
	mux.HandleFunc("PUT /api/cycles", s.protected(s.handleSaveCycle))

	mux.HandleFunc("GET /api/dashboard", s.protected(s.handleDashboard))
	mux.HandleFunc("GET /api/reports/monthly", s.protected(s.handleMonthlyReport))

	mux.HandleFunc("POST /api/import/stage", s.protected(s.handleImportStage))
	mux.HandleFunc("GET /api/import/staged", s.protected(s.handleImportStaged))
	mux.HandleFunc("POST /api/import/assign", s.protected(s.handleImportAssign))
	mux.HandleFunc("POST /api/import/discard", s.protected(s.handleImportDiscard))
	mux.HandleFunc("POST /api/import/commit", s.protected(s.handleImportCommit))
	mux.HandleFunc("POST /api/import/cancel", s.protected(s.handleImportCancel))

	mux.HandleFunc("POST /api/suggest-category", s.protected(s.handleSuggestCategory))

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// protected chains authentication, rate limiting, security headers and
// request logging around a handler.
func (s *Server) protected(next http.HandlerFunc) http.HandlerFunc {
	return s.withSecurityHeaders(s.withAuth(next))
}

// withSecurityHeaders adds security headers, rate limiting, and request logging to responses
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
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

		// Generate request ID for tracing
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP,
			"user_agent", r.Header.Get("User-Agent"))

		// Apply rate limiting to mutating requests
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			respondError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		// Create a custom response writer to capture status code
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		// Log request completion
		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"client_ip", clientIP)
	}
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

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

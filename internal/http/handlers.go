package http

import (
	"net/http"

	"ledger/internal/core"
	applog "ledger/internal/log"
)

func handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Backend is running"))
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports 503 while the record store is unreachable.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.Ping(r.Context()); err != nil {
		s.logger.WarnContext(r.Context(), "Readiness check failed", "error", err)
		ErrorResponse(http.StatusServiceUnavailable, core.ReasonStorage, "storage unavailable").Write(w)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ready"))
}

func handleCategories(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(core.SuggestedCategories).Write(w)
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, clientIP(r),
		"rejected_total", s.limiter.Rejected())
	ErrorResponse(http.StatusTooManyRequests, "RateLimited", "rate limit exceeded, retry later").Write(w)
}

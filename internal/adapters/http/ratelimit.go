package httpadapter

import (
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// rateLimitMiddleware gates the classify and questions triggers behind a
// shared token bucket. Each trigger fans out into model calls, so they are
// the only routes worth throttling; uploads and reads pass through, and
// pollers hit the status endpoint hard by design.
func rateLimitMiddleware(next http.Handler, limiter *rate.Limiter) http.Handler {
	if limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isTriggerRequest(r) && !limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// isTriggerRequest matches POST /v1/documents/{id}/classify and
// POST /v1/documents/{id}/questions.
func isTriggerRequest(r *http.Request) bool {
	if r.Method != http.MethodPost {
		return false
	}
	rest, ok := strings.CutPrefix(r.URL.Path, "/v1/documents/")
	if !ok {
		return false
	}
	_, sub, ok := strings.Cut(rest, "/")
	if !ok {
		return false
	}
	return sub == "classify" || sub == "questions"
}

// backpressureMiddleware caps in-flight requests. A request that cannot
// acquire a slot within the wait window is rejected instead of queued.
func backpressureMiddleware(next http.Handler, maxConcurrent int, wait time.Duration) http.Handler {
	slots := make(chan struct{}, maxConcurrent)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timer := time.NewTimer(wait)
		defer timer.Stop()

		select {
		case slots <- struct{}{}:
			defer func() { <-slots }()
			next.ServeHTTP(w, r)
		case <-timer.C:
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "server overloaded, try again later"})
		case <-r.Context().Done():
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "request canceled while waiting for capacity"})
		}
	})
}

package adapthttp

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"mindtrack/internal/app"
	"mindtrack/internal/domain"
	"mindtrack/internal/logging"
	"mindtrack/internal/metrics"
)

type contextKey string

const (
	userContextKey  contextKey = "user"
	requestIDHeader            = "X-Request-ID"
	sessionCookie              = "session"
)

// userFrom returns the authenticated user placed on the context by
// authMiddleware.
func userFrom(ctx context.Context) (*domain.User, bool) {
	u, ok := ctx.Value(userContextKey).(*domain.User)
	return u, ok && u != nil
}

func sessionToken(r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

// authMiddleware resolves the caller from the forward-auth header (when
// trusted), the session cookie or a bearer token, in that order.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.disableAuth {
			ctx := context.WithValue(r.Context(), userContextKey, s.testUser)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		if remoteUser := r.Header.Get("Remote-User"); remoteUser != "" && s.opts.TrustForwardAuth {
			user, err := s.svc.Auth.ValidateForwardAuth(r.Context(), remoteUser)
			if err == nil && user != nil {
				ctx := context.WithValue(r.Context(), userContextKey, user)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
		}

		token := sessionToken(r)
		if token == "" {
			writeServiceError(w, domain.ErrNotAuthenticated)
			return
		}
		user, err := s.svc.Auth.ValidateSession(r.Context(), token, r.UserAgent())
		switch {
		case errors.Is(err, app.ErrSessionNotFound), errors.Is(err, app.ErrSessionExpired), errors.Is(err, app.ErrUserNotFound):
			writeServiceError(w, domain.ErrNotAuthenticated)
			return
		case err != nil:
			s.logger.Error("session validation failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, errors.New("internal error"))
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// requestLogger tags each request with an id and logs it once it completes.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.logger.Info("http request",
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			logging.Since(start),
		)
	})
}

// monitor records request counts and latencies. Non-API paths share one label.
func monitor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		path := r.URL.Path
		if !strings.HasPrefix(path, "/api/") && path != "/metrics" {
			path = "static"
		}
		metrics.HTTPRequests.WithLabelValues(path, r.Method, strconv.Itoa(rec.status)).Inc()
		metrics.HTTPDuration.WithLabelValues(path, r.Method).Observe(time.Since(start).Seconds())

		switch rec.status {
		case http.StatusUnauthorized:
			metrics.AuthRejections.WithLabelValues("401_unauthorized").Inc()
		case http.StatusForbidden:
			metrics.AuthRejections.WithLabelValues("403_forbidden").Inc()
		}
	})
}

// metricsAuth protects /metrics with basic auth. With no credentials
// configured the endpoint is closed.
func (s *Server) metricsAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || s.opts.MetricsUser == "" ||
			!app.ConstantTimeCompare(user, s.opts.MetricsUser) ||
			!app.ConstantTimeCompare(pass, s.opts.MetricsPass) {
			w.Header().Set("WWW-Authenticate", `Basic realm="metrics"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// visitorLimiter keeps one token bucket per client address.
type visitorLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rps      rate.Limit
	burst    int
}

func newVisitorLimiter(rps float64, burst int) *visitorLimiter {
	return &visitorLimiter{visitors: make(map[string]*visitor), rps: rate.Limit(rps), burst: burst}
}

func (l *visitorLimiter) allow(key string, now time.Time) bool {
	l.mu.Lock()
	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	l.mu.Unlock()
	return v.limiter.AllowN(now, 1)
}

func (l *visitorLimiter) cleanup(now time.Time, idle time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for k, v := range l.visitors {
		if now.Sub(v.lastSeen) > idle {
			delete(l.visitors, k)
		}
	}
}

func (l *visitorLimiter) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.visitors.allow(clientIP(r), time.Now()) {
			writeError(w, http.StatusTooManyRequests, errors.New("too many requests"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

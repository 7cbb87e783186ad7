package adapthttp

import (
	"context"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"mindtrack/internal/app"
	"mindtrack/internal/domain"
)

// Services are the application services the HTTP adapter drives.
type Services struct {
	Auth     *app.AuthService
	CheckIns *app.CheckInService
	Stats    *app.StatsService
	Game     *app.GamificationService
	Profiles *app.ProfileService
	Activity *app.ActivityService
}

// OIDCConfig holds the single sign-on provider, if one is configured.
type OIDCConfig struct {
	Enabled      bool
	Provider     *oidc.Provider
	OAuth2Config oauth2.Config
}

// Options tune the HTTP surface.
type Options struct {
	WebDir         string
	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int
	MetricsUser    string
	MetricsPass    string
	OIDC           OIDCConfig

	// TrustForwardAuth accepts the Remote-User header as the caller identity.
	TrustForwardAuth bool
}

// Server is the driving HTTP adapter that routes requests to application
// services.
type Server struct {
	svc         Services
	opts        Options
	logger      *zap.Logger
	visitors    *visitorLimiter
	disableAuth bool
	testUser    *domain.User
}

// New creates a Server wired to the given application services.
func New(svc Services, opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.RateLimitRPS <= 0 {
		opts.RateLimitRPS = 5
	}
	if opts.RateLimitBurst <= 0 {
		opts.RateLimitBurst = 30
	}
	return &Server{
		svc:      svc,
		opts:     opts,
		logger:   logger,
		visitors: newVisitorLimiter(opts.RateLimitRPS, opts.RateLimitBurst),
	}
}

// WithoutAuth disables session checks and runs every request as user 1.
func (s *Server) WithoutAuth() *Server {
	s.disableAuth = true
	s.testUser = &domain.User{ID: 1, Email: "test@example.com"}
	return s
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	public := http.NewServeMux()
	public.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	public.HandleFunc("/config", s.handleConfig)
	public.HandleFunc("/auth/register", s.handleRegister)
	public.HandleFunc("/auth/login", s.handleLogin)
	public.HandleFunc("/auth/logout", s.handleLogout)
	public.HandleFunc("/auth/sso/login", s.handleSSOLogin)
	public.HandleFunc("/auth/sso/callback", s.handleSSOCallback)

	private := http.NewServeMux()
	private.HandleFunc("/checkins", s.handleCheckIns)
	private.HandleFunc("/checkins/today", s.handleCheckInToday)
	private.HandleFunc("/checkins/streak", s.handleStreak)

	private.HandleFunc("/tasks", s.handleTasks)
	private.HandleFunc("/tasks/complete", s.handleTaskComplete)
	private.HandleFunc("/achievements", s.handleAchievements)
	private.HandleFunc("/achievements/unlock", s.handleAchievementUnlock)
	private.HandleFunc("/achievements/evaluate", s.handleAchievementEvaluate)
	private.HandleFunc("/progress", s.handleProgress)
	private.HandleFunc("/xp/history", s.handleXPHistory)

	private.HandleFunc("/profile", s.handleProfile)
	private.HandleFunc("/profile/username-available", s.handleUsernameAvailable)

	private.HandleFunc("/stats/summary", s.handleStatsSummary)
	private.HandleFunc("/stats/daily", s.handleStatsDaily)

	private.HandleFunc("/exercises", s.handleExercises)
	private.HandleFunc("/exercises/complete", s.handleExerciseComplete)
	private.HandleFunc("/exercises/log", s.handleExerciseLog)
	private.HandleFunc("/views", s.handleViews)

	api := http.NewServeMux()
	for _, p := range []string{"/health", "/config", "/auth/"} {
		api.Handle(p, public)
	}
	api.Handle("/", s.authMiddleware(private))

	root := http.NewServeMux()
	root.Handle("/api/", s.rateLimit(withNoCache(http.StripPrefix("/api", api))))
	root.Handle("/metrics", s.metricsAuth(promhttp.Handler()))
	root.Handle("/", spaFromDisk(s.opts.WebDir))

	cors := handlers.CORS(
		handlers.AllowedOrigins(s.opts.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		handlers.ExposedHeaders([]string{"Content-Length", requestIDHeader}),
		handlers.AllowCredentials(),
	)
	return s.requestLogger(monitor(cors(root)))
}

// CleanupVisitors forgets idle rate-limit buckets every minute until ctx ends.
func (s *Server) CleanupVisitors(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.visitors.cleanup(now, 3*time.Minute)
		}
	}
}

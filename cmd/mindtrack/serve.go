package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	adapthttp "mindtrack/internal/adapter/http"
	"mindtrack/internal/config"
	"mindtrack/internal/metrics"
)

const sessionPurgeInterval = time.Hour

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server (default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides ADDR)")
}

func runServe(cmd *cobra.Command) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Addr = addr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStack(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	oidcCfg, err := setupOIDC(ctx, cfg)
	if err != nil {
		return err
	}

	metrics.Register()
	srv := adapthttp.New(adapthttp.Services{
		Auth:     st.auth,
		CheckIns: st.checkins,
		Stats:    st.stats,
		Game:     st.game,
		Profiles: st.profiles,
		Activity: st.activity,
	}, adapthttp.Options{
		WebDir:         cfg.WebDir,
		AllowedOrigins: cfg.AllowedOrigins,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		MetricsUser:    cfg.MetricsUser,
		MetricsPass:    cfg.MetricsPass,
		OIDC:           oidcCfg,

		TrustForwardAuth: cfg.TrustForwardAuth,
	}, logger)

	go srv.CleanupVisitors(ctx)
	go purgeSessions(ctx, st, logger)

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr), zap.Bool("remote", cfg.RemoteBacked()))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func setupOIDC(ctx context.Context, cfg config.Config) (adapthttp.OIDCConfig, error) {
	if !cfg.OIDCEnabled() {
		return adapthttp.OIDCConfig{}, nil
	}
	provider, err := oidc.NewProvider(ctx, cfg.OIDCIssuer)
	if err != nil {
		return adapthttp.OIDCConfig{}, fmt.Errorf("oidc provider: %w", err)
	}
	return adapthttp.OIDCConfig{
		Enabled:  true,
		Provider: provider,
		OAuth2Config: oauth2.Config{
			ClientID:     cfg.OIDCClientID,
			ClientSecret: cfg.OIDCClientSecret,
			RedirectURL:  cfg.OIDCRedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
	}, nil
}

func purgeSessions(ctx context.Context, st *stack, logger *zap.Logger) {
	ticker := time.NewTicker(sessionPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := st.auth.PurgeExpiredSessions(ctx); err != nil {
				logger.Warn("session purge failed", zap.Error(err))
			}
		}
	}
}

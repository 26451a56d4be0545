package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/haven-service/internal/config"
	"github.com/prperemyshlev/haven-service/internal/handler"
	"github.com/prperemyshlev/haven-service/internal/repository"
	"github.com/prperemyshlev/haven-service/internal/service"
	"github.com/prperemyshlev/haven-service/internal/utils"
	"github.com/prperemyshlev/haven-service/pkg/observability"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	infra  Infrastructure
	config *config.Config
	router *gin.Engine
	server *http.Server
}

type handlers struct {
	auth     *handler.AuthHandler
	referral *handler.ReferralHandler
	invite   *handler.InviteHandler
	contact  *handler.ContactHandler
}

func NewApp(infra Infrastructure, cfg *config.Config) (*App, error) {
	logger := infra.Logger()
	repos := repository.NewRepositories(infra.Postgres())

	verifier, err := utils.NewIdentityVerifier(cfg.Identity.VerificationKey, cfg.Identity.Issuer, cfg.Identity.AppID)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity verifier: %w", err)
	}

	metrics, err := service.NewMetrics(infra.MeterProvider())
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	jwtManager := utils.NewJWTManager(cfg.JWT.Secret, cfg.JWT.SessionExpiry.Duration)
	blacklistService := service.NewTokenBlacklistService(infra.Redis())
	rateLimiter := service.NewRateLimiter(infra.Redis())
	healthChecker := NewHealthChecker(infra)
	saveAttempts := cfg.Invite.ClaimRetries

	sessionService := service.NewSessionService(repos.User, verifier, jwtManager, blacklistService, logger, saveAttempts)
	userService := service.NewUserService(repos.User, saveAttempts)
	referralService := service.NewReferralService(repos.User, infra.Publisher(), metrics, logger, saveAttempts)
	inviteService := service.NewInviteService(repos.User, infra.Publisher(), metrics, logger, cfg.AppURL, saveAttempts)
	contactService := service.NewContactService(repos.User, logger, saveAttempts)

	h := handlers{
		auth:     handler.NewAuthHandler(sessionService, userService, cfg.IsProduction()),
		referral: handler.NewReferralHandler(referralService),
		invite:   handler.NewInviteHandler(inviteService),
		contact:  handler.NewContactHandler(contactService),
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(handler.LoggerMiddleware(logger))
	router.Use(handler.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders))

	setupRoutes(router, cfg, h, sessionService, rateLimiter, logger, healthChecker, infra.MetricsHandler())

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	return &App{
		infra:  infra,
		config: cfg,
		router: router,
		server: srv,
	}, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func setupRoutes(
	router *gin.Engine,
	cfg *config.Config,
	h handlers,
	sessionService service.SessionService,
	rateLimiter handler.Limiter,
	logger *zap.Logger,
	healthChecker *HealthChecker,
	metricsHandler http.Handler,
) {
	router.GET("/metrics", observability.PrometheusHandler(metricsHandler))
	router.GET("/health", healthChecker.Handler)

	limit := func(keyFunc func(*gin.Context) string) gin.HandlerFunc {
		return handler.RateLimitMiddleware(rateLimiter, cfg.Security.RateLimitRequests, cfg.Security.RateLimitWindow.Duration, keyFunc, logger)
	}
	authRequired := handler.AuthMiddleware(sessionService)

	api := router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/session", limit(handler.IPBasedKey), h.auth.CreateSession)
			auth.POST("/logout", authRequired, h.auth.Logout)
			auth.GET("/me", authRequired, h.auth.GetMe)
			auth.POST("/onboard", authRequired, h.auth.Onboard)
		}

		user := api.Group("/user")
		{
			user.POST("/referral/claim", authRequired, limit(handler.UserOrIPKey), h.referral.ClaimReferral)

			user.GET("/invite", authRequired, h.invite.ListInvites)
			user.POST("/invite/personal", authRequired, limit(handler.UserOrIPKey), h.invite.IssuePersonalInvite)
			user.POST("/invite/claim", authRequired, limit(handler.UserOrIPKey), h.referral.ClaimInvite)
			user.POST("/invite/track", limit(handler.IPBasedKey), h.invite.TrackInviteClick)

			user.GET("/contacts", authRequired, h.contact.List)
			user.POST("/contacts", authRequired, h.contact.Upsert)
			user.DELETE("/contacts", authRequired, h.contact.Remove)
			user.GET("/contacts/resolve", authRequired, h.contact.Resolve)
		}
	}
}

func (a *App) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		a.infra.Logger().Info("Application starting",
			zap.String("host", a.config.Server.Host),
			zap.String("port", a.config.Server.Port),
		)

		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.infra.Logger().Error("Server error", zap.Error(err))
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case err := <-errChan:
		a.infra.Logger().Error("Application failed to start", zap.Error(err))
		serverErr = err
	case <-ctx.Done():
		a.infra.Logger().Info("Application stopped by context")
	}

	if err := a.Shutdown(); err != nil {
		a.infra.Logger().Error("Shutdown error", zap.Error(err))
		if serverErr != nil {
			return errors.Join(serverErr, err)
		}
		return err
	}

	return serverErr
}

func (a *App) Shutdown() error {
	a.infra.Logger().Info("Application shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Drain in-flight requests before closing the stores and the broker
	if err := a.server.Shutdown(ctx); err != nil {
		a.infra.Logger().Error("Server shutdown failed", zap.Error(err))
		return errors.Join(err, a.infra.Shutdown(ctx))
	}

	if err := a.infra.Shutdown(ctx); err != nil {
		a.infra.Logger().Error("Shutdown failed", zap.Error(err))
		return err
	}

	a.infra.Logger().Info("Application exited successfully")
	return nil
}

package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/scholar-spark/auth-service/internal/config"
	"github.com/scholar-spark/auth-service/internal/handler"
	"github.com/scholar-spark/auth-service/internal/mailer"
	"github.com/scholar-spark/auth-service/internal/provider"
	"github.com/scholar-spark/auth-service/internal/repository"
	"github.com/scholar-spark/auth-service/internal/service"
	"github.com/scholar-spark/auth-service/internal/utils"
	"github.com/scholar-spark/auth-service/pkg/observability"
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

func NewApp(infra Infrastructure, cfg *config.Config) *App {
	repos := repository.NewRepositories(infra.Postgres())

	jwtManager := utils.NewJWTManager(
		cfg.JWT.Secret,
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
		cfg.JWT.AccessTokenExpiry.Duration,
		cfg.JWT.RefreshTokenExpiry.Duration,
		cfg.JWT.ResetTokenExpiry.Duration,
	)

	denylist := service.NewTokenDenylist(infra.Redis())
	rateLimiter := service.NewRateLimiter(infra.Redis(), infra.Logger())
	healthChecker := NewHealthChecker(infra)

	metrics, err := observability.NewAuthMetrics(infra.MeterProvider().Meter("auth-service"))
	if err != nil {
		infra.Logger().Warn("failed to initialize auth metrics", zap.Error(err))
	}

	expectedAudience := ""
	if len(cfg.JWT.Audience) > 0 {
		expectedAudience = cfg.JWT.Audience[0]
	}

	authService := service.NewAuthService(
		repos.User,
		repos.Credential,
		jwtManager,
		denylist,
		mailer.NewLogDispatcher(infra.Logger()),
		provider.NewClient(cfg.OpenID),
		metrics,
		infra.Logger(),
		service.AuthConfig{
			BCryptCost:             cfg.Security.BCryptCost,
			TenantID:               cfg.JWT.TenantID,
			Audience:               expectedAudience,
			OTPExpiry:              cfg.OTP.Expiry.Duration,
			OpenIDCredentialExpiry: cfg.OpenID.CredentialExpiry.Duration,
			ResetTokenExpiry:       cfg.JWT.ResetTokenExpiry.Duration,
			ResetBaseURL:           cfg.App.BaseURL,
		},
	)

	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(authService)

	router := gin.Default()
	router.Use(otelgin.Middleware("auth-service"))
	router.Use(handler.LoggerMiddleware(infra.Logger()))
	router.Use(handler.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders))

	setupRoutes(router, cfg, authHandler, userHandler, authService, rateLimiter, healthChecker, infra.MetricsHandler())

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
	}
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func setupRoutes(
	router *gin.Engine,
	cfg *config.Config,
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	authService service.AuthService,
	rateLimiter *service.RateLimiter,
	healthChecker *HealthChecker,
	metricsHandler http.Handler,
) {
	limit := cfg.Security.RateLimitAttempts
	window := cfg.Security.RateLimitWindow.Duration

	router.GET("/metrics", observability.PrometheusHandler(metricsHandler))
	router.GET("/health", healthChecker.Handler)

	api := router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register",
				handler.RateLimitMiddleware(rateLimiter, "register", limit, window, handler.IPBasedKey),
				authHandler.Register,
			)
			auth.POST("/login",
				handler.RateLimitMiddleware(rateLimiter, "login", limit, window, handler.IPBasedKey),
				authHandler.Login,
			)
			auth.POST("/refresh", authHandler.Refresh)
			auth.POST("/openid", authHandler.OpenIDLogin)
			auth.POST("/otp", handler.AuthMiddleware(authService), authHandler.IssueOTP)
			auth.POST("/otp/verify",
				handler.AuthMiddleware(authService),
				handler.RateLimitMiddleware(rateLimiter, "otp_verify", limit, window, handler.UserBasedKey),
				authHandler.VerifyOTP,
			)
			auth.POST("/password-reset",
				handler.RateLimitMiddleware(rateLimiter, "password_reset", limit, window, handler.IPBasedKey),
				authHandler.RequestPasswordReset,
			)
			auth.POST("/password-reset/confirm",
				handler.RateLimitMiddleware(rateLimiter, "password_reset_confirm", limit, window, handler.IPBasedKey),
				authHandler.ConfirmPasswordReset,
			)
			auth.GET("/me", handler.AuthMiddleware(authService), authHandler.GetMe)
		}

		users := api.Group("/users", handler.AuthMiddleware(authService))
		{
			users.PATCH("/:id/status", userHandler.UpdateStatus)
			users.DELETE("/:id", userHandler.Delete)
			users.PATCH("/:id/reactivate", userHandler.Reactivate)
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

	errs := make(chan error, 2)

	go func() {
		errs <- a.server.Shutdown(ctx)
	}()

	go func() {
		errs <- a.infra.Shutdown(ctx)
	}()

	err := errors.Join(<-errs, <-errs)
	if err != nil {
		a.infra.Logger().Error("Shutdown failed", zap.Error(err))
		return err
	}

	a.infra.Logger().Info("Application exited successfully")
	return nil
}

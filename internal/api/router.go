package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/time/rate"

	_ "github.com/fundhive/identity-api/docs"
	"github.com/fundhive/identity-api/internal/api/handler"
	"github.com/fundhive/identity-api/internal/api/middleware"
	"github.com/fundhive/identity-api/internal/core/domain"
	"github.com/fundhive/identity-api/internal/core/ports"
)

// Deps is everything the router needs from the composition root.
type Deps struct {
	Sessions ports.SessionService
	Accounts ports.AccountService
	Codec    ports.TokenCodec
	// Health lists the dependencies pinged by /health/ready.
	Health map[string]handler.Pinger
	// RateLimitRPS bounds requests per client IP on the public auth routes.
	// Zero disables the limiter.
	RateLimitRPS float64
	// Registry receives the HTTP request collectors and backs /metrics.
	// Nil uses the Prometheus default registry.
	Registry *prometheus.Registry
	Log      zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	e.Use(httpMetrics(d.Registry))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(d.Sessions, d.Accounts, d.Log)
	accountHandler := handler.NewAccountHandler(d.Accounts, d.Log)
	healthHandler := handler.NewHealthHandler(d.Health)
	requireAuth := middleware.Auth(d.Codec, d.Sessions)

	// --- Public auth routes ---
	public := e.Group("/auth")
	if d.RateLimitRPS > 0 {
		public.Use(ipRateLimiter(d.RateLimitRPS))
	}
	public.POST("/register", authHandler.Register)
	public.POST("/login", authHandler.Login)
	public.POST("/refresh", authHandler.Refresh)
	public.POST("/forgot-password", accountHandler.ForgotPassword)
	public.POST("/reset-password", accountHandler.ResetPassword)
	public.POST("/verify-email", accountHandler.VerifyEmail)
	public.POST("/resend-verification", accountHandler.ResendVerification)

	// --- Authenticated routes ---
	e.GET("/auth/profile", accountHandler.Profile, requireAuth)
	e.PATCH("/auth/profile", accountHandler.UpdateProfile, requireAuth)
	e.POST("/auth/change-password", accountHandler.ChangePassword, requireAuth)

	admin := e.Group("/admin", requireAuth, middleware.RBAC(domain.RoleAdmin))
	admin.GET("/users", accountHandler.ListUsers)
	admin.GET("/users/:id", accountHandler.UserByID)
	admin.PATCH("/users/:id/role", accountHandler.UpdateRole)
	admin.DELETE("/users/:id", accountHandler.DeleteUser)

	// --- Health checks, metrics and docs (no auth required) ---
	e.GET("/health", healthHandler.Liveness)        // liveness  – is the process alive?
	e.GET("/health/ready", healthHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", metricsHandler(d.Registry))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

// httpMetrics records request count, latency and sizes per route under the
// "identity" subsystem. Unmatched paths share one label.
func httpMetrics(reg *prometheus.Registry) echo.MiddlewareFunc {
	cfg := echoprometheus.MiddlewareConfig{
		Subsystem:                 "identity",
		DoNotUseRequestPathFor404: true,
	}
	if reg != nil {
		cfg.Registerer = reg
	}
	return echoprometheus.NewMiddlewareWithConfig(cfg)
}

func metricsHandler(reg *prometheus.Registry) echo.HandlerFunc {
	if reg == nil {
		return echoprometheus.NewHandler()
	}
	return echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: reg})
}

// requestLogger emits one zerolog line per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Status >= http.StatusInternalServerError {
				ev = log.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}

// ipRateLimiter applies a token bucket per client IP. Buckets idle for three
// minutes are evicted.
func ipRateLimiter(rps float64) echo.MiddlewareFunc {
	burst := int(rps * 2)
	if burst < 1 {
		burst = 1
	}
	store := echomiddleware.NewRateLimiterMemoryStoreWithConfig(echomiddleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(rps),
		Burst:     burst,
		ExpiresIn: 3 * time.Minute,
	})
	return echomiddleware.RateLimiterWithConfig(echomiddleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusForbidden, errorResponse{Error: "unable to identify client"})
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return c.JSON(http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
		},
	})
}

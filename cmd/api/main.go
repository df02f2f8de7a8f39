// @title                       Identity API
// @version                     1.0
// @description                 Authentication and session service.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/fundhive/identity-api/internal/api"
	"github.com/fundhive/identity-api/internal/api/handler"
	"github.com/fundhive/identity-api/internal/core/ports"
	"github.com/fundhive/identity-api/internal/core/service"
	"github.com/fundhive/identity-api/internal/infrastructure/config"
	mongostore "github.com/fundhive/identity-api/internal/infrastructure/db/mongo"
	redisstore "github.com/fundhive/identity-api/internal/infrastructure/db/redis"
	"github.com/fundhive/identity-api/internal/infrastructure/notify"
	"github.com/fundhive/identity-api/internal/infrastructure/security"
	"github.com/fundhive/identity-api/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.Env == "development",
		Service: "identity-api",
	})

	if err := run(cfg, log); err != nil {
		log.Error().Err(err).Msg("identity api stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("identity api stopped")
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Storage ---
	db, err := mongostore.Connect(ctx, mongostore.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		AppName:  "identity-api",
	})
	if err != nil {
		return err
	}
	defer func() { _ = mongostore.Disconnect(context.Background(), db) }()

	users := mongostore.NewUserStore(db)
	if err := users.EnsureIndexes(ctx); err != nil {
		return err
	}

	health := map[string]handler.Pinger{"mongodb": handler.MongoPinger(db)}

	// Redis only backs throttling and cooldowns; both degrade to no-ops.
	var (
		limiter  ports.AttemptLimiter = ports.NopLimiter{}
		cooldown ports.Cooldown       = ports.NopLimiter{}
	)
	rdb, err := redisstore.Connect(ctx, redisstore.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, login throttling and email cooldowns disabled")
	} else {
		defer func() { _ = rdb.Close() }()
		limiter = redisstore.NewLoginLimiter(rdb, cfg.Security.LoginMaxAttempts, cfg.Security.LoginWindow)
		cooldown = redisstore.NewCooldown(rdb, cfg.Security.EmailCooldown)
		health["redis"] = handler.RedisPinger(rdb)
	}

	// --- Notifications ---
	var transport notify.Transport
	switch cfg.Notify.Transport {
	case "amqp":
		amqpTransport := notify.NewAMQPTransport(cfg.Notify.AMQPURL, cfg.Notify.Queue)
		defer func() { _ = amqpTransport.Close() }()
		transport = amqpTransport
	default:
		transport = notify.NewLogTransport(logger.Component("mailer"))
	}
	dispatcher := notify.NewDispatcher(
		cfg.Notify.Workers,
		notify.NewBreakerTransport(transport, logger.Component("breaker")),
		logger.Component("notify"),
	)

	// --- Core ---
	codec := security.NewJWTCodec(security.JWTConfig{
		AccessSecret:  cfg.JWT.AccessSecret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
	})
	passwords := security.NewBcryptHasher(cfg.Security.BcryptCost)

	sessions := service.NewSessionService(users, codec, passwords, security.NewDigestHasher(), limiter, logger.Component("sessions"))
	accounts := service.NewAccountService(users, passwords, dispatcher, cooldown, logger.Component("accounts"))

	e := api.NewRouter(api.Deps{
		Sessions:     sessions,
		Accounts:     accounts,
		Codec:        codec,
		Health:       health,
		RateLimitRPS: cfg.Security.RateLimitRPS,
		Log:          logger.Component("http"),
	})

	// --- Lifecycle ---
	g, gctx := errgroup.WithContext(ctx)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	dispatcher.Start(workerCtx)

	g.Go(func() error {
		addr := ":" + cfg.Port
		log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("http server listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			// Handlers may still be enqueueing, so the queues cannot be closed.
			stopWorkers()
			dispatcher.Wait()
			return err
		}

		// No handler can enqueue any more; drain until the deadline.
		dispatcher.Close()
		drained := make(chan struct{})
		go func() {
			dispatcher.Wait()
			close(drained)
		}()
		select {
		case <-drained:
		case <-shutdownCtx.Done():
			log.Warn().Msg("notification queues not drained before deadline")
			stopWorkers()
			<-drained
		}
		return nil
	})

	return g.Wait()
}

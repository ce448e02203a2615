package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/petar554/fakturo/internal/application/client"
	"github.com/petar554/fakturo/internal/application/document"
	"github.com/petar554/fakturo/internal/application/organization"
	"github.com/petar554/fakturo/internal/application/ports"
	"github.com/petar554/fakturo/internal/config"
	httprouter "github.com/petar554/fakturo/internal/infrastructure/http"
	"github.com/petar554/fakturo/internal/infrastructure/http/handlers"
	"github.com/petar554/fakturo/internal/infrastructure/http/middleware"
	"github.com/petar554/fakturo/internal/infrastructure/identity"
	"github.com/petar554/fakturo/internal/infrastructure/imapingest"
	"github.com/petar554/fakturo/internal/infrastructure/persistence/postgres"
	"github.com/petar554/fakturo/internal/infrastructure/queue"
)

func main() {
	_ = godotenv.Load()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if cfg.Identity.JWTSecret == "" {
		log.Fatal().Msg("IDENTITY_JWT_SECRET is required")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to database")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("ping database")
	}

	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		opt, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("parse REDIS_URL")
		}
		redisClient = redis.NewClient(opt)
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Msg("redis ping failed; continuing without redis")
			redisClient = nil
		}
	}

	healthHandler := handlers.NewHealthHandler(pool, redisClient)

	orgRepo := postgres.NewOrganizationRepository(pool)
	memberRepo := postgres.NewMembershipRepository(pool)
	clientRepo := postgres.NewClientRepository(pool)
	documentRepo := postgres.NewDocumentRepository(pool)
	quotaRepo := postgres.NewQuotaRepository(pool)

	documentSvc := document.NewService(documentRepo, log)

	var taskEnqueuer ports.TaskEnqueuer
	var asynqWorker *queue.Worker
	if redisClient != nil {
		redisOpt, _ := redis.ParseURL(cfg.Redis.URL)
		asynqOpt := asynq.RedisClientOpt{Addr: redisOpt.Addr, Password: redisOpt.Password, DB: redisOpt.DB}
		asynqEnq, err := queue.NewAsynqEnqueuer(asynqOpt, log)
		if err != nil {
			log.Fatal().Err(err).Msg("create asynq enqueuer")
		}
		defer asynqEnq.Close()
		taskEnqueuer = asynqEnq
		asynqWorker = queue.NewWorker(asynqOpt, documentSvc, log)
		go func() {
			if err := asynqWorker.Run(); err != nil {
				log.Warn().Err(err).Msg("asynq worker stopped")
			}
		}()
	} else {
		taskEnqueuer = queue.NewNoopEnqueuer()
	}

	identityClient := identity.NewClient(cfg.Identity.URL, cfg.Identity.APIKey, log)
	verifier := identity.NewVerifier(cfg.Identity.JWTSecret, cfg.Identity.Audience)

	orgSvc := organization.NewService(orgRepo, memberRepo, quotaRepo, log)
	clientSvc := client.NewService(clientRepo, memberRepo, documentRepo, log)
	imapManager := imapingest.NewManager(log)

	authGuard := middleware.NewAuthGuard(verifier)
	membershipGuard := middleware.NewMembershipGuard(memberRepo)
	quotaGuard := middleware.NewQuotaGuard(quotaRepo)

	router := httprouter.NewRouter(httprouter.RouterConfig{
		AuthHandler:          handlers.NewAuthHandler(identityClient, orgSvc, log),
		OrganizationsHandler: handlers.NewOrganizationsHandler(orgSvc, log),
		ClientsHandler:       handlers.NewClientsHandler(clientSvc, log),
		EmailHandler:         handlers.NewEmailHandler(imapManager, taskEnqueuer, cfg.Upload.AllowedExtensions, log),
		HealthHandler:        healthHandler,
		Auth:                 authGuard,
		Membership:           membershipGuard,
		Quota:                quotaGuard,
		Log:                  log,
		Secure:               middleware.NewSecure(middleware.SecureOptions(cfg.Secure.IsDevelopment)),
		CORS:                 middleware.CORS(strings.Split(cfg.CORS.Origin, ",")),
		IPRateLimit:          middleware.NewIPRateLimiter(cfg.RateLimit.Window, cfg.RateLimit.MaxRequests),
		Metrics:              true,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	imapManager.DisconnectAll()
	if asynqWorker != nil {
		asynqWorker.Shutdown()
	}
	log.Info().Msg("server stopped")
}

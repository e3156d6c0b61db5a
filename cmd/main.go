/**
 * @description
 * This is the main entry point for the ledger service. It is responsible for
 * initializing all components of the service, including configuration, database
 * connection, external clients, the message broker, the in-memory ledger
 * engines, background jobs, and the HTTP server. It wires everything together,
 * rehydrates engine state from the persistence snapshot, and starts serving.
 *
 * @dependencies
 * - log, net/http: Standard Go libraries for logging and HTTP server functionality.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - github.com/joho/godotenv: Local .env loading.
 * - github.com/redis/go-redis/v9: Distributed rate limiting.
 * - internal/api, internal/app, internal/config, internal/store: Internal packages for the service.
 * - pkg/payoutclient: Client for the settlement payout gateway.
 * - pkg/rabbitmq: Client for RabbitMQ.
 */

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/Pasifika-Web3-Tech-Hub/pasifika-evm-be-sub000/internal/api"
	"github.com/Pasifika-Web3-Tech-Hub/pasifika-evm-be-sub000/internal/app"
	"github.com/Pasifika-Web3-Tech-Hub/pasifika-evm-be-sub000/internal/config"
	"github.com/Pasifika-Web3-Tech-Hub/pasifika-evm-be-sub000/internal/domain"
	"github.com/Pasifika-Web3-Tech-Hub/pasifika-evm-be-sub000/internal/ledger/transferengine"
	"github.com/Pasifika-Web3-Tech-Hub/pasifika-evm-be-sub000/internal/store"
	"github.com/Pasifika-Web3-Tech-Hub/pasifika-evm-be-sub000/pkg/payoutclient"
	"github.com/Pasifika-Web3-Tech-Hub/pasifika-evm-be-sub000/pkg/rabbitmq"
)

func main() {
	// Load the optional local .env before viper reads the environment.
	if err := godotenv.Load(); err == nil {
		log.Println("level=info component=bootstrap msg=\".env loaded\"")
	}

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"jwt secret must be configured\" env=JWT_SECRET")
	}

	log.Printf("level=info component=bootstrap msg=\"starting ledger service\" port=%s", cfg.ServerPort)

	// Establish a connection pool to the PostgreSQL database.
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database url parse failed\" err=%v", err)
	}
	poolConfig.MaxConns = 100
	poolConfig.MinConns = 20
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	// Disable prepared statement caching to prevent conflicts
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database connection failed\" err=%v", err)
	}
	defer dbpool.Close()
	log.Println("level=info component=bootstrap msg=\"database connected\"")

	// Initialize the RabbitMQ producer to publish ledger events. The service
	// only publishes, so a producer is all it needs; a missing broker degrades
	// to log-only event delivery instead of blocking boot.
	var producer rabbitmq.Publisher
	eventProducer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL)
	if err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; using fallback\" err=%v", err)
		producer = &rabbitmq.EventProducerFallback{}
	} else {
		defer eventProducer.Close()
		producer = eventProducer
		log.Println("level=info component=bootstrap msg=\"rabbitmq producer connected\"")
	}

	// Initialize the payout gateway client. Without it withdrawals settle into
	// the local wallet instead of leaving through the settlement rail.
	var payouts app.PayoutGateway
	if strings.TrimSpace(cfg.PayoutAPIBaseURL) == "" {
		log.Println("level=warn component=bootstrap msg=\"payout gateway not configured; withdrawals settle locally\" env=PAYOUT_API_BASE_URL")
	} else {
		payouts = payoutclient.NewClient(cfg.PayoutAPIBaseURL, cfg.PayoutAPIKey)
	}

	// Redis backs the distributed withdrawal rate limiter.
	var redisClient *redis.Client
	if strings.TrimSpace(cfg.RedisURL) == "" {
		log.Println("level=warn component=bootstrap msg=\"redis url missing; withdrawal rate limiting disabled\" env=REDIS_URL")
	} else {
		redisOptions, parseErr := redis.ParseURL(cfg.RedisURL)
		if parseErr != nil {
			log.Printf("level=warn component=bootstrap msg=\"redis url parse failed; withdrawal rate limiting disabled\" err=%v", parseErr)
		} else {
			redisClient = redis.NewClient(redisOptions)
			pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelPing()
			if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
				log.Printf("level=warn component=bootstrap msg=\"redis ping failed; withdrawal rate limiting disabled\" err=%v", pingErr)
				redisClient.Close()
				redisClient = nil
			} else {
				defer redisClient.Close()
				log.Println("level=info component=bootstrap msg=\"redis connected\"")
			}
		}
	}

	// Initialize the data access layer (repository).
	repository := store.NewPostgresRepository(dbpool)

	transferCfg := transferengine.DefaultConfig()
	transferCfg.GuestFeeBps = cfg.GuestFeeBps
	transferCfg.MemberFeeBps = cfg.MemberFeeBps
	transferCfg.NodeOperatorFeeBps = cfg.NodeOperatorFeeBps
	if minFee, err := domain.ParseAmount(cfg.MinTransferFeeWei); err == nil {
		transferCfg.MinFee = minFee
	}
	if maxFee, err := domain.ParseAmount(cfg.MaxTransferFeeWei); err == nil {
		transferCfg.MaxFee = maxFee
	}
	if dailyLimit, err := domain.ParseAmount(cfg.DailyLimitWei); err == nil {
		transferCfg.DailyLimit = dailyLimit
	}

	// Initialize the core application service with its dependencies.
	ledgerService := app.NewService(
		repository,
		producer,
		payouts,
		domain.Address(cfg.CommunityAccount),
		transferCfg,
	)

	// Reload engine state from the persistence snapshot before serving.
	rehydrateCtx, cancelRehydrate := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelRehydrate()
	if err := ledgerService.Rehydrate(rehydrateCtx); err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"state rehydration failed\" err=%v", err)
	}

	var limiter *app.RedisRateLimiter
	if redisClient != nil {
		limiter = app.NewRedisRateLimiter(redisClient, cfg.RedisRateLimitPrefix)
	}

	// Start the recurring jobs: due scheduled transfers, collection expiry,
	// and the treasury snapshot.
	jobLogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	jobs := app.NewJobs(ledgerService, jobLogger, time.Duration(cfg.JobTimeoutSeconds)*time.Second)
	scheduler := app.NewScheduler(jobs, jobLogger, cfg.ScheduleCronSpec, cfg.CollectionCronSpec, cfg.SnapshotCronSpec)
	scheduler.Start()

	// Initialize the API handlers and router.
	handlers := api.NewHandler(ledgerService, limiter)
	router := api.NewRouter(handlers, cfg.JWTSecret, cfg.InternalAPIKey)

	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("level=info component=http msg=\"server listening\" addr=%s", serverAddr)

	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=http msg=\"server stopped unexpectedly\" err=%v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("level=info component=http msg=\"shutdown started\"")

	cronCtx := scheduler.Stop()
	<-cronCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}

	log.Println("level=info component=http msg=\"shutdown complete\"")
}

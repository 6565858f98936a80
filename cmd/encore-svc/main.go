// Command encore-svc runs the request/vote synchronization engine: the HTTP
// API, the change feed, and the websocket fan-out, backed by Postgres and
// Redis.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	server "github.com/encore-live/server"
	"github.com/encore-live/server/internal/config"
	"github.com/encore-live/server/internal/domain"
	"github.com/encore-live/server/internal/feed"
	"github.com/encore-live/server/internal/handler"
	"github.com/encore-live/server/internal/limiter"
	"github.com/encore-live/server/internal/repository"
	"github.com/encore-live/server/internal/service"
	"github.com/encore-live/server/internal/ws"
	"github.com/encore-live/server/pkg/db"
	"github.com/encore-live/server/pkg/logger"
	"github.com/encore-live/server/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Global().Fatal("failed to load config", logger.Error(err))
	}

	log := logger.New(os.Stdout, logger.ParseLevel(cfg.Log.Level))
	logger.SetGlobal(log)

	if err := runMigrations(cfg, log); err != nil {
		log.Fatal("migrations failed", logger.Error(err))
	}

	pool, err := openPool(cfg)
	if err != nil {
		log.Fatal("failed to open database pool", logger.Error(err))
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	defer redisClient.Close()

	instanceID := uuid.NewString()
	publisher := feed.NewPublisher(redisClient, instanceID, log)
	subscriber := feed.NewSubscriber(redisClient, nil, log)

	requestRepo := repository.NewPostgresRequestRepository(pool)
	voteRepo := repository.NewPostgresVoteRepository(pool)
	songRepo := repository.NewPostgresSongRepository(pool)
	setListRepo := repository.NewPostgresSetListRepository(pool)

	voteService := service.NewVoteService(requestRepo, voteRepo, publisher, log)
	requestService := service.NewRequestService(requestRepo, voteService, publisher, log)
	queueService := service.NewQueueService(requestRepo, publisher, log)
	songService := service.NewSongService(songRepo, publisher, log)
	setListService := service.NewSetListService(setListRepo, songRepo, publisher, log)

	hub := ws.NewHub(cfg.WS.MaxConnections, log)
	for _, table := range []string{domain.TableRequests, domain.TableSongs, domain.TableSetLists} {
		subscriber.On(table, hub.BroadcastEvent)
	}

	tokens := token.NewManager(&token.Config{
		Secret: cfg.Auth.Secret,
		Issuer: cfg.Auth.Issuer,
		Expiry: cfg.Auth.Expiry,
	})
	voteLimiter := limiter.NewVoteLimiter(redisClient, cfg.RateLimit.VoteLimit, cfg.RateLimit.VoteWindow)

	gin.SetMode(gin.ReleaseMode)
	router := handler.NewRouter(handler.RouterConfig{
		Requests:    handler.NewRequestHandler(requestService, voteService),
		Queue:       handler.NewQueueHandler(queueService),
		SetLists:    handler.NewSetListHandler(setListService),
		Songs:       handler.NewSongHandler(songService),
		Tokens:      tokens,
		VoteLimiter: voteLimiter,
		Hub:         hub,
		Log:         log,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go hub.Run(ctx)
	if err := subscriber.Start(ctx); err != nil {
		log.Fatal("failed to start change feed subscriber", logger.Error(err))
	}

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}
	go func() {
		log.Info("server listening", logger.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", logger.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	cancel()
	subscriber.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", logger.Error(err))
	}
	log.Info("stopped")
}

func runMigrations(cfg *config.Config, log logger.Logger) error {
	conn, err := db.Open(&cfg.Postgres)
	if err != nil {
		return err
	}
	defer conn.Close()

	migrator, err := db.NewMigrator(conn, server.Migrations, "migrations")
	if err != nil {
		return err
	}
	defer migrator.Close()

	if err := migrator.Up(); err != nil {
		return err
	}
	version, dirty, err := migrator.Version()
	if err != nil {
		return err
	}
	log.Info("migrations applied", logger.Int("version", int(version)), logger.Bool("dirty", dirty))
	return nil
}

func openPool(cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.Postgres.PoolDSN())
	if err != nil {
		return nil, err
	}
	if cfg.Postgres.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.Postgres.MaxOpenConns)
	}
	if cfg.Postgres.MaxIdleConns > 0 {
		poolCfg.MinConns = int32(cfg.Postgres.MaxIdleConns)
	}
	if cfg.Postgres.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.Postgres.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the KrisFlyer loyalty engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env + environment, flag overrides)
  2. Build the zap logger
  3. Open the SQLite store and seed the default shop catalog
  4. Connect the Redis leaderboard cache when REDIS_ADDR is set
  5. Assemble the program, dispatcher, and HTTP router
  6. Start the server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides PORT)
  -db      SQLite database path (overrides DATABASE_PATH)
           Use ":memory:" for an in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close the cache and database connections
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/krisflyer.db"

  # Run with Redis-backed leaderboard cache
  REDIS_ADDR=localhost:6379 ./server

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/krisflyer/loyalty-engine/api"
	"github.com/krisflyer/loyalty-engine/cache"
	"github.com/krisflyer/loyalty-engine/commands"
	"github.com/krisflyer/loyalty-engine/config"
	"github.com/krisflyer/loyalty-engine/loyalty"
	"github.com/krisflyer/loyalty-engine/store/sqlite"
)

func main() {
	cfg := config.Load()

	// Flags override the environment
	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DatabasePath, "SQLite database path")
	flag.Parse()

	logger := newLogger(cfg.LogLevel)
	defer logger.Sync()

	// Store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		logger.Fatal("open database", zap.String("path", *dbPath), zap.Error(err))
	}
	defer store.Close()

	// Cache: Redis when configured, in-process otherwise
	var leaderboardCache loyalty.Cache
	if cfg.RedisAddr != "" {
		redisCache, err := cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, 0)
		if err != nil {
			logger.Fatal("connect redis", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		defer redisCache.Close()
		leaderboardCache = redisCache
		logger.Info("leaderboard cache", zap.String("backend", "redis"), zap.String("addr", cfg.RedisAddr))
	} else {
		leaderboardCache = cache.NewMemory()
		logger.Info("leaderboard cache", zap.String("backend", "memory"))
	}

	// Program
	program := loyalty.NewProgram(logger, store, store, store,
		loyalty.WithCache(leaderboardCache))
	if err := program.SeedCatalog(context.Background()); err != nil {
		logger.Fatal("seed catalog", zap.Error(err))
	}

	dispatcher := commands.NewDispatcher(logger, program, cfg.AdminRole)
	handler := api.NewHandler(logger, program, dispatcher)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.Int("port", *port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

func newLogger(level string) *zap.Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}

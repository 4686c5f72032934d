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
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/raphaelvls/go-authserver/internal/api"
	"github.com/raphaelvls/go-authserver/internal/config"
	"github.com/raphaelvls/go-authserver/internal/engine"
	"github.com/raphaelvls/go-authserver/internal/idp"
	"github.com/raphaelvls/go-authserver/internal/storage/mongodb"
	"github.com/raphaelvls/go-authserver/internal/storage/redisvault"
	"github.com/raphaelvls/go-authserver/internal/token"
)

func main() {
	// Optional in production; convenient for local runs.
	_ = godotenv.Load()

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if err := run(log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(log *zap.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return err
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()
	database := mongoClient.Database(cfg.MongoDatabase)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer func() { _ = redisClient.Close() }()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return err
	}

	signer := token.NewSigner(cfg.SigningKey, cfg.SigningKeyID, cfg.Issuer, cfg.AccessTokenLifetime)
	gateway := idp.NewHTTPGateway(cfg.IDPBaseURL, cfg.IDPAPIKey, cfg.IDPTimeout)

	e := engine.New(cfg, engine.Stores{
		Clients:  mongodb.NewClientStore(database),
		Sessions: mongodb.NewSessionStore(database),
		Consents: mongodb.NewConsentStore(database),
		Tokens:   mongodb.NewTokenStore(database),
		Vault:    redisvault.NewVault(redisClient, "vault:"),
		Cache:    redisvault.NewCache(redisClient, "cache:"),
	}, gateway, signer, log)

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.New(e, log),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.ListenAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	log.Info("shut down cleanly")
	return nil
}

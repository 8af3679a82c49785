package app

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"formpulse/internal/config"
	"formpulse/internal/logger"
)

// App holds the infrastructure connections shared by the binaries
type App struct {
	Mongo *mongo.Client
	DB    *mongo.Database
	Redis *redis.Client
	Asynq asynq.RedisClientOpt
}

// Connect dials MongoDB and Redis and pings both.
func Connect(ctx context.Context, cfg *config.Config) (*App, error) {
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		mongoClient.Disconnect(ctx)
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}
	logger.Info("Connected to MongoDB")

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		rdb.Close()
		mongoClient.Disconnect(ctx)
		return nil, fmt.Errorf("ping Redis: %w", err)
	}
	logger.Info("Connected to Redis")

	return &App{
		Mongo: mongoClient,
		DB:    mongoClient.Database(cfg.MongoDB),
		Redis: rdb,
		Asynq: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
	}, nil
}

// Close disconnects from every backend.
func (a *App) Close(ctx context.Context) {
	if err := a.Redis.Close(); err != nil {
		logger.Warnf("close Redis: %v", err)
	}
	if err := a.Mongo.Disconnect(ctx); err != nil {
		logger.Warnf("disconnect MongoDB: %v", err)
	}
}

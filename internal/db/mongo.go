package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	defaultMongoMaxPoolSize = 100
	defaultMongoMaxRetry    = 3
)

// MongoConfig describes how to reach the MongoDB deployment.
type MongoConfig struct {
	URI         string
	Database    string
	MaxPoolSize int
	MaxRetry    int
}

func (c *MongoConfig) validateAndSetDefaults() error {
	if c.URI == "" {
		return errors.New("mongo uri is required")
	}
	if c.Database == "" {
		return errors.New("mongo database is required")
	}
	if c.MaxPoolSize <= 0 {
		c.MaxPoolSize = defaultMongoMaxPoolSize
	}
	if c.MaxRetry <= 0 {
		c.MaxRetry = defaultMongoMaxRetry
	}
	return nil
}

// ConnectMongo dials MongoDB, retrying transient failures, and returns the
// configured database handle together with its client.
func ConnectMongo(ctx context.Context, cfg MongoConfig) (*mongo.Client, *mongo.Database, error) {
	if err := cfg.validateAndSetDefaults(); err != nil {
		return nil, nil, err
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(uint64(cfg.MaxPoolSize))

	var (
		cli *mongo.Client
		err error
	)
	for i := 0; i < cfg.MaxRetry; i++ {
		cli, err = connectMongo(ctx, opts)
		if err == nil {
			break
		}
		if !shouldRetryMongo(ctx, err) {
			break
		}
		timer := time.NewTimer(time.Second / 2)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, nil, ctx.Err()
		case <-timer.C:
		}
	}
	if err != nil {
		return nil, nil, fmt.Errorf("connect to mongodb: %w", err)
	}

	return cli, cli.Database(cfg.Database), nil
}

func connectMongo(ctx context.Context, opts *options.ClientOptions) (*mongo.Client, error) {
	cli, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := cli.Ping(ctx, nil); err != nil {
		_ = cli.Disconnect(ctx)
		return nil, err
	}
	return cli, nil
}

// shouldRetryMongo skips retries for authentication failures (codes 13, 18).
func shouldRetryMongo(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Code != 13 && cmdErr.Code != 18
	}
	return true
}

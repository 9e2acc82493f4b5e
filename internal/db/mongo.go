package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.uber.org/zap"

	"github.com/gettruefans/truefans-api/internal/config"
)

const mongoConnectTimeout = 10 * time.Second

func OpenMongo(ctx context.Context, conf *config.MongoConfig) (*mongo.Client, *mongo.Database, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(conf.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo.Connect -> %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
	defer cancel()

	if err = client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("client.Ping -> %w", err)
	}

	zap.L().Info("connected to mongo", zap.String("database", conf.Database))

	return client, client.Database(conf.Database), nil
}

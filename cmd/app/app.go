package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gettruefans/truefans-api/internal/api"
	"github.com/gettruefans/truefans-api/internal/config"
	"github.com/gettruefans/truefans-api/internal/db"
	"github.com/gettruefans/truefans-api/internal/logger"
	"github.com/gettruefans/truefans-api/internal/pkg/mailer"
	"github.com/gettruefans/truefans-api/internal/pkg/objectstore"
	"github.com/gettruefans/truefans-api/internal/pkg/payments"
	"github.com/gettruefans/truefans-api/internal/repository/dao"
)

func Start() error {
	conf, err := config.Load("./cmd/app/config.yml")
	if err != nil {
		return fmt.Errorf("failed to initialize config -> %w", err)
	}

	if err = logger.Init(conf.API.Environment); err != nil {
		return fmt.Errorf("failed to initialize logger -> %w", err)
	}

	dbURL := os.Getenv("DATABASE_URL")
	var postgresDB *gorm.DB
	if dbURL != "" {
		postgresDB, err = db.OpenPostgresWithURL(dbURL)
	} else {
		postgresDB, err = db.OpenPostgres(conf.Postgres)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database -> %w", err)
	}

	ctx := context.Background()

	ext, err := initIntegrations(ctx, conf)
	if err != nil {
		return fmt.Errorf("failed to initialize integrations -> %w", err)
	}

	s := api.NewServer(conf, postgresDB, ext)

	addr := ":" + s.Config.API.Port
	zap.L().Info(fmt.Sprintf("starting server at %v", addr))
	if err = s.Router.Run(addr); err != nil {
		return fmt.Errorf("failed to start the server -> %w", err)
	}

	return nil
}

// initIntegrations connects the optional backends. Clients that are not
// configured are left nil and their features stay off.
func initIntegrations(ctx context.Context, conf *config.AppConfig) (api.Integrations, error) {
	var ext api.Integrations

	if conf.Storage.PassBackend == config.PassBackendMongo {
		_, mongoDB, err := db.OpenMongo(ctx, conf.Mongo)
		if err != nil {
			return ext, fmt.Errorf("db.OpenMongo -> %w", err)
		}
		if err = dao.NewMongoIssuedPassDAO(mongoDB).Migrate(ctx); err != nil {
			return ext, fmt.Errorf("MongoIssuedPassDAO.Migrate -> %w", err)
		}
		ext.Mongo = mongoDB
	}

	store, err := objectstore.New(ctx, objectstore.Config{
		Endpoint:   conf.S3.Endpoint,
		Region:     conf.S3.Region,
		AccessKey:  conf.S3.AccessKey,
		SecretKey:  conf.S3.SecretKey,
		Bucket:     conf.S3.Bucket,
		PresignTTL: conf.S3.PresignTTL,
	})
	switch {
	case err == nil:
		ext.Store = store
	case errors.Is(err, objectstore.ErrNotConfigured):
		zap.L().Info("object storage disabled, wallet files are served by the api")
	default:
		return ext, fmt.Errorf("objectstore.New -> %w", err)
	}

	mail, err := mailer.New(mailer.Config{
		APIKey: conf.Email.ResendAPIKey,
		From:   conf.Email.From,
	})
	switch {
	case err == nil:
		ext.Mailer = mail
	case errors.Is(err, mailer.ErrNotConfigured):
		zap.L().Info("email delivery disabled")
	default:
		return ext, fmt.Errorf("mailer.New -> %w", err)
	}

	gateway, err := payments.NewStripeGateway(payments.Config{
		SecretKey: conf.Stripe.SecretKey,
		PriceID:   conf.Stripe.PriceID,
	})
	switch {
	case err == nil:
		ext.Billing = gateway
	case errors.Is(err, payments.ErrNotConfigured):
		zap.L().Info("billing disabled")
	default:
		return ext, fmt.Errorf("payments.NewStripeGateway -> %w", err)
	}

	return ext, nil
}

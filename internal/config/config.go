package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PassBackendPostgres = "postgres"
	PassBackendMongo    = "mongo"

	DefaultRegistrationURL = "https://gettruefans.netlify.app/register"
)

type AppConfig struct {
	API      *APIConfig      `mapstructure:"api"`
	Gin      *GinConfig      `mapstructure:"gin"`
	Postgres *PostgresConfig `mapstructure:"postgres"`
	Mongo    *MongoConfig    `mapstructure:"mongo"`
	Storage  *StorageConfig  `mapstructure:"storage"`
	Passes   *PassesConfig   `mapstructure:"passes"`
	Wallet   *WalletConfig   `mapstructure:"wallet"`
	Stripe   *StripeConfig   `mapstructure:"stripe"`
	S3       *S3Config       `mapstructure:"s3"`
	Email    *EmailConfig    `mapstructure:"email"`
}

type APIConfig struct {
	Environment        string   `mapstructure:"environment"`
	Port               string   `mapstructure:"port"`
	BaseURL            string   `mapstructure:"base_url"`
	PublicURL          string   `mapstructure:"public_url"`
	AllowedCORSDomains []string `mapstructure:"allowed_cors_domains"`
	JWTSigningKey      string   `mapstructure:"jwt_signing_key"`
	// RegistrationURL is the public page encoded in brand QR codes.
	RegistrationURL string `mapstructure:"registration_url"`
}

type GinConfig struct {
	Mode string `mapstructure:"mode"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DB       string `mapstructure:"db"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type StorageConfig struct {
	// PassBackend selects where issued passes live: "postgres" or "mongo".
	PassBackend string `mapstructure:"pass_backend"`
}

type PassesConfig struct {
	DefaultValidityDays int  `mapstructure:"default_validity_days"`
	DedupeRegistrations bool `mapstructure:"dedupe_registrations"`
}

type WalletConfig struct {
	PassTypeIdentifier string `mapstructure:"pass_type_identifier"`
	TeamIdentifier     string `mapstructure:"team_identifier"`
	OrganizationName   string `mapstructure:"organization_name"`
	CertPath           string `mapstructure:"cert_path"`
	KeyPath            string `mapstructure:"key_path"`
	WWDRPath           string `mapstructure:"wwdr_path"`
	ModelDir           string `mapstructure:"model_dir"`
	// OutputDir keeps a copy of committed wallet files. Empty disables it.
	OutputDir string `mapstructure:"output_dir"`
}

type StripeConfig struct {
	SecretKey string `mapstructure:"secret_key"`
	PriceID   string `mapstructure:"price_id"`
}

type S3Config struct {
	Endpoint   string        `mapstructure:"endpoint"`
	Region     string        `mapstructure:"region"`
	AccessKey  string        `mapstructure:"access_key"`
	SecretKey  string        `mapstructure:"secret_key"`
	Bucket     string        `mapstructure:"bucket"`
	PresignTTL time.Duration `mapstructure:"presign_ttl"`
}

type EmailConfig struct {
	ResendAPIKey string `mapstructure:"resend_api_key"`
	From         string `mapstructure:"from"`
}

// Load reads the YAML file at path. Every key can be overridden by an
// environment variable named after its path, e.g. API_PORT or
// WALLET_CERT_PATH.
func Load(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("v.ReadInConfig -> %w", err)
	}

	conf := &AppConfig{}
	if err := v.Unmarshal(conf); err != nil {
		return nil, fmt.Errorf("v.Unmarshal -> %w", err)
	}
	conf.setDefaults()

	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("conf.Validate -> %w", err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		zap.L().Warn("config file changed, restart to apply", zap.String("file", e.Name), zap.String("op", e.Op.String()))
	})
	v.WatchConfig()

	return conf, nil
}

func (c *AppConfig) setDefaults() {
	if c.API == nil {
		c.API = &APIConfig{}
	}
	if c.Gin == nil {
		c.Gin = &GinConfig{}
	}
	if c.Postgres == nil {
		c.Postgres = &PostgresConfig{}
	}
	if c.Mongo == nil {
		c.Mongo = &MongoConfig{}
	}
	if c.Storage == nil {
		c.Storage = &StorageConfig{}
	}
	if c.Passes == nil {
		c.Passes = &PassesConfig{}
	}
	if c.Wallet == nil {
		c.Wallet = &WalletConfig{}
	}
	if c.Stripe == nil {
		c.Stripe = &StripeConfig{}
	}
	if c.S3 == nil {
		c.S3 = &S3Config{}
	}
	if c.Email == nil {
		c.Email = &EmailConfig{}
	}

	if c.Storage.PassBackend == "" {
		c.Storage.PassBackend = PassBackendPostgres
	}
	if c.Passes.DefaultValidityDays == 0 {
		c.Passes.DefaultValidityDays = 365
	}
	if c.API.RegistrationURL == "" {
		c.API.RegistrationURL = DefaultRegistrationURL
	}
	if c.API.PublicURL == "" && c.API.BaseURL != "" {
		c.API.PublicURL = "http://" + c.API.BaseURL
	}
}

func (c *AppConfig) Validate() error {
	err := validation.ValidateStruct(c.API,
		validation.Field(&c.API.Port, validation.Required),
		validation.Field(&c.API.JWTSigningKey, validation.Required, validation.Length(16, 0)),
	)
	if err != nil {
		return fmt.Errorf("api: %w", err)
	}

	err = validation.ValidateStruct(c.Storage,
		validation.Field(&c.Storage.PassBackend, validation.In(PassBackendPostgres, PassBackendMongo)),
	)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}

	if c.Storage.PassBackend == PassBackendMongo {
		err = validation.ValidateStruct(c.Mongo,
			validation.Field(&c.Mongo.URI, validation.Required),
			validation.Field(&c.Mongo.Database, validation.Required),
		)
		if err != nil {
			return fmt.Errorf("mongo: %w", err)
		}
	}

	err = validation.ValidateStruct(c.Passes,
		validation.Field(&c.Passes.DefaultValidityDays, validation.Min(1)),
	)
	if err != nil {
		return fmt.Errorf("passes: %w", err)
	}

	return nil
}

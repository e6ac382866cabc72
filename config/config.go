package config

import (
	"fmt"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"

	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverBadger   = "badger"
)

type Config struct {
	Env      string `env:"APP_ENV,default=local"`
	LogLevel string `env:"LOG_LEVEL,default=INFO"`

	Host             string `env:"HTTP_HOST"`
	Port             int    `env:"HTTP_PORT,default=5000"`
	CorsAllowOrigins string `env:"CORS_ALLOW_ORIGINS,default=*"`

	StoreDriver      string `env:"STORE_DRIVER,default=postgres"`
	DatabaseHost     string `env:"DATABASE_HOST,default=localhost"`
	DatabasePort     string `env:"DATABASE_PORT,default=5432"`
	DatabaseUser     string `env:"DATABASE_USER"`
	DatabasePassword string `env:"DATABASE_PASSWORD"`
	DatabaseName     string `env:"DATABASE_NAME"`
	MongoURI         string `env:"MONGO_URI,default=mongodb://localhost:27017"`
	MongoDatabase    string `env:"MONGO_DATABASE,default=chat"`
	BadgerPath       string `env:"BADGER_PATH,default=./data"`
	SeedChats        bool   `env:"SEED_CHATS,default=true"`

	AutoReplyDelay      time.Duration `env:"AUTO_REPLY_DELAY,default=3s"`
	RandomMessagePeriod time.Duration `env:"RANDOM_MESSAGE_PERIOD,default=5s"`
	RandomMessageText   string        `env:"RANDOM_MESSAGE_TEXT,default=Random message!"`
	ShutdownTimeout     time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
}

// MustLoad reads an optional .env file, then the process environment.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func Load() (*Config, error) {
	// A missing .env is fine, the environment may already be populated.
	_ = godotenv.Load()

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case DriverPostgres, DriverMongo, DriverBadger:
	default:
		return fmt.Errorf("config error: STORE_DRIVER must be one of postgres, mongo, badger, got %q", c.StoreDriver)
	}
	if c.AutoReplyDelay <= 0 {
		return fmt.Errorf("config error: AUTO_REPLY_DELAY must be positive, got %s", c.AutoReplyDelay)
	}
	if c.RandomMessagePeriod <= 0 {
		return fmt.Errorf("config error: RANDOM_MESSAGE_PERIOD must be positive, got %s", c.RandomMessagePeriod)
	}
	return nil
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// PostgresDSN builds the keyword/value connection string pgxpool expects.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s database=%s",
		c.DatabaseHost, c.DatabasePort, c.DatabaseUser, c.DatabasePassword, c.DatabaseName)
}

func (c *Config) AllowOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CorsAllowOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Ledger       LedgerConfig
	CapToken     CapTokenConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FAMBOARD_APP_ENV" required:"true"`
	Port         string `envconfig:"FAMBOARD_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"FAMBOARD_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FAMBOARD_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"FAMBOARD_DB_DSN"`
	Driver string `envconfig:"FAMBOARD_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"FAMBOARD_DB_HOST"`
	LegacyPort     int    `envconfig:"FAMBOARD_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FAMBOARD_DB_USER"`
	LegacyPassword string `envconfig:"FAMBOARD_DB_PASSWORD"`
	LegacyName     string `envconfig:"FAMBOARD_DB_NAME"`
	LegacySSLMode  string `envconfig:"FAMBOARD_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FAMBOARD_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FAMBOARD_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FAMBOARD_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FAMBOARD_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FAMBOARD_REDIS_URL" required:"true"`
	Address      string        `envconfig:"FAMBOARD_REDIS_ADDR"`
	Password     string        `envconfig:"FAMBOARD_REDIS_PASSWORD"`
	DB           int           `envconfig:"FAMBOARD_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FAMBOARD_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FAMBOARD_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FAMBOARD_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FAMBOARD_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FAMBOARD_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"FAMBOARD_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"FAMBOARD_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"FAMBOARD_JWT_EXPIRATION_MINUTES" default:"60"`
}

// LedgerConfig tunes the redemption engine.
type LedgerConfig struct {
	RefundWindow time.Duration `envconfig:"FAMBOARD_LEDGER_REFUND_WINDOW" default:"720h"`
	HoldTTL      time.Duration `envconfig:"FAMBOARD_LEDGER_HOLD_TTL" default:"72h"`
}

// CapTokenConfig tunes single-use scan tokens.
type CapTokenConfig struct {
	Secret string        `envconfig:"FAMBOARD_CAPTOKEN_SECRET" required:"true"`
	Issuer string        `envconfig:"FAMBOARD_CAPTOKEN_ISSUER" default:"famboard"`
	TTL    time.Duration `envconfig:"FAMBOARD_CAPTOKEN_TTL" default:"5m"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"FAMBOARD_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"FAMBOARD_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}

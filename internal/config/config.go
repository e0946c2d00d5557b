package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
	Migrate         bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
}

type StorageConfig struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	Bucket     string
	UseSSL     bool
	Region     string
	PublicBase string
}

type SecurityConfig struct {
	JWTAccessSecret string
	JWTAccessTTL    time.Duration
	JWTRefreshTTL   time.Duration
	MaxSessions     int
	CookieName      string
	CookieSecure    bool
}

type UploadConfig struct {
	MaxBytes    int64
	MemoryBytes int64
}

type SeedUser struct {
	Email    string
	Name     string
	Password string
	Role     string
}

type SeedConfig struct {
	Enabled bool
	Users   []SeedUser
}

type MetricsConfig struct {
	Enabled   bool
	Path      string
	Namespace string
}

type WorkerConfig struct {
	Group         string
	Consumer      string
	ClaimInterval time.Duration
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Storage          StorageConfig
	Security         SecurityConfig
	Upload           UploadConfig
	Seed             SeedConfig
	Metrics          MetricsConfig
	Worker           WorkerConfig
	AllowCORSOrigins []string
}

func Load() (*AppConfig, error) {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("GALLERY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	return decode(v)
}

func decode(v *viper.Viper) (*AppConfig, error) {
	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) validate() error {
	if c.Environment == "production" && c.Security.JWTAccessSecret == "" {
		return fmt.Errorf("security.jwtaccesssecret is required in production")
	}
	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("upload.maxbytes must be positive")
	}
	if c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required")
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "60s")
	v.SetDefault("http.writetimeout", "60s")
	v.SetDefault("http.idletimeout", "120s")

	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 5)
	v.SetDefault("postgres.connmaxlifetime", "30m")
	v.SetDefault("postgres.migrate", true)

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.stream", "gallery:photos")

	v.SetDefault("storage.bucket", "moonlit-photos")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")

	v.SetDefault("security.jwtaccessttl", "1h")
	v.SetDefault("security.jwtrefreshttl", "720h") // 30 days
	v.SetDefault("security.maxsessions", 10)
	v.SetDefault("security.cookiename", "gallery_session")

	v.SetDefault("upload.maxbytes", 25<<20)
	v.SetDefault("upload.memorybytes", 8<<20)

	v.SetDefault("seed.enabled", false)
	v.SetDefault("seed.users", []map[string]any{
		{"email": "photographer@example.com", "name": "Demo Photographer", "password": "photo", "role": "photographer"},
		{"email": "client@example.com", "name": "Demo Client", "password": "client", "role": "client"},
	})

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "gallery")

	v.SetDefault("worker.group", "gallery-workers")
	v.SetDefault("worker.consumer", "worker-1")
	v.SetDefault("worker.claiminterval", "30s")
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	DatabaseURL      string // あれば最優先
	PostgresUser     string // DBユーザー
	PostgresPassword string // DBパスワード
	PostgresDB       string // DB名
	PostgresHost     string // DBホスト（localhost）
	PostgresPort     int    // DBポート（5432）
	PostgresSSLMode  string

	JWTSecret string // JWT署名シークレット

	RedisAddr      string
	IdempotencyTTL time.Duration

	KafkaBrokers []string
	OutboxTopic  string // 空ならrelayを起動しない

	UploadDir       string // 支払い証憑の保存先
	StaticRoute     string // UploadDirを配信するパス（/storage）
	PublicBaseURL   string // 証憑URLの前半。CDNなら絶対URL
	DisplayCurrency string // 金額表示の通貨（IDR）

	GoEnv string // dev/prod
}

// Loadは環境変数から読む。.envはmainでgodotenvが読む。
func Load() (Config, error) {
	pgPort, err := atoiDefault("POSTGRES_PORT", 5432)
	if err != nil {
		return Config{}, err
	}
	ttl, err := durationDefault("IDEMPOTENCY_TTL", 10*time.Minute)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port: getenv("PORT", "8080"),

		DatabaseURL:      os.Getenv("DATABASE_URL"),
		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     getenv("POSTGRES_HOST", "localhost"),
		PostgresPort:     pgPort,
		PostgresSSLMode:  getenv("POSTGRES_SSLMODE", "disable"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		RedisAddr:      os.Getenv("REDIS_ADDR"),
		IdempotencyTTL: ttl,

		KafkaBrokers: splitList(os.Getenv("KAFKA_BROKERS")),
		OutboxTopic:  os.Getenv("OUTBOX_TOPIC"),

		UploadDir:       getenv("UPLOAD_DIR", "./storage"),
		StaticRoute:     getenv("STATIC_ROUTE", "/storage"),
		PublicBaseURL:   getenv("PUBLIC_BASE_URL", "/storage"),
		DisplayCurrency: getenv("DISPLAY_CURRENCY", "IDR"),

		GoEnv: getenv("GO_ENV", "dev"),
	}

	//必須チェック
	if cfg.DatabaseURL == "" {
		if cfg.PostgresUser == "" {
			return Config{}, fmt.Errorf("POSTGRES_USER is required")
		}
		if cfg.PostgresPassword == "" {
			return Config{}, fmt.Errorf("POSTGRES_PASSWORD is required")
		}
		if cfg.PostgresDB == "" {
			return Config{}, fmt.Errorf("POSTGRES_DB is required")
		}
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if !strings.HasPrefix(cfg.StaticRoute, "/") {
		return Config{}, fmt.Errorf("STATIC_ROUTE must start with /")
	}
	if cfg.OutboxTopic != "" && len(cfg.KafkaBrokers) == 0 {
		return Config{}, fmt.Errorf("KAFKA_BROKERS is required when OUTBOX_TOPIC is set")
	}

	return cfg, nil
}

// DSNはgorm(postgres)に渡す接続文字列
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresSSLMode,
	)
}

func (c Config) IsProd() bool { return c.GoEnv == "prod" }

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoiDefault(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func durationDefault(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be duration: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

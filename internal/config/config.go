package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port    string
	GinMode string
	LogProd bool

	MongoURI string
	MongoDB  string

	JWTSecret      string
	JWTTTL         time.Duration
	JWTKeyID       string
	JWTKeyPath     string
	JWTNextKeyID   string
	JWTNextKeyPath string
	RefreshTTLDays int

	RedisAddr      string
	RabbitURL      string
	RabbitExchange string
	NotifyQueue    string
	NotifyWorkers  int

	Mail  MailConfig
	MinIO MinIOConfig

	AppURL        string
	ShowcaseEmail string
	CORSOrigins   []string

	Google GoogleConfig

	DDEnabled bool
	DDService string
}

type MailConfig struct {
	Host             string
	Port             string
	Username         string
	Password         string
	From             string
	ContactRecipient string
}

// Enabled reports whether enough is set to reach a relay.
func (m MailConfig) Enabled() bool {
	return m.Host != "" && m.From != ""
}

type MinIOConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	Bucket          string
	Region          string
	PublicURL       string
}

func (m MinIOConfig) Enabled() bool {
	return m.Endpoint != "" && m.AccessKeyID != "" && m.SecretAccessKey != ""
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	StateSecret  string
}

func (g GoogleConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

// Load reads the environment, optionally seeded from a .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:    getenv("APP_PORT", "8080"),
		GinMode: getenv("GIN_MODE", "release"),
		LogProd: getbool("LOG_PROD", true),

		MongoURI: getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:  getenv("MONGO_DB", "portfolio"),

		JWTSecret:      getenv("JWT", "default_secret_key"),
		JWTTTL:         time.Duration(positive(atoi(getenv("JWT_TTL_HOURS", "24")), 24)) * time.Hour,
		JWTKeyID:       getenv("JWT_KEY_ID", "k1"),
		JWTKeyPath:     os.Getenv("JWT_PRIVATE_KEY_PATH"),
		JWTNextKeyID:   os.Getenv("JWT_NEXT_KEY_ID"),
		JWTNextKeyPath: os.Getenv("JWT_NEXT_KEY_PATH"),
		RefreshTTLDays: atoi(getenv("REFRESH_TTL_DAYS", "14")),

		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RabbitURL:      os.Getenv("RABBIT_URL"),
		RabbitExchange: getenv("RABBIT_EXCHANGE", "portfolio.events"),
		NotifyQueue:    getenv("NOTIFY_QUEUE", "portfolio.signup-notices"),
		NotifyWorkers:  atoi(getenv("NOTIFY_WORKERS", "2")),

		Mail: MailConfig{
			Host:             os.Getenv("SMTP_HOST"),
			Port:             getenv("SMTP_PORT", "587"),
			Username:         os.Getenv("SMTP_USERNAME"),
			Password:         os.Getenv("SMTP_PASSWORD"),
			From:             os.Getenv("MAIL_FROM"),
			ContactRecipient: os.Getenv("CONTACT_RECIPIENT"),
		},
		MinIO: MinIOConfig{
			Endpoint:        os.Getenv("MINIO_ENDPOINT"),
			AccessKeyID:     os.Getenv("MINIO_ACCESS_KEY"),
			SecretAccessKey: os.Getenv("MINIO_SECRET_KEY"),
			UseSSL:          getbool("MINIO_USE_SSL", false),
			Bucket:          getenv("MINIO_BUCKET", "portfolio"),
			Region:          getenv("MINIO_REGION", "us-east-1"),
			PublicURL:       strings.TrimRight(os.Getenv("MINIO_PUBLIC_URL"), "/"),
		},

		AppURL:        strings.TrimRight(getenv("APP_URL", "http://localhost:3000"), "/"),
		ShowcaseEmail: strings.ToLower(strings.TrimSpace(os.Getenv("SHOWCASE_EMAIL"))),
		CORSOrigins:   splitList(getenv("CORS_ORIGINS", "*")),

		Google: GoogleConfig{
			ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
			ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
			RedirectURL:  os.Getenv("GOOGLE_REDIRECT_URL"),
			StateSecret:  getenv("OAUTH_STATE_SECRET", "default_state_key"),
		},

		DDEnabled: getbool("DD_ENABLED", false),
		DDService: getenv("DD_SERVICE", "portfolio-api"),
	}
}

func atoi(s string) int {
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return 0
}

func positive(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
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

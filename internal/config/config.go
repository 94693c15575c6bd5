package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server  ServerConfig
	Publish PublishConfig
	Stripe  StripeConfig
	Email   EmailConfig
	Redis   RedisConfig
	Kafka   KafkaConfig
	AI      AIConfig
	Console ConsoleConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PublishConfig struct {
	// PublicDir holds data/manifest.json and uploads/
	PublicDir      string
	AdminToken     string
	MaxUploadBytes int64
	// PublicURL is the visitor site origin, used for checkout redirects
	PublicURL string
	LockTTL   time.Duration
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
}

type EmailConfig struct {
	Enabled      bool
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	From         string
	FromName     string
}

type RedisConfig struct {
	Enabled bool
	Addr    string
}

type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topics  TopicConfig
}

type TopicConfig struct {
	ManifestPublished string
	BookingConfirmed  string
}

type AIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// ConsoleConfig configures the owner console (cmd/eventctl)
type ConsoleConfig struct {
	StoreDSN      string
	ServerURL     string
	AdminToken    string
	ClientTimeout time.Duration
}

type LogConfig struct {
	Dir   string
	Level string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8080"),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Publish: PublishConfig{
			PublicDir:      getEnv("PUBLIC_DIR", "./public"),
			AdminToken:     getEnv("ADMIN_TOKEN", ""),
			MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_MB", 25)) << 20,
			PublicURL:      strings.TrimRight(getEnv("PUBLIC_URL", "http://localhost:8080"), "/"),
			LockTTL:        getEnvDuration("PUBLISH_LOCK_TTL", 2*time.Minute),
		},
		Stripe: StripeConfig{
			SecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
			Currency:      strings.ToLower(getEnv("STRIPE_CURRENCY", "usd")),
		},
		Email: EmailConfig{
			Enabled:      getEnvBool("EMAIL_ENABLED", false),
			SMTPHost:     getEnv("SMTP_HOST", "localhost"),
			SMTPPort:     getEnv("SMTP_PORT", "587"),
			SMTPUsername: getEnv("SMTP_USERNAME", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			From:         getEnv("EMAIL_FROM", "tickets@localhost"),
			FromName:     getEnv("EMAIL_FROM_NAME", "Event Tickets"),
		},
		Redis: RedisConfig{
			Enabled: getEnvBool("REDIS_ENABLED", false),
			Addr:    getEnv("REDIS_ADDR", "localhost:6379"),
		},
		Kafka: KafkaConfig{
			Enabled: getEnvBool("KAFKA_ENABLED", false),
			Brokers: getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topics: TopicConfig{
				ManifestPublished: getEnv("KAFKA_TOPIC_MANIFEST_PUBLISHED", "events.manifest.published"),
				BookingConfirmed:  getEnv("KAFKA_TOPIC_BOOKING_CONFIRMED", "events.booking.confirmed"),
			},
		},
		AI: AIConfig{
			APIKey:  getEnv("OPENAI_API_KEY", ""),
			Model:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			BaseURL: getEnv("OPENAI_BASE_URL", ""),
		},
		Console: ConsoleConfig{
			StoreDSN:      getEnv("EVENTCTL_STORE", "file:eventctl.db?cache=shared"),
			ServerURL:     strings.TrimRight(getEnv("EVENTCTL_SERVER", "http://localhost:8080"), "/"),
			AdminToken:    getEnv("EVENTCTL_TOKEN", getEnv("ADMIN_TOKEN", "")),
			ClientTimeout: getEnvDuration("EVENTCTL_TIMEOUT", 30*time.Second),
		},
		Log: LogConfig{
			Dir:   getEnv("LOG_DIR", "logs"),
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}
}

// PaymentsEnabled reports whether the server can talk to Stripe at all
func (c *Config) PaymentsEnabled() bool {
	return c.Stripe.SecretKey != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

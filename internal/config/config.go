package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort        string   `env:"APP_PORT" envDefault:"3000"`
	AppEnv         string   `env:"APP_ENV" envDefault:"development"`
	AWSRegion      string   `env:"AWS_REGION" envDefault:"us-east-1"`
	AWSEndpointURL string   `env:"AWS_ENDPOINT_URL"` // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string   `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretKey   string   `env:"AWS_SECRET_ACCESS_KEY"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Storage selects the registry backend: "dynamo" or "memory".
	Storage      string       `env:"PUSH_STORAGE" envDefault:"dynamo"`
	DynamoTables DynamoTables `envPrefix:"DYNAMO_TABLE_"`

	JWTPublicKeyPath string `env:"JWT_PUBLIC_KEY_PATH" envDefault:"./public_key.pem"`

	FCM   FCM   `envPrefix:"FCM_"`
	VAPID VAPID `envPrefix:"VAPID_"`
	Push  Push  `envPrefix:"PUSH_"`

	// AckBaseURL is where receivers post delivered/clicked acknowledgements.
	AckBaseURL string `env:"ACK_BASE_URL" envDefault:"http://localhost:3000"`
	// Per-IP limit on the public acknowledgement endpoints.
	AckRateLimit float64 `env:"ACK_RATE_LIMIT" envDefault:"5"`
	AckRateBurst int     `env:"ACK_RATE_BURST" envDefault:"10"`
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Subscriptions string `env:"SUBSCRIPTIONS" envDefault:"push_subscriptions"`
	Preferences   string `env:"PREFERENCES" envDefault:"notification_settings"`
	Notifications string `env:"NOTIFICATIONS" envDefault:"push_notification_logs"`
}

// FCM configures the native channel and its service account.
// The account may be given as discrete fields, an inline JSON document or a JSON file path.
type FCM struct {
	ProjectID          string        `env:"PROJECT_ID"`
	ClientEmail        string        `env:"CLIENT_EMAIL"`
	PrivateKey         string        `env:"PRIVATE_KEY"`
	ServiceAccountJSON string        `env:"SERVICE_ACCOUNT_JSON"`
	ServiceAccountPath string        `env:"SERVICE_ACCOUNT_JSON_PATH"`
	Scope              string        `env:"SCOPE" envDefault:"https://www.googleapis.com/auth/firebase.messaging"`
	TokenURL           string        `env:"TOKEN_URL" envDefault:"https://oauth2.googleapis.com/token"`
	BaseURL            string        `env:"BASE_URL" envDefault:"https://fcm.googleapis.com"`
	TokenCache         bool          `env:"TOKEN_CACHE" envDefault:"true"`
	Timeout            time.Duration `env:"TIMEOUT" envDefault:"10s"`
}

// VAPID configures the browser channel sender identity.
type VAPID struct {
	PublicKey  string        `env:"PUBLIC_KEY"`
	PrivateKey string        `env:"PRIVATE_KEY"`
	Subject    string        `env:"SUBJECT" envDefault:"mailto:noreply@example.com"`
	TTL        int           `env:"TTL" envDefault:"86400"`
	Timeout    time.Duration `env:"TIMEOUT" envDefault:"10s"`
}

// Push tunes the fan-out coordinator.
type Push struct {
	MaxConcurrency int     `env:"MAX_CONCURRENCY" envDefault:"32"`
	RateLimit      float64 `env:"RATE_LIMIT" envDefault:"500"`
	RateBurst      int     `env:"RATE_BURST" envDefault:"100"`
	DeleteRetries  int     `env:"DELETE_RETRIES" envDefault:"3"`
}

// Load reads all configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Push.MaxConcurrency <= 0 {
		return nil, fmt.Errorf("PUSH_MAX_CONCURRENCY must be positive, got %d", cfg.Push.MaxConcurrency)
	}
	return &cfg, nil
}

// IsProduction reports whether the app runs with APP_ENV=production.
func (c *Config) IsProduction() bool { return c.AppEnv == "production" }

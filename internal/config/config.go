package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// ----------------------------
	// Email delivery
	// ----------------------------
	EmailProvider string `envconfig:"EMAIL_PROVIDER" default:"smtp"`
	EmailFrom     string `envconfig:"EMAIL_FROM" default:"noreply@agents.local"`

	SMTPHost     string `envconfig:"SMTP_HOST" default:"localhost"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"1025"`
	SMTPUser     string `envconfig:"SMTP_USER" default:""`
	SMTPPassword string `envconfig:"SMTP_PASSWORD" default:""`

	SESRegion           string `envconfig:"SES_REGION" default:""`
	SESConfigurationSet string `envconfig:"SES_CONFIGURATION_SET" default:""`

	// ----------------------------
	// Campaign batches
	// ----------------------------
	BatchSize     int `envconfig:"BATCH_SIZE" default:"100"`
	RateLimit     int `envconfig:"RATE_LIMIT" default:"50"`
	RetryAttempts int `envconfig:"RETRY_ATTEMPTS" default:"3"`
	CSVMaxRows    int `envconfig:"CSV_MAX_ROWS" default:"10000"`

	// ----------------------------
	// Language model
	// ----------------------------
	LLMProvider string        `envconfig:"LLM_PROVIDER" default:"openai"`
	LLMAPIKey   string        `envconfig:"LLM_API_KEY" default:""`
	LLMBaseURL  string        `envconfig:"LLM_BASE_URL" default:"https://api.openai.com/v1"`
	LLMModel    string        `envconfig:"LLM_MODEL" default:""`
	LLMTimeout  time.Duration `envconfig:"LLM_TIMEOUT" default:"60s"`

	// ----------------------------
	// Presentations
	// ----------------------------
	UploadDir       string `envconfig:"UPLOAD_DIR" default:"public/uploads"`
	UploadURLPrefix string `envconfig:"UPLOAD_URL_PREFIX" default:"/uploads"`
	ChromeBin       string `envconfig:"CHROME_BIN" default:""`

	// ----------------------------
	// HTTP API
	// ----------------------------
	APIPort       string `envconfig:"API_PORT" default:"8080"`
	JWTSecret     string `envconfig:"JWT_SECRET" required:"true"`
	SessionCookie string `envconfig:"SESSION_COOKIE" default:"session-token"`

	// ----------------------------
	// Metrics
	// ----------------------------
	MetricsPort string `envconfig:"METRICS_PORT" default:"9090"`

	// ----------------------------
	// Events
	// ----------------------------
	KafkaBrokers string `envconfig:"KAFKA_BROKERS" default:""`
	KafkaTopic   string `envconfig:"KAFKA_TOPIC" default:"ai-agents-events"`

	// ----------------------------
	// Logging
	// ----------------------------
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	LogFile  string `envconfig:"LOG_FILE" default:""`

	// ----------------------------
	// Database
	// ----------------------------
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over .env entries.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	err := envconfig.Process("", &cfg)
	return &cfg, err
}

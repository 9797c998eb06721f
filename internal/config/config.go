package config

import (
	"errors"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var ErrMissingRequired = errors.New("missing required configuration")

type Config struct {
	// Server
	ServerPort      int    `envconfig:"SERVER_PORT" default:"8082"`
	UploadAuthToken string `envconfig:"UPLOAD_AUTH_TOKEN"`
	MaxUploadSizeMB int64  `envconfig:"MAX_UPLOAD_SIZE_MB" default:"10"`

	// Object store
	S3Endpoint  string `envconfig:"S3_ENDPOINT" default:"localhost:9000"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey string `envconfig:"S3_SECRET_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"cv-uploads"`
	S3UseSSL    bool   `envconfig:"S3_USE_SSL" default:"false"`

	// Queue
	NSQLookupd       string `envconfig:"NSQ_LOOKUPD" default:"nsqlookupd:4161"`
	NSQDHost         string `envconfig:"NSQD_HOST" default:"nsqd:4150"`
	ParseTopic       string `envconfig:"PARSE_TOPIC" default:"cv.parse"`
	ParseChannel     string `envconfig:"PARSE_CHANNEL" default:"parser"`
	DeadLetterTopic  string `envconfig:"DEAD_LETTER_TOPIC" default:"cv.parse.dead"`
	ParseConcurrency int    `envconfig:"PARSE_CONCURRENCY" default:"5"`
	MaxParseAttempts int    `envconfig:"MAX_PARSE_ATTEMPTS" default:"3"`

	// Collaborators
	UploadsAPIURL   string `envconfig:"UPLOADS_API_URL" default:"http://uploads-api:8080"`
	UploadsAPIToken string `envconfig:"UPLOADS_API_TOKEN"`
	LedgerAPIURL    string `envconfig:"LEDGER_API_URL" default:"http://outbox-api:8080"`
	GeminiAPIKey    string `envconfig:"GEMINI_API_KEY"`
	GeminiModel     string `envconfig:"GEMINI_MODEL" default:"gemini-1.5-flash"`
}

func Load() (*Config, error) {
	// Env vars may be set in the shell instead; a missing .env is fine.
	_ = godotenv.Load(".env")

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.S3Bucket == "" {
		return fmt.Errorf("%w: S3_BUCKET", ErrMissingRequired)
	}
	if c.ParseTopic == "" {
		return fmt.Errorf("%w: PARSE_TOPIC", ErrMissingRequired)
	}
	if c.DeadLetterTopic == "" {
		return fmt.Errorf("%w: DEAD_LETTER_TOPIC", ErrMissingRequired)
	}
	if c.MaxParseAttempts < 1 {
		return fmt.Errorf("MAX_PARSE_ATTEMPTS must be at least 1")
	}
	return nil
}

func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadSizeMB << 20
}

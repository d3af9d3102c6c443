package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	ServerPort string `envconfig:"SERVER_PORT" default:"8080"`
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"parking"`
	DBPassword string `envconfig:"DB_PASSWORD" default:"parking"`
	DBName     string `envconfig:"DB_NAME" default:"parking_db"`
	DBSslMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	AWSRegion       string `envconfig:"AWS_REGION" default:"ap-south-1"`
	SQSGateQueueURL string `envconfig:"SQS_GATE_QUEUE_URL"`
	IoTDataEndpoint string `envconfig:"IOT_DATA_ENDPOINT"`
	IoTTopicPrefix  string `envconfig:"IOT_TOPIC_PREFIX" default:"parking/sessions"`
	OCREnabled      bool   `envconfig:"OCR_ENABLED" default:"true"`

	JWTSecret          string        `envconfig:"JWT_SECRET" default:"change-me-in-production"`
	JWTExpirationHours time.Duration `ignored:"true"`
	JWTExpirationRaw   int           `envconfig:"JWT_EXPIRATION_HOURS" default:"24"`
	// Seeded at start-up when both are set.
	AdminUsername string `envconfig:"ADMIN_USERNAME"`
	AdminPassword string `envconfig:"ADMIN_PASSWORD"`

	// Billing and retention policy.
	HourlyRate     decimal.Decimal `envconfig:"HOURLY_RATE" default:"50"`
	RetentionDays  int             `envconfig:"RETENTION_DAYS" default:"5"`
	SweepInterval  time.Duration   `envconfig:"SWEEP_INTERVAL" default:"1h"`
	PurgeBatchSize int             `envconfig:"PURGE_BATCH_SIZE" default:"500"`

	QRCodeDir string `envconfig:"QR_CODE_DIR" default:"static/qrcodes"`

	// Capture and plate detection.
	CameraDeviceID       int           `envconfig:"CAMERA_DEVICE_ID" default:"0"`
	CaptureTimeout       time.Duration `envconfig:"CAPTURE_TIMEOUT" default:"5s"`
	OCRTimeout           time.Duration `envconfig:"OCR_TIMEOUT" default:"10s"`
	PlateEpsilonFactor   float64       `envconfig:"PLATE_EPSILON_FACTOR" default:"0.02"`
	PlateSelectionPolicy string        `envconfig:"PLATE_SELECTION_POLICY" default:"first"`

	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`

	AMQPURL      string `envconfig:"AMQP_URL"`
	AMQPExchange string `envconfig:"AMQP_EXCHANGE" default:"parking.events"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.JWTExpirationHours = time.Duration(cfg.JWTExpirationRaw) * time.Hour

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HourlyRate.IsNegative() {
		return fmt.Errorf("config: HOURLY_RATE must not be negative, got %s", c.HourlyRate)
	}
	if c.RetentionDays <= 0 {
		return fmt.Errorf("config: RETENTION_DAYS must be positive, got %d", c.RetentionDays)
	}
	if c.PlateEpsilonFactor <= 0 || c.PlateEpsilonFactor >= 1 {
		return fmt.Errorf("config: PLATE_EPSILON_FACTOR must be in (0, 1), got %v", c.PlateEpsilonFactor)
	}
	switch c.PlateSelectionPolicy {
	case "first", "largest":
	default:
		return fmt.Errorf("config: unknown PLATE_SELECTION_POLICY %q", c.PlateSelectionPolicy)
	}
	return nil
}

// DSN builds the key/value connection string understood by the pgx stdlib driver.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSslMode)
}

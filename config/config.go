package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	StorageBackendS3 = "s3"
	StorageBackendB2 = "b2"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	GRPC     GRPCConfig     `yaml:"grpc"`
	Mongo    MongoConfig    `yaml:"mongo"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Storage  StorageConfig  `yaml:"storage"`
	Reminder ReminderConfig `yaml:"reminder"`
}

type HTTPConfig struct {
	Address         string        `yaml:"address" env:"HTTP_ADDRESS" env-default:":8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"10s"`
	MaxUploadSize   int64         `yaml:"max_upload_size" env:"HTTP_MAX_UPLOAD_SIZE" env-default:"20971520"`
}

type GRPCConfig struct {
	Address string `yaml:"address" env:"GRPC_ADDRESS" env-default:":50051"`
}

type MongoConfig struct {
	URI            string        `yaml:"uri" env:"MONGO_URI" env-default:"mongodb://localhost:27017"`
	Database       string        `yaml:"database" env:"MONGO_DATABASE" env-default:"lms"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"MONGO_CONNECT_TIMEOUT" env-default:"10s"`
}

type RedisConfig struct {
	Address   string        `yaml:"address" env:"REDIS_ADDRESS" env-default:"localhost:6379"`
	Password  string        `yaml:"password" env:"REDIS_PASSWORD"` //nolint:gosec // config struct, not hardcoded cred
	DB        int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
	StatusTTL time.Duration `yaml:"status_ttl" env:"REDIS_STATUS_TTL" env-default:"30s"`
}

type KafkaConfig struct {
	Brokers        []string `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:"," env-default:"localhost:9092"`
	EventsTopic    string   `yaml:"events_topic" env:"KAFKA_EVENTS_TOPIC" env-default:"submission-events"`
	RemindersTopic string   `yaml:"reminders_topic" env:"KAFKA_REMINDERS_TOPIC" env-default:"deadline-reminders"`
}

type StorageConfig struct {
	Backend    string   `yaml:"backend" env:"STORAGE_BACKEND" env-default:"s3"`
	StagingDir string   `yaml:"staging_dir" env:"STORAGE_STAGING_DIR" env-default:"uploads"`
	Folder     string   `yaml:"folder" env:"STORAGE_FOLDER" env-default:"Assignment_Submission"`
	S3         S3Config `yaml:"s3"`
	B2         B2Config `yaml:"b2"`
}

type S3Config struct {
	Endpoint        string `yaml:"endpoint" env:"S3_ENDPOINT"`
	Region          string `yaml:"region" env:"S3_REGION" env-default:"us-east-1"`
	AccessKeyID     string `yaml:"access_key_id" env:"S3_ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" env:"S3_SECRET_ACCESS_KEY"` //nolint:gosec // config struct, not hardcoded cred
	Bucket          string `yaml:"bucket" env:"S3_BUCKET" env-default:"submissions"`
	PublicURL       string `yaml:"public_url" env:"S3_PUBLIC_URL"`
}

type B2Config struct {
	AccountID      string `yaml:"account_id" env:"B2_ACCOUNT_ID"`
	ApplicationKey string `yaml:"application_key" env:"B2_APPLICATION_KEY"` //nolint:gosec // config struct, not hardcoded cred
	Bucket         string `yaml:"bucket" env:"B2_BUCKET"`
}

type ReminderConfig struct {
	Enabled  bool          `yaml:"enabled" env:"REMINDER_ENABLED" env-default:"true"`
	Interval time.Duration `yaml:"interval" env:"REMINDER_INTERVAL" env-default:"1h"`
	Horizon  time.Duration `yaml:"horizon" env:"REMINDER_HORIZON" env-default:"24h"`
}

// ObjectURLPrefix is the absolute URL object keys are appended to. It falls
// back to the path-style address of the bucket on the configured endpoint,
// or on the regional AWS endpoint when none is set.
func (c S3Config) ObjectURLPrefix() string {
	if c.PublicURL != "" {
		return strings.TrimSuffix(c.PublicURL, "/")
	}
	if c.Endpoint != "" {
		return strings.TrimSuffix(c.Endpoint, "/") + "/" + c.Bucket
	}
	return fmt.Sprintf("https://s3.%s.amazonaws.com/%s", c.Region, c.Bucket)
}

func Load() (*Config, error) {
	var cfg Config

	path := getConfigPath()
	if path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func getConfigPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}

	possiblePaths := []string{
		"config/config.yaml",
		"/etc/submission-service/config.yaml",
		"./config.yaml",
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http address is required")
	}
	if c.Mongo.URI == "" {
		return errors.New("mongo uri is required")
	}
	if c.Mongo.Database == "" {
		return errors.New("mongo database is required")
	}
	if c.HTTP.MaxUploadSize <= 0 {
		return errors.New("http max upload size must be positive")
	}

	switch c.Storage.Backend {
	case StorageBackendS3:
		if c.Storage.S3.Bucket == "" {
			return errors.New("s3 bucket is required")
		}
		if c.Storage.S3.AccessKeyID == "" || c.Storage.S3.SecretAccessKey == "" {
			return errors.New("s3 credentials are required")
		}
		if c.Storage.S3.Endpoint == "" && c.Storage.S3.Region == "" && c.Storage.S3.PublicURL == "" {
			return errors.New("s3 region, endpoint or public url is required")
		}
		if u, err := url.Parse(c.Storage.S3.ObjectURLPrefix()); err != nil || !u.IsAbs() || u.Host == "" {
			return fmt.Errorf("s3 public url %q must be absolute", c.Storage.S3.ObjectURLPrefix())
		}
	case StorageBackendB2:
		if c.Storage.B2.AccountID == "" || c.Storage.B2.ApplicationKey == "" {
			return errors.New("b2 credentials are required")
		}
		if c.Storage.B2.Bucket == "" {
			return errors.New("b2 bucket is required")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	if c.Reminder.Enabled && c.Reminder.Interval <= 0 {
		return errors.New("reminder interval must be positive")
	}

	return nil
}

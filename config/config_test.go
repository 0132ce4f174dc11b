package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		HTTP:  HTTPConfig{Address: ":8080", MaxUploadSize: 1024},
		Mongo: MongoConfig{URI: "mongodb://localhost:27017", Database: "lms"},
		Storage: StorageConfig{
			Backend: StorageBackendS3,
			S3: S3Config{
				AccessKeyID:     "key",
				SecretAccessKey: "secret",
				Bucket:          "submissions",
				Region:          "us-east-1",
			},
		},
		Reminder: ReminderConfig{Enabled: true, Interval: time.Hour},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing mongo uri", func(c *Config) { c.Mongo.URI = "" }, "mongo uri is required"},
		{"missing database", func(c *Config) { c.Mongo.Database = "" }, "mongo database is required"},
		{"missing http address", func(c *Config) { c.HTTP.Address = "" }, "http address is required"},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "ftp" }, "unknown storage backend"},
		{"s3 without keys", func(c *Config) { c.Storage.S3.SecretAccessKey = "" }, "s3 credentials are required"},
		{"b2 without bucket", func(c *Config) {
			c.Storage.Backend = StorageBackendB2
			c.Storage.B2 = B2Config{AccountID: "acc", ApplicationKey: "key"}
		}, "b2 bucket is required"},
		{"s3 relative public url", func(c *Config) { c.Storage.S3.PublicURL = "/files" }, "must be absolute"},
		{"s3 endpoint without scheme", func(c *Config) { c.Storage.S3.Endpoint = "minio:9000" }, "must be absolute"},
		{"s3 nothing to build urls from", func(c *Config) { c.Storage.S3.Region = "" }, "s3 region, endpoint or public url is required"},
		{"reminder interval", func(c *Config) { c.Reminder.Interval = 0 }, "reminder interval must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestS3Config_ObjectURLPrefix(t *testing.T) {
	tests := []struct {
		name string
		cfg  S3Config
		want string
	}{
		{"explicit public url", S3Config{PublicURL: "https://cdn.example.com/files/", Endpoint: "http://minio:9000", Bucket: "b"}, "https://cdn.example.com/files"},
		{"derived from endpoint", S3Config{Endpoint: "http://minio:9000/", Bucket: "submissions"}, "http://minio:9000/submissions"},
		{"derived from region", S3Config{Region: "eu-west-1", Bucket: "submissions"}, "https://s3.eu-west-1.amazonaws.com/submissions"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.ObjectURLPrefix())
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("from yaml with env override", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.yaml")
		content := `
mongo:
  uri: "mongodb://db:27017"
  database: "school"
storage:
  backend: "s3"
  s3:
    access_key_id: "key"
    secret_access_key: "secret"
    bucket: "files"
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		t.Setenv("CONFIG_PATH", path)
		t.Setenv("HTTP_ADDRESS", ":9999")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "mongodb://db:27017", cfg.Mongo.URI)
		assert.Equal(t, "school", cfg.Mongo.Database)
		assert.Equal(t, ":9999", cfg.HTTP.Address)
		assert.Equal(t, "Assignment_Submission", cfg.Storage.Folder)
		assert.Equal(t, 24*time.Hour, cfg.Reminder.Horizon)
		assert.Equal(t, "https://s3.us-east-1.amazonaws.com/files", cfg.Storage.S3.ObjectURLPrefix())
	})

	t.Run("env only with endpoint yields absolute object urls", func(t *testing.T) {
		t.Setenv("CONFIG_PATH", "")
		wd, err := os.Getwd()
		require.NoError(t, err)
		require.NoError(t, os.Chdir(t.TempDir()))
		t.Cleanup(func() { _ = os.Chdir(wd) })
		t.Setenv("S3_ACCESS_KEY_ID", "key")
		t.Setenv("S3_SECRET_ACCESS_KEY", "secret")
		t.Setenv("S3_ENDPOINT", "http://minio:9000")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Empty(t, cfg.Storage.S3.PublicURL)
		assert.Equal(t, "http://minio:9000/submissions", cfg.Storage.S3.ObjectURLPrefix())
	})

	t.Run("missing file", func(t *testing.T) {
		t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "absent.yaml"))

		_, err := Load()
		assert.Error(t, err)
	})
}

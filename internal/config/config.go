package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/semmidev/strata/internal/domain"
)

const envPrefix = "STRATA"

type Config struct {
	App    AppConfig    `mapstructure:"app"`
	Backup BackupConfig `mapstructure:"backup"`
	Upload UploadConfig `mapstructure:"upload"`
	Notify NotifyConfig `mapstructure:"notify"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`

	// Rotation of LogFile.
	LogMaxSizeMB  int `mapstructure:"log_max_size_mb"`
	LogMaxBackups int `mapstructure:"log_max_backups"`
	LogMaxAgeDays int `mapstructure:"log_max_age_days"`
}

type BackupConfig struct {
	SourcePath        string `mapstructure:"source_path"`
	StagingDir        string `mapstructure:"staging_dir"`
	DestinationFolder string `mapstructure:"destination_folder"`
	ChunkSize         int    `mapstructure:"chunk_size"`
	RetentionDays     int    `mapstructure:"retention_days"`
	Schedule          string `mapstructure:"schedule"`
}

type UploadConfig struct {
	Target string `mapstructure:"target"`
	Bucket string `mapstructure:"bucket"`

	// Google Cloud Storage / Google Drive
	CredentialsFile string `mapstructure:"credentials_file"`

	// AWS S3 / MinIO
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`

	Concurrency   int           `mapstructure:"concurrency"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxRetries    int           `mapstructure:"max_retries"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

// Load reads a YAML file. Every key can be overridden from the environment,
// e.g. STRATA_UPLOAD_BUCKET for upload.bucket.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "strata")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_file", "")
	v.SetDefault("app.log_max_size_mb", 100)
	v.SetDefault("app.log_max_backups", 3)
	v.SetDefault("app.log_max_age_days", 28)

	v.SetDefault("backup.source_path", "")
	v.SetDefault("backup.staging_dir", "tmp")
	v.SetDefault("backup.destination_folder", "")
	v.SetDefault("backup.chunk_size", 50)
	v.SetDefault("backup.retention_days", 7)
	v.SetDefault("backup.schedule", "0 0 2 * * *")

	v.SetDefault("upload.target", "gcs")
	v.SetDefault("upload.bucket", "")
	v.SetDefault("upload.credentials_file", "")
	v.SetDefault("upload.region", "")
	v.SetDefault("upload.endpoint", "")
	v.SetDefault("upload.access_key", "")
	v.SetDefault("upload.secret_key", "")
	v.SetDefault("upload.use_ssl", true)
	v.SetDefault("upload.concurrency", 4)
	v.SetDefault("upload.timeout", 5*time.Minute)
	v.SetDefault("upload.max_retries", 0)
	v.SetDefault("upload.retry_interval", 500*time.Millisecond)

	v.SetDefault("notify.telegram.enabled", false)
	v.SetDefault("notify.telegram.bot_token", "")
	v.SetDefault("notify.telegram.chat_id", "")
}

func (c *Config) Validate() error {
	a := c.App
	if a.LogMaxSizeMB < 0 || a.LogMaxBackups < 0 || a.LogMaxAgeDays < 0 {
		return &domain.ConfigError{Field: "app.log_max_*", Err: errors.New("must not be negative")}
	}

	b := c.Backup
	if b.SourcePath == "" {
		return required("backup.source_path")
	}
	if b.StagingDir == "" {
		return required("backup.staging_dir")
	}
	if b.ChunkSize < 1 {
		return &domain.ConfigError{Field: "backup.chunk_size", Err: fmt.Errorf("must be at least 1, got %d", b.ChunkSize)}
	}
	if b.RetentionDays < 0 {
		return &domain.ConfigError{Field: "backup.retention_days", Err: fmt.Errorf("must not be negative, got %d", b.RetentionDays)}
	}

	u := c.Upload
	if u.Bucket == "" {
		return required("upload.bucket")
	}
	switch u.Target {
	case "gcs", "gdrive":
		if u.CredentialsFile == "" {
			return required("upload.credentials_file")
		}
	case "s3":
		if u.Region == "" {
			return required("upload.region")
		}
	case "minio":
		if u.Endpoint == "" {
			return required("upload.endpoint")
		}
	case "local":
	default:
		return &domain.ConfigError{Field: "upload.target", Err: fmt.Errorf("unknown target %q", u.Target)}
	}
	if u.Concurrency < 1 {
		return &domain.ConfigError{Field: "upload.concurrency", Err: fmt.Errorf("must be at least 1, got %d", u.Concurrency)}
	}
	if u.MaxRetries < 0 {
		return &domain.ConfigError{Field: "upload.max_retries", Err: fmt.Errorf("must not be negative, got %d", u.MaxRetries)}
	}

	t := c.Notify.Telegram
	if t.Enabled && (t.BotToken == "" || t.ChatID == "") {
		return required("notify.telegram.bot_token and chat_id")
	}

	return nil
}

func required(field string) error {
	return &domain.ConfigError{Field: field, Err: errors.New("is required")}
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	JWT          JWTConfig          `yaml:"jwt"`
	Storage      StorageConfig      `yaml:"storage"`
	Log          LogConfig          `yaml:"log"`
	Maintenance  MaintenanceConfig  `yaml:"maintenance"`
	Scheduler    SchedulerConfig    `yaml:"scheduler"`
	Clients      ClientsConfig      `yaml:"clients"`
	Notification NotificationConfig `yaml:"notification"`
}

// ServerConfig holds the HTTP API and gRPC health listeners
type ServerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	GRPCPort int    `yaml:"grpc_port"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

type JWTConfig struct {
	Secret string `yaml:"secret"`
	Issuer string `yaml:"issuer"`
}

// StorageConfig selects the repository backend ("postgres" or "memory") and
// where uploaded evidence is kept.
type StorageConfig struct {
	Type         string   `yaml:"type"`
	UploadDir    string   `yaml:"upload_dir"`
	MaxFileSize  int64    `yaml:"max_file_size"` // MB
	AllowedTypes []string `yaml:"allowed_types"`
}

// MaxFileBytes is the upload limit in bytes
func (s StorageConfig) MaxFileBytes() int64 {
	return s.MaxFileSize << 20
}

type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// MaintenanceConfig tunes the reconciler sweeps
type MaintenanceConfig struct {
	PendingPaymentGrace time.Duration `yaml:"pending_payment_grace"`
	BatchSize           int           `yaml:"batch_size"`
	// A sweep item that fails is retried after RetryBackoff, doubling per
	// consecutive failure up to RetryBackoffMax.
	RetryBackoff    time.Duration `yaml:"retry_backoff"`
	RetryBackoffMax time.Duration `yaml:"retry_backoff_max"`
}

// SchedulerConfig holds the cron specs of the sweeps. InProcessDisabled keeps
// the API server from running them when a separate cronjob process does.
type SchedulerConfig struct {
	InProcessDisabled       bool   `yaml:"in_process_disabled"`
	CancelExpiredOrders     string `yaml:"cancel_expired_orders"`
	EscalateOverdueDisputes string `yaml:"escalate_overdue_disputes"`
	SendDisputeReminders    string `yaml:"send_dispute_reminders"`
}

type ServiceEndpoint struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

type ClientsConfig struct {
	Inventory   ServiceEndpoint `yaml:"inventory"`
	UserProfile ServiceEndpoint `yaml:"user_profile"`
	Advisory    ServiceEndpoint `yaml:"advisory"`
}

type NotificationConfig struct {
	Email EmailConfig `yaml:"email"`
	Push  PushConfig  `yaml:"push"`
}

// EmailConfig selects the email provider: "sendgrid", "smtp" or empty to disable
type EmailConfig struct {
	Provider       string     `yaml:"provider"`
	From           string     `yaml:"from"`
	FromName       string     `yaml:"from_name"`
	SendGridAPIKey string     `yaml:"sendgrid_api_key"`
	SMTP           SMTPConfig `yaml:"smtp"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// PushConfig enables Firebase Cloud Messaging when CredentialsFile is set
type PushConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML, applies environment overrides and validates the result
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) overrideWithEnv() {
	setString := func(key string, dst *string) {
		if val := os.Getenv(key); val != "" {
			*dst = val
		}
	}
	setInt := func(key string, dst *int) {
		if val := os.Getenv(key); val != "" {
			if n, err := strconv.Atoi(val); err == nil {
				*dst = n
			}
		}
	}

	setString("DB_HOST", &c.Database.Host)
	setInt("DB_PORT", &c.Database.Port)
	setString("DB_USER", &c.Database.User)
	setString("DB_PASSWORD", &c.Database.Password)
	setString("DB_NAME", &c.Database.Database)
	setString("DB_SSL_MODE", &c.Database.SSLMode)

	setString("JWT_SECRET", &c.JWT.Secret)

	setString("SERVER_HOST", &c.Server.Host)
	setInt("SERVER_PORT", &c.Server.Port)
	setInt("GRPC_PORT", &c.Server.GRPCPort)

	setString("STORAGE_TYPE", &c.Storage.Type)
	setString("UPLOAD_DIR", &c.Storage.UploadDir)

	setString("LOG_LEVEL", &c.Log.Level)
	setString("LOG_FORMAT", &c.Log.Format)

	setString("INVENTORY_BASE_URL", &c.Clients.Inventory.BaseURL)
	setString("USER_SERVICE_BASE_URL", &c.Clients.UserProfile.BaseURL)
	setString("ADVISORY_BASE_URL", &c.Clients.Advisory.BaseURL)
	setString("INTERNAL_API_KEY", &c.Clients.Inventory.APIKey)
	setString("INTERNAL_API_KEY", &c.Clients.UserProfile.APIKey)

	setString("SENDGRID_API_KEY", &c.Notification.Email.SendGridAPIKey)
	setString("SMTP_HOST", &c.Notification.Email.SMTP.Host)
	setInt("SMTP_PORT", &c.Notification.Email.SMTP.Port)
	setString("SMTP_USER", &c.Notification.Email.SMTP.User)
	setString("SMTP_PASSWORD", &c.Notification.Email.SMTP.Password)
	setString("FIREBASE_CREDENTIALS_FILE", &c.Notification.Push.CredentialsFile)
}

// Validate checks the configuration and fills defaults
func (c *Config) Validate() error {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.GRPCPort < 0 || c.Server.GRPCPort > 65535 {
		return fmt.Errorf("invalid grpc port: %d", c.Server.GRPCPort)
	}

	switch c.Storage.Type {
	case "":
		c.Storage.Type = "postgres"
		fallthrough
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if c.Database.Port == 0 {
			c.Database.Port = 5432
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "disable"
		}
	case "memory":
	default:
		return fmt.Errorf("unknown storage type %q", c.Storage.Type)
	}

	if c.Storage.UploadDir == "" {
		c.Storage.UploadDir = "./uploads"
	}
	if c.Storage.MaxFileSize <= 0 {
		c.Storage.MaxFileSize = 10
	}
	if len(c.Storage.AllowedTypes) == 0 {
		c.Storage.AllowedTypes = []string{"image/jpeg", "image/png", "image/webp", "application/pdf", "video/mp4"}
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}

	switch c.Notification.Email.Provider {
	case "":
	case "sendgrid":
		if c.Notification.Email.SendGridAPIKey == "" {
			return fmt.Errorf("sendgrid api key is required for the sendgrid email provider")
		}
	case "smtp":
		if c.Notification.Email.SMTP.Host == "" {
			return fmt.Errorf("SMTP host is required for the smtp email provider")
		}
		if c.Notification.Email.SMTP.Port <= 0 || c.Notification.Email.SMTP.Port > 65535 {
			return fmt.Errorf("invalid SMTP port: %d", c.Notification.Email.SMTP.Port)
		}
	default:
		return fmt.Errorf("unknown email provider %q", c.Notification.Email.Provider)
	}

	if c.Maintenance.PendingPaymentGrace <= 0 {
		c.Maintenance.PendingPaymentGrace = 30 * time.Minute
	}
	if c.Maintenance.BatchSize <= 0 {
		c.Maintenance.BatchSize = 100
	}
	if c.Maintenance.RetryBackoff <= 0 {
		c.Maintenance.RetryBackoff = time.Minute
	}
	if c.Maintenance.RetryBackoffMax <= 0 {
		c.Maintenance.RetryBackoffMax = time.Hour
	}
	if c.Maintenance.RetryBackoffMax < c.Maintenance.RetryBackoff {
		c.Maintenance.RetryBackoffMax = c.Maintenance.RetryBackoff
	}

	if c.Scheduler.CancelExpiredOrders == "" {
		c.Scheduler.CancelExpiredOrders = "@every 60s"
	}
	if c.Scheduler.EscalateOverdueDisputes == "" {
		c.Scheduler.EscalateOverdueDisputes = "@every 5m"
	}
	if c.Scheduler.SendDisputeReminders == "" {
		c.Scheduler.SendDisputeReminders = "@every 5m"
	}

	for _, ep := range []*ServiceEndpoint{&c.Clients.Inventory, &c.Clients.UserProfile, &c.Clients.Advisory} {
		if ep.Timeout <= 0 {
			ep.Timeout = 5 * time.Second
		}
	}

	return nil
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the HTTP API address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetGRPCAddress returns the health service address, or "" when disabled
func (c *Config) GetGRPCAddress() string {
	if c.Server.GRPCPort == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.GRPCPort)
}

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	App      AppConfig      `json:"app"`
	Email    EmailConfig    `json:"email"`
	Storage  StorageConfig  `json:"storage"`
	Security SecurityConfig `json:"security"`
	Logging  LoggingConfig  `json:"logging"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	User           string        `json:"user"`
	Password       string        `json:"password"`
	DBName         string        `json:"db_name"`
	SSLMode        string        `json:"ssl_mode"`
	MaxConnections int           `json:"max_connections"`
	MaxIdleConns   int           `json:"max_idle_conns"`
	MaxLifetime    time.Duration `json:"max_lifetime"`
}

// AppConfig holds application-level settings. BaseURL is used to build
// absolute signing and download links in outgoing email.
type AppConfig struct {
	BaseURL string `json:"base_url"`
}

// EmailConfig selects and configures the outgoing email transport.
// Mode is "production" (SES) or "development" (SMTP).
type EmailConfig struct {
	Mode             string     `json:"mode"`
	From             string     `json:"from"`
	SES              SESConfig  `json:"ses"`
	SMTP             SMTPConfig `json:"smtp"`
	DispatchSchedule string     `json:"dispatch_schedule"`
	MaxAttempts      int        `json:"max_attempts"`
}

type SESConfig struct {
	Region string `json:"region"`
}

type SMTPConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// StorageConfig represents object storage configuration
type StorageConfig struct {
	Bucket string `json:"bucket"`
	Region string `json:"region"`
}

// SecurityConfig
type SecurityConfig struct {
	JWTSecret string        `json:"jwt_secret"`
	TokenTTL  time.Duration `json:"token_ttl"`
}

// LoggingConfig
type LoggingConfig struct {
	Level string `json:"level"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	// Default config
	config := &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Host:           "localhost",
			Port:           5432,
			User:           os.Getenv("USER"),
			DBName:         "inkless",
			SSLMode:        "disable",
			MaxConnections: 25,
			MaxIdleConns:   5,
		},
		App: AppConfig{
			BaseURL: "http://localhost:3000",
		},
		Email: EmailConfig{
			Mode:             "development",
			From:             "Inkless Flow <no-reply@inklessflow.com>",
			SMTP:             SMTPConfig{Host: "smtp.ethereal.email", Port: 587},
			DispatchSchedule: "@every 30s",
			MaxAttempts:      3,
		},
		Storage: StorageConfig{
			Bucket: "inkless-documents",
			Region: "us-east-1",
		},
		Security: SecurityConfig{
			TokenTTL: 24 * time.Hour,
		},
	}

	// Load from file if exists
	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Override with environment variables
	overrideWithEnv(config)

	return config, nil
}

func overrideWithEnv(config *Config) {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if dbHost := os.Getenv("DATABASE_HOST"); dbHost != "" {
		config.Database.Host = dbHost
	}
	if dbPort := os.Getenv("DATABASE_PORT"); dbPort != "" {
		if p, err := strconv.Atoi(dbPort); err == nil {
			config.Database.Port = p
		}
	}
	if dbUser := os.Getenv("DATABASE_USER"); dbUser != "" {
		config.Database.User = dbUser
	}
	if dbPass := os.Getenv("DATABASE_PASSWORD"); dbPass != "" {
		config.Database.Password = dbPass
	}
	if dbName := os.Getenv("DATABASE_DBNAME"); dbName != "" {
		config.Database.DBName = dbName
	}
	if baseURL := os.Getenv("APP_BASE_URL"); baseURL != "" {
		config.App.BaseURL = baseURL
	}
	if mode := os.Getenv("EMAIL_MODE"); mode != "" {
		config.Email.Mode = mode
	}
	if from := os.Getenv("EMAIL_FROM"); from != "" {
		config.Email.From = from
	}
	if host := os.Getenv("EMAIL_SERVER_HOST"); host != "" {
		config.Email.SMTP.Host = host
	}
	if port := os.Getenv("EMAIL_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Email.SMTP.Port = p
		}
	}
	if user := os.Getenv("EMAIL_SERVER_USER"); user != "" {
		config.Email.SMTP.Username = user
	}
	if pass := os.Getenv("EMAIL_SERVER_PASSWORD"); pass != "" {
		config.Email.SMTP.Password = pass
	}
	if region := os.Getenv("SES_REGION"); region != "" {
		config.Email.SES.Region = region
	}
	if bucket := os.Getenv("STORAGE_BUCKET"); bucket != "" {
		config.Storage.Bucket = bucket
	}
	if region := os.Getenv("STORAGE_REGION"); region != "" {
		config.Storage.Region = region
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.Security.JWTSecret = secret
	}
}

// GetDatabaseURL returns the database connection string
func (c *DatabaseConfig) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/camposesilvatopografia-beep/abastech-sub000/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Google     GoogleConfig     `yaml:"google"`
	Sync       SyncConfig       `yaml:"sync"`
	Backup     BackupConfig     `yaml:"backup"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Exports    ExportConfig     `yaml:"exports"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type GoogleConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	SpreadsheetID   string `yaml:"spreadsheet_id"`
	VehiclesSheet   string `yaml:"vehicles_sheet"`
	ReadingsSheet   string `yaml:"readings_sheet"`
	FuelSheet       string `yaml:"fuel_sheet"`
	OrdersSheet     string `yaml:"orders_sheet"`
}

type SyncConfig struct {
	// MinSourceRows guards orphan deletion: when the source snapshot has
	// fewer rows than this, mirror rows are never deleted.
	MinSourceRows int     `yaml:"min_source_rows"`
	PollInterval  int     `yaml:"poll_interval_seconds"`
	MaxRetries    int     `yaml:"max_retries"`
	InitialDelay  int     `yaml:"initial_delay_seconds"`
	MaxDelay      int     `yaml:"max_delay_seconds"`
	BackoffFactor float64 `yaml:"backoff_factor"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool   `yaml:"prometheus_enabled"`
	PrometheusPort    int    `yaml:"prometheus_port"`
	LogLevel          string `yaml:"log_level"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	Port      int                `yaml:"port"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

func Load(configPath string) (*Config, error) {
	// Carrega o .env se existir; ausência não é erro.
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Expansão de variáveis de ambiente antes do parse do YAML.
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if c.Google.CredentialsFile != "" && c.Google.SpreadsheetID == "" {
		return errors.New("google.spreadsheet_id is required when credentials are set")
	}

	if c.Sync.MinSourceRows < 0 {
		return errors.New("sync.min_source_rows must not be negative")
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if !c.API.Auth.Enabled && c.API.Enabled {
		c.API.Auth.Enabled = true
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}

	if c.Google.VehiclesSheet == "" {
		c.Google.VehiclesSheet = "Veiculos"
	}
	if c.Google.ReadingsSheet == "" {
		c.Google.ReadingsSheet = "Horimetros"
	}
	if c.Google.FuelSheet == "" {
		c.Google.FuelSheet = "Abastecimento"
	}
	if c.Google.OrdersSheet == "" {
		c.Google.OrdersSheet = "Manutencao"
	}

	if c.Sync.MinSourceRows == 0 {
		c.Sync.MinSourceRows = models.DefaultMinSourceRows
	}
	if c.Sync.PollInterval == 0 {
		c.Sync.PollInterval = 2
	}
	if c.Sync.MaxRetries == 0 {
		c.Sync.MaxRetries = 5
	}
	if c.Sync.InitialDelay == 0 {
		c.Sync.InitialDelay = 2
	}
	if c.Sync.MaxDelay == 0 {
		c.Sync.MaxDelay = 60
	}
	if c.Sync.BackoffFactor == 0 {
		c.Sync.BackoffFactor = 2
	}
}

// RetryDelays converts the sync retry settings into durations.
func (c *SyncConfig) RetryDelays() (initial, max time.Duration) {
	return time.Duration(c.InitialDelay) * time.Second, time.Duration(c.MaxDelay) * time.Second
}

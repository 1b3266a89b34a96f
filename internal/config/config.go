package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/vvka-141/pgload/pkg/pgload"
)

// ErrConfigNotFound is returned when the config file does not exist.
// Callers can check for this with errors.Is(err, config.ErrConfigNotFound).
var ErrConfigNotFound = errors.New("config file not found")

// SourceConfig describes the flat file being loaded.
type SourceConfig struct {
	Path      string `yaml:"path,omitempty"`
	Delimiter string `yaml:"delimiter,omitempty"`
	HasHeader *bool  `yaml:"has_header,omitempty"`
	Encoding  string `yaml:"encoding,omitempty"`
}

// DestinationConfig describes the table rows are written to.
type DestinationConfig struct {
	Driver      string   `yaml:"driver,omitempty"`
	Table       string   `yaml:"table,omitempty"`
	Columns     []string `yaml:"columns,omitempty"`
	CreateTable *bool    `yaml:"create_table,omitempty"`
	DSN         string   `yaml:"dsn,omitempty"`
}

// ConnectionConfig holds granular PostgreSQL connection settings.
// They are used only when no DSN is given.
type ConnectionConfig struct {
	Host           string `yaml:"host,omitempty"`
	Port           int    `yaml:"port,omitempty"`
	Username       string `yaml:"username,omitempty"`
	Database       string `yaml:"database,omitempty"`
	SSLMode        string `yaml:"sslmode,omitempty"`
	SSLCert        string `yaml:"sslcert,omitempty"`
	SSLKey         string `yaml:"sslkey,omitempty"`
	SSLRootCert    string `yaml:"sslrootcert,omitempty"`
	AuthMethod     string `yaml:"auth_method,omitempty"`
	AzureTenantID  string `yaml:"azure_tenant_id,omitempty"`
	AzureClientID  string `yaml:"azure_client_id,omitempty"`
	AWSRegion      string `yaml:"aws_region,omitempty"`
	GoogleInstance string `yaml:"google_instance,omitempty"`
}

// RetryConfig bounds the per-batch retry loop. Delays are Go duration strings.
type RetryConfig struct {
	MaxAttempts  *int   `yaml:"max_attempts,omitempty"`
	InitialDelay string `yaml:"initial_delay,omitempty"`
	MaxDelay     string `yaml:"max_delay,omitempty"`
}

// LoadSection controls batching and failure handling.
type LoadSection struct {
	BatchSize     int         `yaml:"batch_size,omitempty"`
	Mode          string      `yaml:"mode,omitempty"`
	OnFailure     string      `yaml:"on_failure,omitempty"`
	FailureRounds int         `yaml:"failure_rounds,omitempty"`
	Resume        string      `yaml:"resume,omitempty"`
	Timeout       string      `yaml:"timeout,omitempty"`
	Retry         RetryConfig `yaml:"retry,omitempty"`
}

// LogConfig selects where log lines go.
type LogConfig struct {
	File    string `yaml:"file,omitempty"`
	Verbose bool   `yaml:"verbose,omitempty"`
}

// ProjectConfig is the content of pgload.yaml.
type ProjectConfig struct {
	Source      SourceConfig      `yaml:"source,omitempty"`
	Destination DestinationConfig `yaml:"destination,omitempty"`
	Connection  ConnectionConfig  `yaml:"connection,omitempty"`
	Load        LoadSection       `yaml:"load,omitempty"`
	Log         LogConfig         `yaml:"log,omitempty"`
}

const ConfigFileName = pgload.ConfigFileName

// Load reads pgload.yaml. path may name the file itself or the directory
// holding it.
func Load(path string) (*ProjectConfig, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, ConfigFileName)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w: %w", path, pgload.ErrInvalidConfig, err)
	}
	return &cfg, nil
}

// LoadOptional behaves like Load but returns nil, nil when the file is absent.
func LoadOptional(path string) (*ProjectConfig, error) {
	cfg, err := Load(path)
	if errors.Is(err, ErrConfigNotFound) {
		return nil, nil
	}
	return cfg, err
}

// Save writes cfg as YAML, replacing any existing file.
func Save(path string, cfg *ProjectConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"dwd-connect/internal/brightsky"
	"dwd-connect/internal/loader"
	"dwd-connect/internal/storage"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all the configuration for the application.
type Config struct {
	API          APIConfig      `yaml:"api"`
	Grid         brightsky.Grid `yaml:"grid"`
	Storage      StorageConfig  `yaml:"storage"`
	Database     DatabaseConfig `yaml:"database"`
	Observations Target         `yaml:"observations"`
	Forecasts    Target         `yaml:"forecasts"`
	LogFile      string         `yaml:"log_file"`
}

// APIConfig configures the Bright Sky client.
type APIConfig struct {
	BaseURL   string        `yaml:"base_url"`
	RateLimit float64       `yaml:"rate_limit"` // requests per second
	Timeout   time.Duration `yaml:"timeout"`
}

// StorageConfig selects the backend rows are loaded into.
type StorageConfig struct {
	Type    string   `yaml:"type"`              // "clickhouse", "duckdb", "sqlite"
	Path    string   `yaml:"path,omitempty"`    // database file for duckdb and sqlite
	Schemas []string `yaml:"schemas,omitempty"` // sqlite schemas attached next to path
}

// DatabaseConfig holds the ClickHouse connection. The DB_* environment
// variables override whatever the file says.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password,omitempty"`
	Secure   bool   `yaml:"secure"`
}

// Target names the table a dataset is loaded into and how.
type Target struct {
	Schema string `yaml:"schema"`
	Table  string `yaml:"table"`
	Mode   string `yaml:"mode"`
}

// Environment variables read by ApplyEnv.
const (
	EnvDBHost     = "DB_HOST"
	EnvDBPort     = "DB_PORT"
	EnvDBName     = "DB_NAME"
	EnvDBUser     = "DB_USER"
	EnvDBPassword = "DB_PASSWORD"
)

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:   brightsky.DefaultBaseURL,
			RateLimit: brightsky.DefaultRequestsPerSecond,
			Timeout:   brightsky.DefaultTimeout,
		},
		Grid: brightsky.BerlinGrid,
		Storage: StorageConfig{
			Type: string(storage.StorageTypeClickHouse),
		},
		Database: DatabaseConfig{
			Port:   9440,
			Secure: true,
		},
		Observations: Target{Schema: "fairq_raw", Table: "dwd_observations", Mode: string(loader.ModeReplace)},
		Forecasts:    Target{Schema: "fairq_raw", Table: "dwd_forecasts", Mode: string(loader.ModeReplace)},
		LogFile:      "dwd_connect.log",
	}
}

// Load reads the configuration from a YAML file on top of the defaults, then
// applies the environment. A missing file is not an error. A .env file in
// the working directory is loaded into the environment first.
func Load(path string) (*Config, error) {
	conf := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, conf); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	// .env is optional
	_ = godotenv.Load()

	if err := conf.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return conf, nil
}

// Save writes the configuration to a YAML file.
func Save(path string, conf *Config) error {
	data, err := yaml.Marshal(conf)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ApplyEnv overrides the database connection with the DB_* variables that are set.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv(EnvDBHost); v != "" {
		c.Database.Host = v
	}
	if v := getenv(EnvDBPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s must be a number, got %q", EnvDBPort, v)
		}
		c.Database.Port = port
	}
	if v := getenv(EnvDBName); v != "" {
		c.Database.Name = v
	}
	if v := getenv(EnvDBUser); v != "" {
		c.Database.User = v
	}
	if v := getenv(EnvDBPassword); v != "" {
		c.Database.Password = v
	}
	return nil
}

// StorageOptions converts the storage and database sections for storage.NewConnector.
func (c *Config) StorageOptions() storage.Options {
	return storage.Options{
		Path:     c.Storage.Path,
		Schemas:  c.Storage.Schemas,
		Host:     c.Database.Host,
		Port:     c.Database.Port,
		Database: c.Database.Name,
		User:     c.Database.User,
		Password: c.Database.Password,
		Secure:   c.Database.Secure,
	}
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("%s (%s): %s", e.Field, e.Value, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationResult holds all validation errors
type ValidationResult struct {
	Errors []ValidationError
}

func (r *ValidationResult) AddError(field, value, message string) {
	r.Errors = append(r.Errors, ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	})
}

func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

func (r *ValidationResult) Error() string {
	if !r.HasErrors() {
		return ""
	}

	var messages []string
	for _, err := range r.Errors {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// ValidateBasic checks required fields and formats without touching the filesystem.
func (c *Config) ValidateBasic() *ValidationResult {
	result := &ValidationResult{}

	// API
	if u, err := url.Parse(c.API.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		result.AddError("api.base_url", c.API.BaseURL, "must be an absolute http(s) URL")
	}
	if c.API.RateLimit <= 0 {
		result.AddError("api.rate_limit", fmt.Sprint(c.API.RateLimit), "must be positive")
	}
	if c.API.Timeout < 0 {
		result.AddError("api.timeout", c.API.Timeout.String(), "must not be negative")
	}

	if err := c.Grid.Validate(); err != nil {
		result.AddError("grid", "", err.Error())
	}

	// Storage type
	storageType := storage.StorageType(c.Storage.Type)
	valid := false
	var names []string
	for _, st := range storage.StorageTypes {
		names = append(names, string(st))
		if st == storageType {
			valid = true
		}
	}
	if !valid {
		result.AddError("storage.type", c.Storage.Type, fmt.Sprintf("must be one of: %s", strings.Join(names, ", ")))
	}

	switch storageType {
	case storage.StorageTypeClickHouse:
		if c.Database.Host == "" {
			result.AddError("database.host", "", fmt.Sprintf("is required (set %s)", EnvDBHost))
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			result.AddError("database.port", strconv.Itoa(c.Database.Port), "must be between 1 and 65535")
		}
	case storage.StorageTypeDuckDB, storage.StorageTypeSQLite:
		if c.Storage.Path == "" {
			result.AddError("storage.path", "", "is required for embedded databases")
		}
	}
	for _, schema := range c.Storage.Schemas {
		if !storage.ValidIdentifier(schema) {
			result.AddError("storage.schemas", schema, "must be a plain identifier")
		}
	}

	c.validateTarget(result, "observations", c.Observations)
	c.validateTarget(result, "forecasts", c.Forecasts)

	return result
}

func (c *Config) validateTarget(result *ValidationResult, name string, t Target) {
	if !storage.ValidIdentifier(t.Schema) {
		result.AddError(name+".schema", t.Schema, "must be a plain identifier")
	}
	if !storage.ValidIdentifier(t.Table) {
		result.AddError(name+".table", t.Table, "must be a plain identifier")
	}
	if _, err := loader.ParseMode(t.Mode); err != nil {
		result.AddError(name+".mode", t.Mode, "must be one of: insert, replace, truncate")
	}
}

// ValidateStorage performs storage-specific validation
func (c *Config) ValidateStorage() *ValidationResult {
	result := &ValidationResult{}

	switch storage.StorageType(c.Storage.Type) {
	case storage.StorageTypeDuckDB, storage.StorageTypeSQLite:
		if c.Storage.Path == "" {
			break
		}
		// For database files, check if parent directory exists or can be created
		dir := filepath.Dir(c.Storage.Path)
		if dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				result.AddError("storage.path", c.Storage.Path, fmt.Sprintf("cannot create directory: %v", err))
			}
		}
		// Check if we can write to the file
		if _, err := os.Stat(c.Storage.Path); err == nil {
			if f, err := os.OpenFile(c.Storage.Path, os.O_WRONLY, 0); err != nil {
				result.AddError("storage.path", c.Storage.Path, "file exists but is not writable")
			} else {
				f.Close()
			}
		}
	}

	// Validate log file path
	if c.LogFile != "" {
		logDir := filepath.Dir(c.LogFile)
		if logDir != "." {
			if err := os.MkdirAll(logDir, 0755); err != nil {
				result.AddError("log_file", c.LogFile, fmt.Sprintf("cannot create log directory: %v", err))
			}
		}
	}

	return result
}

// ValidateComplete performs comprehensive validation including basic and storage validation
func (c *Config) ValidateComplete() *ValidationResult {
	result := &ValidationResult{}

	basicResult := c.ValidateBasic()
	result.Errors = append(result.Errors, basicResult.Errors...)

	// Add storage validation if basic validation passed
	if !basicResult.HasErrors() {
		storageResult := c.ValidateStorage()
		result.Errors = append(result.Errors, storageResult.Errors...)
	}

	return result
}

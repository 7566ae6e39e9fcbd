package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App      App      `mapstructure:"app"`
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
	AI       AI       `mapstructure:"ai"`
	Glif     Glif     `mapstructure:"glif"`
	Email    Email    `mapstructure:"email"`
	Blob     Blob     `mapstructure:"blob"`
	Scraper  Scraper  `mapstructure:"scraper"`
	Pipeline Pipeline `mapstructure:"pipeline"`
}

// App holds general application configuration
type App struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

// Server holds HTTP server configuration
type Server struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	AdminToken   string        `mapstructure:"admin_token"`
	CORS         CORS          `mapstructure:"cors"`
}

// CORS holds CORS middleware configuration
type CORS struct {
	Enabled        bool     `mapstructure:"enabled"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Database holds PostgreSQL configuration
type Database struct {
	ConnectionString string `mapstructure:"connection_string"`
}

// AI holds AI/LLM configuration
type AI struct {
	Gemini Gemini `mapstructure:"gemini"`
}

// Gemini holds Google Gemini configuration
type Gemini struct {
	APIKey     string `mapstructure:"api_key"`
	TextModel  string `mapstructure:"text_model"`
	ImageModel string `mapstructure:"image_model"`
}

// Glif holds configuration for the Glif fallback image provider
type Glif struct {
	APIToken string `mapstructure:"api_token"`
	Endpoint string `mapstructure:"endpoint"`
}

// Email holds outbound email (Resend) configuration
type Email struct {
	ResendAPIKey string `mapstructure:"resend_api_key"`
	FromAddress  string `mapstructure:"from_address"`
	FromName     string `mapstructure:"from_name"`
}

// Blob holds blob store (GCS) configuration
type Blob struct {
	Bucket          string `mapstructure:"bucket"`
	PublicBaseURL   string `mapstructure:"public_base_url"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

// Scraper holds website insight-extraction tunables
type Scraper struct {
	PageTimeout    time.Duration `mapstructure:"page_timeout"`
	ProbeTimeout   time.Duration `mapstructure:"probe_timeout"`
	ImageTimeout   time.Duration `mapstructure:"image_timeout"`
	OverallTimeout time.Duration `mapstructure:"overall_timeout"`
	MaxPages       int           `mapstructure:"max_pages"`
	PageCharLimit  int           `mapstructure:"page_char_limit"`
	TotalCharLimit int           `mapstructure:"total_char_limit"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// Pipeline holds brief-generation pipeline tunables. These were once hidden
// package constants; tests substitute small batches and zero delays.
type Pipeline struct {
	BatchSize       int           `mapstructure:"batch_size"`
	BatchDelay      time.Duration `mapstructure:"batch_delay"`
	MaxRetries      int           `mapstructure:"max_retries"`
	RetryBackoff    time.Duration `mapstructure:"retry_backoff"`
	ImagesPerAd     int           `mapstructure:"images_per_ad"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ProgressLogging bool          `mapstructure:"progress_logging"`
}

var globalConfig *Config

// Load loads the configuration from .env, config file, and environment.
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Printf("Warning: Error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".whitecoat")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	bindEnvironmentVariables()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it if necessary
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("Failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.log_level", "info")

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "15s")
	// Write deadlines are armed when request headers are read, before the
	// handler runs. A connection-level deadline shorter than a synchronous
	// generation run would close the connection before the response is
	// written, so handlers are bounded per route instead.
	viper.SetDefault("server.write_timeout", "0")
	viper.SetDefault("server.cors.enabled", true)
	viper.SetDefault("server.cors.allowed_origins", []string{"*"})

	viper.SetDefault("ai.gemini.text_model", "gemini-2.0-flash")
	viper.SetDefault("ai.gemini.image_model", "gemini-2.5-flash-image")

	viper.SetDefault("glif.endpoint", "https://simple-api.glif.app/clozwqgs60013l80fkgmtf49o")

	viper.SetDefault("email.from_address", "briefs@whitecoatbrief.com")
	viper.SetDefault("email.from_name", "WhiteCoat Brief")

	viper.SetDefault("scraper.page_timeout", "10s")
	viper.SetDefault("scraper.probe_timeout", "2s")
	viper.SetDefault("scraper.image_timeout", "5s")
	viper.SetDefault("scraper.overall_timeout", "30s")
	viper.SetDefault("scraper.max_pages", 2)
	viper.SetDefault("scraper.page_char_limit", 30000)
	viper.SetDefault("scraper.total_char_limit", 50000)
	viper.SetDefault("scraper.user_agent", "Mozilla/5.0 (compatible; WhiteCoatBrief/1.0)")

	viper.SetDefault("pipeline.batch_size", 3)
	viper.SetDefault("pipeline.batch_delay", "500ms")
	viper.SetDefault("pipeline.max_retries", 2)
	viper.SetDefault("pipeline.retry_backoff", "5s")
	viper.SetDefault("pipeline.images_per_ad", 3)
	viper.SetDefault("pipeline.request_timeout", "60s")
	viper.SetDefault("pipeline.progress_logging", true)
}

// bindEnvironmentVariables sets up flexible environment variable binding
func bindEnvironmentVariables() {
	bindEnvKeys("ai.gemini.api_key", []string{
		"GEMINI_API_KEY",
		"GOOGLE_GEMINI_API_KEY",
		"GOOGLE_AI_API_KEY",
	})

	bindEnvKeys("glif.api_token", []string{
		"GLIF_API_TOKEN",
	})

	bindEnvKeys("email.resend_api_key", []string{
		"RESEND_API_KEY",
	})

	bindEnvKeys("database.connection_string", []string{
		"DATABASE_URL",
		"POSTGRES_URL",
	})

	bindEnvKeys("blob.bucket", []string{
		"BLOB_BUCKET",
		"GCS_BUCKET_NAME",
	})

	bindEnvKeys("blob.public_base_url", []string{
		"BLOB_PUBLIC_BASE_URL",
	})

	bindEnvKeys("blob.credentials_file", []string{
		"GOOGLE_APPLICATION_CREDENTIALS",
	})

	bindEnvKeys("server.admin_token", []string{
		"ADMIN_TOKEN",
		"WHITECOAT_ADMIN_TOKEN",
	})

	bindEnvKeys("app.debug", []string{
		"DEBUG",
		"WHITECOAT_DEBUG",
	})
}

// bindEnvKeys binds the first found environment variable to a viper key
func bindEnvKeys(viperKey string, envKeys []string) {
	for _, envKey := range envKeys {
		if value := os.Getenv(envKey); value != "" {
			viper.Set(viperKey, value)
			return
		}
	}
}

// validateConfig ensures required configuration is present
func validateConfig(config *Config) error {
	var errors []string

	if config.AI.Gemini.APIKey == "" {
		errors = append(errors, "Gemini API key is required. Set GEMINI_API_KEY environment variable or ai.gemini.api_key in config file.\nGet your API key from: https://makersuite.google.com/app/apikey")
	}

	if config.Pipeline.BatchSize < 1 {
		errors = append(errors, "pipeline.batch_size must be at least 1")
	}
	if config.Pipeline.ImagesPerAd < 1 {
		errors = append(errors, "pipeline.images_per_ad must be at least 1")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// Convenience getters for commonly used configuration values
func GetServer() Server     { return Get().Server }
func GetDatabase() Database { return Get().Database }
func GetGemini() Gemini     { return Get().AI.Gemini }
func GetGlif() Glif         { return Get().Glif }
func GetEmail() Email       { return Get().Email }
func GetBlob() Blob         { return Get().Blob }
func GetScraper() Scraper   { return Get().Scraper }
func GetPipeline() Pipeline { return Get().Pipeline }
func IsDebugMode() bool     { return Get().App.Debug }

// Reset clears the global configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viper.Reset()
}

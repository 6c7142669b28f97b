package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds the full application configuration.
type Config struct {
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Files       FilesConfig       `yaml:"files" mapstructure:"files"`
	Anthropic   AnthropicConfig   `yaml:"anthropic" mapstructure:"anthropic"`
	OCR         OCRConfig         `yaml:"ocr" mapstructure:"ocr"`
	Oracle      OracleConfig      `yaml:"oracle" mapstructure:"oracle"`
	Persistence PersistenceConfig `yaml:"persistence" mapstructure:"persistence"`
	Compare     CompareConfig     `yaml:"compare" mapstructure:"compare"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the task database.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// FilesConfig configures where uploaded PDFs are kept.
type FilesConfig struct {
	Dir         string `yaml:"dir" mapstructure:"dir"`
	MaxUploadMB int    `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// OCRConfig configures PDF text extraction.
type OCRConfig struct {
	Provider       string `yaml:"provider" mapstructure:"provider"`
	PdfToTextPath  string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
	MistralKey     string `yaml:"mistral_api_key" mapstructure:"mistral_api_key"`
	MistralModel   string `yaml:"mistral_model" mapstructure:"mistral_model"`
	MistralBaseURL string `yaml:"mistral_base_url" mapstructure:"mistral_base_url"`
}

// OracleConfig bounds calls to the extraction model.
type OracleConfig struct {
	TimeoutSecs       int           `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RequestsPerMinute int           `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	Burst             int           `yaml:"burst" mapstructure:"burst"`
	MaxPages          int           `yaml:"max_pages" mapstructure:"max_pages"`
	Retry             RetryConfig   `yaml:"retry" mapstructure:"retry"`
	Circuit           CircuitConfig `yaml:"circuit" mapstructure:"circuit"`
}

// RetryConfig configures transport retries.
type RetryConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
}

// CircuitConfig configures a circuit breaker.
type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// PersistenceConfig configures read-after-write verification.
type PersistenceConfig struct {
	VerifyAttempts  int `yaml:"verify_attempts" mapstructure:"verify_attempts"`
	VerifyBackoffMs int `yaml:"verify_backoff_ms" mapstructure:"verify_backoff_ms"`
}

// CompareConfig configures the comparison engine.
type CompareConfig struct {
	// KeywordTable overrides the embedded line-item keyword table.
	KeywordTable string `yaml:"keyword_table" mapstructure:"keyword_table"`
	Concurrency  int    `yaml:"concurrency" mapstructure:"concurrency"`
	// LegacySingle persists single-structure results in the flat shape.
	LegacySingle bool `yaml:"legacy_single" mapstructure:"legacy_single"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging. File enables a rotated JSON log alongside
// stderr.
type LogConfig struct {
	Level      string `yaml:"level" mapstructure:"level"`
	Format     string `yaml:"format" mapstructure:"format"`
	File       string `yaml:"file" mapstructure:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" mapstructure:"max_age_days"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("ROOFCLAIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "roofclaim.db")
	v.SetDefault("files.dir", "data/files")
	v.SetDefault("files.max_upload_mb", 50)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 16000)
	v.SetDefault("ocr.provider", "local")
	v.SetDefault("ocr.pdftotext_path", "pdftotext")
	v.SetDefault("ocr.mistral_model", "mistral-ocr-latest")
	v.SetDefault("ocr.mistral_base_url", "https://api.mistral.ai/v1")
	v.SetDefault("oracle.timeout_secs", 180)
	v.SetDefault("oracle.requests_per_minute", 20)
	v.SetDefault("oracle.burst", 2)
	v.SetDefault("oracle.max_pages", 60)
	v.SetDefault("oracle.retry.max_attempts", 3)
	v.SetDefault("oracle.retry.initial_backoff_ms", 1000)
	v.SetDefault("oracle.retry.max_backoff_ms", 20000)
	v.SetDefault("oracle.retry.multiplier", 2.0)
	v.SetDefault("oracle.retry.jitter_fraction", 0.2)
	v.SetDefault("oracle.circuit.failure_threshold", 5)
	v.SetDefault("oracle.circuit.reset_timeout_secs", 60)
	v.SetDefault("persistence.verify_attempts", 3)
	v.SetDefault("persistence.verify_backoff_ms", 1000)
	v.SetDefault("compare.concurrency", 4)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
}

// Validate checks the keys a command mode needs. Modes: serve, extract,
// compare, migrate.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "serve", "extract":
		if c.Anthropic.Key == "" {
			errs = append(errs, "anthropic.key is required")
		}
		switch c.OCR.Provider {
		case "local", "native":
		case "mistral":
			if c.OCR.MistralKey == "" {
				errs = append(errs, "ocr.mistral_api_key is required for the mistral provider")
			}
		default:
			errs = append(errs, fmt.Sprintf("ocr.provider %q must be one of local, native, mistral", c.OCR.Provider))
		}
		if c.Files.Dir == "" {
			errs = append(errs, "files.dir is required")
		}
		if c.Oracle.TimeoutSecs <= 0 {
			errs = append(errs, "oracle.timeout_secs must be > 0")
		}
		if c.Persistence.VerifyAttempts < 1 {
			errs = append(errs, "persistence.verify_attempts must be >= 1")
		}
		if mode == "serve" && c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		errs = append(errs, c.storeErrors()...)
	case "migrate":
		errs = append(errs, c.storeErrors()...)
	case "compare":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Compare.Concurrency < 0 || c.Compare.Concurrency > 64 {
		errs = append(errs, "compare.concurrency must be between 0 and 64")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) storeErrors() []string {
	var errs []string
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q must be sqlite or postgres", c.Store.Driver))
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}
	return errs
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}

	if cfg.File != "" {
		sink := zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		})
		fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), sink, zapCfg.Level)
		logger = logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewTee(core, fileCore)
		}))
	}

	zap.ReplaceGlobals(logger)
	return nil
}

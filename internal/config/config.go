// Package config loads settings from flags, PORTRAIT_* environment
// variables and an optional config file, in that order of precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. PORTRAIT_S3_BUCKET.
const EnvPrefix = "PORTRAIT"

const (
	BackendSQLite   = "sqlite"
	BackendDynamoDB = "dynamodb"

	InferenceSageMaker = "sagemaker"
	InferenceHTTP      = "http"

	SwapOutputResult  = "result"
	SwapOutputSwapped = "swapped"
)

type Config struct {
	Listen            string        `mapstructure:"listen"`
	Backend           string        `mapstructure:"backend"`
	URLTTL            time.Duration `mapstructure:"url_ttl"`
	UploadContentType string        `mapstructure:"upload_content_type"`

	SQLite struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"sqlite"`

	AWS struct {
		Region           string `mapstructure:"region"`
		Endpoint         string `mapstructure:"endpoint"`
		S3ForcePathStyle bool   `mapstructure:"s3_force_path_style"`
	} `mapstructure:"aws"`

	S3 struct {
		Bucket string `mapstructure:"bucket"`
	} `mapstructure:"s3"`

	DynamoDB struct {
		ProcessTable      string `mapstructure:"process_table"`
		DisplayTable      string `mapstructure:"display_table"`
		BaseResourceTable string `mapstructure:"base_resource_table"`
	} `mapstructure:"dynamodb"`

	Paths struct {
		Raw     string `mapstructure:"raw"`
		Cropped string `mapstructure:"cropped"`
		Swapped string `mapstructure:"swapped"`
		Result  string `mapstructure:"result"`
	} `mapstructure:"paths"`

	Inference struct {
		Backend         string        `mapstructure:"backend"`
		SwapEndpoint    string        `mapstructure:"swap_endpoint"`
		RestoreEndpoint string        `mapstructure:"restore_endpoint"`
		Timeout         time.Duration `mapstructure:"timeout"`
	} `mapstructure:"inference"`

	Swap struct {
		Output string `mapstructure:"output"`
	} `mapstructure:"swap"`

	SQS struct {
		QueueURL      string        `mapstructure:"queue_url"`
		Workers       int           `mapstructure:"workers"`
		WaitSeconds   int64         `mapstructure:"wait_seconds"`
		ShutdownGrace time.Duration `mapstructure:"shutdown_grace"`
	} `mapstructure:"sqs"`

	CORS struct {
		AllowedOrigins []string `mapstructure:"allowed_origins"`
	} `mapstructure:"cors"`

	Log struct {
		Level       string `mapstructure:"level"`
		Development bool   `mapstructure:"development"`
	} `mapstructure:"log"`
}

// SetDefaults registers every key so that environment variables are seen
// by Unmarshal even when no file or flag sets them.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("listen", ":8080")
	v.SetDefault("backend", BackendSQLite)
	v.SetDefault("url_ttl", 5*time.Minute)
	v.SetDefault("upload_content_type", "image/jpeg")
	v.SetDefault("sqlite.path", "pipeline.db")
	v.SetDefault("aws.region", "us-east-1")
	v.SetDefault("aws.endpoint", "")
	v.SetDefault("aws.s3_force_path_style", false)
	v.SetDefault("s3.bucket", "")
	v.SetDefault("dynamodb.process_table", "")
	v.SetDefault("dynamodb.display_table", "")
	v.SetDefault("dynamodb.base_resource_table", "")
	v.SetDefault("paths.raw", "face-images")
	v.SetDefault("paths.cropped", "face-cropped-images")
	v.SetDefault("paths.swapped", "face-swapped-images")
	v.SetDefault("paths.result", "result-images")
	v.SetDefault("inference.backend", InferenceSageMaker)
	v.SetDefault("inference.swap_endpoint", "")
	v.SetDefault("inference.restore_endpoint", "")
	v.SetDefault("inference.timeout", 50*time.Second)
	v.SetDefault("swap.output", SwapOutputResult)
	v.SetDefault("sqs.queue_url", "")
	v.SetDefault("sqs.workers", 4)
	v.SetDefault("sqs.wait_seconds", 20)
	v.SetDefault("sqs.shutdown_grace", 55*time.Second)
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// BindFlags adds the common persistent flags to cmd and binds them.
func BindFlags(v *viper.Viper, cmd *cobra.Command) error {
	flags := cmd.PersistentFlags()
	flags.String("config", "", "config file (yaml, json or toml)")
	flags.String("listen", ":8080", "HTTP listen address")
	flags.String("backend", BackendSQLite, "correlation store backend: sqlite or dynamodb")
	flags.String("log-level", "info", "log level: debug, info, warn, error")

	for key, flag := range map[string]string{
		"listen":    "listen",
		"backend":   "backend",
		"log.level": "log-level",
	} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}
	return nil
}

// Load reads configFile (if any) and the environment into a Config.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings every binary needs.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendSQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("sqlite.path is required for the sqlite backend")
		}
	case BackendDynamoDB:
		if c.DynamoDB.ProcessTable == "" || c.DynamoDB.DisplayTable == "" || c.DynamoDB.BaseResourceTable == "" {
			return fmt.Errorf("dynamodb.process_table, dynamodb.display_table and dynamodb.base_resource_table are required for the dynamodb backend")
		}
		if c.AWS.Region == "" {
			return fmt.Errorf("aws.region is required for the dynamodb backend")
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}

	switch c.Inference.Backend {
	case InferenceSageMaker, InferenceHTTP:
	default:
		return fmt.Errorf("unknown inference.backend %q", c.Inference.Backend)
	}
	switch c.Swap.Output {
	case SwapOutputResult, SwapOutputSwapped:
	default:
		return fmt.Errorf("unknown swap.output %q", c.Swap.Output)
	}

	if c.URLTTL <= 0 {
		return fmt.Errorf("url_ttl must be positive")
	}
	if c.Inference.Timeout <= 0 || c.Inference.Timeout >= 60*time.Second {
		return fmt.Errorf("inference.timeout must be between 0 and 60s, got %s", c.Inference.Timeout)
	}
	return nil
}

// ValidateGateway checks what the request and result gateways need.
func (c *Config) ValidateGateway() error {
	if c.S3.Bucket == "" {
		return fmt.Errorf("s3.bucket is required")
	}
	return nil
}

// ValidateStages checks what the notification-driven stages need.
func (c *Config) ValidateStages() error {
	if c.S3.Bucket == "" {
		return fmt.Errorf("s3.bucket is required")
	}
	if c.Inference.SwapEndpoint == "" {
		return fmt.Errorf("inference.swap_endpoint is required")
	}
	if c.Swap.Output == SwapOutputSwapped && c.Inference.RestoreEndpoint == "" {
		return fmt.Errorf("inference.restore_endpoint is required when swap.output is %q", SwapOutputSwapped)
	}
	return nil
}

// ValidateConsumer checks what the SQS consumer needs on top of the stages.
func (c *Config) ValidateConsumer() error {
	if err := c.ValidateStages(); err != nil {
		return err
	}
	if c.SQS.QueueURL == "" {
		return fmt.Errorf("sqs.queue_url is required")
	}
	return nil
}

package ddbclient

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"gopkg.in/yaml.v3"

	"github.com/acksell/dynokit/ddberr"
)

// Config describes one DynamoDB-compatible store and the table a client is
// bound to. Clients copy it on construction; mutating a Config afterwards has
// no effect on any client built from it.
//
// Leaving the credential fields empty uses the SDK's default resolution chain.
// Static credentials and Endpoint exist for local stores and read/write
// splits across accounts.
type Config struct {
	TableName       string   `yaml:"table_name"`
	Region          string   `yaml:"region"`
	Endpoint        string   `yaml:"endpoint,omitempty"`
	AccessKeyID     string   `yaml:"access_key_id,omitempty"`
	SecretAccessKey string   `yaml:"secret_access_key,omitempty"`
	SessionToken    string   `yaml:"session_token,omitempty"`
	HTTPTimeout     Duration `yaml:"http_timeout,omitempty"`
	MaxRetries      int      `yaml:"max_retries,omitempty"`
}

// SplitConfig pairs the two stores of a read/write split.
type SplitConfig struct {
	Read  Config `yaml:"read"`
	Write Config `yaml:"write"`
}

// Duration unmarshals YAML scalars like "30s" or "1m" via time.ParseDuration.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", node.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// LoadConfig reads and validates a single-store YAML config file.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if err := loadYAML(path, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// LoadSplitConfig reads and validates a read/write pair from a YAML file
// with top-level "read:" and "write:" sections.
func LoadSplitConfig(path string) (SplitConfig, error) {
	var cfg SplitConfig
	if err := loadYAML(path, &cfg); err != nil {
		return SplitConfig{}, err
	}
	if err := cfg.Read.Validate(); err != nil {
		return SplitConfig{}, fmt.Errorf("read store: %w", err)
	}
	if err := cfg.Write.Validate(); err != nil {
		return SplitConfig{}, fmt.Errorf("write store: %w", err)
	}
	return cfg, nil
}

func loadYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// Validate reports whether the Config can produce a working client.
func (c Config) Validate() error {
	if c.TableName == "" {
		return ddberr.NewValidationError("config", "table_name is required")
	}
	if c.Region == "" && c.Endpoint == "" {
		return ddberr.NewValidationError("config", "one of region or endpoint is required")
	}
	if c.MaxRetries < 0 {
		return ddberr.NewValidationError("config", "max_retries must not be negative")
	}
	if c.HTTPTimeout < 0 {
		return ddberr.NewValidationError("config", "http_timeout must not be negative")
	}
	return nil
}

// dial resolves an SDK client for the store the Config describes.
// Local stores accept any region, so a Config that only sets Endpoint
// gets a placeholder region for signing.
func (c Config) dial(ctx context.Context) (*dynamodb.Client, error) {
	region := c.Region
	if region == "" {
		region = "us-east-1"
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if c.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, c.SessionToken),
		))
	}
	if c.MaxRetries > 0 {
		opts = append(opts, awsconfig.WithRetryMaxAttempts(c.MaxRetries))
	}
	if c.HTTPTimeout > 0 {
		opts = append(opts, awsconfig.WithHTTPClient(&http.Client{Timeout: time.Duration(c.HTTPTimeout)}))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
		}
	}), nil
}

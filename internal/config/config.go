// Package config holds the service configuration. Values come from
// built-in defaults, then an optional YAML file, then the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// DefaultWorkflowName is the workflow this service manages.
const DefaultWorkflowName = "dragen-tso500-ctdna"

// Config is passed explicitly to every component constructor. Nothing
// reads the process environment after Load returns.
type Config struct {
	// WorkflowName is used to build comment author names.
	WorkflowName string `yaml:"workflow_name" env:"WORKFLOW_NAME"`

	// SSMRegistryName and SSMSchemaName name the SSM parameters that hold
	// the schema registry name and the schema name.
	SSMRegistryName string `yaml:"ssm_registry_name" env:"SSM_REGISTRY_NAME"`
	SSMSchemaName   string `yaml:"ssm_schema_name" env:"SSM_SCHEMA_NAME"`

	// SchemaFile, when set, replaces the schema registry with a local
	// JSON Schema document.
	SchemaFile string `yaml:"schema_file" env:"SCHEMA_FILE"`

	// TestDataBucketName holds fixture data exempt from project checks.
	TestDataBucketName string `yaml:"test_data_bucket_name" env:"TEST_DATA_BUCKET_NAME"`

	WorkflowManagerURL   string `yaml:"workflow_manager_url" env:"WORKFLOW_MANAGER_URL"`
	WorkflowManagerToken string `yaml:"workflow_manager_token" env:"ORCABUS_TOKEN"`

	ICAv2BaseURL     string `yaml:"icav2_base_url" env:"ICAV2_BASE_URL"`
	ICAv2AccessToken string `yaml:"icav2_access_token" env:"ICAV2_ACCESS_TOKEN"`

	AWSRegion   string        `yaml:"aws_region" env:"AWS_REGION"`
	HTTPTimeout time.Duration `yaml:"http_timeout" env:"HTTP_TIMEOUT"`

	// DraftDBPath selects the SQLite draft store instead of the workflow
	// manager API. ":memory:" is accepted for testing.
	DraftDBPath string `yaml:"draft_db_path" env:"DRAFT_DB_PATH"`

	Addr      string `yaml:"addr" env:"LISTEN_ADDR"`
	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL"`
	LogFormat string `yaml:"log_format" env:"LOG_FORMAT"`
}

// Default returns sensible defaults.
func Default() Config {
	return Config{
		WorkflowName: DefaultWorkflowName,
		ICAv2BaseURL: "https://ica.illumina.com/ica/rest",
		AWSRegion:    "ap-southeast-2",
		HTTPTimeout:  30 * time.Second,
		Addr:         ":8080",
		LogLevel:     "info",
		LogFormat:    "text",
	}
}

// Load builds the configuration. path may be empty, in which case only
// defaults and the environment apply.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}

	return cfg, cfg.Validate()
}

// Validate reports settings that no component can run without.
func (c Config) Validate() error {
	var errs []error
	if c.WorkflowName == "" {
		errs = append(errs, errors.New("workflow_name is required"))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, errors.New("http_timeout must be positive"))
	}
	if c.SSMRegistryName != "" && c.SSMSchemaName == "" || c.SSMRegistryName == "" && c.SSMSchemaName != "" {
		errs = append(errs, errors.New("ssm_registry_name and ssm_schema_name must be set together"))
	}
	return errors.Join(errs...)
}

// UseDraftDB reports whether the SQLite draft store is selected.
func (c Config) UseDraftDB() bool {
	return c.DraftDBPath != ""
}

// ValidationCommentAuthor is the author of validation failure comments.
func (c Config) ValidationCommentAuthor() string {
	return c.WorkflowName + "-workflow-validation-service"
}

// ServiceCommentAuthor is the author of run failure comments.
func (c Config) ServiceCommentAuthor() string {
	return c.WorkflowName + "-workflow-service"
}

// OrchestrationCommentAuthor is the author of orchestration comments.
func (c Config) OrchestrationCommentAuthor() string {
	return c.WorkflowName + "-workflow-orchestration-service"
}

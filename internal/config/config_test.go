package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.WorkflowName != "dragen-tso500-ctdna" {
		t.Errorf("WorkflowName = %q", cfg.WorkflowName)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
	if cfg.UseDraftDB() {
		t.Error("draft db should be off by default")
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
workflow_name: dragen-tso500-ctdna
ssm_registry_name: /orcabus/workflows/dragen-tso500-ctdna/registry
ssm_schema_name: /orcabus/workflows/dragen-tso500-ctdna/schema
test_data_bucket_name: test-data-bucket
http_timeout: 5s
log_format: json
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("TEST_DATA_BUCKET_NAME", "env-bucket")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TestDataBucketName != "env-bucket" {
		t.Errorf("TestDataBucketName = %q, env should win", cfg.TestDataBucketName)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, file value should survive", cfg.LogFormat)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.HTTPTimeout != 5*time.Second {
		t.Errorf("HTTPTimeout = %v", cfg.HTTPTimeout)
	}
	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q, default should survive", cfg.Addr)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.SSMRegistryName = "/only/one"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when only one SSM name is set")
	}

	cfg = Default()
	cfg.WorkflowName = ""
	cfg.HTTPTimeout = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for empty workflow name and timeout")
	}
}

func TestCommentAuthors(t *testing.T) {
	cfg := Default()
	tests := map[string]string{
		cfg.ValidationCommentAuthor():    "dragen-tso500-ctdna-workflow-validation-service",
		cfg.ServiceCommentAuthor():       "dragen-tso500-ctdna-workflow-service",
		cfg.OrchestrationCommentAuthor(): "dragen-tso500-ctdna-workflow-orchestration-service",
	}
	for got, want := range tests {
		if got != want {
			t.Errorf("author = %q, want %q", got, want)
		}
	}
}

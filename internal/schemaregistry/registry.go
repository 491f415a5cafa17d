// Package schemaregistry fetches the current payload JSON Schema. The
// registry and schema names are resolved through SSM parameters, then the
// schema document is read from the EventBridge schema registry.
package schemaregistry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/schemas"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/smithy-go"

	"github.com/OrcaBus/service-dragen-tso500-ctdna-pipeline-manager/internal/config"
	"github.com/OrcaBus/service-dragen-tso500-ctdna-pipeline-manager/internal/logging"
	"github.com/OrcaBus/service-dragen-tso500-ctdna-pipeline-manager/pkg/model"
)

// Source returns the current JSON Schema document.
type Source interface {
	Schema(ctx context.Context) (string, error)
}

// SSMAPI is the subset of the SSM client used here.
type SSMAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// SchemasAPI is the subset of the EventBridge Schemas client used here.
type SchemasAPI interface {
	DescribeSchema(ctx context.Context, params *schemas.DescribeSchemaInput, optFns ...func(*schemas.Options)) (*schemas.DescribeSchemaOutput, error)
}

// Registry resolves the schema through SSM and the schema registry. Every
// call reads fresh values; nothing is cached between invocations.
type Registry struct {
	ssm           SSMAPI
	schemas       SchemasAPI
	registryParam string
	schemaParam   string
	logger        *slog.Logger
}

// NewRegistry creates a Registry reading the registry name from the SSM
// parameter registryParam and the schema name from schemaParam.
func NewRegistry(ssmClient SSMAPI, schemasClient SchemasAPI, registryParam, schemaParam string, logger *slog.Logger) *Registry {
	return &Registry{
		ssm:           ssmClient,
		schemas:       schemasClient,
		registryParam: registryParam,
		schemaParam:   schemaParam,
		logger:        logging.OrDiscard(logger).With("component", "schema-registry"),
	}
}

// Schema returns the current schema document.
func (r *Registry) Schema(ctx context.Context) (string, error) {
	registryName, err := r.parameter(ctx, r.registryParam)
	if err != nil {
		return "", err
	}
	rawSchemaName, err := r.parameter(ctx, r.schemaParam)
	if err != nil {
		return "", err
	}
	schemaName := parseSchemaName(rawSchemaName)

	r.logger.Debug("describing schema", "registry", registryName, "schema", schemaName)
	out, err := r.schemas.DescribeSchema(ctx, &schemas.DescribeSchemaInput{
		RegistryName: aws.String(registryName),
		SchemaName:   aws.String(schemaName),
	})
	if err != nil {
		return "", classify("describe schema "+registryName+"/"+schemaName, "Schema", schemaName, err)
	}
	content := aws.ToString(out.Content)
	if content == "" {
		return "", model.NewUnavailableError("describe schema", fmt.Errorf("schema %s/%s has no content", registryName, schemaName))
	}
	return content, nil
}

func (r *Registry) parameter(ctx context.Context, name string) (string, error) {
	out, err := r.ssm.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", classify("get parameter "+name, "Parameter", name, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", model.NewNotFoundError("Parameter", name)
	}
	return *out.Parameter.Value, nil
}

// parseSchemaName accepts either {"schemaName": "..."} or a bare name.
func parseSchemaName(raw string) string {
	var v struct {
		SchemaName string `json:"schemaName"`
	}
	if err := json.Unmarshal([]byte(raw), &v); err == nil && v.SchemaName != "" {
		return v.SchemaName
	}
	return strings.TrimSpace(raw)
}

func classify(op, resource, id string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ParameterNotFound", "NotFoundException":
			nf := model.NewNotFoundError(resource, id)
			nf.Err = err
			return nf
		}
	}
	return model.NewUnavailableError(op, err)
}

// FileSource reads the schema from a local file.
type FileSource struct {
	Path string
}

// Schema returns the file's content.
func (f FileSource) Schema(context.Context) (string, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			nf := model.NewNotFoundError("Schema file", f.Path)
			nf.Err = err
			return "", nf
		}
		return "", model.NewUnavailableError("read schema file", err)
	}
	return string(data), nil
}

// New picks the source configured in cfg: a local schema file when set,
// otherwise the SSM-indirected schema registry using the default AWS
// credential chain. SDK retries are disabled; the caller owns retries.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (Source, error) {
	if cfg.SchemaFile != "" {
		return FileSource{Path: cfg.SchemaFile}, nil
	}
	if cfg.SSMRegistryName == "" || cfg.SSMSchemaName == "" {
		return nil, errors.New("no schema source configured: set schema_file or ssm_registry_name and ssm_schema_name")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
		awsconfig.WithRetryMaxAttempts(1),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewRegistry(
		ssm.NewFromConfig(awsCfg),
		schemas.NewFromConfig(awsCfg),
		cfg.SSMRegistryName,
		cfg.SSMSchemaName,
		logger,
	), nil
}

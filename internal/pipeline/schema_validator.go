package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/OrcaBus/service-dragen-tso500-ctdna-pipeline-manager/internal/logging"
	"github.com/OrcaBus/service-dragen-tso500-ctdna-pipeline-manager/internal/metrics"
	"github.com/OrcaBus/service-dragen-tso500-ctdna-pipeline-manager/pkg/model"
)

const schemaResource = "payload-schema.json"

// SchemaValidator validates draft payloads against the current schema.
type SchemaValidator struct {
	source   SchemaSource
	comments Commenter
	author   string
	printer  *message.Printer
	logger   *slog.Logger
}

// NewSchemaValidator creates a SchemaValidator. Failure comments are posted
// through comments under author.
func NewSchemaValidator(source SchemaSource, comments Commenter, author string, logger *slog.Logger) *SchemaValidator {
	return &SchemaValidator{
		source:   source,
		comments: comments,
		author:   author,
		printer:  message.NewPrinter(language.English),
		logger:   logging.OrDiscard(logger).With("component", "schema-validator"),
	}
}

// SchemaViolation describes the first schema mismatch found.
type SchemaViolation struct {
	Message string
	Path    string
}

func (v *SchemaViolation) String() string {
	return fmt.Sprintf("%s (at %s)", v.Message, v.Path)
}

// Validate checks req.Data, or req.Body when Data is absent. A mismatch is
// reported as IsValid false, with a comment on the workflow run when
// AddCommentOnError is set. Failing to fetch or compile the schema is an
// error.
func (v *SchemaValidator) Validate(ctx context.Context, req *ValidationRequest) (model.ValidationResult, error) {
	if req == nil {
		return model.ValidationResult{}, model.NewValidationError("validation request is required")
	}
	if req.AddCommentOnError && req.WorkflowRunID == "" {
		return model.ValidationResult{}, model.NewValidationError("workflowRunId is required when addCommentOnError is set",
			model.FieldError{Field: "workflowRunId", Message: "required"})
	}

	instance := req.Data
	if instance == nil {
		instance = req.Body
	}
	if instance == nil {
		instance = map[string]any{}
	}

	violation, err := v.Check(ctx, instance)
	if err != nil {
		return model.ValidationResult{}, err
	}
	if violation == nil {
		metrics.IncValidation("schema", true)
		return model.ValidationResult{IsValid: true}, nil
	}

	metrics.IncValidation("schema", false)
	v.logger.Info("schema validation failed",
		"workflow_run_id", req.WorkflowRunID,
		"path", violation.Path,
		"error", violation.Message,
	)
	if req.AddCommentOnError {
		comment := "Schema validation failed: " + violation.String()
		if err := v.comments.AddComment(ctx, req.WorkflowRunID, comment, v.author); err != nil {
			return model.ValidationResult{}, fmt.Errorf("comment on %s: %w", req.WorkflowRunID, err)
		}
		metrics.IncComment(v.author)
	}
	return model.ValidationResult{IsValid: false}, nil
}

// Check validates instance against the current schema and returns the
// first violation, or nil when instance is valid.
func (v *SchemaValidator) Check(ctx context.Context, instance any) (*SchemaViolation, error) {
	doc, err := v.source.Schema(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch schema: %w", err)
	}
	sch, err := compileSchema(doc)
	if err != nil {
		return nil, err
	}

	// Round-trip through JSON so the validator only sees JSON types.
	raw, err := json.Marshal(instance)
	if err != nil {
		return nil, model.NewValidationError(fmt.Sprintf("instance is not JSON: %v", err))
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode instance: %w", err)
	}

	err = sch.Validate(inst)
	if err == nil {
		return nil, nil
	}
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return nil, fmt.Errorf("validate instance: %w", err)
	}
	leaf := firstLeaf(verr)
	return &SchemaViolation{
		Message: leaf.ErrorKind.LocalizedString(v.printer),
		Path:    JSONPath(leaf.InstanceLocation),
	}, nil
}

func compileSchema(doc string) (*jsonschema.Schema, error) {
	parsed, err := jsonschema.UnmarshalJSON(strings.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaResource, parsed); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	sch, err := c.Compile(schemaResource)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return sch, nil
}

// firstLeaf follows the first cause down to the most specific error.
func firstLeaf(err *jsonschema.ValidationError) *jsonschema.ValidationError {
	for len(err.Causes) > 0 {
		err = err.Causes[0]
	}
	return err
}

// JSONPath renders an instance location such as
// ["inputs", "fastqListRows", "0", "rgid"] as $.inputs.fastqListRows[0].rgid.
func JSONPath(location []string) string {
	var b strings.Builder
	b.WriteString("$")
	for _, token := range location {
		if _, err := strconv.Atoi(token); err == nil {
			b.WriteString("[" + token + "]")
			continue
		}
		b.WriteString("." + token)
	}
	return b.String()
}

package handlers

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/OrcaBus/service-dragen-tso500-ctdna-pipeline-manager/internal/config"
	"github.com/OrcaBus/service-dragen-tso500-ctdna-pipeline-manager/internal/pipeline"
	"github.com/OrcaBus/service-dragen-tso500-ctdna-pipeline-manager/pkg/model"
)

// Handler names, as referenced by the orchestrator.
const (
	ConvertIcav2WesToWrscEvent           = "convertIcav2WesToWrscEvent"
	GenerateWruEventObjectWithMergedData = "generateWruEventObjectWithMergedData"
	ValidateDraftPayload                 = "validateDraftPayload"
	PostSchemaValidation                 = "postSchemaValidation"
	AddWesFailureComment                 = "addWesFailureComment"
	AddUploadFailureComment              = "addUploadFailureComment"
	AddReadyDelayComment                 = "addReadyDelayComment"
	DetermineCompressionType             = "determineCompressionType"
	GenerateIcav2DataCopyPayload         = "generateIcav2DataCopyPayload"
)

// DraftStore is what the handlers need from the draft store.
type DraftStore interface {
	pipeline.DraftStore
	pipeline.Commenter
}

// Deps are the collaborators shared by all handlers.
type Deps struct {
	Config     config.Config
	Store      DraftStore
	Schemas    pipeline.SchemaSource
	Executions pipeline.ExecutionService
	Logger     *slog.Logger
}

// New returns a registry holding every handler.
func New(deps Deps) *Registry {
	cfg := deps.Config
	normalizer := pipeline.NewNormalizer(deps.Store, deps.Logger)
	merger := pipeline.NewMerger(deps.Store, deps.Logger)
	schemaValidator := pipeline.NewSchemaValidator(deps.Schemas, deps.Store, cfg.ValidationCommentAuthor(), deps.Logger)
	postValidator := pipeline.NewPostValidator(deps.Store, deps.Store, deps.Executions,
		cfg.TestDataBucketName, cfg.ValidationCommentAuthor(), deps.Logger)
	commentator := pipeline.NewCommentator(deps.Store, deps.Store,
		cfg.ServiceCommentAuthor(), cfg.OrchestrationCommentAuthor(), deps.Logger)

	r := NewRegistry(deps.Logger)
	r.Register(Handler{
		Name:        ConvertIcav2WesToWrscEvent,
		Description: "Convert an ICAv2 WES state change event into a workflow run state change event",
		Fn: func(ctx context.Context, event json.RawMessage) (any, error) {
			var in struct {
				Event *model.Icav2WesStateChange `json:"icav2WesStateChangeEvent"`
			}
			if err := decode(event, &in); err != nil {
				return nil, err
			}
			ev, err := normalizer.Normalize(ctx, in.Event)
			if err != nil {
				return nil, err
			}
			return map[string]any{"workflowRunStateChangeEvent": ev}, nil
		},
	})
	r.Register(Handler{
		Name:        GenerateWruEventObjectWithMergedData,
		Description: "Merge override data into a draft workflow run and return the workflow run update",
		Fn: func(ctx context.Context, event json.RawMessage) (any, error) {
			var req pipeline.MergeRequest
			if err := decode(event, &req); err != nil {
				return nil, err
			}
			update, err := merger.Merge(ctx, &req)
			if err != nil {
				return nil, err
			}
			return map[string]any{"workflowRunUpdate": update}, nil
		},
	})
	r.Register(Handler{
		Name:        ValidateDraftPayload,
		Description: "Validate draft payload data against the current payload schema",
		Fn: func(ctx context.Context, event json.RawMessage) (any, error) {
			req, err := decodeValidationRequest(event)
			if err != nil {
				return nil, err
			}
			return schemaValidator.Validate(ctx, req)
		},
	})
	r.Register(Handler{
		Name:        PostSchemaValidation,
		Description: "Check engine parameters and inputs against the execution project",
		Fn: func(ctx context.Context, event json.RawMessage) (any, error) {
			req, err := decodeValidationRequest(event)
			if err != nil {
				return nil, err
			}
			return postValidator.Validate(ctx, req)
		},
	})
	r.Register(Handler{
		Name:        AddWesFailureComment,
		Description: "Comment on a workflow run whose analysis failed",
		Fn: func(ctx context.Context, event json.RawMessage) (any, error) {
			var in pipeline.WesFailure
			if err := decode(event, &in); err != nil {
				return nil, err
			}
			return commentator.WesFailure(ctx, in)
		},
	})
	r.Register(Handler{
		Name:        AddUploadFailureComment,
		Description: "Comment on a workflow run whose input upload failed",
		Fn: func(ctx context.Context, event json.RawMessage) (any, error) {
			var in pipeline.UploadFailure
			if err := decode(event, &in); err != nil {
				return nil, err
			}
			return commentator.UploadFailure(ctx, in)
		},
	})
	r.Register(Handler{
		Name:        AddReadyDelayComment,
		Description: "Comment that inputs are decompressed before the run is submitted",
		Fn: func(ctx context.Context, event json.RawMessage) (any, error) {
			var in struct {
				PortalRunID string `json:"portalRunId"`
			}
			if err := decode(event, &in); err != nil {
				return nil, err
			}
			return commentator.ReadyDelay(ctx, in.PortalRunID)
		},
	})
	r.Register(Handler{
		Name:        DetermineCompressionType,
		Description: "Report whether fastq list rows are ORA compressed",
		Fn: func(ctx context.Context, event json.RawMessage) (any, error) {
			var in struct {
				FastqListRows []model.FastqListRow `json:"fastqListRows"`
			}
			if err := decode(event, &in); err != nil {
				return nil, err
			}
			isOra, err := pipeline.IsOraCompressed(in.FastqListRows)
			if err != nil {
				return nil, err
			}
			return map[string]bool{"isOra": isOra}, nil
		},
	})
	r.Register(Handler{
		Name:        GenerateIcav2DataCopyPayload,
		Description: "Build the data copy request placing fastq files in the run folder",
		Fn: func(ctx context.Context, event json.RawMessage) (any, error) {
			var in struct {
				FastqListRows []model.FastqListRow `json:"fastqListRows"`
				RunFolderURI  string               `json:"runFolderUri"`
			}
			if err := decode(event, &in); err != nil {
				return nil, err
			}
			payload, err := pipeline.BuildDataCopyPayload(in.FastqListRows, in.RunFolderURI)
			if err != nil {
				return nil, err
			}
			return map[string]any{"dataCopyPayload": payload}, nil
		},
	})
	return r
}

// decodeValidationRequest reads {data, workflowRunId, addCommentOnError};
// every other top-level key is kept as the request body.
func decodeValidationRequest(event json.RawMessage) (*pipeline.ValidationRequest, error) {
	var req pipeline.ValidationRequest
	if err := decode(event, &req); err != nil {
		return nil, err
	}
	var body map[string]any
	if err := decode(event, &body); err != nil {
		return nil, err
	}
	delete(body, "workflowRunId")
	delete(body, "addCommentOnError")
	if req.Data == nil {
		req.Body = body
	}
	return &req, nil
}

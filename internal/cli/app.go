package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/OrcaBus/service-dragen-tso500-ctdna-pipeline-manager/internal/handlers"
	"github.com/OrcaBus/service-dragen-tso500-ctdna-pipeline-manager/internal/schemaregistry"
	"github.com/OrcaBus/service-dragen-tso500-ctdna-pipeline-manager/internal/store"
	"github.com/OrcaBus/service-dragen-tso500-ctdna-pipeline-manager/pkg/icav2"
	"github.com/OrcaBus/service-dragen-tso500-ctdna-pipeline-manager/pkg/model"
	"github.com/OrcaBus/service-dragen-tso500-ctdna-pipeline-manager/pkg/restclient"
	"github.com/OrcaBus/service-dragen-tso500-ctdna-pipeline-manager/pkg/workflowmanager"
)

// app holds the wired handler registry and what must be closed with it.
type app struct {
	registry *handlers.Registry
	draftDB  *store.SQLiteStore // nil when the workflow manager API is used
}

func (a *app) Close() error {
	if a.draftDB != nil {
		return a.draftDB.Close()
	}
	return nil
}

// openDraftDB opens and migrates the SQLite draft store.
func openDraftDB(ctx context.Context) (*store.SQLiteStore, error) {
	if !cfg.UseDraftDB() {
		return nil, errors.New("no draft store: set --draft-db or draft_db_path")
	}
	st, err := store.NewSQLiteStore(cfg.DraftDBPath, logger)
	if err != nil {
		return nil, fmt.Errorf("open draft store: %w", err)
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("migrate draft store: %w", err)
	}
	logger.Debug("draft store ready", "path", cfg.DraftDBPath)
	return st, nil
}

// newApp wires the handlers to the configured backends.
func newApp(ctx context.Context) (*app, error) {
	a := &app{}
	var draftStore handlers.DraftStore
	if cfg.UseDraftDB() {
		st, err := openDraftDB(ctx)
		if err != nil {
			return nil, err
		}
		a.draftDB = st
		draftStore = st
	} else {
		if cfg.WorkflowManagerURL == "" {
			return nil, errors.New("no draft store: set --draft-db or workflow_manager_url")
		}
		draftStore = workflowmanager.NewClient(
			restclient.DefaultConfig(cfg.WorkflowManagerURL).
				WithToken(cfg.WorkflowManagerToken).
				WithTimeout(cfg.HTTPTimeout),
			logger,
		)
	}

	executions := icav2.NewClient(
		restclient.DefaultConfig(cfg.ICAv2BaseURL).
			WithToken(cfg.ICAv2AccessToken).
			WithTimeout(cfg.HTTPTimeout),
		logger,
	)

	var schemas schemaregistry.Source
	if cfg.SchemaFile == "" && cfg.SSMRegistryName == "" {
		logger.Warn("no schema source configured; validateDraftPayload will fail")
		schemas = noSchema{}
	} else {
		src, err := schemaregistry.New(ctx, cfg, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		schemas = src
	}

	a.registry = handlers.New(handlers.Deps{
		Config:     cfg,
		Store:      draftStore,
		Schemas:    schemas,
		Executions: executions,
		Logger:     logger,
	})
	return a, nil
}

type noSchema struct{}

func (noSchema) Schema(context.Context) (string, error) {
	return "", model.NewUnavailableError("load schema", errors.New("no schema source configured"))
}

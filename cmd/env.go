package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/roofclaim/internal/filestore"
	"github.com/sells-group/roofclaim/internal/ocr"
	"github.com/sells-group/roofclaim/internal/oracle"
	"github.com/sells-group/roofclaim/internal/pipeline"
	"github.com/sells-group/roofclaim/internal/store"
	anthropicpkg "github.com/sells-group/roofclaim/pkg/anthropic"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "roofclaim.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initOracle builds the OCR extractor and the Claude oracle.
func initOracle() (ocr.Extractor, oracle.Oracle, error) {
	extractor, err := ocr.NewExtractor(cfg.OCR)
	if err != nil {
		return nil, nil, eris.Wrap(err, "init ocr")
	}
	client := anthropicpkg.NewClient(cfg.Anthropic.Key)
	return extractor, oracle.FromConfig(client, cfg), nil
}

// pipelineEnv holds the store and pipeline used by serve and tasks.
type pipelineEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline opens and migrates the store, then wires the pipeline.
// Callers should defer env.Close().
func initPipeline(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	files, err := filestore.New(cfg.Files.Dir, int64(cfg.Files.MaxUploadMB)<<20)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	extractor, orc, err := initOracle()
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	opts, err := pipeline.OptionsFromConfig(cfg)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	zap.L().Info("pipeline ready",
		zap.String("store", cfg.Store.Driver),
		zap.String("ocr", cfg.OCR.Provider),
		zap.String("model", cfg.Anthropic.Model),
	)

	return &pipelineEnv{
		Store:    st,
		Pipeline: pipeline.New(st, files, extractor, orc, opts),
	}, nil
}

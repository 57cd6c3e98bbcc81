// Package cli implements the healthrag CLI commands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kweiss/healthrag/internal/chunker"
	"github.com/kweiss/healthrag/internal/config"
	"github.com/kweiss/healthrag/internal/embedding"
	"github.com/kweiss/healthrag/internal/knowledge"
	"github.com/kweiss/healthrag/internal/memory"
	"github.com/kweiss/healthrag/internal/relevance"
)

var (
	configPath string
	dataDir    string
	verbose    bool
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "healthrag",
	Short: "Personal health knowledge retrieval and conversation memory",
	Long:  "A knowledge retrieval and conversational memory engine. Ingest documents, search with blended relevance, and track per-user conversation memory. SQLite-backed, single binary.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	RootCmd.PersistentFlags().StringVarP(&dataDir, "data-dir", "d", "", "Data directory (default: $HEALTHRAG_DATA_DIR or .healthrag)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Development logging")
}

func loadConfig() config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		exitErr("load config", err)
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if verbose {
		cfg.LogMode = "development"
	}
	return cfg
}

func newLogger(cfg config.Config) *zap.Logger {
	var (
		log *zap.Logger
		err error
	)
	if cfg.LogMode == "development" {
		log, err = zap.NewDevelopment()
	} else {
		log, err = zap.NewProduction()
	}
	if err != nil {
		exitErr("build logger", err)
	}
	return log
}

func openIndex(cfg config.Config, log *zap.Logger) *knowledge.Index {
	provider := embedding.NewFromSettings(
		cfg.Embedding.Provider,
		cfg.Embedding.BaseURL,
		cfg.Embedding.APIKey,
		cfg.Embedding.Model,
		cfg.Embedding.Dims,
		log,
	)
	scorer := relevance.NewScorer(relevance.Weights{
		Semantic: cfg.Scoring.SemanticWeight,
		Keyword:  cfg.Scoring.KeywordWeight,
		Category: cfg.Scoring.CategoryWeight,
	}, cfg.Scoring.Threshold)
	chunking := chunker.Options{
		ChunkSize:    cfg.Chunking.ChunkSize,
		ChunkOverlap: cfg.Chunking.ChunkOverlap,
		MaxChunks:    cfg.Chunking.MaxChunks,
	}

	idx, err := knowledge.NewIndex(cfg.KnowledgePath(), provider, scorer, chunking, log)
	if err != nil {
		exitErr("open knowledge index", err)
	}
	return idx
}

func openMemory(cfg config.Config, log *zap.Logger) *memory.Store {
	mem, err := memory.NewStore(cfg.MemoryPath(), memory.Options{
		RetentionDays:     cfg.Memory.RetentionDays,
		ContextWindow:     cfg.Memory.ContextWindow,
		FlowWindow:        cfg.Memory.FlowWindow,
		LongTermThreshold: cfg.Memory.LongTermThreshold,
	}, log)
	if err != nil {
		exitErr("open memory store", err)
	}
	return mem
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}

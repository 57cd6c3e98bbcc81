// Package config loads the engine configuration from an optional YAML file,
// applying defaults and environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// EnvDataDir overrides the configured data directory when set.
const EnvDataDir = "HEALTHRAG_DATA_DIR"

// Config is the full engine configuration.
type Config struct {
	DataDir   string          `yaml:"data_dir"`
	LogMode   string          `yaml:"log_mode"` // "production" or "development"
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Memory    MemoryConfig    `yaml:"memory"`
}

// ChunkingConfig bounds document splitting.
type ChunkingConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	MaxChunks    int `yaml:"max_chunks_per_document"`
}

// EmbeddingConfig selects the embedding backend. An empty provider means
// the deterministic fallback only.
type EmbeddingConfig struct {
	Provider string `yaml:"provider"` // "", "ollama", or "openai"
	BaseURL  string `yaml:"base_url"`
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	Dims     int    `yaml:"dims"`
}

// ScoringConfig holds the relevance blend weights and threshold.
type ScoringConfig struct {
	SemanticWeight float64 `yaml:"semantic_weight"`
	KeywordWeight  float64 `yaml:"keyword_weight"`
	CategoryWeight float64 `yaml:"category_weight"`
	Threshold      float64 `yaml:"relevance_threshold"`
}

// MemoryConfig holds the memory lifecycle settings.
type MemoryConfig struct {
	RetentionDays     int     `yaml:"retention_days"`
	ContextWindow     int     `yaml:"context_window"`
	FlowWindow        int     `yaml:"flow_window"`
	LongTermThreshold float64 `yaml:"long_term_threshold"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		DataDir: ".healthrag",
		LogMode: "production",
		Chunking: ChunkingConfig{
			ChunkSize:    512,
			ChunkOverlap: 50,
			MaxChunks:    10,
		},
		Embedding: EmbeddingConfig{
			Dims: 384,
		},
		Scoring: ScoringConfig{
			SemanticWeight: 0.7,
			KeywordWeight:  0.2,
			CategoryWeight: 0.1,
			Threshold:      0.6,
		},
		Memory: MemoryConfig{
			RetentionDays:     30,
			ContextWindow:     10,
			FlowWindow:        20,
			LongTermThreshold: 0.7,
		},
	}
}

// Load reads the YAML file at path over the defaults. A missing file is not
// an error; an empty path skips the file entirely. HEALTHRAG_DATA_DIR
// overrides the data directory last.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if dir := os.Getenv(EnvDataDir); dir != "" {
		cfg.DataDir = dir
	}
	return cfg, nil
}

// KnowledgePath returns the knowledge database location under the data dir.
func (c Config) KnowledgePath() string {
	return filepath.Join(c.DataDir, "knowledge.db")
}

// MemoryPath returns the memory database location under the data dir.
func (c Config) MemoryPath() string {
	return filepath.Join(c.DataDir, "memory.db")
}

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/revisify/backend/internal/logger"
	"github.com/revisify/backend/internal/utils"
)

// Config aggregates engine tunables. Values come from the environment; an
// optional YAML file pointed at by REVISIFY_CONFIG fills in anything the
// environment leaves unset (environment wins).
type Config struct {
	// Learning thresholds
	PassThreshold   float64 `yaml:"pass_threshold"`
	MaxHintsPerStep int     `yaml:"max_hints_per_step"`
	MCQCountMin     int     `yaml:"mcq_count_min"`
	MCQCountMax     int     `yaml:"mcq_count_max"`

	// Hint policy
	MaxHintChars     int  `yaml:"max_hint_chars"`
	MaxCodeChars     int  `yaml:"max_code_chars"`
	AllowCodeInHints bool `yaml:"allow_code_in_hints"`
	ExamMode         bool `yaml:"exam_mode"`

	// Chunking + embeddings
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	EmbeddingDim int `yaml:"embedding_dim"`

	// Retrieval
	RAGTopK    int    `yaml:"rag_top_k"`
	IndexDir   string `yaml:"index_dir"`
	LLMContext int    `yaml:"llm_context_chars"`

	// Providers
	LLMProvider string `yaml:"llm_provider"`
	LLMModel    string `yaml:"llm_model"`
	EmbedModel  string `yaml:"embed_model"`
}

func Load(log *logger.Logger) (*Config, error) {
	cfg := &Config{
		PassThreshold:   utils.GetEnvAsFloat("MCQ_THRESHOLD_SCORE", 0.5, log),
		MaxHintsPerStep: utils.GetEnvAsInt("MAX_HINTS_PER_STEP", 3, log),
		MCQCountMin:     utils.GetEnvAsInt("MCQ_COUNT_MIN", 5, log),
		MCQCountMax:     utils.GetEnvAsInt("MCQ_COUNT_MAX", 10, log),

		MaxHintChars:     utils.GetEnvAsInt("MAX_HINT_CHARS", 900, log),
		MaxCodeChars:     utils.GetEnvAsInt("MAX_CODE_CHARS", 350, log),
		AllowCodeInHints: utils.GetEnvAsBool("ALLOW_CODE_IN_HINTS", true, log),
		ExamMode:         utils.GetEnvAsBool("EXAM_MODE", false, log),

		ChunkSize:    utils.GetEnvAsInt("CHUNK_SIZE", 1000, log),
		ChunkOverlap: utils.GetEnvAsInt("CHUNK_OVERLAP", 200, log),
		EmbeddingDim: utils.GetEnvAsInt("EMBEDDING_DIMENSION", 384, log),

		RAGTopK:    utils.GetEnvAsInt("RAG_TOP_K", 5, log),
		IndexDir:   utils.GetEnv("INDEX_DIR", "storage/indices", log),
		LLMContext: utils.GetEnvAsInt("LLM_CONTEXT_CHARS", 8000, log),

		LLMProvider: utils.GetEnv("LLM_PROVIDER", "openai", log),
		LLMModel:    utils.GetEnv("LLM_MODEL", "", log),
		EmbedModel:  utils.GetEnv("EMBEDDING_MODEL", "text-embedding-3-small", log),
	}

	if path := os.Getenv("REVISIFY_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
		if log != nil {
			log.Info("Applied config file overlay", "path", path)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFile fills fields from the YAML file only where the environment did not
// set an explicit value.
func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var file Config
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return err
	}
	envSet := func(key string) bool {
		_, ok := os.LookupEnv(key)
		return ok
	}
	if !envSet("MCQ_THRESHOLD_SCORE") && file.PassThreshold != 0 {
		c.PassThreshold = file.PassThreshold
	}
	if !envSet("MAX_HINTS_PER_STEP") && file.MaxHintsPerStep != 0 {
		c.MaxHintsPerStep = file.MaxHintsPerStep
	}
	if !envSet("MCQ_COUNT_MIN") && file.MCQCountMin != 0 {
		c.MCQCountMin = file.MCQCountMin
	}
	if !envSet("MCQ_COUNT_MAX") && file.MCQCountMax != 0 {
		c.MCQCountMax = file.MCQCountMax
	}
	if !envSet("MAX_HINT_CHARS") && file.MaxHintChars != 0 {
		c.MaxHintChars = file.MaxHintChars
	}
	if !envSet("MAX_CODE_CHARS") && file.MaxCodeChars != 0 {
		c.MaxCodeChars = file.MaxCodeChars
	}
	if !envSet("CHUNK_SIZE") && file.ChunkSize != 0 {
		c.ChunkSize = file.ChunkSize
	}
	if !envSet("CHUNK_OVERLAP") && file.ChunkOverlap != 0 {
		c.ChunkOverlap = file.ChunkOverlap
	}
	if !envSet("EMBEDDING_DIMENSION") && file.EmbeddingDim != 0 {
		c.EmbeddingDim = file.EmbeddingDim
	}
	if !envSet("RAG_TOP_K") && file.RAGTopK != 0 {
		c.RAGTopK = file.RAGTopK
	}
	if !envSet("INDEX_DIR") && file.IndexDir != "" {
		c.IndexDir = file.IndexDir
	}
	if !envSet("LLM_CONTEXT_CHARS") && file.LLMContext != 0 {
		c.LLMContext = file.LLMContext
	}
	if !envSet("LLM_PROVIDER") && file.LLMProvider != "" {
		c.LLMProvider = file.LLMProvider
	}
	if !envSet("LLM_MODEL") && file.LLMModel != "" {
		c.LLMModel = file.LLMModel
	}
	if !envSet("EMBEDDING_MODEL") && file.EmbedModel != "" {
		c.EmbedModel = file.EmbedModel
	}
	return nil
}

func (c *Config) validate() error {
	if c.PassThreshold < 0 || c.PassThreshold > 1 {
		return fmt.Errorf("config: pass threshold %v outside [0,1]", c.PassThreshold)
	}
	if c.MaxHintsPerStep < 1 {
		return fmt.Errorf("config: max hints per step must be >= 1, got %d", c.MaxHintsPerStep)
	}
	if c.MCQCountMin > c.MCQCountMax {
		return fmt.Errorf("config: mcq count min %d > max %d", c.MCQCountMin, c.MCQCountMax)
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("config: chunk overlap %d >= chunk size %d", c.ChunkOverlap, c.ChunkSize)
	}
	if c.EmbeddingDim < 1 {
		return fmt.Errorf("config: embedding dim must be >= 1, got %d", c.EmbeddingDim)
	}
	return nil
}

// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads process configuration from a TOML or YAML file,
// a .env file and environment variables, in that order of precedence
// (environment wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/poiesic/docent/ai"
	"gopkg.in/yaml.v3"
)

var (
	// ErrUnsupportedFormat is returned for config files that are neither TOML nor YAML.
	ErrUnsupportedFormat = errors.New("unsupported config file format")

	// ErrInvalidConfig is returned when validation fails.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Config is the process configuration.
type Config struct {
	Server    ServerConfig    `toml:"server" yaml:"server"`
	Storage   StorageConfig   `toml:"storage" yaml:"storage"`
	Ingestion IngestionConfig `toml:"ingestion" yaml:"ingestion"`
	Retrieval RetrievalConfig `toml:"retrieval" yaml:"retrieval"`
	AI        AIConfig        `toml:"ai" yaml:"ai"`
}

// ServerConfig configures the HTTP layer.
type ServerConfig struct {
	Addr        string  `toml:"addr" yaml:"addr" validate:"required"`
	Institution string  `toml:"institution" yaml:"institution" validate:"required"`
	GinMode     string  `toml:"gin_mode" yaml:"gin_mode" validate:"oneof=debug release test"`
	RateLimit   float64 `toml:"rate_limit" yaml:"rate_limit" validate:"gte=0"` // chat requests per second per session, 0 disables
	RateBurst   int     `toml:"rate_burst" yaml:"rate_burst" validate:"gte=1"`
	MaxUpload   int64   `toml:"max_upload" yaml:"max_upload" validate:"gte=1"` // bytes
}

// StorageConfig locates on-disk state.
type StorageConfig struct {
	PersistDir string `toml:"persist_dir" yaml:"persist_dir" validate:"required"`
	ScratchDir string `toml:"scratch_dir" yaml:"scratch_dir"` // empty means the OS temp dir
}

// IngestionConfig sizes chunking and indexing.
type IngestionConfig struct {
	ChunkSize    int `toml:"chunk_size" yaml:"chunk_size" validate:"gte=1"`
	ChunkOverlap int `toml:"chunk_overlap" yaml:"chunk_overlap" validate:"gte=0,ltfield=ChunkSize"`
	BatchSize    int `toml:"batch_size" yaml:"batch_size" validate:"gte=0"` // 0 sizes batches adaptively
	Workers      int `toml:"workers" yaml:"workers" validate:"gte=1"`
	Jobs         int `toml:"jobs" yaml:"jobs" validate:"gte=1"`
}

// RetrievalConfig tunes question answering.
type RetrievalConfig struct {
	DefaultK int `toml:"default_k" yaml:"default_k" validate:"gte=1"`
	MaxTurns int `toml:"max_turns" yaml:"max_turns" validate:"gte=2"`
}

// AIConfig selects the model endpoints.
type AIConfig struct {
	EmbeddingHost   string  `toml:"embedding_host" yaml:"embedding_host" validate:"required,url"`
	GenerationHost  string  `toml:"generation_host" yaml:"generation_host" validate:"required,url"`
	SpeechHost      string  `toml:"speech_host" yaml:"speech_host" validate:"omitempty,url"`
	APIKey          string  `toml:"api_key" yaml:"api_key"`
	EmbeddingModel  string  `toml:"embedding_model" yaml:"embedding_model" validate:"required"`
	GenerationModel string  `toml:"generation_model" yaml:"generation_model" validate:"required"`
	Temperature     float64 `toml:"temperature" yaml:"temperature" validate:"gte=0,lte=2"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	aiDefaults := ai.DefaultConfig()
	return &Config{
		Server: ServerConfig{
			Addr:        ":8000",
			Institution: "the college",
			GinMode:     "release",
			RateLimit:   2,
			RateBurst:   5,
			MaxUpload:   50 << 20,
		},
		Storage: StorageConfig{
			PersistDir: "./vector_store",
		},
		Ingestion: IngestionConfig{
			ChunkSize:    800,
			ChunkOverlap: 100,
			Workers:      4,
			Jobs:         2,
		},
		Retrieval: RetrievalConfig{
			DefaultK: 5,
			MaxTurns: 20,
		},
		AI: AIConfig{
			EmbeddingHost:   aiDefaults.EmbeddingHost,
			GenerationHost:  aiDefaults.GenerationHost,
			EmbeddingModel:  aiDefaults.EmbeddingModel,
			GenerationModel: aiDefaults.GenerationModel,
			Temperature:     aiDefaults.Temperature,
		},
	}
}

// Load builds the configuration. path may be empty; otherwise its extension
// picks the decoder. A .env file in the working directory, if present, is
// loaded into the environment before overrides are applied.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := decodeFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	overrideByEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return fmt.Errorf("decode config file failed: %w", err)
		}
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("decode config file failed: %w", err)
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	return nil
}

// Environment names are checked in order; the first one set wins.
func overrideByEnv(cfg *Config) {
	cfg.Server.Addr = getEnv(cfg.Server.Addr, "DOCENT_ADDR")
	cfg.Server.Institution = getEnv(cfg.Server.Institution, "DOCENT_INSTITUTION")
	cfg.Server.GinMode = getEnv(cfg.Server.GinMode, "DOCENT_GIN_MODE", "GIN_MODE")
	cfg.Server.RateLimit = getEnvAsFloat(cfg.Server.RateLimit, "DOCENT_RATE_LIMIT")
	cfg.Server.RateBurst = getEnvAsInt(cfg.Server.RateBurst, "DOCENT_RATE_BURST")

	cfg.Storage.PersistDir = getEnv(cfg.Storage.PersistDir, "DOCENT_PERSIST_DIR", "PERSIST_DIR")
	cfg.Storage.ScratchDir = getEnv(cfg.Storage.ScratchDir, "DOCENT_SCRATCH_DIR", "TEMP_MD_DIR")

	cfg.Ingestion.ChunkSize = getEnvAsInt(cfg.Ingestion.ChunkSize, "DOCENT_CHUNK_SIZE", "CHUNK_SIZE")
	cfg.Ingestion.ChunkOverlap = getEnvAsInt(cfg.Ingestion.ChunkOverlap, "DOCENT_CHUNK_OVERLAP", "CHUNK_OVERLAP")
	cfg.Ingestion.BatchSize = getEnvAsInt(cfg.Ingestion.BatchSize, "DOCENT_BATCH_SIZE", "BATCH_SIZE")
	cfg.Ingestion.Workers = getEnvAsInt(cfg.Ingestion.Workers, "DOCENT_WORKERS")

	cfg.Retrieval.DefaultK = getEnvAsInt(cfg.Retrieval.DefaultK, "DOCENT_DEFAULT_K", "DEFAULT_K")
	cfg.Retrieval.MaxTurns = getEnvAsInt(cfg.Retrieval.MaxTurns, "DOCENT_MAX_TURNS")

	cfg.AI.EmbeddingHost = getEnv(cfg.AI.EmbeddingHost, "DOCENT_EMBEDDING_HOST")
	cfg.AI.GenerationHost = getEnv(cfg.AI.GenerationHost, "DOCENT_GENERATION_HOST")
	cfg.AI.SpeechHost = getEnv(cfg.AI.SpeechHost, "DOCENT_SPEECH_HOST")
	cfg.AI.APIKey = getEnv(cfg.AI.APIKey, "DOCENT_API_KEY", "OPENAI_API_KEY")
	cfg.AI.EmbeddingModel = getEnv(cfg.AI.EmbeddingModel, "DOCENT_EMBEDDING_MODEL")
	cfg.AI.GenerationModel = getEnv(cfg.AI.GenerationModel, "DOCENT_GENERATION_MODEL")
	cfg.AI.Temperature = getEnvAsFloat(cfg.AI.Temperature, "DOCENT_TEMPERATURE")
}

func getEnv(fallback string, keys ...string) string {
	for _, key := range keys {
		if value, ok := os.LookupEnv(key); ok && value != "" {
			return value
		}
	}
	return fallback
}

func getEnvAsInt(fallback int, keys ...string) int {
	raw := getEnv("", keys...)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsFloat(fallback float64, keys ...string) float64 {
	raw := getEnv("", keys...)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

// Validate checks every field against its constraints and reports all
// failures in one error.
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return err
	}
	problems := make([]string, 0, len(errs))
	for _, e := range errs {
		problems = append(problems, fmt.Sprintf("%s failed on '%s' tag", e.Namespace(), e.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
}

// AIConfig converts the model settings to an ai.Config.
func (c *Config) AIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithEmbeddingHost(c.AI.EmbeddingHost),
		ai.WithGenerationHost(c.AI.GenerationHost),
		ai.WithSpeechHost(c.AI.SpeechHost),
		ai.WithAPIKey(c.AI.APIKey),
		ai.WithEmbeddingModel(c.AI.EmbeddingModel),
		ai.WithGenerationModel(c.AI.GenerationModel),
		ai.WithTemperature(c.AI.Temperature),
	)
}

package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config はアプリケーション全体の設定を保持します
type Config struct {
	// Database設定
	Database DatabaseConfig

	// OpenAI設定（Embeddings + LLM）
	OpenAI OpenAIConfig

	// ベクトルストア設定
	Store StoreConfig

	// 埋め込みプロファイル設定
	Embeddings EmbeddingsConfig

	// 検索パイプライン設定
	Engine EngineConfig

	// フォルダ監視設定
	Watch WatchConfig

	// Git設定
	Git GitConfig
}

// DatabaseConfig はデータベース接続設定
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// OpenAIConfig はOpenAI API設定
type OpenAIConfig struct {
	APIKey             string
	EmbeddingModel     string
	EmbeddingDimension int
	LLMModel           string
}

// StoreConfig はベクトルストア設定
type StoreConfig struct {
	// Backend は "memory" または "postgres"
	Backend string
}

// EmbeddingsConfig は埋め込みプロファイル設定
type EmbeddingsConfig struct {
	// ConfigPath はプロファイル定義YAMLのパス
	ConfigPath string
	// Profile は使用するプロファイル名。"auto" でポリシー判断に委ねる
	Profile string
}

// EngineConfig は検索パイプラインの設定
type EngineConfig struct {
	Strategy        string  `yaml:"strategy"`
	Reranker        string  `yaml:"reranker"`
	OutputFormat    string  `yaml:"outputFormat"`
	QueryExpansions int     `yaml:"queryExpansions"`
	MaxContextChars int     `yaml:"maxContextChars"`
	RetrieveK       int     `yaml:"retrieveK"`
	RerankK         int     `yaml:"rerankK"`
	Language        string  `yaml:"language"`
	WindowSize      int     `yaml:"windowSize"`
	Overlap         int     `yaml:"overlap"`
	MaxTokens       int     `yaml:"maxTokens"`
	KoThreshold     float64 `yaml:"koThreshold"`
}

// WatchConfig はフォルダ監視設定
type WatchConfig struct {
	Dir string
}

// GitConfig はGit操作設定
type GitConfig struct {
	CacheDir      string
	DefaultBranch string
}

// Load は環境変数または.envファイルから設定を読み込みます
// RAGKIT_CONFIG で指定されたYAMLがあればEngine設定を上書きします
func Load(envFilePath string) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			// ファイルが存在しない場合はエラーとしない（環境変数のみで動作可能）
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load .env file: %w", err)
			}
		}
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "ragkit"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "ragkit"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		OpenAI: OpenAIConfig{
			APIKey:             getEnv("OPENAI_API_KEY", ""),
			EmbeddingModel:     getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			EmbeddingDimension: getEnvAsInt("OPENAI_EMBEDDING_DIMENSION", 1536),
			LLMModel:           getEnv("OPENAI_LLM_MODEL", "gpt-4o-mini"),
		},
		Store: StoreConfig{
			Backend: getEnv("RAGKIT_STORE", "memory"),
		},
		Embeddings: EmbeddingsConfig{
			ConfigPath: getEnv("RAGKIT_EMBEDDINGS_CONFIG", "embeddings.yaml"),
			Profile:    getEnv("RAGKIT_EMBEDDING_PROFILE", "auto"),
		},
		Engine: EngineConfig{
			Strategy:        getEnv("RAGKIT_STRATEGY", "adaptive"),
			Reranker:        getEnv("RAGKIT_RERANKER", "identity"),
			OutputFormat:    getEnv("RAGKIT_OUTPUT_FORMAT", "markdown-qa"),
			QueryExpansions: getEnvAsInt("RAGKIT_QUERY_EXPANSIONS", 0),
			MaxContextChars: getEnvAsInt("RAGKIT_MAX_CONTEXT_CHARS", 12000),
			RetrieveK:       getEnvAsInt("RAGKIT_RETRIEVE_K", 20),
			RerankK:         getEnvAsInt("RAGKIT_RERANK_K", 5),
			Language:        getEnv("RAGKIT_LANGUAGE", "ko"),
			WindowSize:      getEnvAsInt("RAGKIT_WINDOW_SIZE", 1200),
			Overlap:         getEnvAsInt("RAGKIT_OVERLAP", 200),
			MaxTokens:       getEnvAsInt("RAGKIT_MAX_TOKENS", 512),
			KoThreshold:     getEnvAsFloat("RAGKIT_KO_THRESHOLD", 0.30),
		},
		Watch: WatchConfig{
			Dir: getEnv("RAGKIT_WATCH_DIR", ""),
		},
		Git: GitConfig{
			CacheDir:      getEnv("RAGKIT_GIT_CACHE_DIR", ""),
			DefaultBranch: getEnv("RAGKIT_GIT_DEFAULT_BRANCH", ""),
		},
	}

	if path := getEnv("RAGKIT_CONFIG", ""); path != "" {
		if err := cfg.applyEngineFile(path); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// applyEngineFile はYAMLファイルのengineセクションで設定を上書きします
func (c *Config) applyEngineFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var file struct {
		Engine EngineConfig `yaml:"engine"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	overrideString(&c.Engine.Strategy, file.Engine.Strategy)
	overrideString(&c.Engine.Reranker, file.Engine.Reranker)
	overrideString(&c.Engine.OutputFormat, file.Engine.OutputFormat)
	overrideString(&c.Engine.Language, file.Engine.Language)
	overrideInt(&c.Engine.QueryExpansions, file.Engine.QueryExpansions)
	overrideInt(&c.Engine.MaxContextChars, file.Engine.MaxContextChars)
	overrideInt(&c.Engine.RetrieveK, file.Engine.RetrieveK)
	overrideInt(&c.Engine.RerankK, file.Engine.RerankK)
	overrideInt(&c.Engine.WindowSize, file.Engine.WindowSize)
	overrideInt(&c.Engine.Overlap, file.Engine.Overlap)
	overrideInt(&c.Engine.MaxTokens, file.Engine.MaxTokens)
	if file.Engine.KoThreshold > 0 {
		c.Engine.KoThreshold = file.Engine.KoThreshold
	}
	return nil
}

func overrideString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func overrideInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt は環境変数を整数として取得します
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat は環境変数を浮動小数点数として取得します
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

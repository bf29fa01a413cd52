package container

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jinford/ragkit/internal/core/chunking"
	"github.com/jinford/ragkit/internal/core/embedding"
	"github.com/jinford/ragkit/internal/core/ingest"
	"github.com/jinford/ragkit/internal/core/parse"
	"github.com/jinford/ragkit/internal/core/pipeline"
	"github.com/jinford/ragkit/internal/core/rag"
	"github.com/jinford/ragkit/internal/core/rerank"
	"github.com/jinford/ragkit/internal/core/retrieve"
	"github.com/jinford/ragkit/internal/core/store"
	"github.com/jinford/ragkit/internal/infra/openai"
	"github.com/jinford/ragkit/internal/infra/postgres"
	"github.com/jinford/ragkit/pkg/config"
	"github.com/jinford/ragkit/pkg/db"
)

// Container はアプリケーション全体の依存関係を保持する
type Container struct {
	Config     *config.Config
	Embeddings *embedding.Manager
	Registry   *chunking.Registry
	Tokens     *chunking.TokenCounter
	Store      store.VectorStore
	Policy     *rag.Policy
	Reranker   rerank.Reranker
	Retriever  *retrieve.VectorRetriever
	Ingester   *ingest.Ingester
	Parser     *parse.Parser

	// Signature は現在の埋め込みプロファイルのシグネチャ
	Signature string

	generator pipeline.Generator
	logger    *slog.Logger
	database  *db.DB
	opts      []Option
}

type containerOptions struct {
	logger    *slog.Logger
	factory   embedding.Factory
	generator pipeline.Generator
	store     store.VectorStore
}

// Option は Container 構築時のオプション
type Option func(*containerOptions)

// WithLogger はロガーを差し替える
func WithLogger(logger *slog.Logger) Option {
	return func(o *containerOptions) {
		o.logger = logger
	}
}

// WithEmbedderFactory は埋め込みファクトリを差し替える
func WithEmbedderFactory(factory embedding.Factory) Option {
	return func(o *containerOptions) {
		o.factory = factory
	}
}

// WithGenerator はLLMクライアントを差し替える
func WithGenerator(generator pipeline.Generator) Option {
	return func(o *containerOptions) {
		o.generator = generator
	}
}

// WithStore はベクトルストアを差し替える
func WithStore(s store.VectorStore) Option {
	return func(o *containerOptions) {
		o.store = s
	}
}

// New は設定から Container を構築する
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Container, error) {
	options := containerOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}
	logger := options.logger

	// 埋め込みプロファイル
	factory := options.factory
	if factory == nil {
		factory = openai.EmbedderFactory(cfg.OpenAI.APIKey)
	}
	manager := embedding.ManagerFromYAML(cfg.Embeddings.ConfigPath, factory, logger)
	embedder, signature := manager.Resolve(cfg.Embeddings.Profile, nil)
	namespace := manager.NamespaceFor(signature)

	c := &Container{
		Config:     cfg,
		Embeddings: manager,
		Signature:  signature,
		Policy:     rag.DefaultPolicy(),
		logger:     logger,
		opts:       opts,
	}

	// ベクトルストア
	vectorStore := options.store
	if vectorStore == nil {
		var err error
		vectorStore, err = c.buildStore(ctx, cfg, embedder.Dimension())
		if err != nil {
			return nil, err
		}
	}
	if switcher, ok := vectorStore.(store.NamespaceSwitcher); ok {
		if err := switcher.SwitchNamespace(ctx, namespace); err != nil {
			return nil, fmt.Errorf("名前空間の切り替えに失敗しました: %w", err)
		}
	}
	c.Store = vectorStore

	// チャンク分割
	registry := chunking.NewRegistry()
	if err := registry.SetStrategy(cfg.Engine.Strategy); err != nil {
		return nil, err
	}
	registry.SetParams(chunkParams(cfg.Engine))
	c.Registry = registry

	tokens, err := chunking.NewTokenCounter()
	if err != nil {
		return nil, fmt.Errorf("トークンカウンタの初期化に失敗しました: %w", err)
	}
	c.Tokens = tokens

	// 検索ポリシー
	c.Policy.SetMaxContextChars(cfg.Engine.MaxContextChars)
	c.Policy.SetRetrieveK(cfg.Engine.RetrieveK)
	c.Policy.SetRerankK(cfg.Engine.RerankK)

	// LLMクライアント。APIキー未設定時は生成系コマンドのみ使用不可とする
	generator := options.generator
	if generator == nil && cfg.OpenAI.APIKey != "" {
		client, err := openai.NewClientWithAPIKey(cfg.OpenAI.APIKey, cfg.OpenAI.LLMModel)
		if err != nil {
			return nil, fmt.Errorf("OpenAIクライアントの初期化に失敗しました: %w", err)
		}
		generator = client
	}
	c.generator = generator

	// リランカー
	rerankOpts := []rerank.FactoryOption{rerank.WithLogger(logger)}
	if client, ok := generator.(*openai.Client); ok {
		rerankOpts = append(rerankOpts, rerank.WithPairScorer(openai.NewPairScorer(client)))
	}
	reranker, err := rerank.New(cfg.Engine.Reranker, rerankOpts...)
	if err != nil {
		return nil, err
	}
	c.Reranker = reranker

	// 検索・取り込み・出力解析
	c.Retriever = retrieve.NewVectorRetriever(vectorStore, embedder)
	c.Ingester = ingest.NewIngester(registry, embedder, vectorStore, ingest.WithIngestLogger(logger))
	c.Parser = parse.NewBuilder().Format(cfg.Engine.OutputFormat).Build()

	logger.Info("コンテナを初期化しました",
		"store", cfg.Store.Backend,
		"strategy", cfg.Engine.Strategy,
		"reranker", cfg.Engine.Reranker,
		"profile", cfg.Embeddings.Profile,
		"namespace", namespace,
	)
	return c, nil
}

// buildStore は設定に応じたベクトルストアを構築する
func (c *Container) buildStore(ctx context.Context, cfg *config.Config, dimension int) (store.VectorStore, error) {
	switch cfg.Store.Backend {
	case "memory", "":
		return store.NewMemory(), nil
	case "postgres":
		database, err := db.New(ctx, db.ConnectionParams{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		})
		if err != nil {
			return nil, fmt.Errorf("データベース初期化に失敗しました: %w", err)
		}
		c.database = database

		pgStore, err := postgres.NewStore(database, dimension)
		if err != nil {
			return nil, err
		}
		if err := pgStore.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return pgStore, nil
	default:
		return nil, rag.ConfigErrorf("未知のストアバックエンドです: %s", cfg.Store.Backend)
	}
}

// chunkParams はEngine設定からチャンク分割パラメータを組み立てる
func chunkParams(engine config.EngineConfig) chunking.Params {
	params := chunking.DefaultParams()
	if engine.Language != "" {
		params.Language = engine.Language
	}
	if engine.WindowSize > 0 {
		params.WindowSize = engine.WindowSize
	}
	if engine.Overlap > 0 {
		params.Overlap = engine.Overlap
	}
	if engine.MaxTokens > 0 {
		params.MaxTokens = engine.MaxTokens
	}
	return params
}

// AskPipeline は質問応答パイプラインを構築する
// LLMクライアントが未設定の場合はエラーを返す
func (c *Container) AskPipeline() (*pipeline.Pipeline, error) {
	if c.generator == nil {
		return nil, openai.ErrAPIKeyNotSet
	}

	return pipeline.NewBuilder().
		Add(pipeline.NewQueryExpansionStep(c.Config.Engine.QueryExpansions)).
		Add(pipeline.NewRetrieveStep(c.Retriever, c.Policy)).
		Add(pipeline.NewRerankStep(c.Reranker, c.Policy.RerankK)).
		Add(pipeline.NewContextCompressionStep(c.Policy)).
		Add(pipeline.NewBuildPromptStep(pipeline.DefaultSystemHint)).
		Add(pipeline.NewGenerateStep(c.generator, pipeline.DefaultSystemHint)).
		Add(pipeline.NewParseStep(c.Parser)).
		Build(), nil
}

// Rebuild は新しい設定でコンテナを作り直す
// 既存のコンテナは変更せず、入れ替えと解放は呼び出し側が行う
func (c *Container) Rebuild(ctx context.Context, cfg *config.Config) (*Container, error) {
	return New(ctx, cfg, c.opts...)
}

// Generator はLLMクライアントを返す。未設定の場合はnil
func (c *Container) Generator() pipeline.Generator {
	return c.generator
}

// Logger はロガーを返す
func (c *Container) Logger() *slog.Logger {
	if c == nil || c.logger == nil {
		return slog.Default()
	}
	return c.logger
}

// Close は内部リソースを解放する
func (c *Container) Close() {
	if c != nil && c.database != nil {
		c.database.Close()
	}
}

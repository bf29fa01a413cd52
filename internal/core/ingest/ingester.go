package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jinford/ragkit/internal/core/chunking"
	"github.com/jinford/ragkit/internal/core/embedding"
	"github.com/jinford/ragkit/internal/core/rag"
	"github.com/jinford/ragkit/internal/core/store"
)

const (
	// embedBatchSize は1回の埋め込みリクエストに載せるチャンク数
	embedBatchSize = 16
	// defaultMaxParallel はバッチ処理の並列数の上限
	defaultMaxParallel = 8
)

// Ingester は文書のチャンク分割・埋め込み・格納を行う
type Ingester struct {
	registry    *chunking.Registry
	embedder    embedding.Embedder
	store       store.VectorStore
	maxParallel int
	logger      *slog.Logger
}

type ingesterOptions struct {
	maxParallel int
	logger      *slog.Logger
}

// IngesterOption は Ingester のオプション設定
type IngesterOption func(*ingesterOptions)

// WithMaxParallel は埋め込みバッチの並列数を上書きする
func WithMaxParallel(n int) IngesterOption {
	return func(o *ingesterOptions) {
		o.maxParallel = n
	}
}

// WithIngestLogger はロガーを上書きする
func WithIngestLogger(logger *slog.Logger) IngesterOption {
	return func(o *ingesterOptions) {
		o.logger = logger
	}
}

// NewIngester は新しい Ingester を作成する
func NewIngester(registry *chunking.Registry, embedder embedding.Embedder, s store.VectorStore, opts ...IngesterOption) *Ingester {
	options := ingesterOptions{
		maxParallel: defaultMaxParallel,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}

	return &Ingester{
		registry:    registry,
		embedder:    embedder,
		store:       s,
		maxParallel: max(1, options.maxParallel),
		logger:      options.logger,
	}
}

// Ingest は文書群を取り込み、格納したチャンク数を返す
// 文書が空の場合はエラーを返す
func (i *Ingester) Ingest(ctx context.Context, docs []rag.Document) (int, error) {
	if len(docs) == 0 {
		return 0, rag.ErrNoDocuments
	}

	start := time.Now()

	var chunks []rag.Chunk
	for _, doc := range docs {
		chunks = append(chunks, i.registry.ChunkDocument(doc)...)
	}

	if err := i.embedAndStore(ctx, chunks); err != nil {
		return 0, err
	}

	i.logger.Info("文書の取り込みが完了しました",
		"documents", len(docs),
		"chunks", len(chunks),
		"strategy", i.registry.Current().Name(),
		"duration", time.Since(start),
	)
	return len(chunks), nil
}

// embedAndStore はチャンクをバッチに分けて並列に埋め込み・格納する
func (i *Ingester) embedAndStore(ctx context.Context, chunks []rag.Chunk) error {
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(i.maxParallel)

	for batchStart := 0; batchStart < len(chunks); batchStart += embedBatchSize {
		batch := chunks[batchStart:min(batchStart+embedBatchSize, len(chunks))]
		batchIndex := batchStart / embedBatchSize

		eg.Go(func() error {
			texts := make([]string, len(batch))
			for j, c := range batch {
				texts[j] = c.Text
			}

			vectors, err := i.embedder.BatchEmbed(ctx, texts)
			if err != nil {
				return fmt.Errorf("failed to embed batch %d: %w", batchIndex, err)
			}

			if err := i.store.AddMany(ctx, batch, vectors); err != nil {
				return fmt.Errorf("failed to store batch %d: %w", batchIndex, err)
			}
			return nil
		})
	}

	return eg.Wait()
}

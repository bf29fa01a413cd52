package rerank

import (
	"log/slog"

	"github.com/jinford/ragkit/internal/core/rag"
)

type factoryOptions struct {
	scorer  PairScorer
	weights Weights
	logger  *slog.Logger
}

// FactoryOption は New のオプション設定
type FactoryOption func(*factoryOptions)

// WithPairScorer は cross_encoder 用の PairScorer を設定する
func WithPairScorer(scorer PairScorer) FactoryOption {
	return func(o *factoryOptions) {
		o.scorer = scorer
	}
}

// WithWeights は hybrid 用の重みを設定する
func WithWeights(weights Weights) FactoryOption {
	return func(o *factoryOptions) {
		o.weights = weights
	}
}

// WithLogger はロガーを設定する
func WithLogger(logger *slog.Logger) FactoryOption {
	return func(o *factoryOptions) {
		o.logger = logger
	}
}

// New は種別名からリランカーを作成する
// 未知の種別は設定エラーになる
func New(rerankerType string, opts ...FactoryOption) (Reranker, error) {
	options := factoryOptions{
		weights: DefaultWeights(),
	}
	for _, opt := range opts {
		opt(&options)
	}

	switch rerankerType {
	case "identity", "":
		return NewIdentityReranker(), nil
	case "simple":
		return NewSimpleReranker(), nil
	case "bm25":
		return NewBM25Reranker(), nil
	case "cross_encoder", "cross-encoder":
		return NewCrossEncoderReranker(options.scorer, options.logger), nil
	case "hybrid":
		return NewHybridReranker(options.weights), nil
	default:
		return nil, rag.ConfigErrorf("未知のリランカー種別です: %s", rerankerType)
	}
}

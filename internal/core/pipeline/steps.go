package pipeline

import (
	"context"
	"fmt"
	"sort"

	"github.com/jinford/ragkit/internal/core/rag"
	"github.com/jinford/ragkit/internal/core/rerank"
)

// Retriever はクエリから関連チャンクを取得する
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]rag.Retrieved, error)
}

// Generator はプロンプトから回答テキストを生成する
type Generator interface {
	Generate(ctx context.Context, prompt, system string) (string, error)
}

// OutputParser はLLMの生応答を構造化データへ変換する
type OutputParser interface {
	Parse(raw string) map[string]any
}

// QueryExpansionStep は質問のバリエーションを生成する
type QueryExpansionStep struct {
	expansions int
}

// NewQueryExpansionStep は新しい QueryExpansionStep を作成する
func NewQueryExpansionStep(expansions int) *QueryExpansionStep {
	return &QueryExpansionStep{expansions: max(0, expansions)}
}

// Run は元の質問と展開済みクエリを設定する
func (s *QueryExpansionStep) Run(_ context.Context, rc *rag.RagContext) (*rag.RagContext, error) {
	queries := []string{rc.Question}
	for i := 0; i < s.expansions; i++ {
		queries = append(queries, fmt.Sprintf("%s (alt %d)", rc.Question, i+1))
	}
	return rc.WithExpanded(queries), nil
}

// Name はステップ名を返す
func (s *QueryExpansionStep) Name() string {
	return "query_expansion"
}

// RetrieveStep は展開済みクエリごとに検索し、結果を統合する
type RetrieveStep struct {
	retriever Retriever
	policy    *rag.Policy
}

// NewRetrieveStep は新しい RetrieveStep を作成する
func NewRetrieveStep(retriever Retriever, policy *rag.Policy) *RetrieveStep {
	if policy == nil {
		policy = rag.DefaultPolicy()
	}
	return &RetrieveStep{retriever: retriever, policy: policy}
}

// Run は全クエリの結果を統合し、チャンクID単位で重複を除去する
// 重複するチャンクは最高スコアのものが残る
func (s *RetrieveStep) Run(ctx context.Context, rc *rag.RagContext) (*rag.RagContext, error) {
	k := rc.K
	if k <= 0 {
		k = s.policy.RetrieveK
	}

	var all []rag.Retrieved
	for _, query := range rc.ExpandedQueries {
		items, err := s.retriever.Retrieve(ctx, query, k)
		if err != nil {
			return nil, fmt.Errorf("failed to retrieve for query %q: %w", query, err)
		}
		all = append(all, items...)
	}

	if len(all) == 0 {
		return rc.WithRetrieved(nil), nil
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Score > all[j].Score
	})

	seen := map[string]bool{}
	unique := make([]rag.Retrieved, 0, len(all))
	for _, item := range all {
		if seen[item.Chunk.ID] {
			continue
		}
		seen[item.Chunk.ID] = true
		unique = append(unique, item)
	}
	return rc.WithRetrieved(unique), nil
}

// Name はステップ名を返す
func (s *RetrieveStep) Name() string {
	return "retrieve"
}

// RerankStep は検索結果を並び替えて上位だけ残す
type RerankStep struct {
	reranker rerank.Reranker
	topK     int
}

// NewRerankStep は新しい RerankStep を作成する
func NewRerankStep(reranker rerank.Reranker, topK int) *RerankStep {
	return &RerankStep{reranker: reranker, topK: max(1, topK)}
}

// Run は再ランク後に上位topK件へ切り詰める
func (s *RerankStep) Run(ctx context.Context, rc *rag.RagContext) (*rag.RagContext, error) {
	if len(rc.Retrieved) == 0 {
		return rc.WithReranked(nil), nil
	}

	ranked := s.reranker.Rerank(ctx, rc.Question, rc.Retrieved)
	if len(ranked) > s.topK {
		ranked = ranked[:s.topK]
	}
	return rc.WithReranked(ranked), nil
}

// Name はステップ名を返す
func (s *RerankStep) Name() string {
	return "rerank"
}

// ContextCompressionStep はチャンクを文字数上限に収まるよう連結する
type ContextCompressionStep struct {
	policy *rag.Policy
}

// NewContextCompressionStep は新しい ContextCompressionStep を作成する
func NewContextCompressionStep(policy *rag.Policy) *ContextCompressionStep {
	if policy == nil {
		policy = rag.DefaultPolicy()
	}
	return &ContextCompressionStep{policy: policy}
}

// Run は再ランク済みチャンクを上位から詰め、上限を超える最初のチャンクは
// 残り文字数ちょうどまで切り詰めて打ち切る
// 上限はバイト数ではなく文字数で数える
func (s *ContextCompressionStep) Run(_ context.Context, rc *rag.RagContext) (*rag.RagContext, error) {
	var parts []string
	remain := s.policy.MaxContextChars

	for _, item := range rc.Reranked {
		runes := []rune(item.Chunk.Text)
		if len(runes) <= remain {
			parts = append(parts, item.Chunk.Text)
			remain -= len(runes)
			continue
		}
		if remain > 0 {
			parts = append(parts, string(runes[:remain]))
		}
		break
	}

	compressed := ""
	for i, part := range parts {
		if i > 0 {
			compressed += "\n\n"
		}
		compressed += part
	}
	return rc.WithCompressed(compressed), nil
}

// Name はステップ名を返す
func (s *ContextCompressionStep) Name() string {
	return "context_compression"
}

// GenerateStep はLLMで回答テキストを生成する
type GenerateStep struct {
	generator Generator
	system    string
}

// NewGenerateStep は新しい GenerateStep を作成する
func NewGenerateStep(generator Generator, system string) *GenerateStep {
	return &GenerateStep{generator: generator, system: system}
}

// Run はプロンプトをLLMへ渡し、生応答を設定する
func (s *GenerateStep) Run(ctx context.Context, rc *rag.RagContext) (*rag.RagContext, error) {
	raw, err := s.generator.Generate(ctx, rc.Prompt, s.system)
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}
	return rc.WithRawLLM(raw), nil
}

// Name はステップ名を返す
func (s *GenerateStep) Name() string {
	return "generate"
}

// ParseStep はLLMの生応答を解析して最終回答を作成する
type ParseStep struct {
	parser OutputParser
}

// NewParseStep は新しい ParseStep を作成する
func NewParseStep(parser OutputParser) *ParseStep {
	return &ParseStep{parser: parser}
}

// Run は解析結果から回答を作成する
// answerキーがない場合は生応答をそのまま使い、参照したチャンクIDをメタデータに残す
func (s *ParseStep) Run(_ context.Context, rc *rag.RagContext) (*rag.RagContext, error) {
	parsed := s.parser.Parse(rc.RawLLM)

	text := rc.RawLLM
	if answer, ok := parsed["answer"].(string); ok {
		text = answer
	}

	ctxIDs := make([]string, len(rc.Reranked))
	for i, item := range rc.Reranked {
		ctxIDs[i] = item.Chunk.ID
	}

	answer := rag.Answer{
		Text:     text,
		Metadata: map[string]any{"ctxIds": ctxIDs},
	}
	return rc.WithParsed(answer), nil
}

// Name はステップ名を返す
func (s *ParseStep) Name() string {
	return "parse"
}

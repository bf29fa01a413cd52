package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jinford/ragkit/internal/core/rerank"
)

// PairScorer は LLM にクエリと文書の関連度を採点させる PairScorer 実装
type PairScorer struct {
	client *Client
}

// NewPairScorer は新しい PairScorer を作成する
func NewPairScorer(client *Client) *PairScorer {
	return &PairScorer{client: client}
}

const pairScorerSystem = "You are a relevance scoring engine. Respond only with JSON."

// ScorePairs はクエリと各文書の関連度を0から1のスコアで返す
func (s *PairScorer) ScorePairs(ctx context.Context, query string, texts []string) ([]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Query: %s\n\n", query)
	sb.WriteString("Score the relevance of each document to the query from 0.0 to 1.0.\n")
	sb.WriteString("Respond with JSON: {\"scores\": [s1, s2, ...]} in document order.\n\n")
	for i, text := range texts {
		fmt.Fprintf(&sb, "Document %d:\n%s\n\n", i+1, text)
	}

	raw, err := s.client.Generate(ctx, sb.String(), pairScorerSystem)
	if err != nil {
		return nil, fmt.Errorf("failed to score pairs: %w", err)
	}

	var parsed struct {
		Scores []float64 `json:"scores"`
	}
	if err := json.Unmarshal([]byte(sliceJSON(raw)), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse scores: %w", err)
	}
	if len(parsed.Scores) != len(texts) {
		return nil, fmt.Errorf("score count mismatch: documents=%d scores=%d", len(texts), len(parsed.Scores))
	}
	return parsed.Scores, nil
}

// sliceJSON は応答から最初の { と最後の } の間を切り出す
func sliceJSON(s string) string {
	i := strings.Index(s, "{")
	j := strings.LastIndex(s, "}")
	if i != -1 && j != -1 && j >= i {
		return s[i : j+1]
	}
	return s
}

// インターフェース実装の確認
var _ rerank.PairScorer = (*PairScorer)(nil)

package rerank

import (
	"context"
	"strings"
	"time"

	"github.com/jinford/ragkit/internal/core/rag"
)

// SimpleReranker は新しさとタイトル一致のヒューリスティックで並び替える
type SimpleReranker struct {
	boostRecent     bool
	boostTitleMatch bool
}

// NewSimpleReranker は新しい SimpleReranker を作成する
func NewSimpleReranker() *SimpleReranker {
	return &SimpleReranker{
		boostRecent:     true,
		boostTitleMatch: true,
	}
}

// Rerank はヒューリスティックでスコアを補正し、降順で返す
// 1週間以内の文書は20%、1ヶ月以内は10%、タイトル一致は30%ブーストする
func (r *SimpleReranker) Rerank(_ context.Context, query string, items []rag.Retrieved) []rag.Retrieved {
	if len(items) == 0 {
		return items
	}

	scores := r.scores(query, items)
	boosted := make([]rag.Retrieved, len(items))
	for i, item := range items {
		boosted[i] = item.WithScore(scores[i])
	}
	return sortByScore(boosted)
}

// scores は各アイテムの補正後スコアを入力と同じ順序で返す
func (r *SimpleReranker) scores(query string, items []rag.Retrieved) []float64 {
	queryLower := strings.ToLower(query)

	scores := make([]float64, len(items))
	for i, item := range items {
		score := item.Score
		if score == 0 {
			score = 0.5
		}

		if r.boostRecent {
			if createdAt := item.Chunk.MetaString("created_at"); createdAt != "" {
				if docTime, err := time.Parse(time.RFC3339, createdAt); err == nil {
					age := time.Since(docTime)
					switch {
					case age < 7*24*time.Hour:
						score *= 1.2
					case age < 30*24*time.Hour:
						score *= 1.1
					}
				}
			}
		}

		if r.boostTitleMatch && queryLower != "" {
			title := strings.ToLower(item.Chunk.MetaString("title"))
			if title != "" && strings.Contains(title, queryLower) {
				score *= 1.3
			}
		}

		scores[i] = min(score, 1.0)
	}
	return scores
}

// Name はリランカー名を返す
func (r *SimpleReranker) Name() string {
	return "simple"
}

var _ Reranker = (*SimpleReranker)(nil)

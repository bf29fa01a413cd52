package rerank

import (
	"context"
	"math"
	"strings"

	"github.com/jinford/ragkit/internal/core/rag"
)

// bm25 は外部依存なしの BM25 スコアラー
type bm25 struct {
	k1         float64
	b          float64
	corpusSize int
	avgdl      float64
	corpus     [][]string
	docFreqs   map[string]int
	idf        map[string]float64
}

func newBM25(corpus [][]string, k1, b float64) *bm25 {
	m := &bm25{
		k1:         k1,
		b:          b,
		corpusSize: len(corpus),
		corpus:     corpus,
		docFreqs:   map[string]int{},
		idf:        map[string]float64{},
	}

	total := 0
	for _, doc := range corpus {
		total += len(doc)
		seen := map[string]bool{}
		for _, word := range doc {
			if !seen[word] {
				seen[word] = true
				m.docFreqs[word]++
			}
		}
	}
	if len(corpus) > 0 {
		m.avgdl = float64(total) / float64(len(corpus))
	}

	for word, freq := range m.docFreqs {
		m.idf[word] = math.Log((float64(m.corpusSize)-float64(freq)+0.5)/(float64(freq)+0.5) + 1)
	}
	return m
}

// scores は全文書の BM25 スコアを返す
func (m *bm25) scores(query []string) []float64 {
	out := make([]float64, len(m.corpus))
	for i, doc := range m.corpus {
		out[i] = m.score(query, doc)
	}
	return out
}

func (m *bm25) score(query, doc []string) float64 {
	score := 0.0
	docLen := float64(len(doc))

	for _, word := range query {
		if _, ok := m.docFreqs[word]; !ok {
			continue
		}

		freq := 0.0
		for _, w := range doc {
			if w == word {
				freq++
			}
		}
		score += m.idf[word] * freq * (m.k1 + 1) /
			(freq + m.k1*(1-m.b+m.b*docLen/m.avgdl))
	}
	return score
}

// BM25Reranker はキーワード一致による並び替えを行う
// 埋め込みスコアと BM25 スコアを 6:4 で合成する
type BM25Reranker struct {
	k1 float64
	b  float64
}

// NewBM25Reranker は新しい BM25Reranker を作成する
func NewBM25Reranker() *BM25Reranker {
	return &BM25Reranker{k1: 1.2, b: 0.75}
}

// Rerank は BM25 スコアと既存スコアを合成して降順で返す
// クエリが空の場合は既存スコアのみで並び替える
func (r *BM25Reranker) Rerank(_ context.Context, query string, items []rag.Retrieved) []rag.Retrieved {
	if len(items) == 0 {
		return items
	}

	queryTokens := tokenize(query)
	if len(queryTokens) == 0 {
		return sortByScore(items)
	}

	scores := r.scores(queryTokens, items)
	reranked := make([]rag.Retrieved, len(items))
	for i, item := range items {
		combined := scores[i]
		if item.Score != 0 {
			combined = 0.6*item.Score + 0.4*scores[i]
		}
		reranked[i] = item.WithScore(combined)
	}
	return sortByScore(reranked)
}

// scores は各アイテムの正規化済み BM25 スコアを入力と同じ順序で返す
// バッチ内の最大スコアで 0-1 に正規化する
func (r *BM25Reranker) scores(queryTokens []string, items []rag.Retrieved) []float64 {
	corpus := make([][]string, len(items))
	for i, item := range items {
		corpus[i] = tokenize(item.Chunk.Text)
	}

	raw := newBM25(corpus, r.k1, r.b).scores(queryTokens)

	maxScore := 0.0
	for _, s := range raw {
		if s > maxScore {
			maxScore = s
		}
	}

	normalized := make([]float64, len(raw))
	if maxScore > 0 {
		for i, s := range raw {
			normalized[i] = s / maxScore
		}
	}
	return normalized
}

// tokenize は空白区切りの単純なトークン化を行う
// TODO: 韓国語の形態素解析を入れると精度が上がる
func tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

// Name はリランカー名を返す
func (r *BM25Reranker) Name() string {
	return "bm25"
}

var _ Reranker = (*BM25Reranker)(nil)

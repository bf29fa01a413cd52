package chunking

import (
	"strings"

	"github.com/jinford/ragkit/internal/core/rag"
)

// SlidingWindowChunker は固定幅ウィンドウとオーバーラップでチャンク分割するストラテジ
type SlidingWindowChunker struct{}

// NewSlidingWindowChunker は新しい SlidingWindowChunker を作成する
func NewSlidingWindowChunker() *SlidingWindowChunker {
	return &SlidingWindowChunker{}
}

// Chunk は文書を WindowSize 幅・Overlap 重複のウィンドウで分割する
// ウィンドウが文書の途中で終わる場合、境界を末尾20%以内の文末、
// なければ末尾10%以内の単語境界まで引き戻す
func (c *SlidingWindowChunker) Chunk(doc rag.Document, params Params) []rag.Chunk {
	if doc.Text == "" {
		return nil
	}

	runes := []rune(doc.Text)
	step := params.step()

	var chunks []rag.Chunk
	position := 0
	idx := 0

	for position < len(runes) {
		end := min(position+params.WindowSize, len(runes))
		window := string(runes[position:end])

		if end < len(runes) {
			window = adjustWindowBoundary(window)
		}

		meta := chunkMeta(doc, "sliding_window", idx)
		meta["position"] = position
		if position > 0 {
			meta["overlap"] = params.Overlap
		} else {
			meta["overlap"] = 0
		}

		chunks = append(chunks, rag.Chunk{
			ID:    chunkID(doc.ID, "sw", idx),
			DocID: doc.ID,
			Text:  strings.TrimSpace(window),
			Meta:  meta,
		})

		if end >= len(runes) {
			break
		}
		position += step
		idx++
	}

	return chunks
}

// adjustWindowBoundary は文の途中での切断を避けるためウィンドウ境界を調整する
// 文字数ベースで判定し、マルチバイト文字の途中で切らない
func adjustWindowBoundary(window string) string {
	runes := []rune(window)

	lastBoundary := -1
	lastSpace := -1
	for i, r := range runes {
		switch r {
		case '.', '?', '!', '。', '！', '？':
			lastBoundary = i
		case ' ':
			lastSpace = i
		}
	}

	// 文末がウィンドウ末尾20%以内にあればそこで切る
	if lastBoundary > 0 && float64(lastBoundary) > float64(len(runes))*0.8 {
		return string(runes[:lastBoundary+1])
	}

	// なければ末尾10%以内の単語境界で切る
	if lastSpace > 0 && float64(lastSpace) > float64(len(runes))*0.9 {
		return string(runes[:lastSpace])
	}

	return window
}

// Name はストラテジ名を返す
func (c *SlidingWindowChunker) Name() string {
	return "sliding_window"
}

// Description はストラテジの説明を返す
func (c *SlidingWindowChunker) Description() string {
	return "固定幅ウィンドウをオーバーラップ付きで進める。長い物語調のテキストに適する"
}

var _ Chunker = (*SlidingWindowChunker)(nil)

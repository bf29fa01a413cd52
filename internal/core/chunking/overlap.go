package chunking

import (
	"github.com/jinford/ragkit/internal/core/rag"
)

const (
	// minOverlapSize は simple_overlap のウィンドウ幅の下限
	minOverlapSize = 200
)

// SimpleOverlapChunker は境界調整を行わない固定幅オーバーラップ分割
// 高速なベースラインとして含まれる
type SimpleOverlapChunker struct {
	size    int
	overlap int
}

// NewSimpleOverlapChunker は新しい SimpleOverlapChunker を作成する
func NewSimpleOverlapChunker(size, overlap int) *SimpleOverlapChunker {
	return &SimpleOverlapChunker{
		size:    max(minOverlapSize, size),
		overlap: max(0, overlap),
	}
}

// Chunk は文書を固定幅ウィンドウで機械的に分割する
// params の WindowSize / Overlap が設定されていればそちらを優先する
func (c *SimpleOverlapChunker) Chunk(doc rag.Document, params Params) []rag.Chunk {
	size := c.size
	overlap := c.overlap
	if params.WindowSize > 0 {
		size = max(minOverlapSize, params.WindowSize)
	}
	if params.Overlap > 0 {
		overlap = params.Overlap
	}

	runes := []rune(doc.Text)
	if len(runes) == 0 {
		return nil
	}

	var chunks []rag.Chunk
	start := 0
	idx := 0

	for start < len(runes) {
		end := min(len(runes), start+size)

		chunks = append(chunks, rag.Chunk{
			ID:    chunkID(doc.ID, "", idx),
			DocID: doc.ID,
			Text:  string(runes[start:end]),
			Meta:  chunkMeta(doc, "simple_overlap", idx),
		})

		if end >= len(runes) {
			break
		}
		start = end - overlap
		idx++
	}

	return chunks
}

// Name はストラテジ名を返す
func (c *SimpleOverlapChunker) Name() string {
	return "simple_overlap"
}

// Description はストラテジの説明を返す
func (c *SimpleOverlapChunker) Description() string {
	return "固定幅＋オーバーラップの単純分割。予測可能な結果が必要な場合のベースライン"
}

var _ Chunker = (*SimpleOverlapChunker)(nil)

package chunking

import (
	"strings"

	"github.com/jinford/ragkit/internal/core/rag"
)

// SentenceChunker は文境界でチャンク分割するストラテジ
type SentenceChunker struct{}

// NewSentenceChunker は新しい SentenceChunker を作成する
func NewSentenceChunker() *SentenceChunker {
	return &SentenceChunker{}
}

// Chunk は文書を文単位のチャンクに分割する
// SentenceMinLen 未満の断片は捨てる
func (c *SentenceChunker) Chunk(doc rag.Document, params Params) []rag.Chunk {
	if doc.Text == "" {
		return nil
	}

	sentences := splitSentences(doc.Text, params.Language)

	chunks := make([]rag.Chunk, 0, len(sentences))
	for idx, sentence := range sentences {
		sentence = strings.TrimSpace(sentence)
		if len([]rune(sentence)) < params.SentenceMinLen {
			continue
		}

		meta := chunkMeta(doc, "sentence", idx)
		meta["sentenceLength"] = len([]rune(sentence))

		chunks = append(chunks, rag.Chunk{
			ID:    chunkID(doc.ID, "sent", idx),
			DocID: doc.ID,
			Text:  sentence,
			Meta:  meta,
		})
	}

	return chunks
}

// Name はストラテジ名を返す
func (c *SentenceChunker) Name() string {
	return "sentence"
}

// Description はストラテジの説明を返す
func (c *SentenceChunker) Description() string {
	return "文境界で分割する。Q&Aやチャット形式のテキストに適する"
}

var _ Chunker = (*SentenceChunker)(nil)

package chunking

import (
	"fmt"
	"strings"

	"github.com/jinford/ragkit/internal/core/rag"
)

// ParagraphChunker は段落境界でチャンク分割するストラテジ
type ParagraphChunker struct{}

// NewParagraphChunker は新しい ParagraphChunker を作成する
func NewParagraphChunker() *ParagraphChunker {
	return &ParagraphChunker{}
}

// Chunk は文書を段落単位のチャンクに分割する
// MaxTokens の約4倍（文字換算）を超える段落は文単位に再分割して
// WindowSize 以下のサブチャンクへ詰め直す
func (c *ParagraphChunker) Chunk(doc rag.Document, params Params) []rag.Chunk {
	if doc.Text == "" {
		return nil
	}

	paragraphs := splitParagraphs(doc.Text)

	var chunks []rag.Chunk
	for idx, paragraph := range paragraphs {
		paragraph = strings.TrimSpace(paragraph)
		if len([]rune(paragraph)) < params.ParagraphMinLen {
			continue
		}

		if len([]rune(paragraph)) > params.maxChunkChars() {
			chunks = append(chunks, c.splitLongParagraph(paragraph, doc, idx, params)...)
			continue
		}

		chunks = append(chunks, rag.Chunk{
			ID:    chunkID(doc.ID, "para", idx),
			DocID: doc.ID,
			Text:  paragraph,
			Meta:  chunkMeta(doc, "paragraph", idx),
		})
	}

	return chunks
}

// splitLongParagraph は長い段落を文単位に分割し、WindowSize 以下に貪欲に詰める
func (c *ParagraphChunker) splitLongParagraph(paragraph string, doc rag.Document, paraIdx int, params Params) []rag.Chunk {
	sentences := splitSentences(paragraph, params.Language)

	var chunks []rag.Chunk
	var current strings.Builder
	currentLen := 0
	subIdx := 0

	flush := func() {
		if current.Len() == 0 {
			return
		}
		meta := chunkMeta(doc, "paragraph_split", paraIdx)
		meta["subIndex"] = subIdx
		chunks = append(chunks, rag.Chunk{
			ID:    fmt.Sprintf("%s:para_%d_%d", doc.ID, paraIdx, subIdx),
			DocID: doc.ID,
			Text:  strings.TrimSpace(current.String()),
			Meta:  meta,
		})
		subIdx++
		current.Reset()
		currentLen = 0
	}

	for _, sentence := range sentences {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}

		// WindowSize との比較は文字数で行う
		sentenceLen := len([]rune(sentence))
		if currentLen+sentenceLen >= params.WindowSize {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
			currentLen++
		}
		current.WriteString(sentence)
		currentLen += sentenceLen
	}
	flush()

	return chunks
}

// Name はストラテジ名を返す
func (c *ParagraphChunker) Name() string {
	return "paragraph"
}

// Description はストラテジの説明を返す
func (c *ParagraphChunker) Description() string {
	return "段落境界で分割する。見出しや箇条書きを持つ構造化文書に適する"
}

var _ Chunker = (*ParagraphChunker)(nil)

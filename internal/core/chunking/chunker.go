package chunking

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jinford/ragkit/internal/core/rag"
)

// Params はチャンク分割のパラメータ
// Registry が所有し、全ストラテジから参照される
type Params struct {
	MaxTokens         int
	WindowSize        int
	Overlap           int
	SemanticThreshold float64
	Language          string
	SentenceMinLen    int
	ParagraphMinLen   int
}

// DefaultParams はデフォルトのチャンク分割パラメータを返す
func DefaultParams() Params {
	return Params{
		MaxTokens:         512,
		WindowSize:        1200,
		Overlap:           200,
		SemanticThreshold: 0.82,
		Language:          "ko",
		SentenceMinLen:    10,
		ParagraphMinLen:   50,
	}
}

// maxChunkChars はオーバーサイズ判定に使う文字数上限（トークン数の概算換算）
func (p Params) maxChunkChars() int {
	return p.MaxTokens * 4
}

// step はスライディングウィンドウの前進量
func (p Params) step() int {
	return max(1, p.WindowSize-p.Overlap)
}

// Chunker は文書をチャンクに分割するストラテジ
// 空テキストの文書には空のスライスを返し、エラーにはしない
type Chunker interface {
	Chunk(doc rag.Document, params Params) []rag.Chunk
	Name() string
	Description() string
}

var (
	paragraphSplitRe = regexp.MustCompile(`\r?\n\s*\r?\n+`)
	latinSentenceRe  = regexp.MustCompile(`[.!?]\s+|\n\n+`)
	koSentenceRe     = regexp.MustCompile(`[.!?。！？]\s*|\n\n+`)
)

// splitSentences はテキストを言語別の文末記号で文に分割する
func splitSentences(text, language string) []string {
	re := latinSentenceRe
	if language == "ko" {
		re = koSentenceRe
	}

	parts := re.Split(text, -1)
	sentences := make([]string, 0, len(parts))
	for _, s := range parts {
		if strings.TrimSpace(s) != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// splitParagraphs はテキストを空行境界で段落に分割する
func splitParagraphs(text string) []string {
	return paragraphSplitRe.Split(text, -1)
}

// chunkMeta はチャンクの標準メタデータを作成する
func chunkMeta(doc rag.Document, chunkType string, index int) map[string]any {
	return map[string]any{
		"docTitle":   doc.Title,
		"docSource":  doc.Source,
		"title":      doc.Title,
		"source":     doc.Source,
		"chunkType":  chunkType,
		"chunkIndex": index,
		"created_at": time.Now().Format(time.RFC3339),
	}
}

// chunkID は文書IDとインデックスから一意のチャンクIDを生成する
func chunkID(docID, chunkType string, index int) string {
	if chunkType == "" {
		return fmt.Sprintf("%s:chunk_%d", docID, index)
	}
	return fmt.Sprintf("%s:%s_%d", docID, chunkType, index)
}

package chunking

import (
	"fmt"
	"strings"

	"github.com/jinford/ragkit/internal/core/rag"
)

// AdaptiveChunker はテキストの特徴を分析して最適なストラテジへ振り分ける
type AdaptiveChunker struct {
	paragraph *ParagraphChunker
	sentence  *SentenceChunker
}

// NewAdaptiveChunker は新しい AdaptiveChunker を作成する
func NewAdaptiveChunker() *AdaptiveChunker {
	return &AdaptiveChunker{
		paragraph: NewParagraphChunker(),
		sentence:  NewSentenceChunker(),
	}
}

// textStats はテキスト分析の結果
type textStats struct {
	isStructured       bool
	avgSentenceLength  float64
	punctuationDensity float64
	lineCount          int
	sentenceCount      int
	totalLength        int
}

// Chunk は文書を分析し、段落・文・セクション混合のいずれかで分割する
// 最後に 4×MaxTokens（文字換算）を超えるチャンクを再分割する
func (c *AdaptiveChunker) Chunk(doc rag.Document, params Params) []rag.Chunk {
	if doc.Text == "" {
		return nil
	}

	stats := analyzeText(doc.Text, params.Language)

	var chunks []rag.Chunk
	switch {
	case stats.isStructured:
		chunks = c.paragraph.Chunk(doc, params)
	case stats.avgSentenceLength < 50:
		chunks = c.sentence.Chunk(doc, params)
	default:
		chunks = c.mixedChunking(doc, params)
	}

	return adjustChunkSizes(chunks, params)
}

// analyzeText はテキストの構造指標と統計を計算する
func analyzeText(text, language string) textStats {
	lines := strings.Split(text, "\n")
	sentences := splitSentences(text, language)

	hasHeaders := false
	hasLists := false
	for _, line := range lines {
		if strings.HasPrefix(line, "#") {
			hasHeaders = true
		}
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* ") || strings.HasPrefix(trimmed, "1.") {
			hasLists = true
		}
	}
	doubleNewlines := strings.Count(text, "\n\n")

	totalSentenceLen := 0
	for _, s := range sentences {
		totalSentenceLen += len([]rune(s))
	}
	avgSentenceLength := float64(totalSentenceLen) / float64(max(1, len(sentences)))

	punct := 0
	for _, r := range text {
		if strings.ContainsRune(".!?,;:", r) {
			punct++
		}
	}
	punctuationDensity := float64(punct) / float64(max(1, len(text))) * 1000

	return textStats{
		isStructured:       hasHeaders || hasLists || doubleNewlines > 5,
		avgSentenceLength:  avgSentenceLength,
		punctuationDensity: punctuationDensity,
		lineCount:          len(lines),
		sentenceCount:      len(sentences),
		totalLength:        len([]rune(text)),
	}
}

// mixedChunking はセクション単位の混合分割を適用する
// 長いセクションはスライディングウィンドウ、短いセクションはそのまま1チャンクにする
func (c *AdaptiveChunker) mixedChunking(doc rag.Document, params Params) []rag.Chunk {
	sections := splitParagraphs(doc.Text)

	var chunks []rag.Chunk
	for sectionIdx, section := range sections {
		section = strings.TrimSpace(section)
		if section == "" {
			continue
		}

		if len([]rune(section)) > params.WindowSize {
			chunks = append(chunks, c.slidingWindowSection(section, doc, sectionIdx, params)...)
			continue
		}

		meta := chunkMeta(doc, "adaptive_section", sectionIdx)
		chunks = append(chunks, rag.Chunk{
			ID:    fmt.Sprintf("%s:adapt_%d", doc.ID, sectionIdx),
			DocID: doc.ID,
			Text:  section,
			Meta:  meta,
		})
	}

	return chunks
}

// slidingWindowSection は単一セクションへスライディングウィンドウ分割を適用する
func (c *AdaptiveChunker) slidingWindowSection(section string, doc rag.Document, sectionIdx int, params Params) []rag.Chunk {
	runes := []rune(section)
	step := params.step()

	var chunks []rag.Chunk
	position := 0
	subIdx := 0

	for position < len(runes) {
		end := min(position+params.WindowSize, len(runes))
		text := strings.TrimSpace(string(runes[position:end]))

		if text != "" {
			meta := chunkMeta(doc, "adaptive_window", sectionIdx)
			meta["section"] = sectionIdx
			chunks = append(chunks, rag.Chunk{
				ID:    fmt.Sprintf("%s:adapt_%d_%d", doc.ID, sectionIdx, subIdx),
				DocID: doc.ID,
				Text:  text,
				Meta:  meta,
			})
			subIdx++
		}

		if end >= len(runes) {
			break
		}
		position += step
	}

	return chunks
}

// adjustChunkSizes は文字数上限を超えるチャンクを機械的に再分割する
func adjustChunkSizes(chunks []rag.Chunk, params Params) []rag.Chunk {
	maxSize := params.maxChunkChars()

	adjusted := make([]rag.Chunk, 0, len(chunks))
	for _, chunk := range chunks {
		runes := []rune(chunk.Text)
		if len(runes) <= maxSize {
			adjusted = append(adjusted, chunk)
			continue
		}

		position := 0
		subIdx := 0
		for position < len(runes) {
			end := min(position+maxSize, len(runes))
			text := strings.TrimSpace(string(runes[position:end]))

			if text != "" {
				meta := make(map[string]any, len(chunk.Meta)+1)
				for k, v := range chunk.Meta {
					meta[k] = v
				}
				meta["split"] = true
				adjusted = append(adjusted, rag.Chunk{
					ID:    fmt.Sprintf("%s_split_%d", chunk.ID, subIdx),
					DocID: chunk.DocID,
					Text:  text,
					Meta:  meta,
				})
				subIdx++
			}

			position = end
		}
	}

	return adjusted
}

// Name はストラテジ名を返す
func (c *AdaptiveChunker) Name() string {
	return "adaptive"
}

// Description はストラテジの説明を返す
func (c *AdaptiveChunker) Description() string {
	return "テキストの特徴を分析して最適な分割方法を自動選択する"
}

var _ Chunker = (*AdaptiveChunker)(nil)

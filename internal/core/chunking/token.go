package chunking

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter は tiktoken によるトークン数カウンタ
type TokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTokenCounter は cl100k_base エンコーディングの TokenCounter を作成する
func NewTokenCounter() (*TokenCounter, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding: %w", err)
	}
	return &TokenCounter{encoding: enc}, nil
}

// Count はテキストのトークン数を返す
func (t *TokenCounter) Count(text string) int {
	return len(t.encoding.Encode(text, nil, nil))
}

// ChunkStats はチャンク群のトークン統計
type ChunkStats struct {
	Count     int
	MinTokens int
	MaxTokens int
	AvgTokens float64
}

// Stats はチャンク群のトークン統計を計算する
func (t *TokenCounter) Stats(texts []string) ChunkStats {
	if len(texts) == 0 {
		return ChunkStats{}
	}

	stats := ChunkStats{Count: len(texts)}
	total := 0
	for i, text := range texts {
		n := t.Count(text)
		total += n
		if i == 0 || n < stats.MinTokens {
			stats.MinTokens = n
		}
		if n > stats.MaxTokens {
			stats.MaxTokens = n
		}
	}
	stats.AvgTokens = float64(total) / float64(len(texts))
	return stats
}

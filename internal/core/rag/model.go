package rag

// Document は取り込み対象の文書を表す不変値
type Document struct {
	ID     string
	Title  string
	Source string
	Text   string
}

// Chunk は文書から切り出された検索単位を表す不変値
// ID はストア内で一意であり、DocID は生成元文書への参照のみを表す
type Chunk struct {
	ID    string
	DocID string
	Text  string
	Meta  map[string]any
}

// MetaString はメタデータから文字列値を取得する（存在しない場合は空文字）
func (c Chunk) MetaString(key string) string {
	if c.Meta == nil {
		return ""
	}
	if v, ok := c.Meta[key].(string); ok {
		return v
	}
	return ""
}

// Retrieved は検索されたチャンクとスコアの組
// スコアの更新は WithScore によるコピーで行い、既存値は書き換えない
type Retrieved struct {
	Chunk Chunk
	Score float64
}

// WithScore はスコアを差し替えた新しい Retrieved を返す
func (r Retrieved) WithScore(score float64) Retrieved {
	r.Score = score
	return r
}

// Answer はパイプラインの最終出力
type Answer struct {
	Text     string
	Metadata map[string]any
}

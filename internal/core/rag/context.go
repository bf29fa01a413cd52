package rag

// RagContext はパイプラインの作業単位となる不変値
// 各ステップは新しいコンテキストを返し、以前のコンテキストを変更しない
type RagContext struct {
	Question        string
	K               int
	ExpandedQueries []string
	Retrieved       []Retrieved
	Reranked        []Retrieved
	CompressedCtx   string
	Prompt          string
	RawLLM          string
	Parsed          Answer
}

// NewContext は質問と取得件数から初期コンテキストを作成する
func NewContext(question string, k int) *RagContext {
	return &RagContext{Question: question, K: k}
}

// WithExpanded は展開済みクエリを設定した新しいコンテキストを返す
func (c *RagContext) WithExpanded(qs []string) *RagContext {
	next := *c
	next.ExpandedQueries = append([]string(nil), qs...)
	return &next
}

// WithRetrieved は検索結果を設定した新しいコンテキストを返す
func (c *RagContext) WithRetrieved(items []Retrieved) *RagContext {
	next := *c
	next.Retrieved = append([]Retrieved(nil), items...)
	return &next
}

// WithReranked は再ランク結果を設定した新しいコンテキストを返す
func (c *RagContext) WithReranked(items []Retrieved) *RagContext {
	next := *c
	next.Reranked = append([]Retrieved(nil), items...)
	return &next
}

// WithCompressed は圧縮済みコンテキストを設定した新しいコンテキストを返す
func (c *RagContext) WithCompressed(ctx string) *RagContext {
	next := *c
	next.CompressedCtx = ctx
	return &next
}

// WithPrompt はプロンプトを設定した新しいコンテキストを返す
func (c *RagContext) WithPrompt(prompt string) *RagContext {
	next := *c
	next.Prompt = prompt
	return &next
}

// WithRawLLM はLLMの生応答を設定した新しいコンテキストを返す
func (c *RagContext) WithRawLLM(raw string) *RagContext {
	next := *c
	next.RawLLM = raw
	return &next
}

// WithParsed は解析済み回答を設定した新しいコンテキストを返す
func (c *RagContext) WithParsed(a Answer) *RagContext {
	next := *c
	next.Parsed = a
	return &next
}

package chunking

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-enry/go-enry/v2"

	"github.com/jinford/ragkit/internal/core/rag"
)

// Registry はチャンク分割ストラテジの登録と選択を管理する
type Registry struct {
	mu       sync.Mutex
	chunkers map[string]Chunker
	current  string
	params   Params
}

// NewRegistry は全ストラテジを登録済みの Registry を作成する
func NewRegistry() *Registry {
	chunkers := map[string]Chunker{}
	for _, c := range []Chunker{
		NewSentenceChunker(),
		NewParagraphChunker(),
		NewSlidingWindowChunker(),
		NewAdaptiveChunker(),
		NewSimpleOverlapChunker(0, 200),
	} {
		chunkers[c.Name()] = c
	}

	return &Registry{
		chunkers: chunkers,
		current:  "adaptive",
		params:   DefaultParams(),
	}
}

// Get は名前でストラテジを取得する
func (r *Registry) Get(name string) (Chunker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.chunkers[name]
	if !ok {
		return nil, rag.ConfigErrorf("未知のチャンク分割ストラテジです: %s", name)
	}
	return c, nil
}

// Current は現在選択されているストラテジを返す
func (r *Registry) Current() Chunker {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.chunkers[r.current]
}

// SetStrategy は現在のストラテジを切り替える
func (r *Registry) SetStrategy(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.chunkers[name]; !ok {
		return rag.ConfigErrorf("未知のチャンク分割ストラテジです: %s", name)
	}
	r.current = name
	return nil
}

// Params は現在のパラメータを返す
func (r *Registry) Params() Params {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.params
}

// SetParams はパラメータを差し替える
func (r *Registry) SetParams(params Params) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.params = params
}

// ChunkDocument は現在のストラテジとパラメータで文書を分割する
func (r *Registry) ChunkDocument(doc rag.Document) []rag.Chunk {
	r.mu.Lock()
	chunker := r.chunkers[r.current]
	params := r.params
	r.mu.Unlock()

	return chunker.Chunk(doc, params)
}

// Strategies は登録済みストラテジの名前と説明を返す
func (r *Registry) Strategies() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]string, len(r.chunkers))
	for name, c := range r.chunkers {
		out[name] = c.Description()
	}
	return out
}

// Suggest は文書の特徴からストラテジ名を提案する
// 判定は 構造化 → 短文 → 長文 → adaptive の順で行う
func (r *Registry) Suggest(doc rag.Document) string {
	text := doc.Text

	if isStructuredContent(doc.Source, text) {
		return "paragraph"
	}

	lines := strings.Split(text, "\n")
	totalLineLen := 0
	for _, line := range lines {
		totalLineLen += len([]rune(line))
	}
	avgLineLength := float64(totalLineLen) / float64(max(1, len(lines)))

	if avgLineLength < 100 && len(lines) > 20 {
		return "sentence"
	}

	if len([]rune(text)) > 10000 {
		return "sliding_window"
	}

	return "adaptive"
}

// isStructuredContent は見出し・箇条書き・コード/マークアップの有無を判定する
func isStructuredContent(source, text string) bool {
	if strings.Contains(text, "\n#") || strings.HasPrefix(text, "#") {
		return true
	}
	if strings.Contains(text, "\n- ") || strings.Contains(text, "\n* ") {
		return true
	}
	if strings.Count(text, "\n\n") > 5 {
		return true
	}

	// ファイル名と内容からコード・マークアップを検出する
	if source != "" {
		language := enry.GetLanguage(filepath.Base(source), []byte(text))
		switch enry.GetLanguageType(language) {
		case enry.Programming, enry.Markup:
			return true
		}
	}

	return false
}

package parse

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Parser はLLMの生応答を構造化データへ変換する
// 解析に失敗しても必ず answer キーを持つマップを返す
type Parser struct {
	parseFn func(string) map[string]any
}

// Parse は生応答を解析する
func (p *Parser) Parse(raw string) map[string]any {
	return p.parseFn(raw)
}

// Schema はJSON出力の検証スキーマ
type Schema struct {
	Type     string
	Required []string
}

// Builder は出力パーサーを組み立てる
type Builder struct {
	format string
	schema *Schema
}

// NewBuilder は新しい Builder を作成する。デフォルトは markdown-qa 形式
func NewBuilder() *Builder {
	return &Builder{format: "markdown-qa"}
}

// Format は出力形式を設定する（json / yaml / markdown-qa）
func (b *Builder) Format(format string) *Builder {
	b.format = format
	return b
}

// WithSchema はJSON出力の必須キー検証を設定する
func (b *Builder) WithSchema(schema Schema) *Builder {
	b.schema = &schema
	return b
}

// Build はパーサーを構築する
func (b *Builder) Build() *Parser {
	switch b.format {
	case "json":
		schema := b.schema
		return &Parser{parseFn: func(raw string) map[string]any {
			return parseJSON(raw, schema)
		}}
	case "yaml":
		return &Parser{parseFn: parseYAML}
	default:
		return &Parser{parseFn: parseMarkdownQA}
	}
}

// parseJSON は応答からJSONオブジェクトを切り出して解析する
// 失敗した場合は生テキストを answer にして警告を付ける
func parseJSON(raw string, schema *Schema) map[string]any {
	var obj map[string]any
	if err := json.Unmarshal([]byte(sliceObject(raw, "{", "}")), &obj); err != nil {
		return jsonFallback(raw)
	}
	if schema != nil {
		if err := validate(obj, schema); err != nil {
			return jsonFallback(raw)
		}
	}
	return obj
}

func jsonFallback(raw string) map[string]any {
	return map[string]any{
		"answer":  strings.TrimSpace(raw),
		"warning": "json-parse-fallback",
	}
}

// parseYAML は応答をYAMLとして解析する
// マップ以外の値は文字列化して answer に入れる
func parseYAML(raw string) map[string]any {
	var obj any
	if err := yaml.Unmarshal([]byte(raw), &obj); err != nil {
		return map[string]any{
			"answer":  strings.TrimSpace(raw),
			"warning": "yaml-parse-fallback",
		}
	}

	if m, ok := obj.(map[string]any); ok {
		return m
	}
	return map[string]any{"answer": fmt.Sprintf("%v", obj)}
}

// parseMarkdownQA は「Q:」で始まる行を質問、それ以外を回答として解析する
func parseMarkdownQA(raw string) map[string]any {
	question := ""
	var answerLines []string

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(strings.ToLower(line), "q:") {
			question = strings.TrimSpace(line[2:])
			continue
		}
		answerLines = append(answerLines, line)
	}

	answer := strings.TrimSpace(raw)
	if len(answerLines) > 0 {
		answer = strings.Join(answerLines, "\n")
	}
	return map[string]any{"question": question, "answer": answer}
}

// sliceObject は最初の開き括弧から最後の閉じ括弧までを切り出す
func sliceObject(s, left, right string) string {
	i := strings.Index(s, left)
	j := strings.LastIndex(s, right)
	if i != -1 && j != -1 && j >= i {
		return s[i : j+1]
	}
	return s
}

// validate は必須キーの存在を検証する
func validate(obj map[string]any, schema *Schema) error {
	if schema.Type != "object" {
		return nil
	}

	var missing []string
	for _, key := range schema.Required {
		if _, ok := obj[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing keys: %v", missing)
	}
	return nil
}

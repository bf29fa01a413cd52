package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/jinford/ragkit/internal/core/rag"
)

// DefaultSystemHint は BuildPromptStep のデフォルトのシステムヒント
const DefaultSystemHint = "You are a helpful RAG assistant."

// answerPromptTemplate はコンテキストがある場合の回答プロンプト
const answerPromptTemplate = `당신은 도움이 되는 어시스턴트입니다. 다음 컨텍스트만을 사용하여 질문에 답변하세요.
컨텍스트에서 답을 찾을 수 없다면 "제공된 컨텍스트에서 이 정보를 찾을 수 없습니다"라고 답하세요.
컨텍스트를 기반으로 구체적이고 정확하게 답변하세요.

컨텍스트:
%s

질문: %s

답변:`

// noContextPromptTemplate は関連文書が見つからなかった場合のプロンプト
const noContextPromptTemplate = `질문에 대한 답변을 찾을 수 있는 관련 문서가 없습니다.

질문: %s

답변: 제공된 문서에서 이 질문에 대한 답변을 찾을 수 없습니다.`

// BuildPromptStep は圧縮済みコンテキストと質問からプロンプトを組み立てる
type BuildPromptStep struct {
	systemHint string
}

// NewBuildPromptStep は新しい BuildPromptStep を作成する
func NewBuildPromptStep(systemHint string) *BuildPromptStep {
	if systemHint == "" {
		systemHint = DefaultSystemHint
	}
	return &BuildPromptStep{systemHint: systemHint}
}

// SystemHint はシステムヒントを返す
func (s *BuildPromptStep) SystemHint() string {
	return s.systemHint
}

// Run はプロンプトを組み立てる
// コンテキストが空の場合は見つからなかった旨のプロンプトに切り替える
func (s *BuildPromptStep) Run(_ context.Context, rc *rag.RagContext) (*rag.RagContext, error) {
	var prompt string
	if strings.TrimSpace(rc.CompressedCtx) == "" {
		prompt = fmt.Sprintf(noContextPromptTemplate, rc.Question)
	} else {
		prompt = fmt.Sprintf(answerPromptTemplate, rc.CompressedCtx, rc.Question)
	}
	return rc.WithPrompt(prompt), nil
}

// Name はステップ名を返す
func (s *BuildPromptStep) Name() string {
	return "build_prompt"
}

package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/ragkit/internal/core/rag"
	"github.com/jinford/ragkit/internal/core/rerank"
)

type stubRetriever struct {
	items map[string][]rag.Retrieved
	err   error
}

func (s *stubRetriever) Retrieve(_ context.Context, query string, _ int) ([]rag.Retrieved, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.items[query], nil
}

type stubGenerator struct {
	response string
	err      error
	gotPrompt string
}

func (s *stubGenerator) Generate(_ context.Context, prompt, _ string) (string, error) {
	s.gotPrompt = prompt
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

type stubParser struct {
	result map[string]any
}

func (s *stubParser) Parse(_ string) map[string]any {
	return s.result
}

type stubStep struct {
	name string
	run  func(*rag.RagContext) (*rag.RagContext, error)
}

func (s *stubStep) Run(_ context.Context, rc *rag.RagContext) (*rag.RagContext, error) {
	return s.run(rc)
}

func (s *stubStep) Name() string { return s.name }

func item(id string, score float64, text string) rag.Retrieved {
	return rag.Retrieved{
		Chunk: rag.Chunk{ID: id, DocID: "d1", Text: text},
		Score: score,
	}
}

func TestQueryExpansionStep(t *testing.T) {
	ctx := context.Background()

	t.Run("展開数0は元の質問だけを設定する", func(t *testing.T) {
		rc, err := NewQueryExpansionStep(0).Run(ctx, rag.NewContext("質問", 5))
		require.NoError(t, err)
		assert.Equal(t, []string{"質問"}, rc.ExpandedQueries)
	})

	t.Run("指定数のバリエーションを追加する", func(t *testing.T) {
		rc, err := NewQueryExpansionStep(2).Run(ctx, rag.NewContext("query", 5))
		require.NoError(t, err)
		assert.Equal(t, []string{"query", "query (alt 1)", "query (alt 2)"}, rc.ExpandedQueries)
	})
}

func TestRetrieveStep(t *testing.T) {
	ctx := context.Background()

	t.Run("重複チャンクは最高スコアだけ残る", func(t *testing.T) {
		retriever := &stubRetriever{items: map[string][]rag.Retrieved{
			"q":         {item("c1", 0.5, "a"), item("c2", 0.7, "b")},
			"q (alt 1)": {item("c1", 0.9, "a"), item("c3", 0.3, "c")},
		}}

		rc := rag.NewContext("q", 10).WithExpanded([]string{"q", "q (alt 1)"})
		result, err := NewRetrieveStep(retriever, nil).Run(ctx, rc)
		require.NoError(t, err)

		require.Len(t, result.Retrieved, 3)
		assert.Equal(t, "c1", result.Retrieved[0].Chunk.ID)
		assert.Equal(t, 0.9, result.Retrieved[0].Score)
		assert.Equal(t, "c2", result.Retrieved[1].Chunk.ID)
	})

	t.Run("結果が空でもエラーにならない", func(t *testing.T) {
		retriever := &stubRetriever{items: map[string][]rag.Retrieved{}}

		rc := rag.NewContext("q", 10).WithExpanded([]string{"q"})
		result, err := NewRetrieveStep(retriever, nil).Run(ctx, rc)
		require.NoError(t, err)
		assert.Empty(t, result.Retrieved)
	})

	t.Run("検索の失敗はエラーを返す", func(t *testing.T) {
		retriever := &stubRetriever{err: errors.New("store unavailable")}

		rc := rag.NewContext("q", 10).WithExpanded([]string{"q"})
		_, err := NewRetrieveStep(retriever, nil).Run(ctx, rc)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "store unavailable")
	})
}

func TestRerankStep(t *testing.T) {
	ctx := context.Background()

	t.Run("上位topK件に切り詰める", func(t *testing.T) {
		rc := rag.NewContext("q", 10).WithRetrieved([]rag.Retrieved{
			item("c1", 0.3, "a"),
			item("c2", 0.9, "b"),
			item("c3", 0.5, "c"),
		})

		result, err := NewRerankStep(rerank.NewIdentityReranker(), 2).Run(ctx, rc)
		require.NoError(t, err)
		require.Len(t, result.Reranked, 2)
		assert.Equal(t, "c1", result.Reranked[0].Chunk.ID)
	})

	t.Run("検索結果が空なら再ランクも空になる", func(t *testing.T) {
		result, err := NewRerankStep(rerank.NewIdentityReranker(), 5).Run(ctx, rag.NewContext("q", 10))
		require.NoError(t, err)
		assert.Empty(t, result.Reranked)
	})
}

func TestContextCompressionStep(t *testing.T) {
	ctx := context.Background()

	t.Run("上限に収まるチャンクは全て連結される", func(t *testing.T) {
		rc := rag.NewContext("q", 10).WithReranked([]rag.Retrieved{
			item("c1", 0.9, "first chunk"),
			item("c2", 0.8, "second chunk"),
		})

		result, err := NewContextCompressionStep(nil).Run(ctx, rc)
		require.NoError(t, err)
		assert.Equal(t, "first chunk\n\nsecond chunk", result.CompressedCtx)
	})

	t.Run("上限を超える最初のチャンクは残り文字数で切り詰められる", func(t *testing.T) {
		policy := rag.DefaultPolicy()
		policy.MaxContextChars = rag.MinContextChars

		long := strings.Repeat("a", rag.MinContextChars+500)
		rc := rag.NewContext("q", 10).WithReranked([]rag.Retrieved{
			item("c1", 0.9, long),
			item("c2", 0.8, "never included"),
		})

		result, err := NewContextCompressionStep(policy).Run(ctx, rc)
		require.NoError(t, err)
		assert.Len(t, result.CompressedCtx, rag.MinContextChars)
		assert.NotContains(t, result.CompressedCtx, "never included")
	})

	t.Run("マルチバイトのチャンクも上限は文字数で数える", func(t *testing.T) {
		policy := rag.DefaultPolicy()
		policy.MaxContextChars = rag.MinContextChars

		exact := strings.Repeat("가", rag.MinContextChars)
		rc := rag.NewContext("q", 10).WithReranked([]rag.Retrieved{
			item("c1", 0.9, exact),
		})

		result, err := NewContextCompressionStep(policy).Run(ctx, rc)
		require.NoError(t, err)
		assert.Equal(t, exact, result.CompressedCtx)
	})

	t.Run("マルチバイトのチャンクの切り詰めは文字の途中で切らない", func(t *testing.T) {
		policy := rag.DefaultPolicy()
		policy.MaxContextChars = rag.MinContextChars

		long := strings.Repeat("나", rag.MinContextChars+500)
		rc := rag.NewContext("q", 10).WithReranked([]rag.Retrieved{
			item("c1", 0.9, long),
		})

		result, err := NewContextCompressionStep(policy).Run(ctx, rc)
		require.NoError(t, err)
		assert.True(t, utf8.ValidString(result.CompressedCtx))
		assert.Equal(t, rag.MinContextChars, len([]rune(result.CompressedCtx)))
	})
}

func TestBuildPromptStep(t *testing.T) {
	ctx := context.Background()

	t.Run("コンテキストと質問がプロンプトに含まれる", func(t *testing.T) {
		rc := rag.NewContext("테스트 질문", 5).WithCompressed("관련 문서 내용")

		result, err := NewBuildPromptStep("").Run(ctx, rc)
		require.NoError(t, err)
		assert.Contains(t, result.Prompt, "관련 문서 내용")
		assert.Contains(t, result.Prompt, "테스트 질문")
	})

	t.Run("コンテキストが空の場合は見つからない旨のプロンプトになる", func(t *testing.T) {
		rc := rag.NewContext("질문", 5).WithCompressed("   ")

		result, err := NewBuildPromptStep("").Run(ctx, rc)
		require.NoError(t, err)
		assert.Contains(t, result.Prompt, "관련 문서가 없습니다")
	})
}

func TestGenerateStep(t *testing.T) {
	ctx := context.Background()

	t.Run("生成結果が設定される", func(t *testing.T) {
		gen := &stubGenerator{response: "generated answer"}
		rc := rag.NewContext("q", 5).WithPrompt("the prompt")

		result, err := NewGenerateStep(gen, "system").Run(ctx, rc)
		require.NoError(t, err)
		assert.Equal(t, "generated answer", result.RawLLM)
		assert.Equal(t, "the prompt", gen.gotPrompt)
	})

	t.Run("生成の失敗はエラーを返す", func(t *testing.T) {
		gen := &stubGenerator{err: errors.New("api error")}

		_, err := NewGenerateStep(gen, "").Run(ctx, rag.NewContext("q", 5))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "api error")
	})
}

func TestParseStep(t *testing.T) {
	ctx := context.Background()

	t.Run("answerキーがあればその値を使う", func(t *testing.T) {
		parser := &stubParser{result: map[string]any{"answer": "parsed answer"}}
		rc := rag.NewContext("q", 5).
			WithReranked([]rag.Retrieved{item("c1", 0.9, "a"), item("c2", 0.8, "b")}).
			WithRawLLM("raw output")

		result, err := NewParseStep(parser).Run(ctx, rc)
		require.NoError(t, err)
		assert.Equal(t, "parsed answer", result.Parsed.Text)
		assert.Equal(t, []string{"c1", "c2"}, result.Parsed.Metadata["ctxIds"])
	})

	t.Run("answerキーがなければ生応答をそのまま使う", func(t *testing.T) {
		parser := &stubParser{result: map[string]any{}}
		rc := rag.NewContext("q", 5).WithRawLLM("raw output")

		result, err := NewParseStep(parser).Run(ctx, rc)
		require.NoError(t, err)
		assert.Equal(t, "raw output", result.Parsed.Text)
	})
}

func TestPipeline_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("ステップの失敗で後続は実行されない", func(t *testing.T) {
		stepErr := errors.New("step failed")
		executed := false

		p := NewBuilder().
			Add(&stubStep{name: "fail", run: func(*rag.RagContext) (*rag.RagContext, error) {
				return nil, stepErr
			}}).
			Add(&stubStep{name: "after", run: func(rc *rag.RagContext) (*rag.RagContext, error) {
				executed = true
				return rc, nil
			}}).
			Build()

		_, err := p.Run(ctx, rag.NewContext("q", 5))
		require.ErrorIs(t, err, stepErr)
		assert.False(t, executed)
	})

	t.Run("全ステップを通して回答が得られる", func(t *testing.T) {
		retriever := &stubRetriever{items: map[string][]rag.Retrieved{
			"question": {item("c1", 0.9, "relevant context text")},
		}}
		gen := &stubGenerator{response: "the answer"}
		parser := &stubParser{result: map[string]any{"answer": "the answer"}}

		p := NewBuilder().
			Add(NewQueryExpansionStep(0)).
			Add(NewRetrieveStep(retriever, nil)).
			Add(NewRerankStep(rerank.NewIdentityReranker(), 5)).
			Add(NewContextCompressionStep(nil)).
			Add(NewBuildPromptStep("")).
			Add(NewGenerateStep(gen, "")).
			Add(NewParseStep(parser)).
			Build()

		answer, err := p.Run(ctx, rag.NewContext("question", 10))
		require.NoError(t, err)
		assert.Equal(t, "the answer", answer.Text)
		assert.Equal(t, []string{"c1"}, answer.Metadata["ctxIds"])
		assert.Contains(t, gen.gotPrompt, "relevant context text")
	})
}

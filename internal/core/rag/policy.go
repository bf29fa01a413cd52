package rag

const (
	// DefaultMaxContextChars はプロンプトへ渡すコンテキストの文字数上限のデフォルト値
	DefaultMaxContextChars = 12000
	// DefaultRetrieveK はベクトル検索で取得する件数のデフォルト値
	DefaultRetrieveK = 20
	// DefaultRerankK は再ランク後に残す件数のデフォルト値
	DefaultRerankK = 5

	// MinContextChars はコンテキスト文字数上限の下限
	MinContextChars = 2000
)

// Policy はパイプライン全体の制限値を保持する
type Policy struct {
	MaxContextChars int
	RetrieveK       int
	RerankK         int
}

// DefaultPolicy はデフォルトのポリシーを返す
func DefaultPolicy() *Policy {
	return &Policy{
		MaxContextChars: DefaultMaxContextChars,
		RetrieveK:       DefaultRetrieveK,
		RerankK:         DefaultRerankK,
	}
}

// SetMaxContextChars はコンテキスト文字数上限を下限でクリップして設定する
func (p *Policy) SetMaxContextChars(n int) {
	p.MaxContextChars = max(MinContextChars, n)
}

// SetRetrieveK は検索件数を 1 以上にクリップして設定する
func (p *Policy) SetRetrieveK(k int) {
	p.RetrieveK = max(1, k)
}

// SetRerankK は再ランク件数を 1 以上 RetrieveK 以下にクリップして設定する
func (p *Policy) SetRerankK(k int) {
	p.RerankK = max(1, min(k, p.RetrieveK))
}

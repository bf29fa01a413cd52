package embedding

import "sort"

// Profile は埋め込みモデル1件の設定
type Profile struct {
	Kind      string
	Model     string
	Dim       int
	Normalize bool
	Device    string
	BatchSize int
	Name      string
}

// PolicyConfig は Policy 構築用の設定値
type PolicyConfig struct {
	KoThreshold float64  `yaml:"koThreshold"`
	PreferGPU   bool     `yaml:"preferGpu"`
	CostTier    string   `yaml:"costTier"`
	Order       []string `yaml:"order"`
}

// Policy はテキストの特徴からプロファイルを選択する
type Policy struct {
	koThreshold float64
	preferGPU   bool
	costTier    string
	order       []string
}

// NewPolicy は新しい Policy を作成する
func NewPolicy(cfg PolicyConfig) *Policy {
	if cfg.KoThreshold == 0 {
		cfg.KoThreshold = 0.30
	}
	if cfg.CostTier == "" {
		cfg.CostTier = "free"
	}
	return &Policy{
		koThreshold: cfg.KoThreshold,
		preferGPU:   cfg.PreferGPU,
		costTier:    cfg.CostTier,
		order:       cfg.Order,
	}
}

// Decide はテキストの特徴に基づいてプロファイルのキーを決定する
// ハングル比率が閾値を超える場合は多言語モデルを優先する
func (p *Policy) Decide(registry map[string]Profile, texts []string) string {
	if KoRatio(texts) > p.koThreshold {
		for _, key := range []string{"multilingual_minilm", "multilingual_base", "korean_roberta"} {
			if _, ok := registry[key]; ok {
				return key
			}
		}
	}

	for _, key := range p.order {
		if _, ok := registry[key]; ok {
			return key
		}
	}

	keys := make([]string, 0, len(registry))
	for key := range registry {
		keys = append(keys, key)
	}
	if len(keys) > 0 {
		sort.Strings(keys)
		return keys[0]
	}
	return "fallback_384"
}

package embedding

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/jinford/ragkit/internal/core/rag"
)

const (
	// KindFallback は決定的フォールバック埋め込みの種別名
	KindFallback = "deterministic-fallback"
	// fallbackKey はプロファイル解決に失敗した場合のキー
	fallbackKey = "fallback_384"
)

// Factory はプロファイルから Embedder を構築する
// core は外部APIクライアントの構築方法を知らないため、infra 側から注入される
type Factory func(profile Profile) (Embedder, error)

// Manager は埋め込みプロファイルの解決と Embedder のキャッシュを管理する
type Manager struct {
	defaultKey string
	profiles   map[string]Profile
	policy     *Policy
	factory    Factory
	logger     *slog.Logger

	mu    sync.Mutex
	cache map[string]Embedder
}

// NewManager は新しい Manager を作成する
func NewManager(defaultKey string, profiles map[string]Profile, policy *Policy, factory Factory, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if policy == nil {
		policy = NewPolicy(PolicyConfig{})
	}
	return &Manager{
		defaultKey: defaultKey,
		profiles:   profiles,
		policy:     policy,
		factory:    factory,
		logger:     logger,
		cache:      map[string]Embedder{},
	}
}

// yamlConfig は埋め込み設定ファイルのスキーマ
type yamlConfig struct {
	Embedders struct {
		Default  string                 `yaml:"default"`
		Registry map[string]yamlProfile `yaml:"registry"`
	} `yaml:"embedders"`
	Policy PolicyConfig `yaml:"policy"`
}

type yamlProfile struct {
	Kind      string `yaml:"kind"`
	Model     string `yaml:"model"`
	Dim       int    `yaml:"dim"`
	Normalize *bool  `yaml:"normalize"`
	Device    string `yaml:"device"`
	BatchSize int    `yaml:"batchSize"`
}

// ManagerFromYAML は設定ファイルから Manager を構築する
// 読み込みに失敗した場合はフォールバック構成で継続する
func ManagerFromYAML(path string, factory Factory, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("埋め込み設定の読み込みに失敗したためフォールバック構成を使用します", "path", path, "error", err)
		return fallbackManager(factory, logger)
	}

	var cfg yamlConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		logger.Warn("埋め込み設定の解析に失敗したためフォールバック構成を使用します", "path", path, "error", err)
		return fallbackManager(factory, logger)
	}

	defaultKey := cfg.Embedders.Default
	if defaultKey == "" {
		defaultKey = "auto"
	}

	profiles := make(map[string]Profile, len(cfg.Embedders.Registry))
	for key, val := range cfg.Embedders.Registry {
		prof := Profile{
			Kind:      val.Kind,
			Model:     val.Model,
			Dim:       val.Dim,
			Normalize: true,
			Device:    val.Device,
			BatchSize: val.BatchSize,
			Name:      key,
		}
		if prof.Dim == 0 {
			prof.Dim = 384
		}
		if prof.BatchSize == 0 {
			prof.BatchSize = 64
		}
		if val.Normalize != nil {
			prof.Normalize = *val.Normalize
		}
		profiles[key] = prof
	}

	logger.Info("埋め込みプロファイルを読み込みました", "count", len(profiles), "path", path)
	return NewManager(defaultKey, profiles, NewPolicy(cfg.Policy), factory, logger)
}

func fallbackManager(factory Factory, logger *slog.Logger) *Manager {
	profiles := map[string]Profile{
		fallbackKey: {Kind: KindFallback, Dim: 384, Normalize: true, BatchSize: 64, Name: fallbackKey},
	}
	return NewManager(fallbackKey, profiles, NewPolicy(PolicyConfig{}), factory, logger)
}

// Resolve はプロファイル名とテキストの特徴から Embedder とシグネチャを解決する
// 明示指定 > デフォルト > ポリシー判断 の順で決定する
func (m *Manager) Resolve(profileName string, textsForPolicy []string) (Embedder, string) {
	key := m.selectKey(profileName, textsForPolicy)
	return m.getOrCreate(key), m.signatureFor(key)
}

// DefaultEmbedder はデフォルト設定の Embedder を返す
func (m *Manager) DefaultEmbedder() Embedder {
	emb, _ := m.Resolve(m.defaultKey, nil)
	return emb
}

// NamespaceFor はシグネチャから名前空間名を生成する
func (m *Manager) NamespaceFor(signature string) string {
	return "emb::" + signature
}

// EnsureDim は Embedder の次元がインデックスの期待次元と一致することを検証する
func (m *Manager) EnsureDim(expected int, embedder Embedder) error {
	if expected <= 0 {
		return rag.ConfigErrorf("期待される次元数が不正です: %d", expected)
	}
	if embedder.Dimension() != expected {
		return rag.ConfigErrorf("次元数が一致しません: index=%d embedder=%d", expected, embedder.Dimension())
	}
	return nil
}

// Profiles は登録済みプロファイルのコピーを返す
func (m *Manager) Profiles() map[string]Profile {
	out := make(map[string]Profile, len(m.profiles))
	for k, v := range m.profiles {
		out[k] = v
	}
	return out
}

func (m *Manager) selectKey(profileName string, texts []string) string {
	if profileName != "" && profileName != "auto" {
		return profileName
	}
	if m.defaultKey != "" && m.defaultKey != "auto" {
		return m.defaultKey
	}
	return m.policy.Decide(m.profiles, texts)
}

// getOrCreate はキャッシュ済み Embedder を返すか、なければ構築してキャッシュする
// 同一キーに対する構築は一度だけ行われる
func (m *Manager) getOrCreate(key string) Embedder {
	m.mu.Lock()
	defer m.mu.Unlock()

	if emb, ok := m.cache[key]; ok {
		return emb
	}
	emb := m.construct(key)
	m.cache[key] = emb
	return emb
}

func (m *Manager) construct(key string) Embedder {
	prof, ok := m.profiles[key]
	if !ok {
		m.logger.Warn("プロファイルが見つからないためフォールバックを使用します", "profile", key)
		return NewFallbackEmbedder(384, true, fallbackKey)
	}

	if prof.Kind == KindFallback {
		return NewFallbackEmbedder(prof.Dim, prof.Normalize, key)
	}

	if m.factory != nil {
		emb, err := m.factory(prof)
		if err == nil {
			return emb
		}
		m.logger.Warn("Embedderの構築に失敗したためフォールバックを使用します", "profile", key, "kind", prof.Kind, "error", err)
	} else {
		m.logger.Warn("未知の埋め込み種別のためフォールバックを使用します", "profile", key, "kind", prof.Kind)
	}

	return NewFallbackEmbedder(prof.Dim, prof.Normalize, fmt.Sprintf("%s_fb", key))
}

// signatureFor はプロファイル設定からシグネチャを生成する
// 形式は key:sha256(設定の正規化JSON)の先頭12桁
func (m *Manager) signatureFor(key string) string {
	var raw map[string]any
	if prof, ok := m.profiles[key]; ok {
		raw = map[string]any{
			"kind":      prof.Kind,
			"model":     prof.Model,
			"dim":       prof.Dim,
			"normalize": prof.Normalize,
			"device":    prof.Device,
			"batchSize": prof.BatchSize,
		}
	} else {
		raw = map[string]any{"kind": "fallback", "dim": 384, "normalize": true}
	}

	blob, _ := json.Marshal(raw)
	sum := sha256.Sum256(blob)
	return fmt.Sprintf("%s:%s", key, hex.EncodeToString(sum[:])[:12])
}

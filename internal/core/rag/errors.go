package rag

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration は設定不備（未知のストラテジ名や次元不一致など）を表す
	// 即座に報告され、リトライされない
	ErrConfiguration = errors.New("configuration error")

	// ErrCapability は外部機能（Embedding/生成/解析）の失敗を表す
	// 安全な縮退経路がある場合はローカルで回復される
	ErrCapability = errors.New("capability error")

	// ErrNoDocuments は取り込み対象の文書が空であることを表す
	ErrNoDocuments = errors.New("no documents to ingest")
)

// ConfigErrorf は ErrConfiguration を包んだ設定エラーを作成する
func ConfigErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// CapabilityErrorf は ErrCapability を包んだ外部機能エラーを作成する
func CapabilityErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCapability, fmt.Sprintf(format, args...))
}

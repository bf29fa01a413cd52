package loader

import (
	"context"
	"crypto/md5"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/jinford/ragkit/internal/core/rag"
)

// supportedExtensions は取り込み対象のファイル拡張子
var supportedExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".txt":      true,
}

var markdownTitleRe = regexp.MustCompile(`(?m)^#\s+(.+)$`)

// DirLoader はディレクトリ配下のテキストファイルを文書として読み込む
// .gitignore のパターンに一致するファイルはスキップする
type DirLoader struct {
	logger *slog.Logger
}

// NewDirLoader は新しい DirLoader を作成する
func NewDirLoader(logger *slog.Logger) *DirLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &DirLoader{logger: logger}
}

// Load はディレクトリを走査して文書を読み込む
func (l *DirLoader) Load(_ context.Context, root string) ([]rag.Document, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", root, err)
	}
	if !info.IsDir() {
		doc, err := loadFile(root)
		if err != nil {
			return nil, err
		}
		return []rag.Document{doc}, nil
	}

	var matcher *ignore.GitIgnore
	if gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore")); err == nil {
		matcher = gi
	}

	var docs []rag.Document
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}

		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			if matcher != nil && rel != "." && matcher.MatchesPath(rel) {
				return filepath.SkipDir
			}
			return nil
		}

		if !supportedExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		if matcher != nil && matcher.MatchesPath(rel) {
			return nil
		}

		doc, loadErr := loadFile(path)
		if loadErr != nil {
			l.logger.Warn("ファイルの読み込みに失敗したためスキップします", "path", path, "error", loadErr)
			return nil
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	l.logger.Info("ディレクトリから文書を読み込みました", "root", root, "documents", len(docs))
	return docs, nil
}

// loadFile は1ファイルを文書として読み込む
// Markdown の場合は最初の見出しをタイトルにする
func loadFile(path string) (rag.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return rag.Document{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	content := string(data)
	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if m := markdownTitleRe.FindStringSubmatch(content); m != nil {
		title = strings.TrimSpace(m[1])
	}

	return rag.Document{
		ID:     documentID(path),
		Title:  title,
		Source: "file://" + path,
		Text:   content,
	}, nil
}

// documentID はファイルパスから安定した文書IDを生成する
func documentID(path string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(path)))[:8]
}

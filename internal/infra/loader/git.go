package loader

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	giturls "github.com/whilp/git-urls"

	"github.com/jinford/ragkit/internal/core/rag"
)

// GitLoader は Git リポジトリをクローンして文書を読み込む
// 取得済みのリポジトリはキャッシュディレクトリで再利用する
type GitLoader struct {
	cacheDir string
	dir      *DirLoader
	logger   *slog.Logger
}

// NewGitLoader は新しい GitLoader を作成する
// cacheDir が空の場合はユーザーキャッシュ配下を使う
func NewGitLoader(cacheDir string, logger *slog.Logger) *GitLoader {
	if logger == nil {
		logger = slog.Default()
	}
	if cacheDir == "" {
		if base, err := os.UserCacheDir(); err == nil {
			cacheDir = filepath.Join(base, "ragkit", "repos")
		} else {
			cacheDir = filepath.Join(os.TempDir(), "ragkit-repos")
		}
	}
	return &GitLoader{
		cacheDir: cacheDir,
		dir:      NewDirLoader(logger),
		logger:   logger,
	}
}

// Load はリポジトリをクローンまたは更新し、配下の文書を読み込む
// ref が空の場合はデフォルトブランチを使う
func (l *GitLoader) Load(ctx context.Context, url, ref string) ([]rag.Document, error) {
	dest, err := l.repoDir(url)
	if err != nil {
		return nil, err
	}

	if err := l.cloneOrPull(ctx, url, dest, ref); err != nil {
		return nil, err
	}

	docs, err := l.dir.Load(ctx, dest)
	if err != nil {
		return nil, err
	}

	// ソースはローカルパスではなくリポジトリURLにする
	for i := range docs {
		rel := strings.TrimPrefix(docs[i].Source, "file://"+dest)
		docs[i].Source = url + strings.ReplaceAll(rel, string(filepath.Separator), "/")
	}
	return docs, nil
}

// repoDir はリポジトリURLからキャッシュ先ディレクトリを決定する
func (l *GitLoader) repoDir(url string) (string, error) {
	u, err := giturls.Parse(url)
	if err != nil {
		return "", fmt.Errorf("failed to parse git URL: %w", err)
	}

	hostname := u.Hostname()
	if hostname == "" {
		hostname = u.Host
	}

	path := strings.TrimPrefix(u.Path, "/")
	path = strings.TrimSuffix(path, ".git")

	return filepath.Join(l.cacheDir, hostname, filepath.FromSlash(path)), nil
}

// cloneOrPull はリポジトリが存在しない場合はクローン、存在する場合は更新する
func (l *GitLoader) cloneOrPull(ctx context.Context, url, dest, ref string) error {
	if _, err := os.Stat(filepath.Join(dest, ".git")); os.IsNotExist(err) {
		l.logger.Info("リポジトリをクローンします", "url", url, "dest", dest)

		opts := &git.CloneOptions{URL: url, Depth: 1}
		if ref != "" {
			opts.ReferenceName = plumbing.NewBranchReferenceName(ref)
			opts.SingleBranch = true
		}

		if _, err := git.PlainCloneContext(ctx, dest, false, opts); err != nil {
			return fmt.Errorf("failed to clone repository: %w", err)
		}
		return nil
	}

	repo, err := git.PlainOpen(dest)
	if err != nil {
		return fmt.Errorf("failed to open repository: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	err = worktree.PullContext(ctx, &git.PullOptions{RemoteName: "origin"})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		return fmt.Errorf("failed to pull repository: %w", err)
	}

	if ref != "" {
		err = worktree.Checkout(&git.CheckoutOptions{
			Branch: plumbing.NewBranchReferenceName(ref),
			Force:  true,
		})
		if err != nil {
			return fmt.Errorf("failed to checkout %s: %w", ref, err)
		}
	}
	return nil
}

package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce はエディタの連続書き込みをまとめる待ち時間
const reloadDebounce = 500 * time.Millisecond

// ReloadFunc は設定の再読み込みに成功したときに呼ばれるコールバック
type ReloadFunc func(cfg *Config)

// Watcher は設定ファイルを監視し、変更時に設定全体を読み直す
// 再読み込みに失敗した場合は既存の設定を維持し、コールバックを呼ばない
type Watcher struct {
	path     string
	envFile  string
	onReload ReloadFunc
	logger   *slog.Logger

	watcher *fsnotify.Watcher
	timer   *time.Timer
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewWatcher は新しい設定ファイル Watcher を作成する
func NewWatcher(path, envFile string, logger *slog.Logger, onReload ReloadFunc) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		path:     path,
		envFile:  envFile,
		onReload: onReload,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start は監視を開始する
func (w *Watcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	// ファイル自体ではなく親ディレクトリを監視する
	// エディタのアトミック保存(rename)でもイベントを取りこぼさないため
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch config dir: %w", err)
	}
	w.watcher = watcher

	w.logger.Info("設定ファイルの監視を開始します", "path", w.path)

	go w.loop(ctx)
	return nil
}

// Stop は監視を停止する
func (w *Watcher) Stop() {
	close(w.stopCh)
	<-w.doneCh

	if w.timer != nil {
		w.timer.Stop()
	}
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.doneCh)
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.scheduleReload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("設定ファイルの監視でエラーが発生しました", "error", err)
		}
	}
}

func (w *Watcher) scheduleReload() {
	if w.timer != nil {
		w.timer.Reset(reloadDebounce)
		return
	}
	w.timer = time.AfterFunc(reloadDebounce, w.reload)
}

// reload は設定全体を読み直してコールバックに渡す
func (w *Watcher) reload() {
	select {
	case <-w.stopCh:
		return
	default:
	}

	cfg, err := Load(w.envFile)
	if err != nil {
		w.logger.Error("設定の再読み込みに失敗したため既存の設定を維持します", "path", w.path, "error", err)
		return
	}

	w.logger.Info("設定を再読み込みしました", "path", w.path)
	w.onReload(cfg)
}

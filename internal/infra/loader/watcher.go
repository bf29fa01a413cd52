package loader

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jinford/ragkit/internal/core/rag"
)

// defaultDebounce は書き込み完了を待つ安定化時間
const defaultDebounce = 2 * time.Second

// IngestFunc は監視中に検出した文書を取り込むコールバック
type IngestFunc func(ctx context.Context, docs []rag.Document) error

// FolderWatcher はフォルダを監視し、追加・更新されたファイルを自動で取り込む
// 書き込み途中のファイルを拾わないよう、イベントをデバウンスしてから読み込む
type FolderWatcher struct {
	dir      string
	debounce time.Duration
	ingest   IngestFunc
	logger   *slog.Logger

	watcher *fsnotify.Watcher
	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// WatcherOption は FolderWatcher のオプション
type WatcherOption func(*FolderWatcher)

// WithDebounce はファイル安定化の待ち時間を指定する
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *FolderWatcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithWatcherLogger はロガーを指定する
func WithWatcherLogger(logger *slog.Logger) WatcherOption {
	return func(w *FolderWatcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewFolderWatcher は新しい FolderWatcher を作成する
func NewFolderWatcher(dir string, ingest IngestFunc, opts ...WatcherOption) (*FolderWatcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat watch dir %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch target is not a directory: %s", dir)
	}

	w := &FolderWatcher{
		dir:      dir,
		debounce: defaultDebounce,
		ingest:   ingest,
		logger:   slog.Default(),
		timers:   make(map[string]*time.Timer),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start は監視を開始する。Stop が呼ばれるまでブロックしない
func (w *FolderWatcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	w.watcher = watcher

	// サブディレクトリも監視対象に含める
	err = filepath.WalkDir(w.dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}

	w.logger.Info("フォルダ監視を開始します", "dir", w.dir, "debounce", w.debounce)

	go w.loop(ctx)
	return nil
}

// Stop は監視を停止し、保留中のタイマーを破棄する
func (w *FolderWatcher) Stop() {
	close(w.stopCh)
	<-w.doneCh

	w.mu.Lock()
	defer w.mu.Unlock()
	for path, timer := range w.timers {
		timer.Stop()
		delete(w.timers, path)
	}
}

func (w *FolderWatcher) loop(ctx context.Context) {
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
			w.handleEvent(ctx, event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("フォルダ監視でエラーが発生しました", "error", err)
		}
	}
}

func (w *FolderWatcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	// 新しく作成されたディレクトリは監視対象に追加する
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.watcher.Add(event.Name); err != nil {
				w.logger.Warn("ディレクトリの監視追加に失敗しました", "path", event.Name, "error", err)
			}
			return
		}
	}

	if !supportedExtensions[strings.ToLower(filepath.Ext(event.Name))] {
		return
	}

	// 同一ファイルへの連続イベントはタイマーをリセットしてまとめる
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.timers[event.Name]; ok {
		timer.Reset(w.debounce)
		return
	}

	path := event.Name
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		w.processFile(ctx, path)
	})
}

// processFile は安定したファイルを読み込み、取り込みコールバックに渡す
func (w *FolderWatcher) processFile(ctx context.Context, path string) {
	select {
	case <-w.stopCh:
		return
	default:
	}

	doc, err := loadFile(path)
	if err != nil {
		w.logger.Warn("ファイルの読み込みに失敗しました", "path", path, "error", err)
		return
	}

	w.logger.Info("ファイルの変更を検出したため取り込みます", "path", path, "document_id", doc.ID)

	if err := w.ingest(ctx, []rag.Document{doc}); err != nil {
		w.logger.Error("文書の取り込みに失敗しました", "path", path, "error", err)
	}
}

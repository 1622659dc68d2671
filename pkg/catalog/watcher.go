package catalog

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/lk2023060901/xdooria-persist/pkg/logger"
)

// Watcher 监听目录文件变化并热更新 Table
// 重新加载失败时保留旧表
type Watcher struct {
	table    *Table
	dataDir  string
	logger   logger.Logger
	debounce time.Duration

	fsw  *fsnotify.Watcher
	done chan struct{}
	wg   sync.WaitGroup

	mu        sync.Mutex
	callbacks []func(*Table)
	stopOnce  sync.Once
}

// NewWatcher 创建监听器，需调用 Start 开始监听
func NewWatcher(table *Table, dataDir string, l logger.Logger) (*Watcher, error) {
	if l == nil {
		l = logger.NewNoop()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dataDir); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return &Watcher{
		table:    table,
		dataDir:  dataDir,
		logger:   l.Named("catalog.watcher"),
		debounce: 100 * time.Millisecond,
		fsw:      fsw,
		done:     make(chan struct{}),
	}, nil
}

// OnReload 注册重新加载成功后的回调
func (w *Watcher) OnReload(fn func(*Table)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, fn)
}

// Start 启动监听协程
func (w *Watcher) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop 停止监听并等待协程退出
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		_ = w.fsw.Close()
	})
	w.wg.Wait()
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Ext(ev.Name) != ".json" {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) &&
				!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			// 编辑器保存常产生多次事件，合并为一次加载
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			w.reload()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("catalog watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	entries, err := LoadDir(w.dataDir, w.logger)
	if err != nil {
		w.logger.Error("catalog reload failed, keeping previous table", "dir", w.dataDir, "error", err)
		return
	}
	w.table.Replace(entries)
	w.logger.Info("catalog reloaded", "entries", w.table.Len())

	w.mu.Lock()
	callbacks := append([]func(*Table){}, w.callbacks...)
	w.mu.Unlock()
	for _, fn := range callbacks {
		fn(w.table)
	}
}

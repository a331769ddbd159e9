package deploy

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReloadCallback 配置重新加载成功后调用
type ReloadCallback func(cfg *Config)

// Watcher 监听配置文件，变化时重新加载到 Table
// 监听所在目录，编辑器以替换方式保存文件时同样生效
type Watcher struct {
	file     string
	table    *Table
	logger   *slog.Logger
	debounce time.Duration

	fsWatcher *fsnotify.Watcher

	mu        sync.Mutex
	callbacks []ReloadCallback
	timer     *time.Timer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// WatcherOption 监听器选项
type WatcherOption func(*Watcher)

// WithDebounce 合并连续文件事件的等待时间
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger 设置日志器
func WithLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWatcher 创建监听器，table 通常与 Actor 系统的 Deployer 为同一实例
func NewWatcher(file string, table *Table, opts ...WatcherOption) (*Watcher, error) {
	abs, err := filepath.Abs(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigWatch, err)
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigWatch, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		file:      abs,
		table:     table,
		logger:    slog.Default(),
		debounce:  200 * time.Millisecond,
		fsWatcher: fsWatcher,
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// OnReload 注册重新加载回调
func (w *Watcher) OnReload(cb ReloadCallback) {
	w.mu.Lock()
	w.callbacks = append(w.callbacks, cb)
	w.mu.Unlock()
}

// Start 开始监听
func (w *Watcher) Start() error {
	if err := w.fsWatcher.Add(filepath.Dir(w.file)); err != nil {
		return fmt.Errorf("%w: %v", ErrConfigWatch, err)
	}
	w.wg.Add(1)
	go w.watchLoop()
	w.logger.Debug("watching deployment config", "file", w.file)
	return nil
}

// Stop 停止监听
func (w *Watcher) Stop() error {
	w.cancel()
	err := w.fsWatcher.Close()
	w.wg.Wait()

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return err
}

// Reload 立即重新加载，失败时保留旧表
func (w *Watcher) Reload() error {
	cfg, err := Load(w.file)
	if err != nil {
		return err
	}
	if err := w.table.Update(cfg); err != nil {
		return err
	}

	w.mu.Lock()
	callbacks := make([]ReloadCallback, len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.Unlock()

	for _, cb := range callbacks {
		w.safeCall(cb, cfg)
	}
	w.logger.Info("deployment config reloaded", "file", w.file, "rules", w.table.Len())
	return nil
}

func (w *Watcher) safeCall(cb ReloadCallback, cfg *Config) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("reload callback panicked", "error", r)
		}
	}()
	cb(cfg)
}

func (w *Watcher) watchLoop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.file {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.scheduleReload()
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("deployment config watcher error", "error", err)
		}
	}
}

// scheduleReload 重置防抖计时器
func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		if w.ctx.Err() != nil {
			return
		}
		if err := w.Reload(); err != nil {
			w.logger.Error("failed to reload deployment config, keeping previous table", "file", w.file, "error", err)
		}
	})
}

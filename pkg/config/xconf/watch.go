package xconf

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchCallback 配置重载后的回调，err 表示本次重载是否成功。
type WatchCallback func(src *Source, err error)

// WatchOption 配置监视器。
type WatchOption func(*Watcher)

// WithDebounce 设置防抖窗口，窗口内的多次变更只触发一次重载。
// 默认 100ms。
func WithDebounce(d time.Duration) WatchOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// Watcher 监视配置文件变更并自动重载。
type Watcher struct {
	src      *Source
	watcher  *fsnotify.Watcher
	callback WatchCallback
	debounce time.Duration
	ctx      context.Context
	cancel   context.CancelFunc

	mu      sync.Mutex
	running bool
	timer   *time.Timer
}

// Watch 创建配置文件监视器。
//
// 监视的是文件所在目录而非文件本身：编辑器和 ConfigMap 更新
// 常用"写临时文件再 rename"的原子替换方式，直接监视文件会丢事件。
// 返回的 Watcher 需调用 [Watcher.Start] 开始监视。
func Watch(src *Source, callback WatchCallback, opts ...WatchOption) (*Watcher, error) {
	if src == nil || src.path == "" {
		return nil, ErrNotReloadable
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("xconf: create watcher: %w", err)
	}
	dir := filepath.Dir(src.path)
	if err := fsWatcher.Add(dir); err != nil {
		return nil, errors.Join(fmt.Errorf("xconf: watch %s: %w", dir, err), fsWatcher.Close())
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		src:      src,
		watcher:  fsWatcher,
		callback: callback,
		debounce: 100 * time.Millisecond,
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w, nil
}

// Start 在后台 goroutine 启动监视，立即返回。重复调用无效果。
func (w *Watcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	w.running = true
	go w.run()
}

// Stop 停止监视并释放资源。
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return nil
	}
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.cancel()
	w.running = false
	return w.watcher.Close()
}

func (w *Watcher) run() {
	filename := filepath.Base(w.src.path)
	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event, filename)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if w.callback != nil {
				w.callback(w.src, fmt.Errorf("xconf: watch error: %w", err))
			}
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event, filename string) {
	if filepath.Base(event.Name) != filename {
		return
	}
	// Write 直接修改；Create/Rename 覆盖原子替换写入
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case <-w.ctx.Done():
			return
		default:
		}
		err := w.src.Reload()
		if w.callback != nil {
			w.callback(w.src, err)
		}
	})
}

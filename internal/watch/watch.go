package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ndastur/TiCons-CLI/internal/scan"
)

// DefaultDebounce 合并短时间内的连续事件（编辑器保存通常会触发多次写入）。
const DefaultDebounce = 500 * time.Millisecond

// Watcher 监听输入树的变化，并在变化平息后触发一次重新生成。
//
// 触发函数在事件循环内同步调用：两次运行绝不会重叠。
type Watcher struct {
	fsw      *fsnotify.Watcher
	input    string
	file     string // 单文件输入时为其绝对路径
	Debounce time.Duration
	Log      *slog.Logger
}

// New 为 input（目录或单个文件）创建监听器；目录会递归加入。
func New(input string) (*Watcher, error) {
	input, err := filepath.Abs(input)
	if err != nil {
		return nil, err
	}
	fi, err := os.Stat(input)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("创建 fsnotify watcher 失败：%w", err)
	}
	w := &Watcher{fsw: fsw, input: input, Debounce: DefaultDebounce}

	if !fi.IsDir() {
		// 单文件：监听父目录，只关心该文件本身。
		w.file = input
		if err := fsw.Add(filepath.Dir(input)); err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("监听目录 %s 失败：%w", filepath.Dir(input), err)
		}
		return w, nil
	}

	if err := w.addTree(input); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Close 释放底层 fsnotify 资源。
func (w *Watcher) Close() error { return w.fsw.Close() }

// Run 阻塞直到 ctx 结束；每当输入树发生相关变化并平息 Debounce 后调用 trigger。
// trigger 的错误只记录，不会结束监听。
func (w *Watcher) Run(ctx context.Context, trigger func(ctx context.Context) error) error {
	log := w.Log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			log.Debug("检测到变化", "path", ev.Name, "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(debounce)
			}
			fire = timer.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			log.Warn("watcher 错误", "err", err)

		case <-fire:
			fire = nil
			if err := trigger(ctx); err != nil {
				log.Error("重新生成失败", "err", err)
			}
		}
	}
}

// relevant 判断事件是否需要触发重新生成；新建目录会顺带加入监听。
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if w.file != "" {
		return filepath.Clean(ev.Name) == w.file
	}

	base := filepath.Base(ev.Name)
	if strings.HasPrefix(base, ".") {
		return false
	}

	if ev.Op&fsnotify.Create == fsnotify.Create {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			_ = w.addTree(ev.Name)
			return true
		}
	}
	return scan.IsImageName(base)
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("监听目录 %s 失败：%w", path, err)
		}
		return nil
	})
}

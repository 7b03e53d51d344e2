package provider

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/hatlonely/flakeless/log"
	"github.com/pkg/errors"
)

type FileProviderOptions struct {
	FilePath string `cfg:"filePath" validate:"required"`
}

// FileProvider 从本地文件读取配置，通过 fsnotify 监听文件所在目录
// 编辑器保存文件时常用改名替换，所以同时处理 Write 和 Create 事件
type FileProvider struct {
	filePath string

	mu       sync.RWMutex
	onChange []func(data []byte) error
	watcher  *fsnotify.Watcher
	done     chan struct{}
	once     sync.Once
}

func NewFileProviderWithOptions(options *FileProviderOptions) (*FileProvider, error) {
	if options == nil || options.FilePath == "" {
		return nil, errors.New("file path is required")
	}

	absPath, err := filepath.Abs(options.FilePath)
	if err != nil {
		return nil, errors.Wrap(err, "invalid file path")
	}

	return &FileProvider{filePath: absPath}, nil
}

func (p *FileProvider) FilePath() string {
	return p.filePath
}

func (p *FileProvider) Load() ([]byte, error) {
	data, err := os.ReadFile(p.filePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read file")
	}
	return data, nil
}

func (p *FileProvider) Save(data []byte) error {
	if err := os.WriteFile(p.filePath, data, 0644); err != nil {
		return errors.Wrap(err, "failed to write file")
	}
	return nil
}

func (p *FileProvider) OnChange(fn func(data []byte) error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onChange = append(p.onChange, fn)
}

// Watch 多次调用只启动一次监听
func (p *FileProvider) Watch() error {
	var initErr error
	p.once.Do(func() {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			initErr = errors.Wrap(err, "failed to create file watcher")
			return
		}
		if err := watcher.Add(filepath.Dir(p.filePath)); err != nil {
			_ = watcher.Close()
			initErr = errors.Wrap(err, "failed to add directory to watcher")
			return
		}

		p.mu.Lock()
		p.watcher = watcher
		p.done = make(chan struct{})
		p.mu.Unlock()

		go p.watch(watcher, p.done)
	})
	return initErr
}

func (p *FileProvider) watch(watcher *fsnotify.Watcher, done chan struct{}) {
	defer close(done)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != p.filePath || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			data, err := os.ReadFile(p.filePath)
			if err != nil {
				log.Default().Warn("failed to read changed file", "file", p.filePath, "error", err)
				continue
			}

			p.mu.RLock()
			handlers := make([]func(data []byte) error, len(p.onChange))
			copy(handlers, p.onChange)
			p.mu.RUnlock()

			for _, handler := range handlers {
				if err := handler(data); err != nil {
					log.Default().Warn("file change handler failed", "file", p.filePath, "error", err)
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Default().Warn("file watcher error", "file", p.filePath, "error", err)
		}
	}
}

// Close 停止监听并等待监听协程退出
func (p *FileProvider) Close() error {
	p.mu.Lock()
	watcher, done := p.watcher, p.done
	p.watcher = nil
	p.mu.Unlock()

	if watcher == nil {
		return nil
	}
	err := watcher.Close()
	<-done
	return err
}

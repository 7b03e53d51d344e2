package cfg

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hatlonely/flakeless/cfg/decoder"
	"github.com/hatlonely/flakeless/cfg/def"
	"github.com/hatlonely/flakeless/cfg/provider"
	"github.com/hatlonely/flakeless/cfg/storage"
	"github.com/hatlonely/flakeless/log"
	"github.com/hatlonely/flakeless/ref"
	"github.com/pkg/errors"
)

// Options 配置类初始化选项
type Options struct {
	Provider ref.TypeOptions  `cfg:"provider"`
	Decoder  ref.TypeOptions  `cfg:"decoder"`
	Logger   *ref.TypeOptions `cfg:"logger"`
	// HandlerTimeout 单个变更回调的超时时间
	HandlerTimeout time.Duration `cfg:"handlerTimeout" def:"5s"`
}

// Config 配置管理器
// 子配置共享根配置的存储和回调，只记录相对根配置的前缀
type Config struct {
	parent *Config
	prefix string

	// 只有根配置使用以下字段
	provider       provider.Provider
	decoder        decoder.Decoder
	logger         log.Logger
	handlerTimeout time.Duration

	mu       sync.RWMutex
	storage  storage.Storage
	handlers map[string][]func(*Config) error

	closeOnce sync.Once
	closeErr  error
}

func NewConfigWithOptions(options *Options) (*Config, error) {
	if options == nil {
		return nil, errors.New("options cannot be nil")
	}
	if err := def.SetDefaults(options); err != nil {
		return nil, errors.WithMessage(err, "failed to set defaults")
	}

	prov, err := provider.NewProviderWithOptions(&options.Provider)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create provider")
	}

	dec, err := decoder.NewDecoderWithOptions(&options.Decoder)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create decoder")
	}

	logger, err := log.NewLoggerWithOptions(options.Logger)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create logger")
	}

	data, err := prov.Load()
	if err != nil {
		return nil, errors.WithMessage(err, "failed to load data from provider")
	}

	stor, err := dec.Decode(data)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to decode data")
	}

	c := &Config{
		provider:       prov,
		decoder:        dec,
		logger:         logger,
		handlerTimeout: options.HandlerTimeout,
		storage:        storage.NewValidateStorage(stor),
		handlers:       map[string][]func(*Config) error{},
	}

	prov.OnChange(c.handleProviderChange)

	return c, nil
}

// NewConfig 从文件中加载配置，根据文件后缀选择解码器：
//
//	.json/.json5 -> JsonDecoder
//	.yaml/.yml -> YamlDecoder
//	.toml -> TomlDecoder
//	.ini -> IniDecoder
func NewConfig(filename string) (*Config, error) {
	if filename == "" {
		return nil, errors.New("filename cannot be empty")
	}

	var decoderType string
	var decoderOptions any

	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".json", ".json5":
		decoderType = "JsonDecoder"
		decoderOptions = &decoder.JsonDecoderOptions{UseJSON5: ext == ".json5"}
	case ".yaml", ".yml":
		decoderType = "YamlDecoder"
	case ".toml":
		decoderType = "TomlDecoder"
	case ".ini":
		decoderType = "IniDecoder"
		decoderOptions = &decoder.IniDecoderOptions{AllowShadows: true}
	default:
		return nil, errors.Errorf("unsupported file extension: %s", ext)
	}

	return NewConfigWithOptions(&Options{
		Provider: ref.TypeOptions{
			Namespace: "github.com/hatlonely/flakeless/cfg/provider",
			Type:      "FileProvider",
			Options:   &provider.FileProviderOptions{FilePath: filename},
		},
		Decoder: ref.TypeOptions{
			Namespace: "github.com/hatlonely/flakeless/cfg/decoder",
			Type:      decoderType,
			Options:   decoderOptions,
		},
	})
}

// handleProviderChange 重新解码数据，并触发数据有变化的 key 的回调
// 解码失败时保留旧配置，文件被截断后的空内容直接忽略
func (c *Config) handleProviderChange(data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	newStorage, err := c.decoder.Decode(data)
	if err != nil {
		c.logger.Warn("failed to decode changed config, keep the old one", "error", err)
		return errors.WithMessage(err, "failed to decode new data")
	}

	stor := storage.NewValidateStorage(newStorage)

	c.mu.Lock()
	oldStorage := c.storage
	c.storage = stor
	handlers := make(map[string][]func(*Config) error, len(c.handlers))
	for key, fns := range c.handlers {
		handlers[key] = append([]func(*Config) error(nil), fns...)
	}
	c.mu.Unlock()

	for key, fns := range handlers {
		if oldStorage.Sub(key).Equals(stor.Sub(key)) {
			continue
		}
		for i, fn := range fns {
			c.executeHandler(key, i, fn)
		}
	}
	return nil
}

// executeHandler 执行单个回调，超时后不再等待
func (c *Config) executeHandler(key string, index int, fn func(*Config) error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.handlerTimeout)
	defer cancel()

	result := make(chan error, 1)
	start := time.Now()
	go func() {
		result <- fn(c.Sub(key))
	}()

	select {
	case err := <-result:
		if err != nil {
			c.logger.Error("onChange handler failed", "key", key, "index", index, "duration", time.Since(start), "error", err)
			return
		}
		c.logger.Info("onChange handler succeeded", "key", key, "index", index, "duration", time.Since(start))
	case <-ctx.Done():
		c.logger.Error("onChange handler timeout", "key", key, "index", index, "timeout", c.handlerTimeout)
	}
}

// Sub 获取子配置对象，key 为空时返回自身
func (c *Config) Sub(key string) *Config {
	if key == "" {
		return c
	}

	prefix := key
	if c.parent != nil {
		prefix = c.prefix + "." + key
	}
	return &Config{parent: c.root(), prefix: prefix}
}

// ConvertTo 将配置数据转成结构体或者 map/slice 等任意结构
// 结构体会设置 def tag 中的默认值，并按 validate tag 校验
func (c *Config) ConvertTo(object any) error {
	root := c.root()
	root.mu.RLock()
	s := root.storage
	root.mu.RUnlock()

	return s.Sub(c.prefix).ConvertTo(object)
}

// Key 子配置相对根配置的路径
func (c *Config) Key() string {
	return c.prefix
}

// OnChange 监听当前配置的变更
func (c *Config) OnChange(fn func(*Config) error) {
	c.root().OnKeyChange(c.prefix, fn)
}

// OnKeyChange 监听指定键的配置变更，回调参数是该键对应的子配置
func (c *Config) OnKeyChange(key string, fn func(*Config) error) {
	if c.parent != nil {
		key = c.prefix + "." + key
	}

	root := c.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	root.handlers[key] = append(root.handlers[key], fn)
}

// Watch 启动配置变更监听
// 启动后主动加载一次，防止丢失 NewConfig 和 Watch 之间的变更
func (c *Config) Watch() error {
	root := c.root()
	if err := root.provider.Watch(); err != nil {
		return errors.WithMessage(err, "failed to watch provider")
	}

	data, err := root.provider.Load()
	if err != nil {
		root.logger.Warn("failed to reload config after watch", "error", err)
		return nil
	}
	_ = root.handleProviderChange(data)
	return nil
}

// Close 关闭配置，多次调用返回第一次的结果
func (c *Config) Close() error {
	root := c.root()
	root.closeOnce.Do(func() {
		root.closeErr = root.provider.Close()
	})
	return root.closeErr
}

func (c *Config) root() *Config {
	if c.parent != nil {
		return c.parent
	}
	return c
}

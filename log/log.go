package log

import (
	"github.com/hatlonely/flakeless/log/logger"
	"github.com/hatlonely/flakeless/ref"
	"github.com/pkg/errors"
)

type Logger = logger.Logger

var defaultLogger logger.Logger

func init() {
	ref.MustRegisterT[logger.SLog](logger.NewSLogWithOptions)

	slog, err := logger.NewSLogWithOptions(&logger.SLogOptions{
		Level:  "info",
		Format: "text",
	})
	if err != nil {
		panic("failed to initialize default logger: " + err.Error())
	}
	defaultLogger = slog
}

// Default 进程默认日志器，text 格式输出到标准输出
func Default() Logger {
	return defaultLogger
}

// NewLoggerWithOptions 通过 ref 创建日志器，options 为 nil 时返回默认日志器
func NewLoggerWithOptions(options *ref.TypeOptions) (Logger, error) {
	if options == nil || options.Type == "" {
		return Default(), nil
	}

	obj, err := ref.New(options.Namespace, options.Type, options.Options)
	if err != nil {
		return nil, errors.WithMessage(err, "ref.New failed")
	}

	l, ok := obj.(Logger)
	if !ok {
		return nil, errors.New("logger is not a Logger")
	}
	return l, nil
}

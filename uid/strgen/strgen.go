package strgen

import (
	"context"

	"github.com/hatlonely/flakeless/ref"
	"github.com/pkg/errors"
)

func init() {
	ref.MustRegisterT[FlakeGenerator](NewFlakeGeneratorWithOptions)
	ref.MustRegisterT[ObservableGenerator](NewObservableGeneratorWithOptions)
}

var (
	ErrInvalidOutputType = errors.New("invalid output type")
	ErrInvalidID         = errors.New("invalid id")
)

// StrGenerator 生成字符串UID的接口
type StrGenerator interface {
	// Generate 生成一个字符串UID
	Generate() (string, error)
}

// ContextGenerator 支持上下文的生成器，用于链路追踪
type ContextGenerator interface {
	GenerateContext(ctx context.Context) (string, error)
}

// NewStrGeneratorWithOptions 创建字符串生成器
func NewStrGeneratorWithOptions(options *ref.TypeOptions) (StrGenerator, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}

	generator, err := ref.New(options.Namespace, options.Type, options.Options)
	if err != nil {
		return nil, errors.WithMessage(err, "ref.New failed")
	}
	if generator == nil {
		return nil, errors.New("generator is nil")
	}

	strGenerator, ok := generator.(StrGenerator)
	if !ok {
		return nil, errors.New("generator is not a StrGenerator")
	}
	return strGenerator, nil
}

package intgen

import (
	"github.com/hatlonely/flakeless/ref"
	"github.com/pkg/errors"
)

func init() {
	ref.MustRegisterT[TimestampSeqGenerator](NewTimestampSeqGeneratorWithOptions)
	ref.MustRegisterT[SnowflakeGenerator](NewSnowflakeGeneratorWithOptions)
	ref.MustRegisterT[SonyflakeGenerator](NewSonyflakeGeneratorWithOptions)
}

var (
	// ErrSequenceExhausted 同一毫秒内已生成 4096 个 ID，时钟前进后重试即可
	ErrSequenceExhausted = errors.New("sequence exhausted in current millisecond")
	// ErrClockMovedBackwards 时钟早于上一次生成 ID 的时间，拒绝生成
	ErrClockMovedBackwards = errors.New("clock moved backwards")
	// ErrClockBeforeEpoch 时钟早于配置的起始纪元
	ErrClockBeforeEpoch = errors.New("clock is before epoch start")
	// ErrTimestampOutOfRange 相对时间戳超出状态可表示的范围
	ErrTimestampOutOfRange = errors.New("timestamp out of range")
)

// IsTransient 判断错误是否可以通过稍后重试恢复
func IsTransient(err error) bool {
	cause := errors.Cause(err)
	return cause == ErrSequenceExhausted || cause == ErrClockMovedBackwards
}

// IntGenerator 生成64位整数UID的接口
type IntGenerator interface {
	// Generate 生成一个64位整数UID，失败时不修改生成器状态
	Generate() (uint64, error)
}

// NewIntGeneratorWithOptions 创建整数生成器
func NewIntGeneratorWithOptions(options *ref.TypeOptions) (IntGenerator, error) {
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

	intGenerator, ok := generator.(IntGenerator)
	if !ok {
		return nil, errors.New("generator is not an IntGenerator")
	}
	return intGenerator, nil
}

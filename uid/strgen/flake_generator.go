package strgen

import (
	"github.com/hatlonely/flakeless/uid/intgen"
)

// Options FlakeGenerator 配置
type Options struct {
	// 起始纪元，自 Unix 纪元以来的毫秒数，默认 0
	EpochStart uint64 `cfg:"epochStart"`
	// 机器ID，默认 0，只保留低10位
	WorkerID uint64 `cfg:"workerID"`
	// WorkerID 为 0 时从本机 IP 地址推导
	WorkerIDFromIP bool `cfg:"workerIDFromIP"`
	// 输出格式：base10, base16, base64
	OutputType string `cfg:"outputType" def:"base64" validate:"omitempty,oneof=base10 base16 base64"`
	// 时钟，为空时使用系统时钟
	Clock intgen.Clock `cfg:"-"`
}

// FlakeGenerator 生成 Snowflake ID 并按配置的格式编码
type FlakeGenerator struct {
	snowflake *intgen.SnowflakeGenerator
	format    Format
}

// NewFlakeGeneratorWithOptions 创建生成器，未知的 OutputType 返回 ErrInvalidOutputType
func NewFlakeGeneratorWithOptions(options *Options) (*FlakeGenerator, error) {
	if options == nil {
		options = &Options{}
	}

	format, err := ParseFormat(options.OutputType)
	if err != nil {
		return nil, err
	}

	return &FlakeGenerator{
		snowflake: intgen.NewSnowflakeGeneratorWithOptions(&intgen.SnowflakeOptions{
			EpochStart:     options.EpochStart,
			WorkerID:       options.WorkerID,
			WorkerIDFromIP: options.WorkerIDFromIP,
			Clock:          options.Clock,
		}),
		format: format,
	}, nil
}

func (g *FlakeGenerator) Format() Format {
	return g.format
}

func (g *FlakeGenerator) WorkerID() uint64 {
	return g.snowflake.WorkerID()
}

func (g *FlakeGenerator) EpochStart() uint64 {
	return g.snowflake.EpochStart()
}

// Generate 生成一个编码后的 ID
// 序列号耗尽或时钟回拨时返回 intgen 中对应的错误，稍后重试即可
func (g *FlakeGenerator) Generate() (string, error) {
	id, err := g.snowflake.Generate()
	if err != nil {
		return "", err
	}
	return g.format.Encode(id), nil
}

// Next 生成一个编码后的 ID，暂时无法生成时返回空字符串
func (g *FlakeGenerator) Next() string {
	id, _ := g.Generate()
	return id
}

// Parse 解码 ID 并拆分出时间戳、机器ID和序列号
func (g *FlakeGenerator) Parse(id string) (intgen.Parts, error) {
	value, err := g.format.Decode(id)
	if err != nil {
		return intgen.Parts{}, err
	}
	return intgen.Unpack(value), nil
}

package uid

import (
	"github.com/hatlonely/flakeless/ref"
	"github.com/hatlonely/flakeless/uid/intgen"
	"github.com/hatlonely/flakeless/uid/strgen"
)

// NewIntGeneratorWithOptions 创建整数生成器
func NewIntGeneratorWithOptions(options *ref.TypeOptions) (intgen.IntGenerator, error) {
	return intgen.NewIntGeneratorWithOptions(options)
}

// NewStrGeneratorWithOptions 创建字符串生成器
func NewStrGeneratorWithOptions(options *ref.TypeOptions) (strgen.StrGenerator, error) {
	return strgen.NewStrGeneratorWithOptions(options)
}

// NewIntGenerator 默认的整数生成器，机器ID为 0 的 Snowflake
func NewIntGenerator() intgen.IntGenerator {
	return intgen.NewSnowflakeGeneratorWithOptions(nil)
}

// NewStrGenerator 默认的字符串生成器，输出 base64 编码的 Snowflake ID
func NewStrGenerator() strgen.StrGenerator {
	g, err := strgen.NewFlakeGeneratorWithOptions(nil)
	if err != nil {
		panic(err)
	}
	return g
}

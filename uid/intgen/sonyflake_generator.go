package intgen

import (
	"math"
	"time"

	"github.com/pkg/errors"
	"github.com/sony/sonyflake"
)

// SonyflakeOptions sonyflake 生成器配置
type SonyflakeOptions struct {
	// 起始纪元，自 Unix 纪元以来的毫秒数，为 0 时使用 sonyflake 默认值
	EpochStart uint64 `cfg:"epochStart"`
	// 机器ID，只保留低16位
	WorkerID uint64 `cfg:"workerID"`
}

// SonyflakeGenerator 基于 sony/sonyflake 的生成器
// ID 结构：39位时间戳（10ms）+ 8位序列号 + 16位机器ID
type SonyflakeGenerator struct {
	flake *sonyflake.Sonyflake
}

func NewSonyflakeGeneratorWithOptions(options *SonyflakeOptions) (*SonyflakeGenerator, error) {
	if options == nil {
		options = &SonyflakeOptions{}
	}

	machineID := uint16(options.WorkerID & math.MaxUint16)
	settings := sonyflake.Settings{
		MachineID: func() (uint16, error) {
			return machineID, nil
		},
	}
	if options.EpochStart != 0 {
		settings.StartTime = time.UnixMilli(int64(options.EpochStart))
	}

	flake, err := sonyflake.New(settings)
	if err != nil {
		return nil, errors.Wrap(err, "sonyflake.New failed")
	}
	return &SonyflakeGenerator{flake: flake}, nil
}

// Generate 序列号耗尽时 sonyflake 会休眠到下一个时间片
func (g *SonyflakeGenerator) Generate() (uint64, error) {
	id, err := g.flake.NextID()
	if err != nil {
		return 0, errors.Wrap(err, "sonyflake.NextID failed")
	}
	return id, nil
}

package intgen

import (
	"net"
	"time"
)

// 64位结构：41位时间戳 + 10位机器ID + 12位序列号
const (
	timestampBits = 41
	workerIDBits  = 10
	sequenceBits  = 12

	MaxTimestamp = (1 << timestampBits) - 1 // 0x1FFFFFFFFFF
	MaxWorkerID  = (1 << workerIDBits) - 1  // 1023
	MaxSequence  = (1 << sequenceBits) - 1  // 4095

	workerIDShift  = sequenceBits
	timestampShift = sequenceBits + workerIDBits
)

// Pack 按固定布局组装 ID，超出位宽的输入按掩码截断，不报错
func Pack(timestamp, workerID, sequence uint64) uint64 {
	return (timestamp&MaxTimestamp)<<timestampShift |
		(workerID&MaxWorkerID)<<workerIDShift |
		sequence&MaxSequence
}

// Parts ID 的三个组成部分
type Parts struct {
	Timestamp uint64 `json:"timestamp"`
	WorkerID  uint64 `json:"workerID"`
	Sequence  uint64 `json:"sequence"`
}

// Unpack 是 Pack 的逆操作
func Unpack(id uint64) Parts {
	return Parts{
		Timestamp: id >> timestampShift & MaxTimestamp,
		WorkerID:  id >> workerIDShift & MaxWorkerID,
		Sequence:  id & MaxSequence,
	}
}

// Time 把相对时间戳还原为绝对时间
func (p Parts) Time(epochStart uint64) time.Time {
	return time.UnixMilli(int64(epochStart + p.Timestamp))
}

// SnowflakeOptions 配置选项
type SnowflakeOptions struct {
	// 起始纪元，自 Unix 纪元以来的毫秒数
	EpochStart uint64 `cfg:"epochStart"`
	// 机器ID，只保留低10位
	WorkerID uint64 `cfg:"workerID"`
	// WorkerID 为 0 时从本机 IP 地址推导机器ID
	WorkerIDFromIP bool `cfg:"workerIDFromIP"`
	// 时钟，为空时使用系统时钟
	Clock Clock `cfg:"-"`
}

// SnowflakeGenerator Snowflake算法生成器
// 同一实例可以被多个 goroutine 并发调用
type SnowflakeGenerator struct {
	seq      *sequencer
	workerID uint64
	epoch    uint64
}

func NewSnowflakeGeneratorWithOptions(options *SnowflakeOptions) *SnowflakeGenerator {
	if options == nil {
		options = &SnowflakeOptions{}
	}

	workerID := options.WorkerID
	if workerID == 0 && options.WorkerIDFromIP {
		workerID = getWorkerIDFromIP()
	}

	return &SnowflakeGenerator{
		seq:      newSequencer(options.Clock, options.EpochStart),
		workerID: workerID & MaxWorkerID,
		epoch:    options.EpochStart,
	}
}

// getWorkerIDFromIP 使用第一个非回环 IPv4 地址的最后两个字节作为机器ID
func getWorkerIDFromIP() uint64 {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return 0
	}

	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ipv4 := ipnet.IP.To4(); ipv4 != nil {
				return uint64(ipv4[2])<<8 | uint64(ipv4[3])
			}
		}
	}

	return 0
}

func (g *SnowflakeGenerator) WorkerID() uint64 {
	return g.workerID
}

func (g *SnowflakeGenerator) EpochStart() uint64 {
	return g.epoch
}

// Generate 生成Snowflake ID
// 同一毫秒内超过 4096 个时返回 ErrSequenceExhausted，时钟回拨时返回 ErrClockMovedBackwards
func (g *SnowflakeGenerator) Generate() (uint64, error) {
	timestamp, sequence, err := g.seq.next()
	if err != nil {
		return 0, err
	}
	return Pack(timestamp, g.workerID, sequence), nil
}

package intgen

import (
	"math"
	"sync/atomic"
)

// sequenceState 打包后的生成器状态：高52位为相对时间戳，低12位为序列号
type sequenceState uint64

// noReading 尚未读取过时钟，下一次读取一定从序列号 0 开始
const noReading = sequenceState(math.MaxUint64)

// maxStateTimestamp 状态能表示的最大相对时间戳，全 1 留给 noReading
const maxStateTimestamp = math.MaxUint64>>sequenceBits - 1

func newSequenceState(timestamp, sequence uint64) sequenceState {
	return sequenceState(timestamp<<sequenceBits | sequence&MaxSequence)
}

func (s sequenceState) timestamp() uint64 {
	return uint64(s) >> sequenceBits
}

func (s sequenceState) sequence() uint64 {
	return uint64(s) & MaxSequence
}

// advance 状态转移：同一毫秒序列号加一，新的毫秒序列号归零
// 返回错误时原状态保持不变
func advance(state sequenceState, relative uint64) (sequenceState, error) {
	if relative > maxStateTimestamp {
		return state, ErrTimestampOutOfRange
	}
	if state == noReading || relative > state.timestamp() {
		return newSequenceState(relative, 0), nil
	}
	if relative < state.timestamp() {
		return state, ErrClockMovedBackwards
	}
	if state.sequence() == MaxSequence {
		return state, ErrSequenceExhausted
	}
	return state + 1, nil
}

// sequencer 在一个原子状态字上推进时间戳和序列号
type sequencer struct {
	state atomic.Uint64
	clock Clock
	epoch uint64
}

func newSequencer(clock Clock, epoch uint64) *sequencer {
	if clock == nil {
		clock = NewSystemClock()
	}
	s := &sequencer{clock: clock, epoch: epoch}
	s.state.Store(uint64(noReading))
	return s
}

// next 读取时钟并推进状态，返回本次使用的相对时间戳和序列号
func (s *sequencer) next() (uint64, uint64, error) {
	for {
		// 先读状态再读时钟，单调时钟下读数不会小于状态中的时间戳
		oldState := sequenceState(s.state.Load())

		now := s.clock.NowMillis()
		if now < s.epoch {
			return 0, 0, ErrClockBeforeEpoch
		}

		newState, err := advance(oldState, now-s.epoch)
		if err != nil {
			return 0, 0, err
		}

		if s.state.CompareAndSwap(uint64(oldState), uint64(newState)) {
			return newState.timestamp(), newState.sequence(), nil
		}
		// CAS失败，重试
	}
}

// TimestampSeqOptions 时间戳+序列号生成器配置
type TimestampSeqOptions struct {
	Clock Clock `cfg:"-"`
}

// TimestampSeqGenerator 时间戳+序列号生成器
// ID 结构：高52位 Unix 毫秒时间戳 + 低12位序列号，不含机器ID
type TimestampSeqGenerator struct {
	seq *sequencer
}

func NewTimestampSeqGeneratorWithOptions(options *TimestampSeqOptions) *TimestampSeqGenerator {
	var clock Clock
	if options != nil {
		clock = options.Clock
	}
	return &TimestampSeqGenerator{seq: newSequencer(clock, 0)}
}

func (g *TimestampSeqGenerator) Generate() (uint64, error) {
	timestamp, sequence, err := g.seq.next()
	if err != nil {
		return 0, err
	}
	return uint64(newSequenceState(timestamp, sequence)), nil
}

package intgen

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
)

// manualClock 手动推进的时钟
type manualClock struct {
	now atomic.Uint64
}

func newManualClock(now uint64) *manualClock {
	c := &manualClock{}
	c.now.Store(now)
	return c
}

func (c *manualClock) NowMillis() uint64 {
	return c.now.Load()
}

func (c *manualClock) Set(now uint64) {
	c.now.Store(now)
}

func (c *manualClock) Tick() {
	c.now.Add(1)
}

func TestAdvance(t *testing.T) {
	Convey("状态转移", t, func() {
		Convey("首次读取从序列号 0 开始", func() {
			state, err := advance(noReading, 0)
			So(err, ShouldBeNil)
			So(state.timestamp(), ShouldEqual, 0)
			So(state.sequence(), ShouldEqual, 0)

			state, err = advance(noReading, 1000)
			So(err, ShouldBeNil)
			So(state.timestamp(), ShouldEqual, 1000)
			So(state.sequence(), ShouldEqual, 0)
		})

		Convey("同一毫秒序列号加一", func() {
			state, err := advance(newSequenceState(1000, 7), 1000)
			So(err, ShouldBeNil)
			So(state.timestamp(), ShouldEqual, 1000)
			So(state.sequence(), ShouldEqual, 8)
		})

		Convey("新的毫秒序列号归零", func() {
			state, err := advance(newSequenceState(1000, 7), 1001)
			So(err, ShouldBeNil)
			So(state.timestamp(), ShouldEqual, 1001)
			So(state.sequence(), ShouldEqual, 0)
		})

		Convey("序列号耗尽", func() {
			old := newSequenceState(1000, MaxSequence)
			state, err := advance(old, 1000)
			So(err, ShouldEqual, ErrSequenceExhausted)
			So(state, ShouldEqual, old)

			state, err = advance(old, 1001)
			So(err, ShouldBeNil)
			So(state.sequence(), ShouldEqual, 0)
		})

		Convey("时钟回拨", func() {
			old := newSequenceState(1000, 3)
			state, err := advance(old, 999)
			So(err, ShouldEqual, ErrClockMovedBackwards)
			So(state, ShouldEqual, old)
		})

		Convey("时间戳超出范围", func() {
			_, err := advance(noReading, maxStateTimestamp+1)
			So(err, ShouldEqual, ErrTimestampOutOfRange)

			state, err := advance(noReading, maxStateTimestamp)
			So(err, ShouldBeNil)
			So(state, ShouldNotEqual, noReading)
		})
	})
}

func TestSequencer(t *testing.T) {
	Convey("sequencer", t, func() {
		clock := newManualClock(5000)
		seq := newSequencer(clock, 4000)

		Convey("同一毫秒内生成 4096 个后耗尽", func() {
			for i := uint64(0); i <= MaxSequence; i++ {
				ts, s, err := seq.next()
				So(err, ShouldBeNil)
				So(ts, ShouldEqual, 1000)
				So(s, ShouldEqual, i)
			}

			_, _, err := seq.next()
			So(err, ShouldEqual, ErrSequenceExhausted)
			_, _, err = seq.next()
			So(err, ShouldEqual, ErrSequenceExhausted)

			clock.Tick()
			ts, s, err := seq.next()
			So(err, ShouldBeNil)
			So(ts, ShouldEqual, 1001)
			So(s, ShouldEqual, 0)
		})

		Convey("时钟回拨被拒绝且不修改状态", func() {
			_, _, err := seq.next()
			So(err, ShouldBeNil)
			_, _, err = seq.next()
			So(err, ShouldBeNil)

			clock.Set(4990)
			_, _, err = seq.next()
			So(err, ShouldEqual, ErrClockMovedBackwards)

			clock.Set(5000)
			ts, s, err := seq.next()
			So(err, ShouldBeNil)
			So(ts, ShouldEqual, 1000)
			So(s, ShouldEqual, 2)
		})

		Convey("时钟早于纪元", func() {
			clock.Set(3999)
			_, _, err := seq.next()
			So(err, ShouldEqual, ErrClockBeforeEpoch)
		})
	})
}

func TestTimestampSeqGenerator(t *testing.T) {
	Convey("TimestampSeqGenerator", t, func() {
		clock := newManualClock(1700000000000)
		gen := NewTimestampSeqGeneratorWithOptions(&TimestampSeqOptions{Clock: clock})

		id1, err := gen.Generate()
		So(err, ShouldBeNil)
		So(id1, ShouldEqual, uint64(1700000000000)<<12)

		id2, err := gen.Generate()
		So(err, ShouldBeNil)
		So(id2, ShouldEqual, id1+1)

		clock.Tick()
		id3, err := gen.Generate()
		So(err, ShouldBeNil)
		So(id3, ShouldEqual, uint64(1700000000001)<<12)
	})

	Convey("默认使用系统时钟", t, func() {
		gen := NewTimestampSeqGeneratorWithOptions(nil)
		id, err := gen.Generate()
		So(err, ShouldBeNil)
		So(id, ShouldBeGreaterThan, 0)
	})
}

func TestGenerateContext(t *testing.T) {
	Convey("带重试的生成", t, func() {
		Convey("序列号耗尽后等待时钟前进", func() {
			clock := newManualClock(1000)
			g := NewSnowflakeGeneratorWithOptions(&SnowflakeOptions{Clock: clock})
			for i := 0; i <= int(MaxSequence); i++ {
				_, err := g.Generate()
				So(err, ShouldBeNil)
			}

			go func() {
				time.Sleep(5 * time.Millisecond)
				clock.Tick()
			}()

			id, err := GenerateContext(context.Background(), g)
			So(err, ShouldBeNil)
			So(Unpack(id), ShouldResemble, Parts{Timestamp: 1001})
		})

		Convey("ctx 结束", func() {
			g := NewSnowflakeGeneratorWithOptions(&SnowflakeOptions{Clock: newManualClock(1000)})
			for i := 0; i <= int(MaxSequence); i++ {
				_, _ = g.Generate()
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
			defer cancel()
			_, err := GenerateContext(ctx, g)
			So(errors.Cause(err), ShouldEqual, context.DeadlineExceeded)
		})

		Convey("其他错误直接返回", func() {
			g := NewSnowflakeGeneratorWithOptions(&SnowflakeOptions{EpochStart: 2000, Clock: newManualClock(1000)})
			_, err := GenerateContext(context.Background(), g)
			So(errors.Cause(err), ShouldEqual, ErrClockBeforeEpoch)
		})
	})
}

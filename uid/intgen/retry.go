package intgen

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// RetryInterval 序列号耗尽后的重试间隔，下一毫秒很快就会到来
const RetryInterval = time.Millisecond / 4

// GenerateContext 生成一个 ID，序列号耗尽或时钟回拨时等待重试，直到 ctx 结束
func GenerateContext(ctx context.Context, generator IntGenerator) (uint64, error) {
	var timer *time.Timer
	for {
		id, err := generator.Generate()
		if err == nil || !IsTransient(err) {
			return id, err
		}

		if timer == nil {
			timer = time.NewTimer(RetryInterval)
			defer timer.Stop()
		} else {
			timer.Reset(RetryInterval)
		}

		select {
		case <-ctx.Done():
			return 0, errors.Wrapf(ctx.Err(), "last error: %v", err)
		case <-timer.C:
		}
	}
}

package strgen

import (
	"context"
	"time"

	"github.com/hatlonely/flakeless/uid/intgen"
	"github.com/pkg/errors"
)

// GenerateN 生成 n 个 ID，遇到序列号耗尽或时钟回拨时等待重试，直到 ctx 结束
func GenerateN(ctx context.Context, gen StrGenerator, n int) ([]string, error) {
	if n < 0 {
		return nil, errors.Errorf("invalid amount %d", n)
	}

	generate := gen.Generate
	if cg, ok := gen.(ContextGenerator); ok {
		generate = func() (string, error) {
			return cg.GenerateContext(ctx)
		}
	}

	ids := make([]string, 0, n)
	var timer *time.Timer
	for len(ids) < n {
		id, err := generate()
		if err == nil {
			ids = append(ids, id)
			continue
		}
		if !intgen.IsTransient(err) {
			return nil, err
		}

		if timer == nil {
			timer = time.NewTimer(intgen.RetryInterval)
			defer timer.Stop()
		} else {
			timer.Reset(intgen.RetryInterval)
		}

		select {
		case <-ctx.Done():
			return nil, errors.Wrapf(ctx.Err(), "generated %d of %d ids", len(ids), n)
		case <-timer.C:
		}
	}

	return ids, nil
}

package strgen

import (
	"bytes"
	"context"
	"testing"

	"github.com/hatlonely/flakeless/log/logger"
	"github.com/hatlonely/flakeless/ref"
	"github.com/hatlonely/flakeless/uid/intgen"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestObservableGenerator(t *testing.T) {
	Convey("可观测生成器", t, func() {
		registry := prometheus.NewRegistry()

		Convey("记录成功和失败次数", func() {
			inner, err := NewFlakeGeneratorWithOptions(&Options{Clock: fixedClock(1000)})
			So(err, ShouldBeNil)

			var buf bytes.Buffer
			l, err := logger.NewSLogWithWriter(&buf, &logger.SLogOptions{Level: "debug", Format: "json"})
			So(err, ShouldBeNil)

			obs, err := NewObservableGenerator(inner, l, &ObservableGeneratorOptions{
				Name:          "orders",
				EnableMetrics: true,
				EnableLogging: true,
				EnableTracing: true,
				Registerer:    registry,
			})
			So(err, ShouldBeNil)
			So(obs.Unwrap(), ShouldEqual, inner)

			for i := 0; i <= int(intgen.MaxSequence); i++ {
				_, err := obs.GenerateContext(context.Background())
				So(err, ShouldBeNil)
			}
			_, err = obs.Generate()
			So(errors.Cause(err), ShouldEqual, intgen.ErrSequenceExhausted)

			counter := obs.metrics.generateCounter
			So(testutil.ToFloat64(counter.WithLabelValues("orders", "success")), ShouldEqual, 4096)
			So(testutil.ToFloat64(counter.WithLabelValues("orders", "exhausted")), ShouldEqual, 1)
			So(testutil.CollectAndCount(obs.metrics.generateDuration), ShouldEqual, 1)

			So(buf.String(), ShouldContainSubstring, `"generator":"orders"`)
			So(buf.String(), ShouldContainSubstring, `"status":"exhausted"`)
		})

		Convey("同一注册器重复创建复用已有指标", func() {
			a, err := NewObservableGenerator(&ctxGenerator{}, nil, &ObservableGeneratorOptions{
				Name: "a", EnableMetrics: true, Registerer: registry,
			})
			So(err, ShouldBeNil)
			b, err := NewObservableGenerator(&ctxGenerator{}, nil, &ObservableGeneratorOptions{
				Name: "b", EnableMetrics: true, Registerer: registry,
			})
			So(err, ShouldBeNil)
			So(a.metrics.generateCounter, ShouldEqual, b.metrics.generateCounter)

			_, _ = a.Generate()
			_, _ = b.Generate()
			_, _ = b.Generate()
			So(testutil.ToFloat64(a.metrics.generateCounter.WithLabelValues("b", "success")), ShouldEqual, 2)
		})

		Convey("不开启任何观测能力", func() {
			obs, err := NewObservableGenerator(&ctxGenerator{}, nil, nil)
			So(err, ShouldBeNil)
			So(obs.metrics, ShouldBeNil)
			So(obs.logger, ShouldBeNil)
			id, err := obs.Generate()
			So(err, ShouldBeNil)
			So(id, ShouldEqual, "plain")
		})

		Convey("通过 ref 创建", func() {
			g, err := NewStrGeneratorWithOptions(&ref.TypeOptions{
				Namespace: "github.com/hatlonely/flakeless/uid/strgen",
				Type:      "ObservableGenerator",
				Options: &ObservableGeneratorOptions{
					Generator: &ref.TypeOptions{
						Namespace: "github.com/hatlonely/flakeless/uid/strgen",
						Type:      "FlakeGenerator",
						Options:   &Options{OutputType: "base10"},
					},
					EnableMetrics: true,
					Registerer:    registry,
				},
			})
			So(err, ShouldBeNil)
			So(g.(*ObservableGenerator).Unwrap().(*FlakeGenerator).Format(), ShouldEqual, FormatBase10)

			_, err = NewObservableGeneratorWithOptions(&ObservableGeneratorOptions{})
			So(err, ShouldNotBeNil)
		})
	})
}

func TestStatus(t *testing.T) {
	Convey("错误状态标签", t, func() {
		So(status(nil), ShouldEqual, "success")
		So(status(intgen.ErrSequenceExhausted), ShouldEqual, "exhausted")
		So(status(errors.Wrap(intgen.ErrClockMovedBackwards, "x")), ShouldEqual, "clock_backwards")
		So(status(errors.New("boom")), ShouldEqual, "error")
	})
}

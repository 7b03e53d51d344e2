package strgen

import (
	"context"
	"time"

	"github.com/hatlonely/flakeless/log"
	"github.com/hatlonely/flakeless/log/logger"
	"github.com/hatlonely/flakeless/ref"
	"github.com/hatlonely/flakeless/uid/intgen"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type ObservableGeneratorOptions struct {
	// Generator 被包装的生成器配置
	Generator *ref.TypeOptions `cfg:"generator" validate:"required"`

	// Logger 日志记录器配置，为空时使用默认日志器
	Logger *ref.TypeOptions `cfg:"logger"`

	// Name 生成器名称，作为指标标签、日志字段和 span 属性
	Name string `cfg:"name" def:"default"`

	// MetricPrefix 指标名前缀
	MetricPrefix string `cfg:"metricPrefix" def:"flakeless"`

	EnableMetrics bool `cfg:"enableMetrics"`
	EnableLogging bool `cfg:"enableLogging"`
	EnableTracing bool `cfg:"enableTracing"`

	// Registerer 指标注册器，为空时使用 prometheus.DefaultRegisterer
	Registerer prometheus.Registerer `cfg:"-"`
}

// ObservableMetrics 封装 prometheus 指标，同一前缀的生成器共享一组指标
type ObservableMetrics struct {
	generateCounter  *prometheus.CounterVec
	generateDuration *prometheus.HistogramVec
}

func NewObservableMetrics(prefix string, registerer prometheus.Registerer) (*ObservableMetrics, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	counter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_generate_total",
			Help: "Total number of id generate calls",
		},
		[]string{"generator", "status"},
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_generate_duration_seconds",
			Help:    "Duration of id generate calls in seconds",
			Buckets: []float64{0.000001, 0.00001, 0.0001, 0.001, 0.01},
		},
		[]string{"generator"},
	)

	if err := registerer.Register(counter); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, errors.Wrap(err, "failed to register counter")
		}
		if counter, ok = are.ExistingCollector.(*prometheus.CounterVec); !ok {
			return nil, errors.New("existing counter has unexpected type")
		}
	}
	if err := registerer.Register(duration); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, errors.Wrap(err, "failed to register histogram")
		}
		if duration, ok = are.ExistingCollector.(*prometheus.HistogramVec); !ok {
			return nil, errors.New("existing histogram has unexpected type")
		}
	}

	return &ObservableMetrics{generateCounter: counter, generateDuration: duration}, nil
}

// ObservableGenerator 装饰器，为任何 StrGenerator 添加观测能力
type ObservableGenerator struct {
	generator StrGenerator

	logger  logger.Logger
	metrics *ObservableMetrics
	tracer  trace.Tracer
	name    string
}

func NewObservableGeneratorWithOptions(options *ObservableGeneratorOptions) (*ObservableGenerator, error) {
	if options == nil || options.Generator == nil {
		return nil, errors.New("generator options is required")
	}

	generator, err := NewStrGeneratorWithOptions(options.Generator)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create underlying generator")
	}

	var l logger.Logger
	if options.EnableLogging {
		if l, err = log.NewLoggerWithOptions(options.Logger); err != nil {
			return nil, errors.WithMessage(err, "failed to create logger")
		}
	}

	return NewObservableGenerator(generator, l, options)
}

// NewObservableGenerator 包装已有的生成器，options.Generator 和 options.Logger 被忽略
func NewObservableGenerator(generator StrGenerator, l logger.Logger, options *ObservableGeneratorOptions) (*ObservableGenerator, error) {
	if generator == nil {
		return nil, errors.New("generator is nil")
	}
	if options == nil {
		options = &ObservableGeneratorOptions{}
	}

	name := options.Name
	if name == "" {
		name = "default"
	}

	obs := &ObservableGenerator{generator: generator, name: name}

	if options.EnableLogging {
		if l == nil {
			l = log.Default()
		}
		obs.logger = l.With("generator", name)
	}

	if options.EnableMetrics {
		prefix := options.MetricPrefix
		if prefix == "" {
			prefix = "flakeless"
		}
		metrics, err := NewObservableMetrics(prefix, options.Registerer)
		if err != nil {
			return nil, err
		}
		obs.metrics = metrics
	}

	if options.EnableTracing {
		obs.tracer = otel.Tracer("flakeless.generator")
	}

	return obs, nil
}

// Unwrap 返回被包装的生成器
func (obs *ObservableGenerator) Unwrap() StrGenerator {
	return obs.generator
}

func (obs *ObservableGenerator) Generate() (string, error) {
	return obs.GenerateContext(context.Background())
}

func (obs *ObservableGenerator) GenerateContext(ctx context.Context) (string, error) {
	var span trace.Span
	if obs.tracer != nil {
		ctx, span = obs.tracer.Start(ctx, "generator.Generate",
			trace.WithAttributes(attribute.String("generator", obs.name)),
		)
		defer span.End()
	}

	start := time.Now()
	id, err := obs.generator.Generate()
	duration := time.Since(start)

	if span != nil {
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
		} else {
			span.SetAttributes(attribute.String("id", id))
			span.SetStatus(codes.Ok, "")
		}
	}

	if obs.metrics != nil {
		obs.metrics.generateCounter.WithLabelValues(obs.name, status(err)).Inc()
		obs.metrics.generateDuration.WithLabelValues(obs.name).Observe(duration.Seconds())
	}

	if obs.logger != nil {
		if err != nil {
			obs.logger.WarnContext(ctx, "generate failed", "status", status(err), "error", err)
		} else {
			obs.logger.DebugContext(ctx, "generate", "id", id, "duration", duration)
		}
	}

	return id, err
}

func status(err error) string {
	switch errors.Cause(err) {
	case nil:
		return "success"
	case intgen.ErrSequenceExhausted:
		return "exhausted"
	case intgen.ErrClockMovedBackwards:
		return "clock_backwards"
	default:
		return "error"
	}
}

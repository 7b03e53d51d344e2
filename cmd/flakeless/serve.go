package main

import (
	"context"
	"reflect"
	"sort"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/hatlonely/flakeless/cfg"
	"github.com/hatlonely/flakeless/cfg/def"
	"github.com/hatlonely/flakeless/log"
	"github.com/hatlonely/flakeless/ref"
	"github.com/hatlonely/flakeless/server"
	"github.com/hatlonely/flakeless/uid/strgen"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
)

type ObservabilityOptions struct {
	EnableMetrics bool   `cfg:"enableMetrics"`
	EnableLogging bool   `cfg:"enableLogging"`
	EnableTracing bool   `cfg:"enableTracing"`
	MetricPrefix  string `cfg:"metricPrefix" def:"flakeless"`
}

// Options 服务配置文件
type Options struct {
	Server        server.Options             `cfg:"server"`
	Logger        *ref.TypeOptions           `cfg:"logger"`
	Observability ObservabilityOptions       `cfg:"observability"`
	Generators    map[string]*strgen.Options `cfg:"generators" validate:"dive"`
}

// app 把配置中的生成器挂载到服务上
type app struct {
	logger     log.Logger
	server     *server.Server
	options    *Options
	registerer prometheus.Registerer

	mu         sync.Mutex
	generators map[string]strgen.Options
}

func newApp(options *Options, registerer prometheus.Registerer, gatherer prometheus.Gatherer) (*app, error) {
	logger, err := log.NewLoggerWithOptions(options.Logger)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create logger")
	}

	options.Server.Gatherer = gatherer
	srv, err := server.New(&options.Server, logger)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create server")
	}

	a := &app{
		logger:     logger,
		server:     srv,
		options:    options,
		registerer: registerer,
		generators: map[string]strgen.Options{},
	}
	if err := a.addGenerators(options.Generators); err != nil {
		return nil, err
	}
	return a, nil
}

// addGenerators 挂载新出现的命名空间
// 已挂载的命名空间不会重新配置，改变运行中生成器的机器ID或纪元可能产生重复的 ID
func (a *app) addGenerators(generators map[string]*strgen.Options) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	names := make([]string, 0, len(generators))
	for name := range generators {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		options := generators[name]
		if options == nil {
			options = &strgen.Options{}
		}
		if err := def.SetDefaults(options); err != nil {
			return errors.WithMessagef(err, "namespace %q", name)
		}

		if current, ok := a.generators[name]; ok {
			if !reflect.DeepEqual(current, *options) {
				a.logger.Warn("namespace options changed, restart to apply", "namespace", name)
			}
			continue
		}

		generator, err := strgen.NewFlakeGeneratorWithOptions(options)
		if err != nil {
			return errors.WithMessagef(err, "namespace %q", name)
		}

		obs, err := strgen.NewObservableGenerator(generator, a.logger, &strgen.ObservableGeneratorOptions{
			Name:          name,
			MetricPrefix:  a.options.Observability.MetricPrefix,
			EnableMetrics: a.options.Observability.EnableMetrics,
			EnableLogging: a.options.Observability.EnableLogging,
			EnableTracing: a.options.Observability.EnableTracing,
			Registerer:    a.registerer,
		})
		if err != nil {
			return errors.WithMessagef(err, "namespace %q", name)
		}

		if err := a.server.AddGenerator(name, obs); err != nil {
			return err
		}
		a.generators[name] = *options
		a.logger.Info("namespace added", "namespace", name,
			"workerID", generator.WorkerID(),
			"epochStart", generator.EpochStart(),
			"outputType", generator.Format().String(),
		)
	}
	return nil
}

func runServe(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	configPath := fs.StringP("config", "c", "flakeless.yaml", "config file: json, json5, yaml, toml, ini")
	if err := fs.Parse(args); err != nil {
		return errors.Wrap(err, "invalid flags")
	}

	gin.SetMode(gin.ReleaseMode)

	config, err := cfg.NewConfig(*configPath)
	if err != nil {
		return errors.WithMessage(err, "failed to load config")
	}
	defer config.Close()

	var options Options
	if err := config.ConvertTo(&options); err != nil {
		return errors.WithMessage(err, "invalid config")
	}

	a, err := newApp(&options, prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
	if err != nil {
		return err
	}

	config.OnKeyChange("generators", func(c *cfg.Config) error {
		var generators map[string]*strgen.Options
		if err := c.ConvertTo(&generators); err != nil {
			return errors.WithMessage(err, "invalid generators config")
		}
		return a.addGenerators(generators)
	})
	if err := config.Watch(); err != nil {
		a.logger.Warn("config watch disabled", "error", err)
	}

	return a.server.Run(ctx)
}

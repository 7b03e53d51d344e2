package server

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/hatlonely/flakeless/cfg/def"
	"github.com/hatlonely/flakeless/cfg/validator"
	"github.com/hatlonely/flakeless/log"
	"github.com/hatlonely/flakeless/uid/strgen"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vmihailenco/msgpack/v5"
)

// MIMEMsgpack 请求头 Accept 为该类型时以 msgpack 返回 ID 列表
const MIMEMsgpack = "application/msgpack"

var (
	ErrNamespaceExists = errors.New("namespace already exists")
	ErrInvalidName     = errors.New("invalid namespace name")
)

type Options struct {
	Addr string `cfg:"addr" def:":6000"`
	// MaxAmount 单次请求最多生成的 ID 数
	MaxAmount int `cfg:"maxAmount" def:"10000" validate:"min=1"`
	// RequestTimeout 单次请求生成 ID 的超时时间，序列号耗尽时会在超时内重试
	RequestTimeout  time.Duration `cfg:"requestTimeout" def:"1s"`
	ShutdownTimeout time.Duration `cfg:"shutdownTimeout" def:"5s"`

	// Gatherer /metrics 暴露的指标，为空时使用 prometheus.DefaultGatherer
	Gatherer prometheus.Gatherer `cfg:"-"`
}

// Server 在多个命名空间上提供 ID 生成服务，每个命名空间一个独立的生成器
type Server struct {
	options *Options
	logger  log.Logger
	engine  *gin.Engine

	mu         sync.RWMutex
	generators map[string]strgen.StrGenerator
}

type idsResponse struct {
	IDs []string `json:"ids" msgpack:"ids"`
}

type namespacesResponse struct {
	Namespaces []string `json:"namespaces"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func New(options *Options, logger log.Logger) (*Server, error) {
	if options == nil {
		options = &Options{}
	}
	if err := def.SetDefaults(options); err != nil {
		return nil, errors.WithMessage(err, "failed to set defaults")
	}
	if err := validator.ValidateStruct(options); err != nil {
		return nil, errors.Wrap(err, "invalid options")
	}
	if logger == nil {
		logger = log.Default()
	}

	gatherer := options.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		options:    options,
		logger:     logger,
		generators: map[string]strgen.StrGenerator{},
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), s.accessLog())
	engine.GET("/healthz", s.Healthz)
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	g := engine.Group("/v1/namespaces")
	g.GET("", s.ListNamespaces)
	g.GET("/:name/ids", s.NextIDs)

	s.engine = engine
	return s, nil
}

// AddGenerator 在 name 命名空间上挂载生成器
// 已存在的命名空间不能被替换，否则新旧生成器可能产生重复的 ID
func (s *Server) AddGenerator(name string, generator strgen.StrGenerator) error {
	if name == "" {
		return ErrInvalidName
	}
	if generator == nil {
		return errors.New("generator is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.generators[name]; ok {
		return errors.Wrapf(ErrNamespaceExists, "namespace %q", name)
	}
	s.generators[name] = generator
	return nil
}

func (s *Server) HasGenerator(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.generators[name]
	return ok
}

// Namespaces 返回按名称排序的命名空间
func (s *Server) Namespaces() []string {
	s.mu.RLock()
	names := make([]string, 0, len(s.generators))
	for name := range s.generators {
		names = append(names, name)
	}
	s.mu.RUnlock()

	sort.Strings(names)
	return names
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run 监听 Addr 直到 ctx 结束，然后优雅退出
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.options.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server started", "addr", s.options.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "server stopped")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.options.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "failed to shutdown server")
	}
	s.logger.Info("server stopped", "addr", s.options.Addr)
	return nil
}

func (s *Server) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) ListNamespaces(c *gin.Context) {
	c.JSON(http.StatusOK, namespacesResponse{Namespaces: s.Namespaces()})
}

// NextIDs GET /v1/namespaces/:name/ids?amount=N
func (s *Server) NextIDs(c *gin.Context) {
	name := c.Param("name")

	s.mu.RLock()
	generator, ok := s.generators[name]
	s.mu.RUnlock()
	if !ok {
		c.JSON(http.StatusNotFound, errorResponse{Error: "invalid namespace"})
		return
	}

	amount, err := strconv.Atoi(c.DefaultQuery("amount", "1"))
	if err != nil || amount < 1 || amount > s.options.MaxAmount {
		c.JSON(http.StatusBadRequest, errorResponse{
			Error: "amount must be an integer between 1 and " + strconv.Itoa(s.options.MaxAmount),
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.options.RequestTimeout)
	defer cancel()

	ids, err := strgen.GenerateN(ctx, generator, amount)
	if err != nil {
		s.logger.WarnContext(ctx, "generate ids failed", "namespace", name, "amount", amount, "error", err)
		status := http.StatusInternalServerError
		if errors.Cause(err) == context.DeadlineExceeded {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, errorResponse{Error: err.Error()})
		return
	}

	if c.NegotiateFormat(binding.MIMEJSON, MIMEMsgpack) == MIMEMsgpack {
		buf, err := msgpack.Marshal(idsResponse{IDs: ids})
		if err != nil {
			c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
			return
		}
		c.Data(http.StatusOK, MIMEMsgpack, buf)
		return
	}
	c.JSON(http.StatusOK, idsResponse{IDs: ids})
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.DebugContext(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

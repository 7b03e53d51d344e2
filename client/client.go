package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hatlonely/flakeless/cfg/def"
	"github.com/hatlonely/flakeless/cfg/validator"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

var ErrInvalidNamespace = errors.New("invalid namespace")

type Options struct {
	// BaseURL 服务地址，例如 http://127.0.0.1:6000
	BaseURL   string        `cfg:"baseURL" validate:"required,url"`
	Namespace string        `cfg:"namespace" validate:"required"`
	Timeout   time.Duration `cfg:"timeout" def:"1s"`
	// Codec ID 列表的编码：json, msgpack
	Codec string `cfg:"codec" def:"json" validate:"oneof=json msgpack"`

	// HTTPClient 为空时按 Timeout 创建
	HTTPClient *http.Client `cfg:"-"`
}

// Client 从 ID 服务的一个命名空间批量获取 ID
type Client struct {
	baseURL   string
	namespace string
	codec     string
	client    *http.Client
}

func New(options *Options) (*Client, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}
	if err := def.SetDefaults(options); err != nil {
		return nil, errors.WithMessage(err, "failed to set defaults")
	}
	if err := validator.ValidateStruct(options); err != nil {
		return nil, errors.Wrap(err, "invalid options")
	}

	httpClient := options.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: options.Timeout}
	}

	return &Client{
		baseURL:   strings.TrimRight(options.BaseURL, "/"),
		namespace: options.Namespace,
		codec:     options.Codec,
		client:    httpClient,
	}, nil
}

// Next 获取 amount 个 ID，命名空间不存在时返回 ErrInvalidNamespace
func (c *Client) Next(ctx context.Context, amount int) ([]string, error) {
	if amount < 1 {
		return nil, errors.Errorf("invalid amount %d", amount)
	}

	target := c.baseURL + "/v1/namespaces/" + url.PathEscape(c.namespace) + "/ids?amount=" + strconv.Itoa(amount)

	var resp struct {
		IDs []string `json:"ids" msgpack:"ids"`
	}
	if err := c.get(ctx, target, c.codec, &resp); err != nil {
		return nil, err
	}
	return resp.IDs, nil
}

// Ping 检查服务是否可用
func (c *Client) Ping(ctx context.Context) error {
	var resp struct {
		Status string `json:"status"`
	}
	return c.get(ctx, c.baseURL+"/healthz", "json", &resp)
}

func (c *Client) get(ctx context.Context, target string, codec string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	if codec == "msgpack" {
		req.Header.Set("Accept", "application/msgpack")
	} else {
		req.Header.Set("Accept", "application/json")
	}

	res, err := c.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "request failed")
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response")
	}

	if res.StatusCode != http.StatusOK {
		var errResp struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(body, &errResp)
		if res.StatusCode == http.StatusNotFound && errResp.Error == ErrInvalidNamespace.Error() {
			return errors.Wrapf(ErrInvalidNamespace, "namespace %q", c.namespace)
		}
		if errResp.Error == "" {
			errResp.Error = strings.TrimSpace(string(body))
		}
		return errors.Errorf("unexpected status %d: %s", res.StatusCode, errResp.Error)
	}

	// 错误响应总是 json，正常响应按 Content-Type 解码
	if strings.HasPrefix(res.Header.Get("Content-Type"), "application/msgpack") {
		err = msgpack.Unmarshal(body, v)
	} else {
		err = json.Unmarshal(body, v)
	}
	if err != nil {
		return errors.Wrap(err, "failed to decode response")
	}
	return nil
}

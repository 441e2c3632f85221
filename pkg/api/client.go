package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/stratbot/gostrat/pkg/ratelimit"
)

// Client 策略后端 API 客户端
// 所有接口遵循 {code, data, msg} 响应约定，code==1 表示成功
type Client struct {
	client  *resty.Client
	limiter *ratelimit.TokenBucket
}

// Options 客户端可选配置
type Options struct {
	Token   string        // 认证 token（可选）
	Timeout time.Duration // 请求超时，默认 30s
	// RequestsPerSec 客户端侧限速（每秒），<=0 用默认值
	// 权益轮询 + 符号搜索并发时不打爆后端
	RequestsPerSec float64
}

// 默认限速：突发 10 个，稳态每秒 5 个
const (
	defaultBurst  = 10
	defaultPerSec = 5.0
)

// NewClient 创建新的 API 客户端
// resty 会自动从环境变量读取代理配置（HTTP_PROXY, HTTPS_PROXY）
func NewClient(host string, opts *Options) *Client {
	host = strings.TrimSuffix(host, "/")

	timeout := 30 * time.Second
	if opts != nil && opts.Timeout > 0 {
		timeout = opts.Timeout
	}

	client := resty.New().
		SetBaseURL(host).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "gostrat-console")

	if opts != nil && opts.Token != "" {
		client.SetAuthToken(opts.Token)
	}

	perSec := defaultPerSec
	if opts != nil && opts.RequestsPerSec > 0 {
		perSec = opts.RequestsPerSec
	}

	return &Client{
		client:  client,
		limiter: ratelimit.NewTokenBucket(defaultBurst, perSec),
	}
}

// envelope 后端统一响应信封
type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// APIError 后端业务失败（code != 1）
// 与传输层错误区分：APIError 携带服务端给出的提示语
type APIError struct {
	Code int
	Msg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error code=%d msg=%s", e.Code, e.Msg)
}

// IsAPIError 判断错误是否为后端业务失败，并取出服务端消息
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// call 执行一次请求并解析响应信封
// out 为 nil 时只检查 code；params 只用于 GET/DELETE
func (c *Client) call(ctx context.Context, method, endpoint string, params map[string]string, body interface{}, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "等待限速令牌")
	}

	req := c.client.R().SetContext(ctx)
	if len(params) > 0 {
		req.SetQueryParams(params)
	}
	if body != nil {
		req.SetHeader("Content-Type", "application/json")
		req.SetBody(body)
	}

	var resp *resty.Response
	var err error
	switch method {
	case http.MethodGet:
		resp, err = req.Get(endpoint)
	case http.MethodPost:
		resp, err = req.Post(endpoint)
	case http.MethodPut:
		resp, err = req.Put(endpoint)
	case http.MethodDelete:
		resp, err = req.Delete(endpoint)
	default:
		return fmt.Errorf("unsupported method: %s", method)
	}
	if err != nil {
		return errors.Wrapf(err, "请求失败: %s %s", method, endpoint)
	}
	if !resp.IsSuccess() {
		return errors.Errorf("http non-2xx: %d %s", resp.StatusCode(), strings.TrimSpace(string(resp.Body())))
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return errors.Wrapf(err, "解析响应失败: %s", endpoint)
	}
	if env.Code != 1 {
		return &APIError{Code: env.Code, Msg: env.Msg}
	}
	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return errors.Wrapf(err, "解析响应数据失败: %s", endpoint)
		}
	}
	return nil
}

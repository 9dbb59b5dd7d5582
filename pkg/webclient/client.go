// Package webclient 提供商适配器共用的 HTTP 客户端
package webclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultTimeout 单次 HTTP 请求的默认超时
	DefaultTimeout = 10 * time.Second
	// DefaultUserAgent 默认 User-Agent
	DefaultUserAgent = "lyrica/1.0"

	maxBodySize = 8 << 20
)

// StatusError 非 2xx 响应
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request to %s failed with status %d", e.URL, e.StatusCode)
}

// IsNotFound 判断错误是否为 404
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// Client 懒加载的 HTTP 客户端，首次请求时创建底层连接池，Close 后可以再次使用
type Client struct {
	mu         sync.Mutex
	httpClient *http.Client
	timeout    time.Duration
	userAgent  string
	headers    http.Header
	maxRetries int
	backoff    time.Duration
	logger     zerolog.Logger
}

// Option 客户端选项
type Option func(*Client)

// WithTimeout 设置单次请求超时
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithUserAgent 设置 User-Agent
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithHeader 为每个请求附加固定请求头
func WithHeader(key, value string) Option {
	return func(c *Client) {
		if value != "" {
			c.headers.Set(key, value)
		}
	}
}

// WithRetries 设置 5xx 或网络错误时的重试次数
func WithRetries(n int, backoff time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = n
		c.backoff = backoff
	}
}

// WithHTTPClient 使用外部提供的 http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New 创建客户端，component 用于日志
func New(component string, opts ...Option) *Client {
	c := &Client{
		timeout:   DefaultTimeout,
		userAgent: DefaultUserAgent,
		headers:   make(http.Header),
		backoff:   500 * time.Millisecond,
		logger:    log.With().Str("component", component).Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) client() *http.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}
	return c.httpClient
}

// Do 发送请求，对网络错误和 5xx 按配置重试；只有 2xx 会返回响应
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for k, v := range c.headers {
		if req.Header.Get(k) == "" {
			req.Header[k] = v
		}
	}

	hc := c.client()
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			c.logger.Info().Int("attempt", attempt).Int("max_retries", c.maxRetries).Msg("Retrying request")
			select {
			case <-req.Context().Done():
				return nil, req.Context().Err()
			case <-time.After(time.Duration(attempt) * c.backoff):
			}
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, fmt.Errorf("failed to rewind request body: %w", err)
				}
				req.Body = body
			}
		}

		resp, err := hc.Do(req)
		if err == nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		var retryable bool
		if err != nil {
			retryable = req.Context().Err() == nil
			c.logger.Warn().Err(err).Str("url", req.URL.Redacted()).Msg("Request failed")
		} else {
			retryable = resp.StatusCode >= 500
			resp.Body.Close()
			c.logger.Debug().Int("status", resp.StatusCode).Str("url", req.URL.Redacted()).Msg("Request returned non-2xx status")
			err = &StatusError{URL: req.URL.Redacted(), StatusCode: resp.StatusCode}
		}
		if !retryable || attempt >= c.maxRetries {
			return nil, err
		}
	}
}

// Get 发送 GET 请求并返回响应体
func (c *Client) Get(ctx context.Context, rawURL string, query url.Values) ([]byte, error) {
	return c.send(ctx, http.MethodGet, rawURL, query, nil, "")
}

// GetJSON 发送 GET 请求并把响应解码到 v
func (c *Client) GetJSON(ctx context.Context, rawURL string, query url.Values, v any) error {
	body, err := c.Get(ctx, rawURL, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// PostJSON 以 JSON 发送 payload，并把响应解码到 v
func (c *Client) PostJSON(ctx context.Context, rawURL string, query url.Values, payload, v any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	body, err := c.send(ctx, http.MethodPost, rawURL, query, data, "application/json")
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// NewRequest 构造请求，query 会附加到 rawURL 上
func NewRequest(ctx context.Context, method, rawURL string, query url.Values, payload []byte) (*http.Request, error) {
	if len(query) > 0 {
		rawURL += "?" + query.Encode()
	}
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return req, nil
}

// DoJSON 发送已构造好的请求并把响应解码到 v
func (c *Client) DoJSON(req *http.Request, v any) error {
	body, err := c.read(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, rawURL string, query url.Values, payload []byte, contentType string) ([]byte, error) {
	req, err := NewRequest(ctx, method, rawURL, query, payload)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return c.read(req)
}

func (c *Client) read(req *http.Request) ([]byte, error) {
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return data, nil
}

// Close 释放空闲连接
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.httpClient != nil {
		c.httpClient.CloseIdleConnections()
		c.httpClient = nil
	}
	return nil
}

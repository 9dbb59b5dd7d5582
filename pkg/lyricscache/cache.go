// Package lyricscache 按请求指纹缓存完整响应，条目带过期时间
package lyricscache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultTTL 默认缓存有效期
const DefaultTTL = 300 * time.Second

// ErrNotFound 条目不存在
var ErrNotFound = errors.New("cache entry not found")

// errCorrupt 条目无法解析，只用于日志
var errCorrupt = errors.New("corrupt cache entry")

// 缓存事件，用于指标统计
const (
	EventHit     = "hit"
	EventMiss    = "miss"
	EventExpired = "expired"
	EventCorrupt = "corrupt"
	EventStore   = "store"
	EventError   = "error"
)

// Store 缓存后端
type Store interface {
	// Read 读取条目，不存在时返回 ErrNotFound
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// List 列出后端中的全部条目名（文件名或 redis 键）
	List(ctx context.Context) ([]string, error)
	// Remove 按 List 返回的条目名删除
	Remove(ctx context.Context, name string) error
	Location() string
	Backend() string
}

// Observer 接收缓存事件
type Observer interface {
	ObserveCache(event string)
}

// Entry 持久化格式：{"expiry": 过期时间（秒级 Unix 时间戳）, "result": 响应}
type Entry struct {
	Expiry float64         `json:"expiry"`
	Result json.RawMessage `json:"result"`
}

// ClearFailure 删除失败的条目
type ClearFailure struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// ClearReport 清空结果
type ClearReport struct {
	Removed []string       `json:"removed"`
	Failed  []ClearFailure `json:"failed"`
}

// Stats 缓存统计
type Stats struct {
	Dir        string   `json:"cache_dir"`
	Files      int      `json:"cache_files"`
	Entries    []string `json:"files"`
	TTLSeconds int      `json:"ttl_seconds"`
	Version    string   `json:"version"`
	Backend    string   `json:"backend"`
}

// Cache 带过期时间的响应缓存，读取失败一律视为未命中
type Cache struct {
	store    Store
	ttl      time.Duration
	now      func() time.Time
	observer Observer
	logger   zerolog.Logger
}

// Option 缓存选项
type Option func(*Cache)

// WithClock 替换时钟（测试使用）
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// WithObserver 设置事件观察者
func WithObserver(o Observer) Option {
	return func(c *Cache) {
		c.observer = o
	}
}

// New 创建缓存，ttl <= 0 时使用默认值
func New(store Store, ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		store:  store,
		ttl:    ttl,
		now:    time.Now,
		logger: log.With().Str("component", "cache").Str("backend", store.Backend()).Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL 返回有效期
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Load 读取未过期的条目；过期或损坏的条目会被删除并视为未命中
func (c *Cache) Load(ctx context.Context, key string) (json.RawMessage, bool) {
	data, err := c.store.Read(ctx, key)
	if errors.Is(err, ErrNotFound) {
		c.observe(EventMiss)
		return nil, false
	}
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Failed to read cache entry")
		c.discard(ctx, key, EventCorrupt)
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil || len(entry.Result) == 0 || string(entry.Result) == "null" {
		c.logger.Warn().Err(errors.Join(errCorrupt, err)).Str("key", key).Msg("Dropping cache entry")
		c.discard(ctx, key, EventCorrupt)
		return nil, false
	}

	if c.epoch() > entry.Expiry {
		c.logger.Debug().Str("key", key).Msg("Cache entry expired")
		c.discard(ctx, key, EventExpired)
		return nil, false
	}

	c.observe(EventHit)
	return entry.Result, true
}

// LoadInto 读取条目并解码到 v
func (c *Cache) LoadInto(ctx context.Context, key string, v any) bool {
	raw, ok := c.Load(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Cached result does not match response shape")
		c.discard(ctx, key, EventCorrupt)
		return false
	}
	return true
}

// Store 写入条目；写入失败只记录日志
func (c *Cache) Store(ctx context.Context, key string, result any) {
	raw, err := json.Marshal(result)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Failed to encode cache entry")
		c.observe(EventError)
		return
	}
	data, err := json.Marshal(Entry{Expiry: c.epoch() + c.ttl.Seconds(), Result: raw})
	if err != nil {
		c.observe(EventError)
		return
	}
	if err := c.store.Write(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Failed to write cache entry")
		c.observe(EventError)
		return
	}
	c.observe(EventStore)
}

// Clear 删除全部条目，逐个报告成功与失败
func (c *Cache) Clear(ctx context.Context) (ClearReport, error) {
	report := ClearReport{Removed: []string{}, Failed: []ClearFailure{}}
	names, err := c.store.List(ctx)
	if err != nil {
		return report, err
	}
	for _, name := range names {
		if err := c.store.Remove(ctx, name); err != nil {
			report.Failed = append(report.Failed, ClearFailure{File: name, Error: err.Error()})
			continue
		}
		report.Removed = append(report.Removed, name)
	}
	c.logger.Info().Int("removed", len(report.Removed)).Int("failed", len(report.Failed)).Msg("Cache cleared")
	return report, nil
}

// Stats 返回缓存统计
func (c *Cache) Stats(ctx context.Context) (Stats, error) {
	names, err := c.store.List(ctx)
	if err != nil {
		return Stats{}, err
	}
	if names == nil {
		names = []string{}
	}
	return Stats{
		Dir:        c.store.Location(),
		Files:      len(names),
		Entries:    names,
		TTLSeconds: int(c.ttl.Seconds()),
		Version:    Version,
		Backend:    c.store.Backend(),
	}, nil
}

func (c *Cache) discard(ctx context.Context, key, event string) {
	if err := c.store.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
		c.logger.Warn().Err(err).Str("key", key).Msg("Failed to delete cache entry")
	}
	c.observe(event)
}

func (c *Cache) epoch() float64 {
	return float64(c.now().UnixNano()) / float64(time.Second)
}

func (c *Cache) observe(event string) {
	if c.observer != nil {
		c.observer.ObserveCache(event)
	}
}

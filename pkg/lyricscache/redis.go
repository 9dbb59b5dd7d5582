package lyricscache

import (
	"context"
	"strings"
	"time"
)

// KeyPrefix redis 键前缀
const KeyPrefix = "lyrica:cache:"

// KV RedisStore 依赖的 redis 操作，由 pkg/redis.Client 实现
type KV interface {
	GetBytes(ctx context.Context, key string) ([]byte, error)
	SetWithExpiration(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) (int64, error)
	ScanKeys(ctx context.Context, pattern string) ([]string, error)
	Addr() string
}

// RedisStore 把条目保存在 redis 中，同时设置原生过期时间
type RedisStore struct {
	kv KV
}

// NewRedisStore 创建 redis 后端
func NewRedisStore(kv KV) *RedisStore {
	return &RedisStore{kv: kv}
}

// Read 读取条目
func (s *RedisStore) Read(ctx context.Context, key string) ([]byte, error) {
	data, err := s.kv.GetBytes(ctx, KeyPrefix+key)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, ErrNotFound
	}
	return data, nil
}

// Write 写入条目
func (s *RedisStore) Write(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return s.kv.SetWithExpiration(ctx, KeyPrefix+key, data, ttl)
}

// Delete 删除条目
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.Remove(ctx, KeyPrefix+key)
}

// List 列出全部缓存键
func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	return s.kv.ScanKeys(ctx, KeyPrefix+"*")
}

// Remove 按完整键名删除
func (s *RedisStore) Remove(ctx context.Context, name string) error {
	if !strings.HasPrefix(name, KeyPrefix) {
		name = KeyPrefix + name
	}
	_, err := s.kv.Del(ctx, name)
	return err
}

// Location 返回 redis 地址
func (s *RedisStore) Location() string {
	return "redis://" + s.kv.Addr()
}

// Backend 后端名称
func (s *RedisStore) Backend() string {
	return "redis"
}

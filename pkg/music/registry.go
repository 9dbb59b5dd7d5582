package music

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// Registry 提供商注册表，编号到适配器的映射；值为 nil 表示未配置
type Registry struct {
	mu       sync.RWMutex
	fetchers map[ProviderID]Fetcher
}

// NewRegistry 创建空的注册表
func NewRegistry() *Registry {
	return &Registry{fetchers: make(map[ProviderID]Fetcher)}
}

// Register 注册提供商，f 为 nil 时记为未配置
func (r *Registry) Register(id ProviderID, f Fetcher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetchers[id] = f
}

// Get 获取已配置的提供商
func (r *Registry) Get(id ProviderID) (Fetcher, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.fetchers[id]
	if !ok || f == nil {
		return nil, false
	}
	return f, true
}

// Configured 返回已配置的提供商编号（按编号顺序）
func (r *Registry) Configured() []ProviderID {
	var ids []ProviderID
	for _, id := range AllProviders() {
		if _, ok := r.Get(id); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// Close 释放所有提供商持有的网络资源
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for id, f := range r.fetchers {
		c, ok := f.(io.Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

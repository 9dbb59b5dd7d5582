// Package ai 大模型客户端的公共接口
package ai

import "context"

// Client 单轮文本对话
type Client interface {
	Name() string
	HandleText(ctx context.Context, msg string) (string, error)
	Close() error
}

package openai

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"lyrica/pkg/ai"
)

var _ ai.Client = (*OpenAI)(nil)

// OpenAI OpenAI 兼容接口客户端
type OpenAI struct {
	model  string
	client *openai.Client
}

// NewOpenAI 创建客户端，baseURL 为空时使用官方地址
func NewOpenAI(apiKey, modelName, baseURL string) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if modelName == "" {
		modelName = openai.GPT4oMini
	}
	return &OpenAI{model: modelName, client: openai.NewClientWithConfig(cfg)}
}

// Name 返回名称
func (o *OpenAI) Name() string {
	return "openai"
}

// HandleText 发送单轮文本请求
func (o *OpenAI) HandleText(ctx context.Context, msg string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: msg,
			},
		},
		MaxTokens: 2000,
	})
	if err != nil {
		log.Error().Err(err).Msg("could not get response from openai")
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Close 无需释放资源
func (o *OpenAI) Close() error {
	return nil
}

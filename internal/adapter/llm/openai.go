package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIGenerator 实现了 port.TextGenerator 接口
// 备用评分后端，SCORER_PROVIDER=openai 时启用 (也兼容 OpenRouter 等同协议服务)
type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

// NewOpenAIGenerator 初始化 OpenAI 客户端
func NewOpenAIGenerator(apiKey, model string) *OpenAIGenerator {
	return &OpenAIGenerator{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// Generate 单次调用，不重试
func (o *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai 调用失败: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai 返回内容为空")
	}

	return resp.Choices[0].Message.Content, nil
}

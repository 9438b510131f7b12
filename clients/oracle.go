package clients

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/maastricht-university/nursecheck-triage/config"
	"github.com/maastricht-university/nursecheck-triage/models"
)

// Oracle sends single-prompt chat completions to an OpenAI-compatible API.
type Oracle struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

func NewOracle(cfg config.Oracle) *Oracle {
	oc := openai.DefaultConfig(cfg.APIKey)
	if u := strings.TrimSpace(cfg.URL); u != "" {
		oc.BaseURL = strings.TrimRight(u, "/")
	}
	model := cfg.Model
	if model == "" {
		model = "yi-large"
	}
	timeout := config.DurSeconds(cfg.TimeoutSeconds)
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Oracle{client: openai.NewClientWithConfig(oc), model: model, timeout: timeout}
}

// Classify returns the trimmed reply text. Every transport or API failure
// wraps models.ErrOracleUnavailable.
func (o *Oracle) Classify(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrOracleUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion", models.ErrOracleUnavailable)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

package adapter

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/m-mizutani/goerr/v2"
)

// Claude talks to the Anthropic messages API.
type Claude struct {
	client anthropic.Client
	model  string
	cfg    *clientConfig
}

func NewClaude(apiKey, modelName string, opts ...ClientOption) *Claude {
	cfg := newClientConfig(opts)

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if cfg.endpoint != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.endpoint))
	}
	if modelName == "" {
		modelName = "claude-haiku-4-5-20251001"
	}

	return &Claude{
		client: anthropic.NewClient(reqOpts...),
		model:  modelName,
		cfg:    cfg,
	}
}

func (x *Claude) send(ctx context.Context, params anthropic.MessageNewParams) (string, error) {
	params.Model = anthropic.Model(x.model)
	params.MaxTokens = x.cfg.maxTokens

	msg, err := x.client.Messages.New(ctx, params)
	if err != nil {
		return "", goerr.Wrap(err, "failed to call messages api", goerr.V("model", x.model))
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", goerr.New("empty response from model", goerr.V("model", x.model))
	}
	return b.String(), nil
}

func (x *Claude) AnalyzeImage(ctx context.Context, imageBase64, prompt string) (string, error) {
	return x.send(ctx, anthropic.MessageNewParams{
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlockBase64(imageMediaType, imageBase64),
				anthropic.NewTextBlock(prompt),
			),
		},
	})
}

func (x *Claude) Chat(ctx context.Context, background, question string) (string, error) {
	return x.send(ctx, anthropic.MessageNewParams{
		System: []anthropic.TextBlockParam{
			{Text: background},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(question)),
		},
	})
}

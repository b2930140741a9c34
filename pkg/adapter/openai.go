package adapter

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// OpenAI talks to the OpenAI chat completions API or any compatible endpoint.
type OpenAI struct {
	client openai.Client
	model  string
	cfg    *clientConfig
}

func NewOpenAI(apiKey, modelName string, opts ...ClientOption) *OpenAI {
	cfg := newClientConfig(opts)

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if cfg.endpoint != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.endpoint))
	}
	if modelName == "" {
		modelName = "gpt-4o-mini"
	}

	return &OpenAI{
		client: openai.NewClient(reqOpts...),
		model:  modelName,
		cfg:    cfg,
	}
}

func (x *OpenAI) complete(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	resp, err := x.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(x.model),
		Messages:            messages,
		MaxCompletionTokens: openai.Int(x.cfg.maxTokens),
	})
	if err != nil {
		return "", goerr.Wrap(err, "failed to call chat completions", goerr.V("model", x.model))
	}
	if len(resp.Choices) == 0 {
		return "", goerr.New("empty response from model", goerr.V("model", x.model))
	}
	return resp.Choices[0].Message.Content, nil
}

func (x *OpenAI) AnalyzeImage(ctx context.Context, imageBase64, prompt string) (string, error) {
	return x.complete(ctx, []openai.ChatCompletionMessageParamUnion{
		openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
			openai.TextContentPart(prompt),
			openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
				URL: "data:" + imageMediaType + ";base64," + imageBase64,
			}),
		}),
	})
}

func (x *OpenAI) Chat(ctx context.Context, background, question string) (string, error) {
	return x.complete(ctx, []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(background),
		openai.UserMessage(question),
	})
}

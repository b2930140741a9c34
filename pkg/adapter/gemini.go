package adapter

import (
	"context"
	"encoding/base64"

	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini API client authenticated by API key.
func NewGemini(ctx context.Context, apiKey, modelName string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create genai client")
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	return &Gemini{client: client, model: modelName}, nil
}

func (x *Gemini) generate(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (string, error) {
	resp, err := x.client.Models.GenerateContent(ctx, x.model, contents, config)
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate content", goerr.V("model", x.model))
	}
	text := resp.Text()
	if text == "" {
		return "", goerr.New("empty response from model", goerr.V("model", x.model))
	}
	return text, nil
}

func (x *Gemini) AnalyzeImage(ctx context.Context, imageBase64, prompt string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(imageBase64)
	if err != nil {
		return "", goerr.Wrap(err, "invalid base64 image")
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(data, imageMediaType),
			genai.NewPartFromText(prompt),
		}, genai.RoleUser),
	}
	return x.generate(ctx, contents, nil)
}

func (x *Gemini) Chat(ctx context.Context, background, question string) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(background, genai.RoleUser),
	}
	return x.generate(ctx, genai.Text(question), config)
}

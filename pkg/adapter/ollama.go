package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// Ollama talks to a local Ollama server over its REST API.
type Ollama struct {
	endpoint   string
	model      string
	httpClient *http.Client
}

func NewOllama(endpoint, modelName string) *Ollama {
	if endpoint == "" {
		endpoint = "http://localhost:11434"
	}
	if modelName == "" {
		modelName = "llava"
	}
	return &Ollama{
		endpoint: strings.TrimRight(endpoint, "/"),
		model:    modelName,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaGenerateRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images,omitempty"`
	Stream bool     `json:"stream"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
}

func (x *Ollama) post(ctx context.Context, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return goerr.Wrap(err, "failed to marshal request")
	}

	url := x.endpoint + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return goerr.Wrap(err, "failed to create request", goerr.V("url", url))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := x.httpClient.Do(req)
	if err != nil {
		return goerr.Wrap(err, "failed to send request", goerr.V("url", url))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return goerr.Wrap(err, "failed to read response", goerr.V("url", url))
	}

	// status code goes into the message so failures can be classified from the text
	if resp.StatusCode != http.StatusOK {
		return goerr.New("ollama API error (status "+resp.Status+"): "+string(respBody),
			goerr.V("url", url),
			goerr.V("status", resp.StatusCode))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return goerr.Wrap(err, "failed to parse response", goerr.V("url", url))
	}
	return nil
}

func (x *Ollama) AnalyzeImage(ctx context.Context, imageBase64, prompt string) (string, error) {
	var resp ollamaGenerateResponse
	err := x.post(ctx, "/api/generate", &ollamaGenerateRequest{
		Model:  x.model,
		Prompt: prompt,
		Images: []string{imageBase64},
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Response, nil
}

func (x *Ollama) Chat(ctx context.Context, background, question string) (string, error) {
	var resp ollamaChatResponse
	err := x.post(ctx, "/api/chat", &ollamaChatRequest{
		Model: x.model,
		Messages: []ollamaMessage{
			{Role: "system", Content: background},
			{Role: "user", Content: question},
		},
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Message.Content, nil
}

package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Backend names accepted by configuration.
const (
	BackendLocal  = "local"
	BackendOpenAI = "openai"
)

// DefaultOpenAIModel is used when no model name is configured.
const DefaultOpenAIModel = "gpt-4o"

// DefaultLocalEndpoint is the model server used when none is configured.
const DefaultLocalEndpoint = "http://localhost:8080/phi4/chat"

// NutritionInstructions steers hosted models toward nutrition estimates.
const NutritionInstructions = "ユーザーのフリーテキストから栄養素を推論して計算してください。" +
	"必要に応じて追加情報を質問してください。"

const maxModelResponseBytes = 4 << 20

// Model completes a single prompt.
type Model interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// LocalModel posts {"text": prompt} to a self-hosted model server and reads
// the "response" field of the reply.
type LocalModel struct {
	endpoint   string
	httpClient *http.Client
}

// NewLocalModel returns a LocalModel. A nil httpClient uses http.DefaultClient.
func NewLocalModel(endpoint string, httpClient *http.Client) *LocalModel {
	if endpoint == "" {
		endpoint = DefaultLocalEndpoint
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &LocalModel{endpoint: endpoint, httpClient: httpClient}
}

func (m *LocalModel) Name() string { return BackendLocal }

func (m *LocalModel) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(map[string]string{"text": prompt})
	if err != nil {
		return "", fmt.Errorf("encode model request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build model request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call model: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxModelResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read model response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("model returned status %d", resp.StatusCode)
	}

	var payload struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("decode model response: %w", err)
	}
	return payload.Response, nil
}

// OpenAIModel completes prompts through an OpenAI compatible chat API.
type OpenAIModel struct {
	client       openai.Client
	model        string
	instructions string
}

// NewOpenAIModel builds an OpenAIModel. Retries are disabled so every prompt
// reaches the backend exactly once.
func NewOpenAIModel(apiKey, baseURL, model string, httpClient *http.Client) *OpenAIModel {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	if model == "" {
		model = DefaultOpenAIModel
	}

	return &OpenAIModel{
		client:       openai.NewClient(opts...),
		model:        model,
		instructions: NutritionInstructions,
	}
}

func (m *OpenAIModel) Name() string { return BackendOpenAI }

func (m *OpenAIModel) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := m.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(m.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(m.instructions),
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

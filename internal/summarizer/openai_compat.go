package summarizer

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAICompat calls an OpenAI-compatible chat completions API.
// DeepSeek and Groq both speak this dialect.
type OpenAICompat struct {
	provider    string
	apiKey      string
	model       string
	temperature float64
	prompt      prompt
	client      openai.Client
}

// NewOpenAICompat builds a client. baseURL includes the version prefix,
// e.g. "https://api.deepseek.com/v1".
func NewOpenAICompat(provider, baseURL, apiKey, model string, temperature float64, timeout time.Duration, language string) *OpenAICompat {
	apiKey = strings.TrimSpace(apiKey)
	return &OpenAICompat{
		provider:    provider,
		apiKey:      apiKey,
		model:       strings.TrimSpace(model),
		temperature: temperature,
		prompt:      newPrompt(language),
		client:      newOpenAIClient(baseURL, apiKey, timeout),
	}
}

func newOpenAIClient(baseURL, key string, timeout time.Duration) openai.Client {
	opts := []option.RequestOption{
		option.WithAPIKey(key),
		option.WithRequestTimeout(timeout),
		option.WithMaxRetries(1),
	}
	if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return openai.NewClient(opts...)
}

func (o *OpenAICompat) Summarize(ctx context.Context, text string) (summary string, err error) {
	defer func() { observe(o.provider, err) }()

	if o.apiKey == "" {
		return "", ErrMissingCredential
	}
	userPrompt, err := o.prompt.render(text)
	if err != nil {
		return "", err
	}

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		Temperature: openai.Float(o.temperature),
	})
	if err != nil {
		return "", o.upstream(err)
	}
	if len(resp.Choices) == 0 {
		return "", &UpstreamError{Provider: o.provider, Status: http.StatusOK, Err: errors.New("empty response")}
	}
	summary = strings.TrimSpace(resp.Choices[0].Message.Content)
	if summary == "" {
		return "", &UpstreamError{Provider: o.provider, Status: http.StatusOK, Err: errors.New("empty response")}
	}
	return summary, nil
}

func (o *OpenAICompat) upstream(err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		return &UpstreamError{Provider: o.provider, Status: apierr.StatusCode, Err: err}
	}
	return &UpstreamError{Provider: o.provider, Err: err}
}

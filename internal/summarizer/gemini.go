package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/worklog-bot/worklog/internal/config"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Gemini calls the Google Generative Language API.
type Gemini struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	prompt      prompt
	httpClient  *http.Client
}

func NewGemini(baseURL, apiKey, model string, temperature float64, timeout time.Duration, language string) *Gemini {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	return &Gemini{
		baseURL:     baseURL,
		apiKey:      strings.TrimSpace(apiKey),
		model:       strings.TrimPrefix(strings.TrimSpace(model), "models/"),
		temperature: temperature,
		prompt:      newPrompt(language),
		httpClient:  &http.Client{Timeout: timeout},
	}
}

func (g *Gemini) Summarize(ctx context.Context, text string) (summary string, err error) {
	defer func() { observe(config.ProviderGemini, err) }()

	if g.apiKey == "" {
		return "", ErrMissingCredential
	}
	userPrompt, err := g.prompt.render(text)
	if err != nil {
		return "", err
	}

	reqBody := geminiRequest{
		Contents:          []geminiContent{{Role: "user", Parts: []geminiPart{{Text: userPrompt}}}},
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: systemPrompt}}},
		GenerationConfig:  geminiGenerationConfig{Temperature: g.temperature},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", &UpstreamError{Provider: config.ProviderGemini, Err: stripKey(err, g.apiKey)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp apiErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		msg := resp.Status
		if errResp.Error.Message != "" {
			msg = errResp.Error.Message
		}
		return "", &UpstreamError{Provider: config.ProviderGemini, Status: resp.StatusCode, Err: errors.New(msg)}
	}

	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &UpstreamError{Provider: config.ProviderGemini, Status: resp.StatusCode, Err: fmt.Errorf("decode: %w", err)}
	}
	if len(out.Candidates) == 0 {
		return "", &UpstreamError{Provider: config.ProviderGemini, Status: resp.StatusCode, Err: errors.New("empty response")}
	}
	var b strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	summary = strings.TrimSpace(b.String())
	if summary == "" {
		return "", &UpstreamError{Provider: config.ProviderGemini, Status: resp.StatusCode, Err: errors.New("empty response")}
	}
	return summary, nil
}

// stripKey keeps the API key, which travels in the query string, out of logged errors.
func stripKey(err error, key string) error {
	if key == "" || !strings.Contains(err.Error(), key) {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), key, "REDACTED"))
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature float64 `json:"temperature"`
}

type geminiRequest struct {
	Contents          []geminiContent        `json:"contents"`
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

type apiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

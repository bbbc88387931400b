package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"invoice-reconciliation-backend/internal/pkg/logger"
)

// OpenAIProvider calls an OpenAI-compatible /v1/embeddings endpoint.
type OpenAIProvider struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client

	maxRetries   int
	retryBackoff time.Duration
	callTimeout  time.Duration
}

func NewOpenAIProvider(log *logger.Logger) (*OpenAIProvider, error) {
	apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}

	baseURL := strings.TrimSpace(os.Getenv("OPENAI_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	model := strings.TrimSpace(os.Getenv("OPENAI_EMBED_MODEL"))
	if model == "" {
		model = "text-embedding-3-small"
	}

	return &OpenAIProvider{
		log:         log,
		baseURL:     baseURL,
		apiKey:      apiKey,
		model:       model,
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		maxRetries:   3,
		retryBackoff: 1 * time.Second,
		callTimeout:  15 * time.Second,
	}, nil
}

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, permanentf("empty input text")
	}

	req := embeddingsRequest{Model: p.model, Input: []string{text}}

	backoff := p.retryBackoff
	var lastErr error

	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, transientf("context done: %v", ctx.Err())
		}

		vec, err := p.embedOnce(ctx, req)
		if err == nil {
			return vec, nil
		}
		lastErr = err

		if IsPermanent(err) || attempt == p.maxRetries {
			return nil, err
		}

		p.log.Warn("embedding request retrying",
			"attempt", attempt+1,
			"max_retries", p.maxRetries,
			"sleep", backoff.String(),
			"error", err.Error(),
		)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, transientf("context done: %v", ctx.Err())
		}
		backoff *= 2
	}

	return nil, lastErr
}

func (p *OpenAIProvider) embedOnce(ctx context.Context, reqBody embeddingsRequest) ([]float32, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(reqBody); err != nil {
		return nil, permanentf("encode request: %v", err)
	}

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, p.baseURL+"/v1/embeddings", &buf)
	if err != nil {
		return nil, permanentf("build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		// Network failures and per-call timeouts are retryable.
		return nil, transientf("request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transientf("read response: %v", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, transientf("status %d: %s", resp.StatusCode, truncate(raw, 200))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, permanentf("status %d: %s", resp.StatusCode, truncate(raw, 200))
	}

	var out embeddingsResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, permanentf("decode response: %v", err)
	}
	if len(out.Data) == 0 || len(out.Data[0].Embedding) == 0 {
		return nil, permanentf("empty embedding in response")
	}

	vec := make([]float32, len(out.Data[0].Embedding))
	for i, f := range out.Data[0].Embedding {
		vec[i] = float32(f)
	}
	return vec, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

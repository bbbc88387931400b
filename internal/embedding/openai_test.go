package embedding

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoice-reconciliation-backend/internal/pkg/logger"
)

const embeddingBody = `{"data":[{"embedding":[0.1,0.2,0.3],"index":0}]}`

func newTestProvider(serverURL string) *OpenAIProvider {
	return &OpenAIProvider{
		log:          logger.NewNop(),
		baseURL:      serverURL,
		apiKey:       "test-key",
		model:        "text-embedding-3-small",
		httpClient:   &http.Client{},
		maxRetries:   2,
		retryBackoff: time.Millisecond,
		callTimeout:  time.Second,
	}
}

func TestEmbedSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Write([]byte(embeddingBody))
	}))
	defer srv.Close()

	vec, err := newTestProvider(srv.URL).Embed(context.Background(), "telcel pago serv")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestEmbedRetriesRateLimit(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(embeddingBody))
	}))
	defer srv.Close()

	vec, err := newTestProvider(srv.URL).Embed(context.Background(), "telcel pago serv")
	require.NoError(t, err)
	assert.Len(t, vec, 3)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestEmbedTransientExhaustsRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestProvider(srv.URL).Embed(context.Background(), "telcel pago serv")
	require.Error(t, err)
	assert.True(t, IsTransient(err))
	// initial attempt + maxRetries
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestEmbedPermanentFailsFast(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestProvider(srv.URL).Embed(context.Background(), "telcel pago serv")
	require.Error(t, err)
	assert.True(t, IsPermanent(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestEmbedEmptyInputIsPermanent(t *testing.T) {
	_, err := newTestProvider("http://unreachable.invalid").Embed(context.Background(), "   ")
	require.Error(t, err)
	assert.True(t, IsPermanent(err))
}

package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aleister1102/resourcewatch/internal/common"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClient_Do(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-value", r.Header.Get("X-Test-Header"))
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	client, err := NewHTTPClientBuilder(zerolog.Nop()).WithUserAgent("test-agent").Build()
	require.NoError(t, err)

	resp, err := client.Do(&HTTPRequest{
		URL:     server.URL,
		Method:  "GET",
		Headers: map[string]string{"X-Test-Header": "test-value"},
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"status":"ok"}`, string(resp.Body))
	assert.Equal(t, "application/json", resp.Headers["Content-Type"])
}

func TestHTTPClient_Do_Post(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, `{"key":"value"}`, string(body))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, err := NewHTTPClientBuilder(zerolog.Nop()).Build()
	require.NoError(t, err)

	resp, err := client.Do(&HTTPRequest{URL: server.URL, Method: "POST", Body: strings.NewReader(`{"key":"value"}`)})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHTTPClient_Do_Truncates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 100)))
	}))
	defer server.Close()

	client, err := NewHTTPClientBuilder(zerolog.Nop()).WithMaxContentSize(10).Build()
	require.NoError(t, err)

	resp, err := client.Do(&HTTPRequest{URL: server.URL})
	require.NoError(t, err)
	assert.Len(t, resp.Body, 10)
	assert.True(t, resp.Truncated)
}

func TestHTTPClient_Get_NonSuccess(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, err := NewHTTPClientBuilder(zerolog.Nop()).Build()
	require.NoError(t, err)

	_, err = client.Get(context.Background(), server.URL)
	var httpErr *common.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusServiceUnavailable, httpErr.StatusCode)
	assert.Equal(t, 1, calls, "no retries")
}

func TestHTTPClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client, err := NewHTTPClientBuilder(zerolog.Nop()).WithTimeout(20 * time.Millisecond).Build()
	require.NoError(t, err)

	_, err = client.Get(context.Background(), server.URL)
	var netErr *common.NetworkError
	assert.True(t, errors.As(err, &netErr))
}

func TestHTTPClient_Download(t *testing.T) {
	payload := strings.Repeat("a", 2048)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.Header().Set("Content-Type", "application/pdf")
			_, _ = w.Write([]byte(payload))
		case "/chunked":
			// no Content-Length, forces the streaming cap
			flusher := w.(http.Flusher)
			for i := 0; i < 4; i++ {
				_, _ = w.Write([]byte(payload))
				flusher.Flush()
			}
		case "/redirected":
			w.WriteHeader(http.StatusAccepted)
		}
	}))
	defer server.Close()

	client, err := NewHTTPClientBuilder(zerolog.Nop()).Build()
	require.NoError(t, err)
	dir := t.TempDir()

	t.Run("success", func(t *testing.T) {
		dest := filepath.Join(dir, "ok.pdf")
		result, err := client.Download(context.Background(), server.URL+"/ok", dest, 4096)
		require.NoError(t, err)
		assert.Equal(t, int64(2048), result.Size)
		assert.Equal(t, "application/pdf", result.ContentType)
		data, err := os.ReadFile(dest)
		require.NoError(t, err)
		assert.Equal(t, payload, string(data))
	})

	t.Run("declared length over cap", func(t *testing.T) {
		dest := filepath.Join(dir, "big.pdf")
		_, err := client.Download(context.Background(), server.URL+"/ok", dest, 1024)
		var sizeErr *common.SizeLimitExceeded
		require.True(t, errors.As(err, &sizeErr))
		assert.NoFileExists(t, dest)
	})

	t.Run("streamed length over cap", func(t *testing.T) {
		dest := filepath.Join(dir, "stream.bin")
		_, err := client.Download(context.Background(), server.URL+"/chunked", dest, 4096)
		var sizeErr *common.SizeLimitExceeded
		require.True(t, errors.As(err, &sizeErr))
		assert.NoFileExists(t, dest)
		assert.NoFileExists(t, dest+".part")
	})

	t.Run("non-200 rejected", func(t *testing.T) {
		_, err := client.Download(context.Background(), server.URL+"/redirected", filepath.Join(dir, "x"), 0)
		var httpErr *common.HTTPError
		require.True(t, errors.As(err, &httpErr))
		assert.Equal(t, http.StatusAccepted, httpErr.StatusCode)
	})
}

package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aleister1102/resourcewatch/internal/common"
	"github.com/aleister1102/resourcewatch/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() *Service {
	cfg := config.NewDefaultFetcherConfig()
	cfg.TimeoutSecs = 5
	return NewService(NewCollyFetcher(cfg, nil, zerolog.Nop()), NewResourceExtractor(false, zerolog.Nop()), zerolog.Nop())
}

func TestService_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/page":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(`<html><a href="/doc.pdf">Doc</a><img src="/pic.png"></html>`))
		case "/empty":
			w.Header().Set("Content-Type", "text/html")
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	svc := newTestService()

	t.Run("resources extracted", func(t *testing.T) {
		result, err := svc.Fetch(context.Background(), server.URL+"/page")
		require.NoError(t, err)
		assert.Contains(t, result.Content, "doc.pdf")
		require.Len(t, result.Resources, 2)
		assert.Equal(t, server.URL+"/doc.pdf", result.Resources[0].URL)
		require.Len(t, result.Documents, 1)
	})

	t.Run("non-2xx is a fetch error with empty result", func(t *testing.T) {
		result, err := svc.Fetch(context.Background(), server.URL+"/missing")
		var fetchErr *common.FetchError
		require.True(t, errors.As(err, &fetchErr))
		assert.Empty(t, result.Content)
		assert.Empty(t, result.Resources)
	})

	t.Run("empty body is unreachable", func(t *testing.T) {
		result, err := svc.Fetch(context.Background(), server.URL+"/empty")
		assert.ErrorIs(t, err, common.ErrUnreachable)
		assert.Empty(t, result.Content)
	})
}

func TestService_FetchRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := server.URL
	server.Close()

	result, err := newTestService().Fetch(context.Background(), addr)
	var fetchErr *common.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Empty(t, result.Resources)
}

func TestService_FetchCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html></html>"))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestService().Fetch(ctx, server.URL)
	assert.Error(t, err)
}

func TestHeadlessBrowserManager_Disabled(t *testing.T) {
	hbm := NewHeadlessBrowserManager(config.HeadlessBrowserConfig{Enabled: false}, "", zerolog.Nop())
	require.NoError(t, hbm.Start())

	_, err := hbm.FetchPage(context.Background(), "https://example.com")
	assert.Error(t, err)
	hbm.Stop()
}

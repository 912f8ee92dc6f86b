package httpclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/aleister1102/resourcewatch/internal/common"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
)

// HTTPRequest is a buffered request description
type HTTPRequest struct {
	URL     string
	Method  string
	Headers map[string]string
	Body    io.Reader
	Context context.Context
}

// HTTPResponse is a fully read response
type HTTPResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	Truncated  bool
}

// DownloadResult describes a file written by Download
type DownloadResult struct {
	Path        string
	Size        int64
	ContentType string
}

// HTTPClient wraps net/http.Client. It never retries; callers rely on the next scheduled run.
type HTTPClient struct {
	client     *http.Client
	config     HTTPClientConfig
	logger     zerolog.Logger
	bufferPool sync.Pool
}

// NewHTTPClient creates a new HTTP client with the given configuration using net/http
func NewHTTPClient(config HTTPClientConfig, logger zerolog.Logger) (*HTTPClient, error) {
	transport := &http.Transport{
		MaxIdleConns:          config.MaxIdleConns,
		MaxIdleConnsPerHost:   config.MaxIdleConnsPerHost,
		MaxConnsPerHost:       config.MaxConnsPerHost,
		IdleConnTimeout:       config.IdleConnTimeout,
		TLSHandshakeTimeout:   config.TLSHandshakeTimeout,
		ExpectContinueTimeout: config.ExpectContinueTimeout,
		DialContext: (&net.Dialer{
			Timeout:   config.DialTimeout,
			KeepAlive: config.KeepAlive,
		}).DialContext,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: config.InsecureSkipVerify,
		},
	}

	if config.EnableHTTP2 {
		if err := http2.ConfigureTransport(transport); err != nil {
			logger.Warn().Err(err).Msg("Failed to configure HTTP/2, falling back to HTTP/1.1")
		}
	}

	if config.Proxy != "" {
		proxyURL, err := url.Parse(config.Proxy)
		if err != nil {
			return nil, common.WrapError(err, "failed to parse proxy URL")
		}
		transport.Proxy = http.ProxyURL(proxyURL)
		logger.Info().Str("proxy", config.Proxy).Msg("HTTP client configured with proxy")
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   config.Timeout,
	}

	if !config.FollowRedirects {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	} else if config.MaxRedirects > 0 {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= config.MaxRedirects {
				return fmt.Errorf("stopped after %d redirects", config.MaxRedirects)
			}
			return nil
		}
	}

	logger.Debug().
		Dur("timeout", config.Timeout).
		Bool("insecure_skip_verify", config.InsecureSkipVerify).
		Bool("follow_redirects", config.FollowRedirects).
		Bool("http2_enabled", config.EnableHTTP2).
		Msg("HTTP client created")

	return &HTTPClient{
		client: client,
		config: config,
		logger: logger,
		bufferPool: sync.Pool{
			New: func() interface{} {
				b := make([]byte, 32*1024)
				return &b
			},
		},
	}, nil
}

// StdClient exposes the underlying client for libraries that take *http.Client
func (c *HTTPClient) StdClient() *http.Client {
	return c.client
}

// Do performs a single HTTP request and buffers the body
func (c *HTTPClient) Do(req *HTTPRequest) (*HTTPResponse, error) {
	ctx := req.Context
	if ctx == nil {
		ctx = context.Background()
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := c.newRequest(ctx, method, req.URL, req.Body, req.Headers)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, common.NewNetworkError(req.URL, "HTTP request failed", err)
	}
	defer resp.Body.Close()

	bufPtr := c.bufferPool.Get().(*[]byte)
	defer c.bufferPool.Put(bufPtr)
	buf := bytes.NewBuffer((*bufPtr)[:0])

	var reader io.Reader = resp.Body
	if c.config.MaxContentSize > 0 {
		reader = io.LimitReader(resp.Body, int64(c.config.MaxContentSize)+1)
	}
	if _, err = io.Copy(buf, reader); err != nil {
		return nil, common.NewNetworkError(req.URL, "failed to read response body", err)
	}

	truncated := false
	if c.config.MaxContentSize > 0 && buf.Len() > c.config.MaxContentSize {
		buf.Truncate(c.config.MaxContentSize)
		truncated = true
		c.logger.Warn().Str("url", req.URL).Int("max_content_size", c.config.MaxContentSize).Msg("Response body truncated")
	}

	bodyBytes := make([]byte, buf.Len())
	copy(bodyBytes, buf.Bytes())

	httpResp := &HTTPResponse{
		StatusCode: resp.StatusCode,
		Headers:    make(map[string]string, len(resp.Header)),
		Body:       bodyBytes,
		Truncated:  truncated,
	}
	for key, values := range resp.Header {
		if len(values) > 0 {
			httpResp.Headers[key] = values[0]
		}
	}

	return httpResp, nil
}

// Get fetches a URL and requires a 2xx status
func (c *HTTPClient) Get(ctx context.Context, rawURL string) (*HTTPResponse, error) {
	resp, err := c.Do(&HTTPRequest{URL: rawURL, Method: http.MethodGet, Context: ctx})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp, common.NewHTTPErrorWithURL(resp.StatusCode, http.StatusText(resp.StatusCode), rawURL)
	}
	return resp, nil
}

// Download streams a URL to destPath. Only status 200 is accepted, and the transfer is
// aborted with SizeLimitExceeded once more than maxBytes arrive (maxBytes <= 0 disables the cap).
// A partially written file is never left at destPath.
func (c *HTTPClient) Download(ctx context.Context, rawURL, destPath string, maxBytes int64) (*DownloadResult, error) {
	httpReq, err := c.newRequest(ctx, http.MethodGet, rawURL, nil, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, common.NewNetworkError(rawURL, "download request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, common.NewHTTPErrorWithURL(resp.StatusCode, http.StatusText(resp.StatusCode), rawURL)
	}
	if maxBytes > 0 && resp.ContentLength > maxBytes {
		return nil, common.NewSizeLimitExceeded(rawURL, maxBytes, resp.ContentLength)
	}

	if err := common.EnsureDir(filepath.Dir(destPath)); err != nil {
		return nil, err
	}
	partPath := destPath + ".part"
	file, err := os.Create(partPath)
	if err != nil {
		return nil, common.WrapError(err, "failed to create download file")
	}

	var reader io.Reader = resp.Body
	if maxBytes > 0 {
		reader = io.LimitReader(resp.Body, maxBytes+1)
	}

	written, copyErr := io.Copy(file, reader)
	closeErr := file.Close()

	switch {
	case copyErr != nil:
		_ = os.Remove(partPath)
		return nil, common.NewNetworkError(rawURL, "download interrupted", copyErr)
	case closeErr != nil:
		_ = os.Remove(partPath)
		return nil, common.WrapError(closeErr, "failed to flush download file")
	case maxBytes > 0 && written > maxBytes:
		_ = os.Remove(partPath)
		return nil, common.NewSizeLimitExceeded(rawURL, maxBytes, written)
	}

	if err := os.Rename(partPath, destPath); err != nil {
		_ = os.Remove(partPath)
		return nil, common.WrapError(err, "failed to finalize download file")
	}

	c.logger.Debug().Str("url", rawURL).Int64("size", written).Str("path", destPath).Msg("Download complete")

	return &DownloadResult{
		Path:        destPath,
		Size:        written,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

func (c *HTTPClient) newRequest(ctx context.Context, method, rawURL string, body io.Reader, headers map[string]string) (*http.Request, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, common.WrapError(err, "failed to create HTTP request")
	}

	for key, value := range c.config.CustomHeaders {
		httpReq.Header.Set(key, value)
	}
	for key, value := range headers {
		httpReq.Header.Set(key, value)
	}
	if c.config.UserAgent != "" {
		httpReq.Header.Set("User-Agent", c.config.UserAgent)
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "*/*")
	}
	return httpReq, nil
}

package httpclient

import "time"

// HTTPClientConfig holds transport and request settings for HTTPClient
type HTTPClientConfig struct {
	Timeout               time.Duration
	InsecureSkipVerify    bool
	FollowRedirects       bool
	MaxRedirects          int
	UserAgent             string
	CustomHeaders         map[string]string
	MaxContentSize        int
	MaxIdleConns          int
	MaxIdleConnsPerHost   int
	MaxConnsPerHost       int
	IdleConnTimeout       time.Duration
	TLSHandshakeTimeout   time.Duration
	ExpectContinueTimeout time.Duration
	DialTimeout           time.Duration
	KeepAlive             time.Duration
	EnableHTTP2           bool
	Proxy                 string
}

// DefaultHTTPClientConfig returns the default client configuration
func DefaultHTTPClientConfig() HTTPClientConfig {
	return HTTPClientConfig{
		Timeout:               30 * time.Second,
		FollowRedirects:       true,
		MaxRedirects:          10,
		CustomHeaders:         map[string]string{},
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		DialTimeout:           10 * time.Second,
		KeepAlive:             30 * time.Second,
		EnableHTTP2:           true,
	}
}

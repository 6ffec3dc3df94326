package httpclient

import (
	"net/http"
	"time"
)

// sharedTransport keeps connections to the model backend warm. A daily
// compile fires several generations in a short burst at one host, and a
// cold connection per request would add setup latency to each of them.
var sharedTransport = &http.Transport{
	MaxIdleConns:        20,
	MaxIdleConnsPerHost: 10,
	IdleConnTimeout:     120 * time.Second,
	DisableKeepAlives:   false,
}

// NewPooledClient creates an http.Client that shares a connection pool
// with other pooled clients.
func NewPooledClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: sharedTransport,
	}
}

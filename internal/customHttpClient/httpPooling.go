package customHttpClient

import (
	"net/http"
	"sync"

	"github.com/akolanti/docmind/internal/config"
)

var (
	customTransport = &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
		IdleConnTimeout:     config.IdleConnTimeout,
	}
	client     *http.Client
	clientOnce sync.Once
)

// Client returns the shared pooled client used for LLM calls and URL fetches.
// Per call deadlines come from the request context.
func Client() *http.Client {
	clientOnce.Do(func() {
		client = &http.Client{Transport: customTransport}
	})
	return client
}

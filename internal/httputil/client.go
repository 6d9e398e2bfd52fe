package httputil

import (
	"net/http"
	"time"
)

// DefaultTimeout bounds a whole granule download; granule payloads run to a
// few tens of megabytes over slow archive links.
const DefaultTimeout = 120 * time.Second

// NewClient returns an HTTP client with standard timeout configuration.
func NewClient() *http.Client {
	return &http.Client{
		Timeout: DefaultTimeout,
	}
}

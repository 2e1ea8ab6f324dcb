package utils

import (
	"github.com/go-resty/resty/v2"
)

// UserAgent is sent with every request made through NewHTTPClient.
const UserAgent = "go-health-sync"

// HTTPClient embeds *resty.Client so every resty method is available
// directly.
type HTTPClient struct {
	*resty.Client
}

// NewHTTPClient returns an independent client with its own connection pool.
// It identifies itself with UserAgent and asks for JSON responses.
//
//	client := utils.NewHTTPClient()
//	resp, err := client.R().Get("https://sync.example.com/api/zones/health/changes")
func NewHTTPClient() *HTTPClient {
	c := resty.New().
		SetHeader("User-Agent", UserAgent).
		SetHeader("Accept", "application/json")
	return &HTTPClient{Client: c}
}

// Copyright 2025 Fedict
// SPDX-License-Identifier: Apache-2.0

package common

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
)

const UserAgent = "lod-link"

// An http transport optimized for long-lived connections
// to a single triplestore
func newLongLivedHttpTransport() *http.Transport {
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
		IdleConnTimeout:       120 * time.Second,
		TLSHandshakeTimeout:   20 * time.Second,
		ExpectContinueTimeout: 2 * time.Second,
		ForceAttemptHTTP2:     true,
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			span := trace.SpanFromContext(ctx)
			span.AddEvent("HTTP connection")
			dialer := &net.Dialer{Timeout: 30 * time.Second}
			return dialer.DialContext(ctx, network, addr)
		},
	}
}

// userAgentTransport tags every outgoing request
type userAgentTransport struct {
	base http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", UserAgent)
	}
	return t.base.RoundTrip(req)
}

// NewStoreClient returns the client used for every triplestore call.
// It does not retry and sets no overall timeout; callers bound each
// exchange with the request context
func NewStoreClient() *http.Client {
	transport := otelhttp.NewTransport(&userAgentTransport{base: newLongLivedHttpTransport()})
	return &http.Client{
		Transport: transport,
	}
}

// NewRetryableHTTPClient returns an HTTP client with automatic retries.
// It is only used for fetching remote JSON-LD contexts
func NewRetryableHTTPClient() *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 10 * time.Second
	// logging is done by the application, not by the library
	retryClient.Logger = nil
	retryClient.HTTPClient.Timeout = 30 * time.Second
	return retryClient.StandardClient()
}

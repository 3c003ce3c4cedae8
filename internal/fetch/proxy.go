package fetch

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/net/proxy"
)

// NewProxyHTTPClient creates an HTTP client that routes every connection
// through the SOCKS5 proxy at proxyAddress ("host:port").
//
// The proxy is not contacted here; a proxy that is down surfaces as a
// ReasonRequest error on the first fetch.
//
// Design decision: We use golang.org/x/net/proxy rather than
// http.ProxyURL("socks5://...") because:
//  1. The dialer is built once and validated up front
//  2. The same dialer can be reused for other transports
//  3. DNS resolution happens on the proxy side, so hosts that only the
//     proxy can resolve remain reachable
func NewProxyHTTPClient(proxyAddress string) (*http.Client, error) {
	if !isValidProxyAddress(proxyAddress) {
		return nil, ErrInvalidProxyAddress
	}

	dialer, err := proxy.SOCKS5("tcp", proxyAddress, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}

	dialContext := func(_ context.Context, network, addr string) (net.Conn, error) {
		return dialer.Dial(network, addr)
	}
	if cd, ok := dialer.(proxy.ContextDialer); ok {
		dialContext = cd.DialContext
	}

	transport := &http.Transport{
		DialContext:         dialContext,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,
	}

	return newHTTPClient(transport), nil
}

// isValidProxyAddress checks if the address is in valid "host:port" format
// with a port between 1 and 65535.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" || port == "" {
		return false
	}

	portNum, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return portNum >= 1 && portNum <= 65535
}

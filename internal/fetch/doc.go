// Package fetch retrieves HTML pages over HTTP for the crawler.
//
// # Contract
//
// Client.FetchHTML returns the decoded text of a page, or a *Error whose
// Reason tells why the page could not be used:
//
//   - invalid_url: the URL has no scheme or host
//   - request: the request could not be built or the transport failed
//   - status: the server answered with a non-2xx status
//   - content_type: the response is not text/html or application/xhtml+xml
//   - empty: the body is empty
//   - too_large: the body exceeds the character ceiling (1,000,000 by default)
//
// The crawler treats every Reason the same way: the page stays in the
// ledger with its first-visit count and its links are not followed.
//
// # Transport
//
// Bodies are decoded to UTF-8 using the charset declared by the response
// (golang.org/x/net/html/charset). An optional SOCKS5 proxy can be used by
// building the underlying *http.Client with NewProxyHTTPClient.
package fetch

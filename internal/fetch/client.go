package fetch

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"time"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"
)

const (
	// DefaultMaxBodyChars is the largest page, in characters, that FetchHTML
	// accepts.
	DefaultMaxBodyChars = 1_000_000

	// DefaultTimeout bounds a single page request.
	DefaultTimeout = 30 * time.Second

	// DefaultUserAgent is sent when no other User-Agent is configured.
	DefaultUserAgent = "sitecrawl/1.0 (+https://github.com/nao1215/sitecrawl)"

	// maxRedirects stops redirect loops while allowing normal redirects.
	maxRedirects = 10

	// sniffLen is how many bytes are inspected for a <meta charset> when the
	// Content-Type header carries no charset.
	sniffLen = 1024
)

// Client fetches HTML pages over HTTP.
//
// Design decision: Client owns the request policy (headers, limits and
// decoding) and delegates connection handling to an *http.Client, so a
// proxy or a test server's client can be swapped in with WithHTTPClient
// without touching the fetch rules.
type Client struct {
	// httpClient performs the requests.
	httpClient *http.Client

	// userAgent is sent as the User-Agent header.
	userAgent string

	// headers are extra request headers, applied before User-Agent and Cookie.
	headers map[string]string

	// cookie is sent verbatim as the Cookie header when non-empty.
	cookie string

	// maxBodyChars is the character ceiling for a page body.
	maxBodyChars int

	// timeout bounds each request. 0 leaves only the caller's context.
	timeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithHeaders adds request headers sent with every request.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) {
		c.headers = headers
	}
}

// WithCookie sets the Cookie header sent with every request.
func WithCookie(cookie string) Option {
	return func(c *Client) {
		c.cookie = cookie
	}
}

// WithMaxBodyChars sets the character ceiling for page bodies.
func WithMaxBodyChars(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBodyChars = n
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.timeout = d
		}
	}
}

// NewClient creates a Client with default limits.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient:   newHTTPClient(http.DefaultTransport),
		userAgent:    DefaultUserAgent,
		maxBodyChars: DefaultMaxBodyChars,
		timeout:      DefaultTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// newHTTPClient wraps transport with the redirect policy shared by all
// clients this package builds.
func newHTTPClient(transport http.RoundTripper) *http.Client {
	return &http.Client{
		Transport: transport,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
}

// FetchHTML retrieves rawURL and returns its body decoded to UTF-8.
// Every failure is reported as a *Error.
func (c *Client) FetchHTML(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", &Error{URL: rawURL, Reason: ReasonInvalidURL, Err: err}
	}
	if u.Scheme == "" || u.Host == "" {
		return "", &Error{URL: rawURL, Reason: ReasonInvalidURL, Err: errors.New("missing scheme or host")}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", &Error{URL: rawURL, Reason: ReasonRequest, Err: err}
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &Error{URL: rawURL, Reason: ReasonRequest, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &Error{URL: rawURL, Reason: ReasonStatus, StatusCode: resp.StatusCode}
	}

	contentType := resp.Header.Get("Content-Type")
	if !isHTML(contentType) {
		return "", &Error{URL: rawURL, Reason: ReasonContentType, ContentType: contentType}
	}

	body, err := c.readBody(resp.Body, contentType)
	if err != nil {
		var fe *Error
		if errors.As(err, &fe) {
			fe.URL = rawURL
			return "", fe
		}
		return "", &Error{URL: rawURL, Reason: ReasonRequest, Err: err}
	}

	return body, nil
}

// setHeaders applies the configured headers to req.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.1")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}
}

// readBody decodes r to UTF-8 and enforces the character ceiling.
//
// Design decision: The decoded stream is read through a byte limit of
// maxBodyChars*utf8.UTFMax+1. A body that reaches the limit certainly has
// more than maxBodyChars characters, so oversized pages are rejected without
// buffering them whole. Bodies under the limit are counted exactly, in UTF-16
// code units like a JavaScript string length.
func (c *Client) readBody(r io.Reader, contentType string) (string, error) {
	br := bufio.NewReaderSize(r, sniffLen)
	peek, err := br.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return "", fmt.Errorf("failed to read body: %w", err)
	}

	enc, _, _ := charset.DetermineEncoding(peek, contentType)
	decoded := transform.NewReader(br, enc.NewDecoder())

	limit := int64(c.maxBodyChars)*utf8.UTFMax + 1
	data, err := io.ReadAll(io.LimitReader(decoded, limit))
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}

	if len(data) == 0 {
		return "", &Error{Reason: ReasonEmpty}
	}
	if int64(len(data)) >= limit || utf16Len(data) > c.maxBodyChars {
		return "", &Error{Reason: ReasonTooLarge}
	}

	return string(data), nil
}

// utf16Len returns the length of the UTF-8 text b in UTF-16 code units:
// characters outside the Basic Multilingual Plane count twice.
func utf16Len(b []byte) int {
	n := 0
	for _, r := range string(b) {
		if l := utf16.RuneLen(r); l > 0 {
			n += l
		} else {
			n++
		}
	}
	return n
}

// isHTML reports whether contentType names an HTML media type.
// A malformed parameter such as a bare "charset" does not hide the media type.
func isHTML(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil && !errors.Is(err, mime.ErrInvalidMediaParameter) {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

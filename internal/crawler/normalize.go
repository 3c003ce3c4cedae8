package crawler

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeURL returns the ledger key for rawURL: the host (with an explicit
// port kept verbatim) followed by the escaped path minus one trailing slash.
//
// The scheme, query string and fragment are dropped, so
// "https://blog.example.com/path/", "https://blog.example.com/path?x=1" and
// "ftp://blog.example.com/path" all normalize to "blog.example.com/path".
// Host case is left untouched.
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrInvalidURL, rawURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: %q: missing scheme or host", ErrInvalidURL, rawURL)
	}

	return u.Host + strings.TrimSuffix(u.EscapedPath(), "/"), nil
}

package crawler

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// anchorSelector matches every anchor element that carries an href.
const anchorSelector = "a[href]"

// ExtractLinks returns the absolute targets of every a[href] element in
// htmlBody that share an origin with baseURL, in document order.
//
// Design decision: We use goquery rather than walking x/net/html nodes by
// hand because:
//  1. The selector states exactly what we collect
//  2. Parsing is delegated to x/net/html, which recovers from malformed
//     markup the same way browsers do
//  3. Document order is preserved by Selection.Each
//
// Links are serialized the way a browser serializes href: scheme and host
// lowercased, a port equal to the scheme default dropped. Duplicates are
// kept; the crawler counts every reference. An href that
// cannot be parsed is skipped and extraction continues. The only error
// returned is for an invalid baseURL.
func ExtractLinks(htmlBody, baseURL string) ([]string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidURL, baseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: %q: missing scheme or host", ErrInvalidURL, baseURL)
	}

	links := make([]string, 0)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlBody))
	if err != nil {
		// Only a failing reader makes the parser give up; a string never does.
		return links, nil
	}

	doc.Find(anchorSelector).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			return
		}

		resolved := base.ResolveReference(ref)
		if !sameOrigin(base, resolved) {
			return
		}
		links = append(links, canonicalize(resolved).String())
	})

	return links, nil
}

// sameOrigin reports whether a and b share scheme, host and port.
// Scheme and host compare case-insensitively and a missing port is replaced
// by the scheme's default, matching how browsers compute an origin.
func sameOrigin(a, b *url.URL) bool {
	if !strings.EqualFold(a.Scheme, b.Scheme) {
		return false
	}
	if !strings.EqualFold(a.Hostname(), b.Hostname()) {
		return false
	}
	return effectivePort(a) == effectivePort(b)
}

// canonicalize returns a copy of u with scheme and host lowercased and a
// default port removed, so spellings of one origin map to one ledger key.
func canonicalize(u *url.URL) *url.URL {
	c := *u
	c.Scheme = strings.ToLower(u.Scheme)

	host := strings.ToLower(u.Hostname())
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if p := u.Port(); p != "" && p != defaultPort(c.Scheme) {
		host += ":" + p
	}
	c.Host = host
	return &c
}

// canonicalURL applies canonicalize to rawURL. Unparsable input is returned
// unchanged so that NormalizeURL reports it.
func canonicalURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return canonicalize(u).String()
}

// effectivePort returns the explicit port of u or the default port of its
// scheme.
func effectivePort(u *url.URL) string {
	if p := u.Port(); p != "" {
		return p
	}
	return defaultPort(u.Scheme)
}

// defaultPort returns the well-known port of scheme, or "" if it has none.
func defaultPort(scheme string) string {
	switch strings.ToLower(scheme) {
	case "http", "ws":
		return "80"
	case "https", "wss":
		return "443"
	case "ftp":
		return "21"
	default:
		return ""
	}
}

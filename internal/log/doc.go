// Package log provides secure logging functionality with automatic sanitization
// of sensitive information, built on top of the standard slog package.
//
// This package extends slog to provide:
//   - Automatic sanitization of sensitive values (cookies, tokens, secrets)
//   - Masking of passwords and sensitive query parameters inside URLs
//   - Text or JSON output with verbose mode support
//
// # Security Features
//
// The SecureHandler automatically sanitizes sensitive information in log output:
//   - HTTP headers (Authorization, Cookie, Set-Cookie, X-Api-Key)
//   - Secret values detected by pattern matching (bearer tokens, JWTs, keys)
//   - URL credentials and query parameters such as token, sig or sessionid,
//     including URLs embedded in error messages
//
// Even in verbose mode, sensitive values are masked to prevent accidental
// exposure of secrets in logs that may be shared or stored. Crawl logs are
// mostly URLs, so the URL rules matter most in practice.
//
// # Usage
//
//	logger := log.New(os.Stderr, log.Options{Verbose: true})
//
//	logger.Debug("crawling",
//	    "url", "https://example.com/page?token=abc", // token value is masked
//	    "cookie", "session=abc123",                   // whole value is masked
//	)
package log

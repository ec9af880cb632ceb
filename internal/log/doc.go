// Package log builds slog loggers that mask secrets.
//
// Crawls of staging sites often need a session cookie, an Authorization
// header or credentials in the start URL. The SecureHandler masks values of
// sensitive keys (cookie, authorization, token, ...), values that look like
// bearer tokens or JWTs, and URL passwords, so verbose logs can be shared.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Debug("request sent",
//	    "cookie", "session=abc123", // logged as ***REDACTED***
//	    "url", "http://example.com/",
//	)
package log

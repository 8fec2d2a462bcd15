// Package log builds the slog loggers used by listingscan.
//
// Handler wraps any slog.Handler and sanitizes attributes before they are
// written:
//   - values of keys such as cookie, authorization or token are masked
//   - token-shaped values (JWT, bearer, long keys) are masked
//   - credentials embedded in URLs, e.g. a proxy URL, are masked
//   - long strings such as HTML snippets are truncated
//
// Sanitization also applies in verbose mode, so logs can be shared.
//
// # Usage
//
//	logger := log.NewLogger(os.Stderr, verbose)
//	slog.SetDefault(logger)
//
// NewFileWriter returns a rotating file writer (lumberjack) that can be
// combined with stderr through io.MultiWriter.
package log

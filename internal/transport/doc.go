// Package transport builds the HTTP session used for request-based scraping.
//
// A run shares one *http.Client created by NewHTTPClient. The client keeps
// cookies in a jar for the whole run, follows a bounded number of
// redirects, and can optionally:
//   - route connections through a SOCKS5 proxy (golang.org/x/net/proxy)
//   - inject a fixed cookie string and extra headers into every request,
//     redirects included
//
// Request headers that identify the client (User-Agent, Accept) are set per
// request by the fetch package, not here.
//
// # Usage
//
//	client, err := transport.NewHTTPClient(
//	    transport.WithTimeout(10*time.Second),
//	    transport.WithProxy("127.0.0.1:1080"),
//	)
package transport

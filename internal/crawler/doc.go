// Package crawler walks paginated search listings to build the frontier
// of detail pages.
//
// # Pagination
//
// The Walker requests page 1 as given and every later page by appending a
// page=N query parameter. Each page is fetched and parsed once. The walk
// ends normally when:
//   - a page cannot be fetched after all retries
//   - a page yields no listing links
//   - the pager has no next link
//   - the optional page bound is reached
//
// A fixed delay separates page fetches.
//
// # Usage
//
//	walker := crawler.NewWalker(fetcher, crawler.WithPageDelay(time.Second))
//	urls, err := walker.Walk(ctx, startURL)
package crawler

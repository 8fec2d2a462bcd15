// Package pipeline runs the scraping steps of a site in sequence.
//
// A run of one site is a Pipeline of Steps sharing a *model.Run. The
// Earth911 pipeline discovers detail URLs by pagination and then extracts
// one record per detail page. The BestBuy pipeline drives the store
// locator in a browser and extracts the store cards from the rendered
// page.
//
// BatchProcessor runs the pipelines of several sites with errgroup and a
// concurrency limit. Work inside one site is always sequential.
package pipeline

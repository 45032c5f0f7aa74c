// Package crawler implements the domain-scoped ingestion crawl built on the
// Colly library: the engine that walks a site from a single start URL, the
// persister that writes HTML and PDF responses to object storage, and the
// filename and scope rules shared between them.
package crawler

package crawler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TotalRequests tracks the number of HTTP requests dispatched by the crawl.
	TotalRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crawler_requests_total",
		Help: "The total number of HTTP requests sent.",
	})
	// TotalPersistedDocuments tracks the number of documents written to storage.
	TotalPersistedDocuments = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crawler_documents_persisted_total",
		Help: "The total number of documents written to the destination bucket.",
	})
	// TotalSkippedResponses tracks responses dropped by the content-type or size filter.
	TotalSkippedResponses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crawler_responses_skipped_total",
		Help: "The total number of responses skipped by the content filter.",
	})
	// TotalFetchErrors tracks visits that ended in a network error or non-2xx status.
	TotalFetchErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crawler_fetch_errors_total",
		Help: "The total number of failed page fetches.",
	})
	// TotalPersistErrors tracks storage writes that failed.
	TotalPersistErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crawler_persist_errors_total",
		Help: "The total number of failed document writes.",
	})
)

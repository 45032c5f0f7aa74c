package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/kbsearch/crawl-worker/internal/jobs"
	"github.com/kbsearch/crawl-worker/internal/storage"
)

// Options tune a crawl. Zero values fall back to conservative defaults.
type Options struct {
	Concurrency    int           // parallel fetches
	Delay          time.Duration // politeness delay between requests
	RequestTimeout time.Duration // per-request HTTP timeout
	RunTimeout     time.Duration // wall-clock ceiling for the whole crawl
	UserAgent      string
	MaxBodyBytes   int64             // 0 disables the size guard
	Transport      http.RoundTripper // nil keeps colly's default transport
}

const (
	defaultConcurrency    = 4
	defaultRequestTimeout = 30 * time.Second
	defaultRunTimeout     = 10 * time.Minute
	defaultUserAgent      = "kbsearch-crawl-worker/1.0"
)

// Crawl describes one ingestion run.
type Crawl struct {
	StartURL   string
	DepthLimit int
	Bucket     string
}

// Engine walks a site breadth-first from a start URL, confined to that URL's
// domain scope, and persists every HTML and PDF response it fetches.
type Engine struct {
	opts   Options
	store  storage.Store
	logger *zap.Logger
}

// NewEngine returns an Engine with opts normalized to their defaults.
func NewEngine(opts Options, store storage.Store, logger *zap.Logger) *Engine {
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = defaultRunTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}

	return &Engine{opts: opts, store: store, logger: logger}
}

// runState carries the mutable flags shared between the collector callbacks
// and the Run goroutine.
type runState struct {
	aborted atomic.Bool

	mu       sync.Mutex
	startErr error
}

// Run executes one crawl to completion and returns the documents persisted
// into crawl.Bucket. Per-visit failures are logged and skipped; Run returns
// an error only when the start URL itself cannot be fetched, the run exceeds
// its wall-clock ceiling, or ctx is canceled.
func (e *Engine) Run(ctx context.Context, crawl Crawl) ([]jobs.ScrapedDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	domains, err := ScopeDomains(crawl.StartURL)
	if err != nil {
		return nil, err
	}

	persister := NewPersister(e.store, crawl.Bucket, e.opts.MaxBodyBytes, e.logger)
	state := &runState{}

	collector, err := e.initCollector(ctx, domains, crawl.DepthLimit, persister, state)
	if err != nil {
		return nil, err
	}

	e.logger.Info("Starting crawl",
		zap.String("start_url", crawl.StartURL),
		zap.Int("depth_limit", crawl.DepthLimit),
		zap.Strings("domains", domains),
		zap.String("bucket", crawl.Bucket),
	)

	if err := collector.Visit(crawl.StartURL); err != nil {
		return nil, fmt.Errorf("visit start url: %w", err)
	}

	done := make(chan struct{})
	go func() {
		collector.Wait()
		close(done)
	}()

	timer := time.NewTimer(e.opts.RunTimeout)
	defer timer.Stop()

	var runErr error
	select {
	case <-done:
	case <-ctx.Done():
		runErr = ctx.Err()
	case <-timer.C:
		runErr = fmt.Errorf("crawl did not finish within %s", e.opts.RunTimeout)
	}

	if runErr != nil {
		// Queued visits abort in OnRequest; in-flight ones finish or hit
		// the request timeout. Wait for the collector to settle so no
		// callback runs after we return.
		state.aborted.Store(true)
		<-done

		e.logger.Warn("Crawl aborted",
			zap.Int("documents", persister.Count()),
			zap.Error(runErr),
		)
		return nil, runErr
	}

	state.mu.Lock()
	startErr := state.startErr
	state.mu.Unlock()
	if startErr != nil {
		return nil, startErr
	}

	docs := persister.Documents()
	e.logger.Info("Crawl finished", zap.Int("documents", len(docs)))
	return docs, nil
}

func (e *Engine) initCollector(
	ctx context.Context,
	domains []string,
	depthLimit int,
	persister *Persister,
	state *runState,
) (*colly.Collector, error) {
	// Colly counts the initial visit as depth 1, so its ceiling sits one
	// above the link-following limit.
	collector := colly.NewCollector(
		colly.AllowedDomains(domains...),
		colly.MaxDepth(depthLimit+1),
		colly.UserAgent(e.opts.UserAgent),
		colly.Async(true),
		colly.IgnoreRobotsTxt(),
	)
	collector.AllowURLRevisit = false
	collector.SetRequestTimeout(e.opts.RequestTimeout)
	if e.opts.Transport != nil {
		collector.WithTransport(e.opts.Transport)
	}

	// Colly truncates bodies at MaxBodySize. Reading one byte past the cap
	// turns an oversized body into a detectable over-limit length instead
	// of a silently shortened document.
	if e.opts.MaxBodyBytes > 0 {
		collector.MaxBodySize = int(e.opts.MaxBodyBytes) + 1
	} else {
		collector.MaxBodySize = 0
	}

	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: e.opts.Concurrency,
		Delay:       e.opts.Delay,
	}); err != nil {
		return nil, fmt.Errorf("configure collector limits: %w", err)
	}

	collector.OnRequest(func(r *colly.Request) {
		if state.aborted.Load() {
			r.Abort()
			return
		}
		TotalRequests.Inc()
		e.logger.Debug("Visiting",
			zap.String("url", r.URL.String()),
			zap.Int("depth", r.Depth),
		)
	})
	collector.OnHTML("a[href]", e.handleHTML)
	collector.OnResponse(e.handleResponse(ctx, persister, state))
	collector.OnError(e.handleError(state))

	return collector, nil
}

func (e *Engine) handleHTML(el *colly.HTMLElement) {
	link := el.Attr("href")
	// Fragment-only links point back into the current page.
	if link == "" || strings.HasPrefix(link, "#") {
		return
	}
	if err := el.Request.Visit(link); err != nil && !isExpectedVisitError(err) {
		e.logger.Warn("Failed to schedule link",
			zap.String("link", link),
			zap.String("page", el.Request.URL.String()),
			zap.Error(err),
		)
	}
}

func (e *Engine) handleResponse(ctx context.Context, persister *Persister, state *runState) func(*colly.Response) {
	return func(r *colly.Response) {
		if state.aborted.Load() {
			return
		}
		if len(r.Body) == 0 {
			TotalSkippedResponses.Inc()
			e.logger.Debug("Skipping empty response", zap.String("url", r.Request.URL.String()))
			return
		}

		persister.Persist(ctx, r.Request.URL, r.Headers.Get("Content-Type"), r.Body)
	}
}

func (e *Engine) handleError(state *runState) func(*colly.Response, error) {
	return func(r *colly.Response, err error) {
		TotalFetchErrors.Inc()

		// Depth 1 is the initial visit. Losing it means the whole run
		// produced nothing reachable, which fails the job.
		if r.Request.Depth <= 1 {
			state.mu.Lock()
			if state.startErr == nil {
				state.startErr = fmt.Errorf("fetch start url %q: %w", r.Request.URL.String(), err)
			}
			state.mu.Unlock()
		}

		msg := "Request failed"
		switch r.StatusCode {
		case 429:
			msg = "Rate limited"
		case 403:
			msg = "Forbidden"
		}
		e.logger.Error(msg,
			zap.String("url", r.Request.URL.String()),
			zap.Int("status_code", r.StatusCode),
			zap.Int("depth", r.Request.Depth),
			zap.Error(err),
		)
	}
}

// isExpectedVisitError reports whether a Visit rejection is part of normal
// traversal pruning rather than a fault worth logging.
func isExpectedVisitError(err error) bool {
	return errors.Is(err, colly.ErrAlreadyVisited) ||
		errors.Is(err, colly.ErrForbiddenDomain) ||
		errors.Is(err, colly.ErrMaxDepth) ||
		errors.Is(err, colly.ErrMissingURL)
}

// Package crawler walks a scope-limited frontier of government pages
// and records raw captures for ingestion.
package crawler

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/time/rate"
)

// disallowed matches binary/administrative resources and script-ish
// link schemes that are never worth fetching.
var disallowed = regexp.MustCompile(`(?i)(\.pdf($|\?))|(\.docx?)|(\.xlsx?)|login|logon|search|sitesearch|javascript:|mailto:|tel:`)

// Capture is the raw result of one successful fetch.
type Capture struct {
	URL  string
	HTML string
}

// Fetcher retrieves the body of a single URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Policy bounds a crawl run: which hosts and path prefixes are in
// scope, how many pages to capture and how fast to go.
type Policy struct {
	// AllowHosts is the exact-match hostname allow-list.
	AllowHosts []string
	// ScopePrefixes are URL prefixes considered in scope for link
	// following (seeds are always fetched).
	ScopePrefixes []string
	// MaxPages caps successful captures per run.
	MaxPages int
	// Delay is the politeness interval between consecutive fetches.
	Delay time.Duration
	// Concurrency is the fetch worker count; values below 1 mean
	// sequential crawling.
	Concurrency int
}

// Crawler performs a breadth-first traversal with policy-based
// pruning. The visited set lives only for the duration of one run;
// re-crawls re-fetch and rely on content hashing for idempotence.
type Crawler struct {
	fetcher Fetcher
	policy  Policy
	limiter *rate.Limiter
	logger  *slog.Logger
}

// New creates a Crawler with the given fetcher and policy.
func New(fetcher Fetcher, policy Policy, logger *slog.Logger) *Crawler {
	if logger == nil {
		logger = slog.Default()
	}
	if policy.MaxPages <= 0 {
		policy.MaxPages = 20
	}
	limit := rate.Inf
	if policy.Delay > 0 {
		limit = rate.Every(policy.Delay)
	}
	return &Crawler{
		fetcher: fetcher,
		policy:  policy,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

// crawlState is the frontier shared by workers. Dequeue/enqueue and
// the seen set are serialized so no URL is fetched twice in one run.
type crawlState struct {
	mu       sync.Mutex
	cond     *sync.Cond
	queue    []string
	seen     map[string]bool
	captures []Capture
	inflight int
}

// Run seeds the frontier and crawls until it is exhausted or MaxPages
// captures have been recorded. Fetch failures are logged and skipped;
// the only returned error is context cancellation.
func (c *Crawler) Run(ctx context.Context, seeds []string) ([]Capture, error) {
	st := &crawlState{
		queue: append([]string(nil), seeds...),
		seen:  make(map[string]bool),
	}
	st.cond = sync.NewCond(&st.mu)

	workers := c.policy.Concurrency
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.work(ctx, st)
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return st.captures, err
	}
	c.logger.Info("crawl complete", "pages", len(st.captures), "visited", len(st.seen))
	return st.captures, nil
}

func (c *Crawler) work(ctx context.Context, st *crawlState) {
	for {
		st.mu.Lock()
		for len(st.queue) == 0 && st.inflight > 0 && len(st.captures) < c.policy.MaxPages {
			st.cond.Wait()
		}
		if len(st.queue) == 0 || len(st.captures) >= c.policy.MaxPages || ctx.Err() != nil {
			st.mu.Unlock()
			st.cond.Broadcast()
			return
		}

		raw := st.queue[0]
		st.queue = st.queue[1:]

		if st.seen[raw] || c.reject(raw) {
			st.mu.Unlock()
			continue
		}
		st.seen[raw] = true
		st.inflight++
		st.mu.Unlock()

		capture, links := c.fetchOne(ctx, raw)

		st.mu.Lock()
		st.inflight--
		if capture != nil && len(st.captures) < c.policy.MaxPages {
			st.captures = append(st.captures, *capture)
			st.queue = append(st.queue, links...)
		}
		st.cond.Broadcast()
		st.mu.Unlock()
	}
}

// fetchOne waits out the politeness interval, fetches one URL and
// returns the capture plus in-scope outbound links. A failed fetch
// returns nil; links from failed pages are never followed.
func (c *Crawler) fetchOne(ctx context.Context, raw string) (*Capture, []string) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, nil
	}

	c.logger.Debug("fetching", "url", raw)
	body, err := c.fetcher.Fetch(ctx, raw)
	if err != nil {
		c.logger.Warn("fetch failed", "url", raw, "error", err)
		return nil, nil
	}

	links := c.extractLinks(raw, body)
	c.logger.Info("fetched", "url", raw, "bytes", len(body), "links", len(links))
	return &Capture{URL: raw, HTML: body}, links
}

// reject reports whether a URL matches a disallow pattern or is not an
// http(s) URL on an allow-listed host.
func (c *Crawler) reject(raw string) bool {
	if disallowed.MatchString(raw) {
		return true
	}
	u, err := url.Parse(raw)
	if err != nil {
		return true
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return true
	}
	return !c.allowedHost(u.Hostname())
}

func (c *Crawler) allowedHost(host string) bool {
	for _, allowed := range c.policy.AllowHosts {
		if strings.EqualFold(host, allowed) {
			return true
		}
	}
	return false
}

// inScope reports whether a discovered link falls under one of the
// configured scope prefixes.
func (c *Crawler) inScope(raw string) bool {
	for _, prefix := range c.policy.ScopePrefixes {
		if strings.HasPrefix(raw, prefix) {
			return true
		}
	}
	return false
}

// extractLinks parses the page and returns absolute outbound links
// that pass host, disallow and scope checks.
func (c *Crawler) extractLinks(base, body string) []string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil
	}
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return nil
	}

	var links []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, a := range n.Attr {
				if a.Key != "href" {
					continue
				}
				resolved, err := baseURL.Parse(strings.TrimSpace(a.Val))
				if err != nil {
					continue
				}
				resolved.Fragment = ""
				link := resolved.String()
				if !c.reject(link) && c.inScope(link) {
					links = append(links, link)
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return links
}

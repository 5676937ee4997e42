package helpers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	mathrand "math/rand"
	"net"
	"net/http"
	"slices"
	"time"

	crawlerrors "sjsage522/couponworker/pkg/errors"

	"golang.org/x/net/html/charset"
)

// HTTP client and header configurations
var (
	userAgents = []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/92.0.4515.131 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:89.0) Gecko/20100101 Firefox/89.0",
	}

	referers = []string{
		"https://www.google.com/",
	}
)

// FetchOptions tunes a single page fetch.
type FetchOptions struct {
	Timeout  time.Duration
	DelayMin time.Duration
	DelayMax time.Duration
	Provider string
}

// FetchWithRandomHeaders sends an HTTP GET request with randomized headers after a
// randomized politeness delay, converts the response body to UTF-8 (if needed), and
// returns it as an io.Reader. Failures are *errors.CrawlerError of type network or rate_limit.
func FetchWithRandomHeaders(ctx context.Context, url string, opts FetchOptions) (io.Reader, error) {
	rnd := mathrand.New(mathrand.NewSource(time.Now().UnixNano()))

	if err := sleepContext(ctx, randomDelay(rnd, opts.DelayMin, opts.DelayMax)); err != nil {
		return nil, classifyTransportError(opts.Provider, err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	client := &http.Client{Timeout: timeout}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, crawlerrors.NewFetch(crawlerrors.FetchOther, opts.Provider, "failed to create request", err)
	}

	// Set browser-like headers
	req.Header.Set("User-Agent", userAgents[rnd.Intn(len(userAgents))])
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Cache-Control", "max-age=0")
	req.Header.Set("Referer", referers[rnd.Intn(len(referers))])
	req.Header.Set("DNT", "1")
	req.Header.Set("Upgrade-Insecure-Requests", "1")

	resp, err := client.Do(req)
	if err != nil {
		return nil, classifyTransportError(opts.Provider, err)
	}
	defer resp.Body.Close()

	// Check for rate limiting
	if slices.Contains([]int{http.StatusTooManyRequests, 430}, resp.StatusCode) {
		retryAfter, _ := time.ParseDuration(resp.Header.Get("Retry-After") + "s")
		return nil, crawlerrors.NewRateLimit(opts.Provider, retryAfter)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, crawlerrors.NewHTTPStatus(opts.Provider, resp.StatusCode)
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(opts.Provider, err)
	}

	// Determine the encoding from Content-Type header and body content
	encoding, name, _ := charset.DetermineEncoding(bodyBytes, resp.Header.Get("Content-Type"))

	if name == "utf-8" || name == "UTF-8" {
		return bytes.NewReader(bodyBytes), nil
	}

	utf8Reader := encoding.NewDecoder().Reader(bytes.NewReader(bodyBytes))
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, utf8Reader); err != nil {
		return nil, crawlerrors.NewFetch(crawlerrors.FetchOther, opts.Provider, "failed to read converted UTF-8 body", err)
	}

	return &buf, nil
}

func classifyTransportError(provider string, err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return crawlerrors.NewFetch(crawlerrors.FetchTimeout, provider, "request timed out", err)
	case errors.Is(err, context.Canceled):
		return crawlerrors.NewFetch(crawlerrors.FetchOther, provider, "request cancelled", err)
	}
	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) {
		return crawlerrors.NewFetch(crawlerrors.FetchConnection, provider, "connection failed", err)
	}
	return crawlerrors.NewFetch(crawlerrors.FetchOther, provider, fmt.Sprintf("failed to fetch URL: %v", err), err)
}

func randomDelay(rnd *mathrand.Rand, min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rnd.Int63n(int64(max-min)))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Package fetch downloads AIS archives from the NOAA MarineCadastre index.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/ppiankov/vesselinfo/internal/model"
	"github.com/ppiankov/vesselinfo/internal/worker"
)

// ErrDisallowed is returned for URLs excluded by robots.txt.
var ErrDisallowed = errors.New("disallowed by robots.txt")

const maxIndexBytes = 8 << 20

var dataExtensions = []string{".zip", ".csv", ".gz", ".zst"}

// Link is a downloadable file found on the index.
type Link struct {
	URL  string
	Name string // file name without directories
}

// Fetcher crawls index pages and downloads archives.
type Fetcher struct {
	cfg     model.FetchConfig
	client  *http.Client
	robots  *RobotsChecker
	limiter *worker.HostLimiter
	log     *zap.Logger
}

// New creates a Fetcher. A nil logger discards output.
func New(cfg model.FetchConfig, log *zap.Logger) *Fetcher {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = model.DefaultConfig().Fetch.UserAgent
	}

	client := &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			Proxy:               proxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy),
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("stopped after 5 redirects")
			}
			return nil
		},
	}

	return &Fetcher{
		cfg:     cfg,
		client:  client,
		robots:  NewRobotsChecker(client, cfg.UserAgent),
		limiter: worker.NewHostLimiter(cfg.RequestsPerSecond, cfg.Burst),
		log:     log,
	}
}

// proxyFunc prefers configured proxies and falls back to the environment.
func proxyFunc(httpProxy, httpsProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}
	return func(req *http.Request) (*url.URL, error) {
		if req.URL.Scheme == "https" && httpsProxy != "" {
			return url.Parse(httpsProxy)
		}
		if httpProxy != "" {
			return url.Parse(httpProxy)
		}
		return http.ProxyFromEnvironment(req)
	}
}

// allowed applies robots.txt when enabled and records its crawl delay.
func (f *Fetcher) allowed(ctx context.Context, rawURL string) error {
	if !f.cfg.RespectRobots {
		return nil
	}
	ok, delay, err := f.robots.CanFetch(ctx, rawURL)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: %w", rawURL, ErrDisallowed)
	}
	if delay > 0 {
		if u, err := url.Parse(rawURL); err == nil {
			f.limiter.SlowDown(u.Host, delay)
		}
	}
	return nil
}

// Crawl walks indexURL and its sub-folders and returns every data file
// link sorted by URL. Sub-folders are followed only on the same host and
// below the starting directory.
func (f *Fetcher) Crawl(ctx context.Context, indexURL string) ([]Link, error) {
	start, err := url.Parse(indexURL)
	if err != nil {
		return nil, fmt.Errorf("parse index url: %w", err)
	}
	root := start.Path
	if !strings.HasSuffix(root, "/") {
		root = path.Dir(root) + "/"
	}

	queue := []string{start.String()}
	visited := map[string]bool{start.String(): true}
	seen := make(map[string]bool)
	var links []Link

	for len(queue) > 0 {
		page := queue[0]
		queue = queue[1:]

		hrefs, err := f.pageLinks(ctx, page)
		if err != nil {
			return nil, err
		}
		f.log.Debug("index page crawled", zap.String("url", page), zap.Int("links", len(hrefs)))

		for _, u := range hrefs {
			switch {
			case strings.HasSuffix(u.Path, "/"):
				if u.Host != start.Host || !strings.HasPrefix(u.Path, root) {
					continue
				}
				key := u.String()
				if !visited[key] {
					visited[key] = true
					queue = append(queue, key)
				}
			case isDataLink(u.Path):
				key := u.String()
				if !seen[key] {
					seen[key] = true
					links = append(links, Link{URL: key, Name: path.Base(u.Path)})
				}
			}
		}
	}

	sort.Slice(links, func(i, j int) bool { return links[i].URL < links[j].URL })
	return links, nil
}

func isDataLink(p string) bool {
	lower := strings.ToLower(p)
	for _, ext := range dataExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// pageLinks fetches an index page and returns its resolved anchor targets.
func (f *Fetcher) pageLinks(ctx context.Context, pageURL string) ([]*url.URL, error) {
	if err := f.allowed(ctx, pageURL); err != nil {
		return nil, err
	}
	if err := f.limiter.Wait(ctx, pageURL, 0); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch %s: unexpected status %s", pageURL, resp.Status)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxIndexBytes))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}

	return anchors(doc, resp.Request.URL), nil
}

// anchors collects the href of every <a> element resolved against base.
func anchors(doc *html.Node, base *url.URL) []*url.URL {
	var out []*url.URL
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key != "href" {
					continue
				}
				href := strings.TrimSpace(attr.Val)
				if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "javascript:") {
					continue
				}
				ref, err := url.Parse(href)
				if err != nil {
					continue
				}
				resolved := base.ResolveReference(ref)
				if resolved.Scheme != "http" && resolved.Scheme != "https" {
					continue
				}
				resolved.Fragment = ""
				out = append(out, resolved)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
}

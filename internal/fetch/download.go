package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/vesselinfo/internal/worker"
)

// Result reports one download.
type Result struct {
	URL     string
	Path    string
	Bytes   int64
	Skipped bool // the file already existed
	Elapsed time.Duration
	Error   error
}

// Err implements worker.Result.
func (r *Result) Err() error { return r.Error }

type downloadJob struct {
	f    *Fetcher
	link Link
}

func (j *downloadJob) Execute(ctx context.Context) worker.Result {
	started := time.Now()
	res := j.f.download(ctx, j.link)
	res.Elapsed = time.Since(started)

	if res.Error != nil {
		j.f.log.Warn("download failed", zap.String("url", res.URL), zap.Error(res.Error))
	} else if !res.Skipped {
		j.f.log.Info("downloaded",
			zap.String("url", res.URL),
			zap.String("path", res.Path),
			zap.Int64("bytes", res.Bytes),
			zap.Duration("elapsed", res.Elapsed))
	}
	return res
}

// Download fetches links into the output directory through the worker
// pool. Results are sorted by URL; individual failures do not stop the
// remaining downloads.
func (f *Fetcher) Download(ctx context.Context, links []Link) ([]*Result, error) {
	if err := os.MkdirAll(f.cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	pool := worker.NewPool(ctx, f.cfg.Workers)
	pool.Start()

	go func() {
		for _, link := range links {
			if !pool.Submit(&downloadJob{f: f, link: link}) {
				break
			}
		}
		pool.Close()
	}()

	var results []*Result
	for r := range pool.Results() {
		results = append(results, r.(*Result))
	}
	sort.Slice(results, func(i, j int) bool { return results[i].URL < results[j].URL })

	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

func (f *Fetcher) download(ctx context.Context, link Link) *Result {
	dest := filepath.Join(f.cfg.OutputDir, filepath.Base(link.Name))
	res := &Result{URL: link.URL, Path: dest}

	if info, err := os.Stat(dest); err == nil && info.Size() > 0 {
		res.Skipped = true
		res.Bytes = info.Size()
		return res
	}

	if err := f.allowed(ctx, link.URL); err != nil {
		res.Error = err
		return res
	}
	if err := f.limiter.Wait(ctx, link.URL, f.cfg.Delay); err != nil {
		res.Error = err
		return res
	}

	n, err := f.fetchTo(ctx, link.URL, dest)
	res.Bytes = n
	res.Error = err
	return res
}

var errTooLarge = errors.New("file exceeds max_bytes")

// fetchTo streams url into a temporary file and renames it into place.
func (f *Fetcher) fetchTo(ctx context.Context, rawURL, dest string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.part")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	var body io.Reader = resp.Body
	if f.cfg.MaxBytes > 0 {
		body = io.LimitReader(resp.Body, f.cfg.MaxBytes+1)
	}
	n, err := io.Copy(tmp, body)
	if err != nil {
		cleanup()
		return n, fmt.Errorf("write %s: %w", dest, err)
	}
	if f.cfg.MaxBytes > 0 && n > f.cfg.MaxBytes {
		cleanup()
		return n, fmt.Errorf("%s: %w (%d bytes)", rawURL, errTooLarge, f.cfg.MaxBytes)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return n, fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		_ = os.Remove(tmpName)
		return n, fmt.Errorf("rename: %w", err)
	}
	return n, nil
}

package downloader

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klimeurt/repo-harvester/internal/config"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// defaultBaseURL is the GitHub API root serving zipball archives.
const defaultBaseURL = "https://api.github.com"

// Kind classifies the outcome of a single repository download.
type Kind string

const (
	KindOK      Kind = "ok"
	KindFetch   Kind = "fetch"
	KindArchive Kind = "archive"
	KindExtract Kind = "extract"
)

// Result reports the outcome of downloading one repository.
type Result struct {
	FullName string `json:"full_name"`
	Dir      string `json:"dir,omitempty"`
	Kind     Kind   `json:"kind"`
	Error    string `json:"error,omitempty"`

	Err error `json:"-"`
}

// Failed reports whether the download did not complete.
func (r Result) Failed() bool {
	return r.Err != nil
}

// Downloader fetches repository zipball archives and extracts them into the
// output directory, one subdirectory per repository.
type Downloader struct {
	baseURL   string
	token     string
	outputDir string
	workers   int
	delay     time.Duration
	client    *http.Client
}

// New creates a new Downloader instance
func New(cfg *config.Config) *Downloader {
	return &Downloader{
		baseURL:   defaultBaseURL,
		token:     cfg.GitHubToken,
		outputDir: cfg.OutputDir,
		workers:   cfg.DownloadWorkers,
		delay:     cfg.DownloadDelay,
		client:    &http.Client{Timeout: 5 * time.Minute},
	}
}

// DownloadAll downloads every repository in fullNames, returning one Result
// per identifier in the same order. A failed download is reported and
// skipped; it never aborts the batch. Work is spread over the configured
// number of workers, each pacing its own requests with the download delay.
func (d *Downloader) DownloadAll(ctx context.Context, fullNames []string) []Result {
	log.Printf("Downloading %d repositories to %s", len(fullNames), d.outputDir)

	results := make([]Result, len(fullNames))
	indexes := make(chan int)

	var g errgroup.Group
	workers := d.workers
	if workers < 1 {
		workers = 1
	}
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			limiter := rate.NewLimiter(rate.Every(d.delay), 1)
			for i := range indexes {
				if err := limiter.Wait(ctx); err != nil {
					results[i] = Result{FullName: fullNames[i], Kind: KindFetch, Err: err}
					continue
				}
				results[i] = d.downloadOne(ctx, fullNames[i])
				if results[i].Failed() {
					log.Printf("ERROR: unable to download %s: %v", fullNames[i], results[i].Err)
				}
			}
			return nil
		})
	}

	for i := range fullNames {
		indexes <- i
	}
	close(indexes)
	_ = g.Wait()

	ok := 0
	for _, res := range results {
		if !res.Failed() {
			ok++
		}
	}
	log.Printf("Downloaded %d repositories (%d failed)", ok, len(results)-ok)

	return results
}

// downloadOne fetches the zipball archive for one repository and extracts
// it under the output directory.
func (d *Downloader) downloadOne(ctx context.Context, fullName string) Result {
	log.Printf("Creating %s", fullName)

	res := Result{FullName: fullName, Kind: KindOK}
	fail := func(kind Kind, err error) Result {
		res.Kind = kind
		res.Err = err
		res.Error = err.Error()
		res.Dir = ""
		return res
	}

	url := fmt.Sprintf("%s/repos/%s/zipball", d.baseURL, fullName)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fail(KindFetch, fmt.Errorf("failed to build archive request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+d.token)

	resp, err := d.client.Do(req)
	if err != nil {
		return fail(KindFetch, fmt.Errorf("failed to fetch archive: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fail(KindFetch, fmt.Errorf("archive request returned %s", resp.Status))
	}

	// zip needs random access, so the archive is buffered in memory
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail(KindFetch, fmt.Errorf("failed to read archive body: %w", err))
	}

	zr, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return fail(KindArchive, fmt.Errorf("failed to open archive: %w", err))
	}

	// One subdirectory per repository so archives can never interleave
	dir := filepath.Join(d.outputDir, strings.ReplaceAll(fullName, "/", "__"))
	if err := extract(zr, dir); err != nil {
		return fail(KindExtract, fmt.Errorf("failed to extract archive: %w", err))
	}

	res.Dir = dir
	return res
}

// extract writes every archive entry under dir, rejecting entries whose
// path would escape it.
func extract(zr *zip.Reader, dir string) error {
	root := filepath.Clean(dir) + string(os.PathSeparator)
	for _, f := range zr.File {
		target := filepath.Join(dir, filepath.FromSlash(f.Name))
		if !strings.HasPrefix(target, root) {
			return fmt.Errorf("archive entry %q escapes target directory", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", target, err)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", target, err)
		}
		if err := writeEntry(f, target); err != nil {
			return err
		}
	}
	return nil
}

func writeEntry(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open archive entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", target, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, rc); err != nil {
		return fmt.Errorf("failed to write %s: %w", target, err)
	}
	return nil
}

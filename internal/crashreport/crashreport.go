// Package crashreport uploads a crash record left behind by a previous run.
//
// The crash path writes a marker file just before re-raising the fatal
// signal; this package runs on the following start, reads the marker, the
// referenced stack dump, and the log tail, POSTs the assembled report, and
// removes the marker on success. Everything here is best effort: an upload
// failure leaves the marker in place for the next start and never affects
// daemon startup.
package crashreport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/hashicorp/go-retryablehttp"

	"tools.zach/dev/sigward/internal/fault"
	"tools.zach/dev/sigward/internal/logger"
	"tools.zach/dev/sigward/internal/paths"
)

// httpClient is a lazily-initialized retryablehttp client shared across all
// uploads. Initialized once via httpClientOnce.
var (
	httpClient     *retryablehttp.Client
	httpClientOnce sync.Once
)

// getHTTPClient returns the shared retryable HTTP client, initializing it
// on first call with the given per-attempt timeout.
func getHTTPClient(timeout time.Duration) *retryablehttp.Client {
	httpClientOnce.Do(func() {
		httpClient = retryablehttp.NewClient()
		httpClient.RetryMax = 2
		httpClient.HTTPClient.Timeout = timeout
		httpClient.Logger = nil // suppress retryablehttp's default logging
	})
	return httpClient
}

// ///////////////////////////////////////////////
// Types
// ///////////////////////////////////////////////

// Options configures [Upload].
type Options struct {
	// URL is the endpoint receiving the report via POST. Empty disables
	// uploading entirely.
	URL string
	// Timeout is the per-attempt HTTP timeout.
	Timeout time.Duration
	// LogTailLines is the number of log lines attached to the report.
	LogTailLines int
}

// Report is the JSON document POSTed to the report endpoint.
type Report struct {
	fault.Marker
	// Hostname of the machine the crash happened on.
	Hostname string `json:"hostname,omitempty"`
	// StackTrace is the content of the dump file the marker references.
	StackTrace string `json:"stack_trace,omitempty"`
	// LogTail is the last lines of the daemon log.
	LogTail string `json:"log_tail,omitempty"`
}

// ///////////////////////////////////////////////
// Upload
// ///////////////////////////////////////////////

// Upload checks for a crash marker from a previous run and, if one exists,
// POSTs the assembled report to opts.URL. The marker is removed only after
// a successful upload. A flock on the marker's sibling lock file keeps two
// daemon starts from double-reporting the same crash.
//
// Returns nil when there is nothing to report. Callers run this in a
// goroutine; it must never block startup.
func Upload(d paths.DataDir, opts Options) error {
	if opts.URL == "" {
		return nil
	}

	lock := flock.New(d.CrashLock())
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("lock crash marker: %w", err)
	}
	if !locked {
		// Another instance is already reporting this crash.
		return nil
	}
	defer lock.Unlock()

	marker, err := readMarker(d.CrashMarker())
	if err != nil {
		return err
	}
	if marker == nil {
		return nil
	}

	report := assemble(d, *marker, opts)
	if err := post(opts, report); err != nil {
		return err
	}

	if err := os.Remove(d.CrashMarker()); err != nil {
		slog.Warn("cannot remove crash marker after upload", "error", err)
	}
	slog.Info("crash report uploaded", "signal", marker.Signal, "url", opts.URL)
	return nil
}

// readMarker parses the crash marker, returning (nil, nil) when none
// exists. A malformed marker is removed so it cannot wedge every future
// start.
func readMarker(path string) (*fault.Marker, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read crash marker: %w", err)
	}

	var m fault.Marker
	if err := json.Unmarshal(data, &m); err != nil {
		slog.Warn("removing malformed crash marker", "error", err)
		os.Remove(path)
		return nil, nil
	}
	return &m, nil
}

// assemble builds the report from the marker plus whatever context is still
// readable. Missing dump or log files degrade to empty fields.
func assemble(d paths.DataDir, m fault.Marker, opts Options) Report {
	r := Report{Marker: m}

	if host, err := os.Hostname(); err == nil {
		r.Hostname = host
	}

	if m.DumpFile != "" {
		if trace, err := os.ReadFile(m.DumpFile); err == nil {
			r.StackTrace = string(trace)
		} else {
			slog.Debug("crash dump unreadable", "file", m.DumpFile, "error", err)
		}
	}

	if opts.LogTailLines > 0 {
		if tail, err := logger.ReadTail(d.Log(), opts.LogTailLines); err == nil {
			r.LogTail = tail
		} else {
			slog.Debug("log tail unreadable", "error", err)
		}
	}

	return r
}

// post uploads the report as JSON.
func post(opts Options, r Report) error {
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal crash report: %w", err)
	}

	req, err := retryablehttp.NewRequest(http.MethodPost, opts.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build report request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := getHTTPClient(opts.Timeout).Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", opts.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("POST %s: status %d", opts.URL, resp.StatusCode)
	}
	return nil
}

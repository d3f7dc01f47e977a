package core

import (
	"context"
	stdErrors "errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"unitydl/internal/config"
	apperrors "unitydl/internal/errors"
	"unitydl/internal/errors/logging"
)

const moduleName = "downloader.core"

// HTTPClient represents the subset of http.Client methods required by the fetcher.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Fetcher downloads single targets, resuming partial files and verifying checksums.
type Fetcher struct {
	userAgent string
	bufSize   int
	logger    Logger
	client    HTTPClient
	fs        FileSystem
	reporter  ProgressReporter
	freeSpace func(dir string) (uint64, bool)
}

// Option customises Fetcher construction.
type Option func(*Fetcher)

// WithHTTPClient overrides the HTTP client used for downloads.
func WithHTTPClient(client HTTPClient) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

// WithFileSystem overrides the filesystem implementation.
func WithFileSystem(fs FileSystem) Option {
	return func(f *Fetcher) {
		f.fs = fs
	}
}

// WithProgressReporter overrides the progress reporter implementation.
func WithProgressReporter(reporter ProgressReporter) Option {
	return func(f *Fetcher) {
		f.reporter = reporter
	}
}

// WithFreeSpaceProbe overrides how available disk space is measured.
func WithFreeSpaceProbe(probe func(dir string) (uint64, bool)) Option {
	return func(f *Fetcher) {
		f.freeSpace = probe
	}
}

// NewFetcher constructs a Fetcher using the provided configuration, logger and options.
func NewFetcher(cfg *config.Config, log Logger, opts ...Option) (*Fetcher, error) {
	if cfg == nil {
		return nil, apperrors.ConfigError(apperrors.CodeConfigGeneric, "configuration must not be nil", nil).
			WithModule(moduleName).
			WithOperation("NewFetcher")
	}
	if log == nil {
		return nil, apperrors.SystemError(apperrors.CodeSystemGeneric, "logger must not be nil", nil).
			WithModule(moduleName).
			WithOperation("NewFetcher")
	}

	f := &Fetcher{
		userAgent: cfg.UserAgent(),
		bufSize:   cfg.CopyBufferSize(),
		logger:    log,
		client:    DefaultHTTPClient(),
		fs:        OSFileSystem{},
		reporter:  NewConsoleProgressReporter(nil),
		freeSpace: freeSpace,
	}

	for _, opt := range opts {
		opt(f)
	}

	if f.client == nil {
		f.client = DefaultHTTPClient()
	}
	if f.fs == nil {
		f.fs = OSFileSystem{}
	}
	if f.reporter == nil {
		f.reporter = NoopProgressReporter{}
	}
	if f.freeSpace == nil {
		f.freeSpace = freeSpace
	}

	return f, nil
}

// Fetch brings the target's local file up to its expected size. A file that
// already reaches the expected size is left untouched without any request.
// Otherwise only the missing remainder is requested. Every outcome,
// including failure, is terminal for this target and reported in the Result.
func (f *Fetcher) Fetch(ctx context.Context, t Target) Result {
	res := Result{Target: t}

	path, err := t.LocalPath()
	if err != nil {
		return f.fail(ctx, res, t.URL, apperrors.ValidationError(apperrors.CodeEntryInvalid, "invalid download target", err).
			WithModule(moduleName).
			WithOperation("Fetch").
			WithField("url", t.URL))
	}
	res.Path = path
	name := filepath.Base(path)

	current, err := f.sizeOnDisk(path)
	if err != nil {
		return f.fail(ctx, res, name, err)
	}
	res.Offset = current

	if current >= t.ExpectedSize {
		res.Outcome = OutcomeSkipped
		f.logger.Debug("%s already on disk (%s), skipping", name, humanize.IBytes(uint64(current)))
		return res
	}

	f.logger.Info("  %s", name)
	f.warnOnLowSpace(t.Dir, t.ExpectedSize-current)

	written, offset, err := f.transfer(ctx, t, path, name, current)
	res.Written = written
	res.Offset = offset
	if err != nil {
		return f.fail(ctx, res, name, err)
	}

	if t.Checksum == "" {
		res.Outcome = OutcomeCompleted
		f.logger.Success("Finished '%s'.", name)
		return res
	}

	if err := VerifyChecksum(f.fs, path, t.Checksum); err != nil {
		if !stdErrors.Is(err, ErrChecksumMismatch) {
			return f.fail(ctx, res, name, apperrors.SystemError(apperrors.CodeFilesystem, "failed to read file for checksum", err).
				WithModule(moduleName).
				WithOperation("Fetch").
				WithField("path", path))
		}
		res.Outcome = OutcomeChecksumMismatch
		res.Err = apperrors.ValidationError(apperrors.CodeChecksumMismatch, "checksum verification failed", err).
			WithModule(moduleName).
			WithOperation("Fetch").
			WithFields(apperrors.Metadata{"path": path, "expected": t.Checksum})
		f.logger.Warn("Checksums don't match for '%s'!", path)
		f.logger.DebugContext(ctx, "checksum verification failed", logging.FieldsFor(res.Err)...)
		return res
	}

	res.Outcome = OutcomeVerified
	f.logger.Success("Finished '%s'.", name)
	return res
}

func (f *Fetcher) fail(ctx context.Context, res Result, name string, err error) Result {
	res.Outcome = OutcomeFailed
	res.Err = err

	reason := err.Error()
	if appErr, ok := apperrors.As(err); ok {
		reason = appErr.Reason()
	}
	f.logger.Error("Failed downloading '%s': %s", name, reason)
	f.logger.DebugContext(ctx, "download failed", logging.FieldsFor(err)...)
	return res
}

func (f *Fetcher) sizeOnDisk(path string) (int64, error) {
	info, err := f.fs.Stat(path)
	if err != nil {
		if stdErrors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, apperrors.SystemError(apperrors.CodeFilesystem, "failed to inspect local file", err).
			WithModule(moduleName).
			WithOperation("sizeOnDisk").
			WithField("path", path)
	}
	if info.IsDir() {
		return 0, apperrors.SystemError(apperrors.CodeFilesystem, "download path is a directory", nil).
			WithModule(moduleName).
			WithOperation("sizeOnDisk").
			WithField("path", path)
	}
	return info.Size(), nil
}

func (f *Fetcher) warnOnLowSpace(dir string, needed int64) {
	free, ok := f.freeSpace(dir)
	if !ok || needed <= 0 || free >= uint64(needed) {
		return
	}
	f.logger.Warn("Only %s free in %s but %s still needed", humanize.IBytes(free), dir, humanize.IBytes(uint64(needed)))
}

// transfer issues the (ranged) request and streams the body to path. It
// returns the bytes written and the offset the transfer actually started at,
// which is zero when the server ignored the range.
func (f *Fetcher) transfer(ctx context.Context, t Target, path, name string, offset int64) (int64, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.URL, nil)
	if err != nil {
		return 0, offset, apperrors.NetworkError(apperrors.CodeDownloadRequest, "failed to create download request", err).
			WithModule(moduleName).
			WithOperation("transfer").
			WithField("url", t.URL)
	}
	req.Header.Set("User-Agent", f.userAgent)
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, offset, apperrors.NetworkError(apperrors.CodeDownloadRequest, "download request failed", err).
			WithModule(moduleName).
			WithOperation("transfer").
			WithField("url", t.URL)
	}
	defer resp.Body.Close()

	flag := os.O_WRONLY | os.O_CREATE
	var total int64

	switch resp.StatusCode {
	case http.StatusPartialContent:
		start, _, size, err := parseContentRange(resp.Header.Get("Content-Range"))
		if err != nil {
			return 0, offset, apperrors.NetworkError(apperrors.CodeDownloadStatus, "invalid partial response", err).
				WithModule(moduleName).
				WithOperation("transfer").
				WithField("url", t.URL)
		}
		if start != offset {
			return 0, offset, apperrors.NetworkError(apperrors.CodeDownloadStatus, "server resumed at an unexpected offset", nil).
				WithModule(moduleName).
				WithOperation("transfer").
				WithFields(apperrors.Metadata{"url": t.URL, "requested": offset, "received": start})
		}
		flag |= os.O_APPEND
		total = size
		if total < 0 && resp.ContentLength >= 0 {
			total = offset + resp.ContentLength
		}
	case http.StatusOK:
		if offset > 0 {
			f.logger.Debug("Server ignored the range request for %s, restarting from the beginning", name)
		}
		offset = 0
		flag |= os.O_TRUNC
		total = resp.ContentLength
	case http.StatusRequestedRangeNotSatisfiable:
		return 0, offset, apperrors.NetworkError(apperrors.CodeDownloadStatus, rangeNotSatisfiable(resp, offset, t.ExpectedSize), nil).
			WithModule(moduleName).
			WithOperation("transfer").
			WithFields(apperrors.Metadata{"url": t.URL, "status": resp.StatusCode, "offset": offset, "expected": t.ExpectedSize})
	default:
		return 0, offset, apperrors.NetworkError(apperrors.CodeDownloadStatus, resp.Status, nil).
			WithModule(moduleName).
			WithOperation("transfer").
			WithFields(apperrors.Metadata{"url": t.URL, "status": resp.StatusCode})
	}

	if total <= 0 {
		total = t.ExpectedSize
	}

	file, err := f.fs.OpenFile(path, flag, 0o644)
	if err != nil {
		return 0, offset, apperrors.SystemError(apperrors.CodeFilesystem, "failed to open local file", err).
			WithModule(moduleName).
			WithOperation("transfer").
			WithField("path", path)
	}

	progress := NewProgressReader(resp.Body, offset, total, f.reporter, name)
	written, copyErr := io.CopyBuffer(file, progress, make([]byte, f.bufSize))
	progress.Finish()
	closeErr := file.Close()

	if copyErr != nil {
		return written, offset, apperrors.NetworkError(apperrors.CodeDownloadRequest, "transfer interrupted", copyErr).
			WithModule(moduleName).
			WithOperation("transfer").
			WithFields(apperrors.Metadata{"url": t.URL, "written": written})
	}
	if closeErr != nil {
		return written, offset, apperrors.SystemError(apperrors.CodeFilesystem, "failed to close local file", closeErr).
			WithModule(moduleName).
			WithOperation("transfer").
			WithField("path", path)
	}

	return written, offset, nil
}

// rangeNotSatisfiable describes a 416 answer to a resume request. When the
// server's length equals what is already on disk, the manifest size is the
// one that is wrong and every later run would fail the same way.
func rangeNotSatisfiable(resp *http.Response, offset, expected int64) string {
	size, ok := unsatisfiedLength(resp.Header.Get("Content-Range"))
	switch {
	case ok && size == offset:
		return fmt.Sprintf("local file already has all %d bytes the server offers, but the manifest lists %d", size, expected)
	case ok:
		return fmt.Sprintf("%s: server has %d bytes, local file has %d, manifest lists %d", resp.Status, size, offset, expected)
	default:
		return fmt.Sprintf("%s: cannot resume at byte %d of %d", resp.Status, offset, expected)
	}
}

// DefaultHTTPClient returns a client with no overall request timeout.
func DefaultHTTPClient() *http.Client {
	transport := &http.Transport{
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		DisableCompression:    true,
	}

	return &http.Client{Transport: transport}
}

package core_test

import (
	"bytes"
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unitydl/internal/config"
	"unitydl/internal/downloader/core"
	apperrors "unitydl/internal/errors"
	"unitydl/internal/logger"
	"unitydl/internal/ui"
)

var payload = bytes.Repeat([]byte("unity"), 200)

type fileServer struct {
	*httptest.Server
	mu     sync.Mutex
	ranges []string
}

func (s *fileServer) requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.ranges...)
}

func newFileServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *fileServer {
	t.Helper()
	fs := &fileServer{}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.mu.Lock()
		fs.ranges = append(fs.ranges, r.Header.Get("Range"))
		fs.mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(fs.Close)
	return fs
}

func serveRanges(w http.ResponseWriter, r *http.Request) {
	http.ServeContent(w, r, "UnitySetup", time.Time{}, bytes.NewReader(payload))
}

type progressEvent struct {
	kind            string
	received, total int64
}

type recordingReporter struct {
	events []progressEvent
}

func (r *recordingReporter) OnStart(_ string, offset, total int64) {
	r.events = append(r.events, progressEvent{"start", offset, total})
}

func (r *recordingReporter) OnProgress(_ string, received, total int64) {
	r.events = append(r.events, progressEvent{"progress", received, total})
}

func (r *recordingReporter) OnComplete(_ string, received int64, _ time.Duration) {
	r.events = append(r.events, progressEvent{"complete", received, 0})
}

func newFetcher(t *testing.T, srv *fileServer, opts ...core.Option) (*core.Fetcher, *logger.MockLogger) {
	t.Helper()
	cfg, err := config.Default()
	require.NoError(t, err)

	log := logger.NewMockLogger()
	opts = append([]core.Option{
		core.WithHTTPClient(srv.Client()),
		core.WithProgressReporter(core.NoopProgressReporter{}),
		core.WithFreeSpaceProbe(func(string) (uint64, bool) { return 0, false }),
	}, opts...)

	f, err := core.NewFetcher(cfg, ui.NewConsole(log, io.Discard), opts...)
	require.NoError(t, err)
	return f, log
}

func md5Hex(b []byte) string {
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:])
}

func target(srv *fileServer, dir, checksum string) core.Target {
	return core.Target{
		Name:         "editor",
		URL:          srv.URL + "/download/UnitySetup-2021.3.1f1?token=abc",
		Dir:          dir,
		ExpectedSize: int64(len(payload)),
		Checksum:     checksum,
	}
}

func TestFetchFreshDownload(t *testing.T) {
	srv := newFileServer(t, serveRanges)
	f, log := newFetcher(t, srv)
	dir := t.TempDir()

	res := f.Fetch(context.Background(), target(srv, dir, ""))

	require.NoError(t, res.Err)
	assert.Equal(t, core.OutcomeCompleted, res.Outcome)
	assert.Equal(t, filepath.Join(dir, "UnitySetup-2021.3.1f1"), res.Path)
	assert.Equal(t, int64(0), res.Offset)
	assert.Equal(t, int64(len(payload)), res.Written)
	assert.Equal(t, []string{""}, srv.requests())

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
	assert.True(t, log.HasEntry(logger.LevelInfo, "Finished 'UnitySetup-2021.3.1f1'."))
}

func TestFetchSkipsCompleteFile(t *testing.T) {
	srv := newFileServer(t, serveRanges)
	reporter := &recordingReporter{}
	f, _ := newFetcher(t, srv, core.WithProgressReporter(reporter))
	dir := t.TempDir()

	existing := bytes.Repeat([]byte("x"), len(payload)+10)
	path := filepath.Join(dir, "UnitySetup-2021.3.1f1")
	require.NoError(t, os.WriteFile(path, existing, 0o644))

	res := f.Fetch(context.Background(), target(srv, dir, md5Hex(payload)))

	assert.Equal(t, core.OutcomeSkipped, res.Outcome)
	assert.NoError(t, res.Err)
	assert.Empty(t, srv.requests())
	assert.Empty(t, reporter.events)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, existing, data)
}

func TestFetchResumesPartialFile(t *testing.T) {
	srv := newFileServer(t, serveRanges)
	reporter := &recordingReporter{}
	f, _ := newFetcher(t, srv, core.WithProgressReporter(reporter))
	dir := t.TempDir()

	path := filepath.Join(dir, "UnitySetup-2021.3.1f1")
	require.NoError(t, os.WriteFile(path, payload[:400], 0o644))

	res := f.Fetch(context.Background(), target(srv, dir, md5Hex(payload)))

	require.NoError(t, res.Err)
	assert.Equal(t, core.OutcomeVerified, res.Outcome)
	assert.Equal(t, int64(400), res.Offset)
	assert.Equal(t, int64(600), res.Written)
	assert.Equal(t, []string{"bytes=400-"}, srv.requests())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload, data)

	require.NotEmpty(t, reporter.events)
	assert.Equal(t, progressEvent{"start", 400, 1000}, reporter.events[0])
	last := reporter.events[len(reporter.events)-2]
	assert.Equal(t, progressEvent{"progress", 1000, 1000}, last)
	assert.Equal(t, progressEvent{"complete", 1000, 0}, reporter.events[len(reporter.events)-1])
}

func TestFetchRestartsWhenServerIgnoresRange(t *testing.T) {
	srv := newFileServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", fmt.Sprint(len(payload)))
		_, _ = w.Write(payload)
	})
	f, _ := newFetcher(t, srv)
	dir := t.TempDir()

	path := filepath.Join(dir, "UnitySetup-2021.3.1f1")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))

	res := f.Fetch(context.Background(), target(srv, dir, ""))

	require.NoError(t, res.Err)
	assert.Equal(t, core.OutcomeCompleted, res.Outcome)
	assert.Equal(t, int64(0), res.Offset)
	assert.Equal(t, []string{"bytes=7-"}, srv.requests())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestFetchChecksumMismatchKeepsFile(t *testing.T) {
	srv := newFileServer(t, serveRanges)
	f, log := newFetcher(t, srv)
	dir := t.TempDir()

	res := f.Fetch(context.Background(), target(srv, dir, md5Hex([]byte("something else"))))

	assert.Equal(t, core.OutcomeChecksumMismatch, res.Outcome)
	require.Error(t, res.Err)
	assert.ErrorIs(t, res.Err, core.ErrChecksumMismatch)
	assert.True(t, apperrors.HasCode(res.Err, apperrors.CodeChecksumMismatch))
	assert.Len(t, srv.requests(), 1)

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
	assert.True(t, log.HasEntry(logger.LevelWarn, "Checksums don't match for '"+res.Path+"'!"))
}

func TestFetchVerifiesSHA256(t *testing.T) {
	srv := newFileServer(t, serveRanges)
	f, _ := newFetcher(t, srv)

	sum := sha256.Sum256(payload)
	res := f.Fetch(context.Background(), target(srv, t.TempDir(), hex.EncodeToString(sum[:])))

	assert.Equal(t, core.OutcomeVerified, res.Outcome)
}

func TestFetchFailureKeepsPartialFile(t *testing.T) {
	srv := newFileServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})
	f, log := newFetcher(t, srv)
	dir := t.TempDir()

	path := filepath.Join(dir, "UnitySetup-2021.3.1f1")
	require.NoError(t, os.WriteFile(path, payload[:100], 0o644))

	res := f.Fetch(context.Background(), target(srv, dir, ""))

	assert.Equal(t, core.OutcomeFailed, res.Outcome)
	assert.True(t, apperrors.HasCode(res.Err, apperrors.CodeDownloadStatus))
	assert.Equal(t, []string{"bytes=100-"}, srv.requests())
	assert.True(t, log.HasEntry(logger.LevelError, "Failed downloading 'UnitySetup-2021.3.1f1': 404 Not Found"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload[:100], data)
}

func TestFetchRejectsMisalignedResume(t *testing.T) {
	srv := newFileServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Range", "bytes 0-999/1000")
		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write(payload)
	})
	f, _ := newFetcher(t, srv)
	dir := t.TempDir()

	path := filepath.Join(dir, "UnitySetup-2021.3.1f1")
	require.NoError(t, os.WriteFile(path, payload[:10], 0o644))

	res := f.Fetch(context.Background(), target(srv, dir, ""))

	assert.Equal(t, core.OutcomeFailed, res.Outcome)
	assert.True(t, apperrors.HasCode(res.Err, apperrors.CodeDownloadStatus))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload[:10], data)
}

func TestFetchTransportError(t *testing.T) {
	srv := newFileServer(t, serveRanges)
	f, _ := newFetcher(t, srv)
	url := srv.URL
	srv.Close()

	res := f.Fetch(context.Background(), core.Target{
		URL:          url + "/UnitySetup",
		Dir:          t.TempDir(),
		ExpectedSize: 10,
	})

	assert.Equal(t, core.OutcomeFailed, res.Outcome)
	assert.True(t, apperrors.HasCode(res.Err, apperrors.CodeDownloadRequest))
}

func TestFetchWarnsOnLowDiskSpace(t *testing.T) {
	srv := newFileServer(t, serveRanges)
	f, log := newFetcher(t, srv, core.WithFreeSpaceProbe(func(string) (uint64, bool) { return 10, true }))

	res := f.Fetch(context.Background(), target(srv, t.TempDir(), ""))

	assert.Equal(t, core.OutcomeCompleted, res.Outcome)
	assert.True(t, log.HasEntry(logger.LevelWarn, "Only 10 B free"))
}

func TestFetchRejectsURLWithoutFileName(t *testing.T) {
	srv := newFileServer(t, serveRanges)
	f, _ := newFetcher(t, srv)

	res := f.Fetch(context.Background(), core.Target{URL: srv.URL + "/", Dir: t.TempDir(), ExpectedSize: 5})

	assert.Equal(t, core.OutcomeFailed, res.Outcome)
	assert.Empty(t, srv.requests())
}

func TestNewFetcherValidatesArguments(t *testing.T) {
	cfg, err := config.Default()
	require.NoError(t, err)

	_, err = core.NewFetcher(nil, ui.NewConsole(logger.NewMockLogger(), io.Discard))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConfigGeneric))

	_, err = core.NewFetcher(cfg, nil)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeSystemGeneric))
}

type unreadableFS struct {
	core.OSFileSystem
}

func (unreadableFS) Open(path string) (io.ReadCloser, error) {
	return nil, &os.PathError{Op: "open", Path: path, Err: os.ErrPermission}
}

func TestFetchReportsChecksumReadFailure(t *testing.T) {
	srv := newFileServer(t, serveRanges)
	f, log := newFetcher(t, srv, core.WithFileSystem(unreadableFS{}))

	res := f.Fetch(context.Background(), target(srv, t.TempDir(), md5Hex(payload)))

	assert.Equal(t, core.OutcomeFailed, res.Outcome)
	assert.False(t, errors.Is(res.Err, core.ErrChecksumMismatch))
	assert.True(t, apperrors.HasCode(res.Err, apperrors.CodeFilesystem))
	assert.Zero(t, log.CountEntries(logger.LevelWarn))
	assert.True(t, log.HasEntry(logger.LevelError, "failed to read file for checksum"))

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestFetchExplainsUnsatisfiableResume(t *testing.T) {
	srv := newFileServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Range", "bytes */400")
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
	})
	f, log := newFetcher(t, srv)
	dir := t.TempDir()

	path := filepath.Join(dir, "UnitySetup-2021.3.1f1")
	require.NoError(t, os.WriteFile(path, payload[:400], 0o644))

	res := f.Fetch(context.Background(), target(srv, dir, ""))

	assert.Equal(t, core.OutcomeFailed, res.Outcome)
	assert.True(t, apperrors.HasCode(res.Err, apperrors.CodeDownloadStatus))
	assert.Equal(t, []string{"bytes=400-"}, srv.requests())
	assert.True(t, log.HasEntry(logger.LevelError,
		"local file already has all 400 bytes the server offers, but the manifest lists 1000"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload[:400], data)
}

func TestFetchUnsatisfiableResumeWithoutLength(t *testing.T) {
	srv := newFileServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
	})
	f, log := newFetcher(t, srv)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "UnitySetup-2021.3.1f1"), payload[:10], 0o644))

	res := f.Fetch(context.Background(), target(srv, dir, ""))

	assert.Equal(t, core.OutcomeFailed, res.Outcome)
	assert.True(t, log.HasEntry(logger.LevelError, "416 Requested Range Not Satisfiable: cannot resume at byte 10 of 1000"))
}

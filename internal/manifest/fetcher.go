package manifest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"

	"unitydl/internal/config"
	apperrors "unitydl/internal/errors"
	"unitydl/internal/errors/logging"
	"unitydl/internal/logger"
)

const moduleName = "manifest"

// HTTPClient represents the subset of http.Client methods required by the fetcher.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Fetcher retrieves release manifests and flattens them into a Catalog.
type Fetcher struct {
	cfg    *config.Config
	outDir string
	log    logger.Logger
	client HTTPClient
}

// Option customises Fetcher construction.
type Option func(*Fetcher)

// WithHTTPClient overrides the HTTP client used for manifest requests.
func WithHTTPClient(client HTTPClient) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

// NewFetcher builds a Fetcher writing manifest copies into outDir.
func NewFetcher(cfg *config.Config, outDir string, log logger.Logger, opts ...Option) *Fetcher {
	f := &Fetcher{
		cfg:    cfg,
		outDir: outDir,
		log:    log,
		client: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = http.DefaultClient
	}
	return f
}

// ManifestPath is where the raw manifest for p is written.
func (f *Fetcher) ManifestPath(p config.Platform) string {
	return filepath.Join(f.outDir, fmt.Sprintf("%s-releases.json", p))
}

// Fetch creates the output directory, then retrieves the manifest of every
// platform in order. A platform whose manifest cannot be fetched is logged and
// skipped. The returned error is only non-nil when the output directory cannot
// be created or ctx is cancelled.
func (f *Fetcher) Fetch(ctx context.Context, platforms []config.Platform) (*Catalog, error) {
	catalog := NewCatalog()

	if err := os.MkdirAll(f.outDir, 0o755); err != nil {
		return catalog, apperrors.SystemError(apperrors.CodeFilesystem, "failed to create output directory", err).
			WithModule(moduleName).
			WithOperation("Fetch").
			WithField("path", f.outDir)
	}

	for _, p := range platforms {
		if err := ctx.Err(); err != nil {
			return catalog, err
		}

		f.log.Info("Fetching list of %s releases...", p)

		added, err := f.fetchPlatform(ctx, p, catalog)
		if err != nil {
			if ctx.Err() != nil {
				return catalog, ctx.Err()
			}
			f.log.Error("Failed to fetch %s releases: %s", p, describe(err))
			logging.Debug(ctx, f.log, "manifest fetch failed", err)
			continue
		}

		f.log.Info("Found %d %s releases", added, p)
	}

	return catalog, nil
}

func (f *Fetcher) fetchPlatform(ctx context.Context, p config.Platform, catalog *Catalog) (int, error) {
	endpoint, ok := f.cfg.Endpoint(p)
	if !ok {
		return 0, apperrors.ConfigError(apperrors.CodeConfigInvalid, "no manifest endpoint configured", nil).
			WithModule(moduleName).
			WithOperation("fetchPlatform").
			WithField("platform", string(p))
	}

	body, err := f.get(ctx, endpoint)
	if err != nil {
		return 0, err.WithField("platform", string(p))
	}

	doc := gjson.ParseBytes(body)
	if !gjson.ValidBytes(body) || !doc.IsObject() {
		return 0, apperrors.ValidationError(apperrors.CodeManifestInvalid, "manifest is not a JSON object", nil).
			WithModule(moduleName).
			WithOperation("fetchPlatform").
			WithFields(apperrors.Metadata{"platform": string(p), "url": endpoint})
	}

	if err := f.writeManifest(p, body); err != nil {
		return 0, err
	}

	return f.flatten(ctx, p, doc, catalog), nil
}

func (f *Fetcher) get(ctx context.Context, endpoint string) ([]byte, *apperrors.AppError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, apperrors.NetworkError(apperrors.CodeManifestRequest, "failed to create manifest request", err).
			WithModule(moduleName).
			WithOperation("get").
			WithField("url", endpoint)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent())
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, apperrors.NetworkError(apperrors.CodeManifestRequest, "manifest request failed", err).
			WithModule(moduleName).
			WithOperation("get").
			WithField("url", endpoint)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperrors.NetworkError(apperrors.CodeManifestStatus, resp.Status, nil).
			WithModule(moduleName).
			WithOperation("get").
			WithFields(apperrors.Metadata{"url": endpoint, "status": resp.StatusCode})
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NetworkError(apperrors.CodeManifestRequest, "failed to read manifest body", err).
			WithModule(moduleName).
			WithOperation("get").
			WithField("url", endpoint)
	}
	return body, nil
}

// writeManifest stores the document pretty-printed with two-space indentation,
// keeping key order as received.
func (f *Fetcher) writeManifest(p config.Platform, body []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		return apperrors.ValidationError(apperrors.CodeManifestInvalid, "failed to format manifest", err).
			WithModule(moduleName).
			WithOperation("writeManifest").
			WithField("platform", string(p))
	}

	path := f.ManifestPath(p)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return apperrors.SystemError(apperrors.CodeFilesystem, "failed to write manifest file", err).
			WithModule(moduleName).
			WithOperation("writeManifest").
			WithField("path", path)
	}
	return nil
}

func (f *Fetcher) flatten(ctx context.Context, p config.Platform, doc gjson.Result, catalog *Catalog) int {
	added := 0

	doc.ForEach(func(channel, entries gjson.Result) bool {
		if !entries.IsArray() {
			f.log.Warn("Skipping %s channel %q: not a list of releases", p, channel.String())
			return true
		}

		for i, entry := range entries.Array() {
			rel, err := decodeRelease(p, []byte(entry.Raw), func(index int, err error) {
				f.log.Warn("Skipping malformed module #%d of a %s %s release: %v", index, p, channel.String(), err)
			})
			if err != nil {
				appErr := apperrors.ValidationError(apperrors.CodeEntryInvalid, "malformed release entry", err).
					WithModule(moduleName).
					WithOperation("flatten").
					WithFields(apperrors.Metadata{"platform": string(p), "channel": channel.String(), "index": i})
				f.log.Warn("Skipping malformed %s release #%d in channel %q: %v", p, i, channel.String(), err)
				logging.Debug(ctx, f.log, "manifest entry skipped", appErr)
				continue
			}

			if catalog.Add(rel) {
				f.log.Debug("Release %s listed again in channel %q, keeping the later entry", rel.ID(), channel.String())
			} else {
				added++
			}
		}
		return true
	})

	return added
}

func describe(err error) string {
	if appErr, ok := apperrors.As(err); ok {
		return appErr.Reason()
	}
	return err.Error()
}

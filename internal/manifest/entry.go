package manifest

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"unitydl/internal/config"
)

// releaseEntry mirrors one release object of the CDN document.
type releaseEntry struct {
	Version       string            `json:"version"`
	LTS           bool              `json:"lts"`
	DownloadURL   string            `json:"downloadUrl"`
	DownloadSize  int64             `json:"downloadSize"`
	InstalledSize int64             `json:"installedSize"`
	Checksum      string            `json:"checksum"`
	Modules       []json.RawMessage `json:"modules"`
}

type moduleEntry struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Category      string `json:"category"`
	DownloadURL   string `json:"downloadUrl"`
	DownloadSize  int64  `json:"downloadSize"`
	InstalledSize int64  `json:"installedSize"`
	Checksum      string `json:"checksum"`
}

// decodeRelease turns one raw release object into a Release. Malformed
// modules are dropped and reported through skipped rather than failing the release.
func decodeRelease(platform config.Platform, raw []byte, skipped func(index int, err error)) (Release, error) {
	var e releaseEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Release{}, errors.Wrap(err, "failed to decode release entry")
	}

	version := strings.TrimSpace(e.Version)
	if err := checkPathSegment("version", version); err != nil {
		return Release{}, err
	}
	if strings.TrimSpace(e.DownloadURL) == "" {
		return Release{}, errors.Errorf("release %s has no downloadUrl", version)
	}
	if e.DownloadSize <= 0 {
		return Release{}, errors.Errorf("release %s has invalid downloadSize %d", version, e.DownloadSize)
	}

	rel := Release{
		Platform:      platform,
		Version:       version,
		URL:           strings.TrimSpace(e.DownloadURL),
		Size:          e.DownloadSize,
		InstalledSize: e.InstalledSize,
		Checksum:      strings.TrimSpace(e.Checksum),
		LTS:           e.LTS,
		Modules:       make([]Module, 0, len(e.Modules)),
	}

	for i, rawModule := range e.Modules {
		mod, err := decodeModule(rawModule)
		if err != nil {
			if skipped != nil {
				skipped(i, err)
			}
			continue
		}
		rel.Modules = append(rel.Modules, mod)
	}

	return rel, nil
}

func decodeModule(raw []byte) (Module, error) {
	var e moduleEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Module{}, errors.Wrap(err, "failed to decode module entry")
	}

	id := strings.TrimSpace(e.ID)
	if err := checkPathSegment("module id", id); err != nil {
		return Module{}, err
	}
	if err := checkPathSegment("module group", Module{ID: id}.Group()); err != nil {
		return Module{}, err
	}
	if strings.TrimSpace(e.DownloadURL) == "" {
		return Module{}, errors.Errorf("module %s has no downloadUrl", id)
	}
	if e.DownloadSize <= 0 {
		return Module{}, errors.Errorf("module %s has invalid downloadSize %d", id, e.DownloadSize)
	}

	name := strings.TrimSpace(e.Name)
	if name == "" {
		name = id
	}

	return Module{
		ID:            id,
		Name:          name,
		Description:   e.Description,
		Category:      e.Category,
		URL:           strings.TrimSpace(e.DownloadURL),
		Size:          e.DownloadSize,
		InstalledSize: e.InstalledSize,
		Checksum:      strings.TrimSpace(e.Checksum),
	}, nil
}

// checkPathSegment rejects values that cannot safely become a directory name.
func checkPathSegment(field, value string) error {
	switch {
	case value == "":
		return errors.Errorf("%s is empty", field)
	case value == "." || value == "..":
		return errors.Errorf("%s %q is not a valid directory name", field, value)
	case strings.ContainsAny(value, `/\`):
		return errors.Errorf("%s %q contains a path separator", field, value)
	}
	return nil
}

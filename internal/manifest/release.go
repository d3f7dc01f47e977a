package manifest

import (
	"fmt"
	"strings"

	"unitydl/internal/config"
)

// Release is one published version for one platform.
type Release struct {
	Platform      config.Platform
	Version       string
	URL           string
	Size          int64
	InstalledSize int64
	Checksum      string
	LTS           bool
	Modules       []Module
}

// ID is the catalog key, <platform>-<version>.
func (r Release) ID() string {
	return fmt.Sprintf("%s-%s", r.Platform, r.Version)
}

// DirName is the directory a release is downloaded into.
func (r Release) DirName() string {
	return "unity-" + r.ID()
}

// Module is an optional add-on download belonging to a Release.
type Module struct {
	ID            string
	Name          string
	Description   string
	Category      string
	URL           string
	Size          int64
	InstalledSize int64
	Checksum      string
}

// Group is the id prefix before the first '-', used as the module's subdirectory.
// An id starting with '-' has no prefix and groups under the full id.
func (m Module) Group() string {
	group, _, _ := strings.Cut(m.ID, "-")
	if group == "" {
		return m.ID
	}
	return group
}

// Catalog is the flattened release mapping, iterated in insertion order.
type Catalog struct {
	order    []string
	releases map[string]Release
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{releases: make(map[string]Release)}
}

// Add stores r under its ID. A release with an existing ID replaces the
// previous value in place and Add reports true.
func (c *Catalog) Add(r Release) bool {
	id := r.ID()
	_, exists := c.releases[id]
	if !exists {
		c.order = append(c.order, id)
	}
	c.releases[id] = r
	return exists
}

// Len returns the number of releases.
func (c *Catalog) Len() int {
	return len(c.order)
}

// Releases returns the releases in insertion order.
func (c *Catalog) Releases() []Release {
	out := make([]Release, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.releases[id])
	}
	return out
}

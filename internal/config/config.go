package config

import (
	_ "embed"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	apperrors "unitydl/internal/errors"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config is the immutable run configuration shared by the manifest and download components.
type Config struct {
	outputDir      string
	userAgent      string
	copyBufferSize int
	endpoints      map[Platform]string
}

type rawConfig struct {
	OutputDir      string            `yaml:"output_dir"`
	UserAgent      string            `yaml:"user_agent"`
	CopyBufferSize int               `yaml:"copy_buffer_size"`
	Endpoints      map[string]string `yaml:"endpoints"`
}

// Default returns the configuration shipped with the binary.
func Default() (*Config, error) {
	return Parse(defaultsYAML)
}

// Parse decodes and validates a configuration document.
func Parse(data []byte) (*Config, error) {
	raw, err := decode(data)
	if err != nil {
		return nil, apperrors.ConfigError(apperrors.CodeConfigInvalid, "failed to decode configuration", err).
			WithModule("config").
			WithOperation("Parse")
	}

	cfg, err := raw.build()
	if err != nil {
		return nil, apperrors.ConfigError(apperrors.CodeConfigInvalid, "invalid configuration", err).
			WithModule("config").
			WithOperation("Parse")
	}
	return cfg, nil
}

func decode(data []byte) (*rawConfig, error) {
	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "failed to parse configuration yaml")
	}
	return &raw, nil
}

func (r *rawConfig) build() (*Config, error) {
	cfg := &Config{
		outputDir:      strings.TrimSpace(r.OutputDir),
		userAgent:      strings.TrimSpace(r.UserAgent),
		copyBufferSize: r.CopyBufferSize,
		endpoints:      make(map[Platform]string, len(Platforms)),
	}

	if cfg.outputDir == "" {
		return nil, errors.New("output_dir must not be empty")
	}
	if filepath.IsAbs(cfg.outputDir) {
		return nil, errors.Errorf("output_dir %q must be relative to the working directory", cfg.outputDir)
	}
	if cfg.copyBufferSize <= 0 {
		cfg.copyBufferSize = 32 * 1024
	}

	for name, endpoint := range r.Endpoints {
		p := Platform(name)
		if !p.Valid() {
			return nil, errors.Errorf("unknown platform %q in endpoints", name)
		}
		u, err := url.Parse(strings.TrimSpace(endpoint))
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, errors.Errorf("invalid endpoint for %s: %q", name, endpoint)
		}
		cfg.endpoints[p] = u.String()
	}

	for _, p := range Platforms {
		if _, ok := cfg.endpoints[p]; !ok {
			return nil, errors.Errorf("missing endpoint for %s", p)
		}
	}

	return cfg, nil
}

// WithEndpoints returns a copy of c whose endpoints are replaced by the supplied ones.
// Platforms absent from endpoints keep their current URL.
func (c *Config) WithEndpoints(endpoints map[Platform]string) *Config {
	clone := *c
	clone.endpoints = make(map[Platform]string, len(c.endpoints))
	for p, u := range c.endpoints {
		clone.endpoints[p] = u
	}
	for p, u := range endpoints {
		clone.endpoints[p] = u
	}
	return &clone
}

// Endpoint returns the manifest URL for p.
func (c *Config) Endpoint(p Platform) (string, bool) {
	u, ok := c.endpoints[p]
	return u, ok
}

// OutputDir is the output directory name, relative to the working directory.
func (c *Config) OutputDir() string { return c.outputDir }

// OutputPath resolves the output directory against cwd.
func (c *Config) OutputPath(cwd string) string {
	return filepath.Join(cwd, c.outputDir)
}

// UserAgent is sent with every manifest and download request.
func (c *Config) UserAgent() string { return c.userAgent }

// CopyBufferSize is the buffer size used when streaming downloads to disk.
func (c *Config) CopyBufferSize() int { return c.copyBufferSize }

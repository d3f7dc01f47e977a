package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unitydl/internal/config"
	apperrors "unitydl/internal/errors"
)

func TestDefault(t *testing.T) {
	cfg, err := config.Default()
	require.NoError(t, err)

	assert.Equal(t, "unity-versions", cfg.OutputDir())
	assert.Equal(t, "/work/unity-versions", cfg.OutputPath("/work"))
	assert.Equal(t, "unity-downloader (https://github.com/mildmojo/unity-downloader)", cfg.UserAgent())
	assert.Equal(t, 32*1024, cfg.CopyBufferSize())

	want := map[config.Platform]string{
		config.PlatformLinux:   "https://public-cdn.cloud.unity3d.com/hub/prod/releases-linux.json",
		config.PlatformWindows: "https://public-cdn.cloud.unity3d.com/hub/prod/releases-win32.json",
		config.PlatformMac:     "https://public-cdn.cloud.unity3d.com/hub/prod/releases-darwin.json",
	}
	for p, u := range want {
		got, ok := cfg.Endpoint(p)
		require.True(t, ok, p)
		assert.Equal(t, u, got)
	}
}

func TestParseRejectsInvalidDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not yaml", "output_dir: [unterminated"},
		{"empty output dir", "output_dir: ''\nendpoints: {linux: http://a/l, windows: http://a/w, mac: http://a/m}"},
		{"absolute output dir", "output_dir: /abs\nendpoints: {linux: http://a/l, windows: http://a/w, mac: http://a/m}"},
		{"unknown platform", "output_dir: out\nendpoints: {linux: http://a/l, windows: http://a/w, mac: http://a/m, bsd: http://a/b}"},
		{"missing platform", "output_dir: out\nendpoints: {linux: http://a/l, windows: http://a/w}"},
		{"bad url", "output_dir: out\nendpoints: {linux: 'not a url', windows: http://a/w, mac: http://a/m}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.Parse([]byte(tt.doc))
			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, apperrors.CodeConfigInvalid))
		})
	}
}

func TestWithEndpointsDoesNotMutateOriginal(t *testing.T) {
	cfg, err := config.Default()
	require.NoError(t, err)

	override := cfg.WithEndpoints(map[config.Platform]string{config.PlatformLinux: "http://127.0.0.1/linux.json"})

	got, _ := override.Endpoint(config.PlatformLinux)
	assert.Equal(t, "http://127.0.0.1/linux.json", got)

	orig, _ := cfg.Endpoint(config.PlatformLinux)
	assert.Equal(t, "https://public-cdn.cloud.unity3d.com/hub/prod/releases-linux.json", orig)

	mac, _ := override.Endpoint(config.PlatformMac)
	assert.Equal(t, "https://public-cdn.cloud.unity3d.com/hub/prod/releases-darwin.json", mac)
}

func TestParsePlatforms(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []config.Platform
	}{
		{"none", nil, nil},
		{"unknown only", []string{"freebsd", "--verbose"}, nil},
		{"single", []string{"linux"}, []config.Platform{config.PlatformLinux}},
		{"dedup keeps first order", []string{"mac", "linux", "mac", "x", "linux"}, []config.Platform{config.PlatformMac, config.PlatformLinux}},
		{"case sensitive", []string{"Linux", "windows"}, []config.Platform{config.PlatformWindows}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, config.ParsePlatforms(tt.args))
		})
	}

	assert.Equal(t, "linux|windows|mac", config.PlatformNames("|"))
}

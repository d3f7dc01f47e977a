package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"unitydl/internal/config"
)

func TestModuleGroup(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"android", "android"},
		{"android-sdk-ndk-tools", "android"},
		{"android-open-jdk", "android"},
		{"language-ja", "language"},
		{"-odd", "-odd"},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, Module{ID: tt.id}.Group())
		})
	}
}

func TestCatalogReplaceKeepsPosition(t *testing.T) {
	c := NewCatalog()
	assert.False(t, c.Add(Release{Platform: config.PlatformMac, Version: "1"}))
	assert.False(t, c.Add(Release{Platform: config.PlatformMac, Version: "2"}))
	assert.True(t, c.Add(Release{Platform: config.PlatformMac, Version: "1", URL: "new"}))

	got := c.Releases()
	assert.Len(t, got, 2)
	assert.Equal(t, "mac-1", got[0].ID())
	assert.Equal(t, "new", got[0].URL)
	assert.Equal(t, "mac-2", got[1].ID())
}

func TestCheckPathSegment(t *testing.T) {
	assert.NoError(t, checkPathSegment("version", "2021.3.1f1"))
	assert.Error(t, checkPathSegment("version", ""))
	assert.Error(t, checkPathSegment("version", ".."))
	assert.Error(t, checkPathSegment("version", "a/b"))
	assert.Error(t, checkPathSegment("version", `a\b`))
}

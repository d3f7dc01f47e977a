package config

import "strings"

// Platform identifies an operating system the release manifests are published for.
type Platform string

const (
	PlatformLinux   Platform = "linux"
	PlatformWindows Platform = "windows"
	PlatformMac     Platform = "mac"
)

// Platforms lists every supported platform in usage order.
var Platforms = []Platform{PlatformLinux, PlatformWindows, PlatformMac}

// Valid reports whether p is one of the supported platforms.
func (p Platform) Valid() bool {
	for _, known := range Platforms {
		if p == known {
			return true
		}
	}
	return false
}

// ParsePlatforms picks the recognised platform tokens out of args, keeping
// first-occurrence order and dropping duplicates. Other tokens are ignored.
func ParsePlatforms(args []string) []Platform {
	seen := make(map[Platform]struct{}, len(Platforms))
	var out []Platform
	for _, arg := range args {
		p := Platform(arg)
		if !p.Valid() {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// PlatformNames joins the supported platform names with sep.
func PlatformNames(sep string) string {
	names := make([]string, len(Platforms))
	for i, p := range Platforms {
		names[i] = string(p)
	}
	return strings.Join(names, sep)
}

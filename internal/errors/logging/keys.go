package logging

import (
	"sort"

	apperrors "unitydl/internal/errors"
)

// sortedKeys keeps metadata fields in a stable order across log lines.
func sortedKeys(m apperrors.Metadata) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

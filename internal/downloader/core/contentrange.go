package core

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// unsatisfiedLength parses the "bytes */total" form sent with a 416 response.
func unsatisfiedLength(header string) (int64, bool) {
	size, ok := strings.CutPrefix(strings.TrimSpace(header), "bytes */")
	if !ok {
		return 0, false
	}
	total, err := strconv.ParseInt(size, 10, 64)
	if err != nil || total < 0 {
		return 0, false
	}
	return total, true
}

// parseContentRange parses "bytes start-end/total". total is -1 when the
// server reports it as "*".
func parseContentRange(header string) (start, end, total int64, err error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(header), "bytes ")
	if !ok {
		return 0, 0, 0, errors.Errorf("invalid Content-Range format: %q", header)
	}

	rng, size, ok := strings.Cut(rest, "/")
	if !ok {
		return 0, 0, 0, errors.Errorf("invalid Content-Range format: %q", header)
	}

	first, last, ok := strings.Cut(rng, "-")
	if !ok {
		return 0, 0, 0, errors.Errorf("invalid Content-Range format: %q", header)
	}

	if start, err = strconv.ParseInt(first, 10, 64); err != nil {
		return 0, 0, 0, errors.Wrap(err, "invalid start byte")
	}
	if end, err = strconv.ParseInt(last, 10, 64); err != nil {
		return 0, 0, 0, errors.Wrap(err, "invalid end byte")
	}

	if size == "*" {
		return start, end, -1, nil
	}
	if total, err = strconv.ParseInt(size, 10, 64); err != nil {
		return 0, 0, 0, errors.Wrap(err, "invalid total bytes")
	}
	return start, end, total, nil
}

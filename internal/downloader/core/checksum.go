package core

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// ErrChecksumMismatch is returned by VerifyChecksum when digests differ.
var ErrChecksumMismatch = errors.New("checksum mismatch")

// hashFor picks the digest algorithm from the length of a hex checksum:
// 32 characters is MD5, as published by the Unity CDN, 64 is SHA-256.
func hashFor(expected string) (hash.Hash, error) {
	if _, err := hex.DecodeString(expected); err != nil {
		return nil, errors.Errorf("checksum %q is not hexadecimal", expected)
	}
	switch len(expected) {
	case md5.Size * 2:
		return md5.New(), nil
	case sha256.Size * 2:
		return sha256.New(), nil
	default:
		return nil, errors.Errorf("unsupported checksum length %d", len(expected))
	}
}

// CalculateChecksum hashes r with h and returns the lowercase hex digest.
func CalculateChecksum(r io.Reader, h hash.Hash) (string, error) {
	if _, err := io.Copy(h, r); err != nil {
		return "", errors.Wrap(err, "failed to read data for checksum")
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// VerifyChecksum hashes the file at path and compares it with expected.
// A digest difference wraps ErrChecksumMismatch.
func VerifyChecksum(fs FileSystem, path, expected string) error {
	expected = strings.ToLower(strings.TrimSpace(expected))
	if expected == "" {
		return errors.New("expected checksum is empty")
	}

	h, err := hashFor(expected)
	if err != nil {
		return errors.Wrap(ErrChecksumMismatch, err.Error())
	}

	file, err := fs.Open(path)
	if err != nil {
		return errors.Wrapf(err, "failed to open file: %s", path)
	}
	defer file.Close()

	actual, err := CalculateChecksum(file, h)
	if err != nil {
		return errors.Wrapf(err, "failed to hash file: %s", path)
	}

	if actual != expected {
		return errors.Wrapf(ErrChecksumMismatch, "expected %s, got %s", expected, actual)
	}
	return nil
}

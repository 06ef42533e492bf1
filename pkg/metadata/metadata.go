// Package metadata provides content digests for converted files.
package metadata

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrHashMismatch is returned by Verify when a file's digest has changed.
var ErrHashMismatch = errors.New("hash mismatch")

// FileHash computes the SHA-256 hash of the file at path.
func FileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Output states reported by State.
const (
	StateOK      = "ok"
	StateChanged = "changed"
	StateMissing = "missing"
)

// State reports whether the file at path still matches expected.
func State(path, expected string) string {
	err := Verify(path, expected)

	switch {
	case err == nil:
		return StateOK
	case errors.Is(err, ErrHashMismatch):
		return StateChanged
	default:
		return StateMissing
	}
}

// Verify checks that the file at path still has the expected digest.
func Verify(path, expected string) error {
	calculated, err := FileHash(path)
	if err != nil {
		return err
	}

	if calculated != expected {
		return fmt.Errorf("%w: expected %s, got %s", ErrHashMismatch, expected, calculated)
	}

	return nil
}

package metadata

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// sha256("abc") and sha256("abd")
const (
	abcHash = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	abdHash = "a52d159f262b2c6ddb724a61840befc36eb30c88877a4030b65cbe86298449c9"
)

func TestFileHashAndVerify(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	if err := os.WriteFile(path, []byte("abc"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	got, err := FileHash(path)
	if err != nil {
		t.Fatalf("FileHash failed: %v", err)
	}

	if got != abcHash {
		t.Errorf("FileHash = %s, want %s", got, abcHash)
	}

	if err := Verify(path, abcHash); err != nil {
		t.Errorf("Verify returned unexpected error: %v", err)
	}

	if err := os.WriteFile(path, []byte("abd"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if err := Verify(path, abcHash); !errors.Is(err, ErrHashMismatch) {
		t.Errorf("Verify error = %v, want ErrHashMismatch", err)
	}
}

func TestFileHash_Missing(t *testing.T) {
	if _, err := FileHash(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("FileHash expected error for missing file")
	}
}

func TestState(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")

	if err := os.WriteFile(path, []byte("abc"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	tests := []struct {
		name     string
		path     string
		expected string
		want     string
	}{
		{"Unchanged", path, abcHash, StateOK},
		{"Changed", path, abdHash, StateChanged},
		{"Missing", filepath.Join(dir, "gone.csv"), abcHash, StateMissing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := State(tt.path, tt.expected); got != tt.want {
				t.Errorf("State() = %q, want %q", got, tt.want)
			}
		})
	}
}

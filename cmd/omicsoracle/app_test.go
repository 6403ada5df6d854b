package main

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/omicsoracle/omicsoracle/internal/coordinator"
)

func TestExitCodeMapsExitError(t *testing.T) {
	if code := exitCode(nil); code != 0 {
		t.Fatalf("nil error: got code %d, want 0", code)
	}
	if code := exitCode(exitErrorf(2, "bad config")); code != 2 {
		t.Fatalf("config error: got code %d, want 2", code)
	}
	if code := exitCode(exitErrorf(3, "partial")); code != 3 {
		t.Fatalf("partial success: got code %d, want 3", code)
	}
	if code := exitCode(errors.New("unclassified")); code != 4 {
		t.Fatalf("unclassified error: got code %d, want 4", code)
	}
}

func TestExitErrorUnwraps(t *testing.T) {
	inner := errors.New("disk full")
	err := exitErrorf(4, "store: %w", inner)
	if !errors.Is(err, inner) {
		t.Fatalf("exitErrorf(%v) does not unwrap to inner error", err)
	}
}

func TestDurationFromSeconds(t *testing.T) {
	if got := durationFromSeconds(5); got != 5*time.Second {
		t.Fatalf("got %v, want 5s", got)
	}
	if got := durationFromSeconds(1.5); got != 1500*time.Millisecond {
		t.Fatalf("got %v, want 1.5s", got)
	}
}

func TestHasAnyFailureDetectsAnyStage(t *testing.T) {
	clean := coordinator.RunSummary{}
	if hasAnyFailure(clean) {
		t.Fatal("empty summary should report no failures")
	}
	withP3Failure := coordinator.RunSummary{
		P3: coordinator.StageSummary{Attempted: 2, Succeeded: 1, Failed: 1},
	}
	if !hasAnyFailure(withP3Failure) {
		t.Fatal("summary with a P3 failure should report a failure")
	}
}

func TestVerifyHashMatchesContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "article.pdf")
	if err := os.WriteFile(path, []byte("gene expression data"), 0o644); err != nil {
		t.Fatal(err)
	}
	ok, err := verifyHash(path, sha256Hex("gene expression data"))
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("verifyHash should match the file's actual content hash")
	}

	ok, err = verifyHash(path, "0000000000000000000000000000000000000000000000000000000000000000")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("verifyHash should not match a wrong hash")
	}
}

func TestVerifyHashMissingFile(t *testing.T) {
	if _, err := verifyHash(filepath.Join(t.TempDir(), "missing.pdf"), "whatever"); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

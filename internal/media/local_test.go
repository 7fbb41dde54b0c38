package media

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"streamscribe/internal/util"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ref, size, err := store.Save(strings.NewReader("video bytes"), "talk.mp4")
	if err != nil {
		t.Fatal(err)
	}
	if size != int64(len("video bytes")) {
		t.Fatalf("unexpected size %d", size)
	}
	if !strings.HasSuffix(ref, ".mp4") {
		t.Fatalf("ref should keep extension, got %s", ref)
	}

	rc, err := store.Resolve(context.Background(), ref)
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "video bytes" {
		t.Fatalf("resolved content mismatch: %q", data)
	}

	// Same content, same ref: uploads are content-addressed.
	ref2, _, err := store.Save(strings.NewReader("video bytes"), "copy.mp4")
	if err != nil {
		t.Fatal(err)
	}
	if ref2 != ref {
		t.Fatalf("duplicate upload produced different ref: %s vs %s", ref, ref2)
	}

	if err := store.Delete(ref); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Resolve(context.Background(), ref); err == nil {
		t.Fatal("resolve should fail after delete")
	}
}

func TestLocalStoreRejectsUnsupportedExtension(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	_, _, err = store.Save(strings.NewReader("x"), "notes.txt")
	if !errors.Is(err, util.ErrUnsupportedMedia) {
		t.Fatalf("expected ErrUnsupportedMedia, got %v", err)
	}
}

func TestLocalStoreRejectsPathTraversal(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Path("../secrets.mp4"); err == nil {
		t.Fatal("path traversal not rejected")
	}
	if _, err := store.Path("/etc/passwd"); err == nil {
		t.Fatal("absolute ref not rejected")
	}
}

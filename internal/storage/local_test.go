package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "valet-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	store, err := NewLocalStore(tmpDir, "connector/")
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}

	ctx := context.Background()
	key := "raw/series/FXUSDCAD.json.zst"
	data := []byte(`[{"date":"2020-01-01","value":"1.30"}]`)

	if err := store.Write(ctx, key, data); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got, err := store.Read(ctx, key)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("Read returned %q, want %q", got, data)
	}

	// No temp files should remain after the atomic write
	matches, _ := filepath.Glob(filepath.Join(tmpDir, "connector", "raw", "series", "*.tmp"))
	if len(matches) != 0 {
		t.Errorf("temp files left behind: %v", matches)
	}
}

func TestLocalStoreReadMissing(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewLocalStore(tmpDir, "")
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}

	_, err = store.Read(context.Background(), "raw/series/NOPE.json.zst")
	if err != ErrNotFound {
		t.Errorf("Read missing key: got %v, want ErrNotFound", err)
	}

	exists, err := store.Exists(context.Background(), "raw/series/NOPE.json.zst")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("Exists returned true for missing key")
	}
}

func TestLocalStoreList(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewLocalStore(tmpDir, "connector/")
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}

	ctx := context.Background()
	keys := []string{
		"raw/series/A.json.zst",
		"raw/series/B.json.zst",
		"state/series_data.json",
	}
	for _, k := range keys {
		if err := store.Write(ctx, k, []byte("x")); err != nil {
			t.Fatalf("Write %s failed: %v", k, err)
		}
	}

	got, err := store.List(ctx, "raw/series/")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("List returned %d keys, want 2: %v", len(got), got)
	}

	// Listing an absent prefix is not an error
	got, err = store.List(ctx, "datasets/")
	if err != nil {
		t.Fatalf("List absent prefix failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("List absent prefix returned %v", got)
	}
}

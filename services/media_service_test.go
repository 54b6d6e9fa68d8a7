package services

import (
	"bytes"
	"context"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func newTestMedia(t *testing.T, countLimit int, costLimit int64) (*mediaService, string) {
	t.Helper()
	conf := newTestConfig(t)
	conf.CacheCountLimit = countLimit
	conf.CacheCostLimit = costLimit
	m, err := NewMediaService(conf, newTestLogger())
	if err != nil {
		t.Fatalf("init media service: %v", err)
	}
	return m.(*mediaService), conf.DocumentsDir
}

func TestSaveAndGetImageRoundTrip(t *testing.T) {
	m, _ := newTestMedia(t, 50, 100*1024*1024)
	want := color.NRGBA{R: 200, G: 10, B: 30, A: 255}

	url, err := m.SaveImageToDisk(testImage(8, 6, want))
	if err != nil {
		t.Fatalf("save image: %v", err)
	}

	got := m.GetImage(context.Background(), url)
	if got == nil {
		t.Fatal("expected an image back, got nil")
	}
	if got.Bounds().Dx() != 8 || got.Bounds().Dy() != 6 {
		t.Fatalf("bounds mismatch: %v", got.Bounds())
	}
	if c := color.NRGBAModel.Convert(got.At(3, 3)); c != want {
		t.Errorf("pixel mismatch: got %v want %v", c, want)
	}
}

func TestGetImageResolvesAgainstCurrentDocumentsDir(t *testing.T) {
	// simulate a relaunch where the documents root moved but the file,
	// identified by its last path component, came along
	writer, oldRoot := newTestMedia(t, 50, 100*1024*1024)
	url, err := writer.SaveImageToDisk(testImage(4, 4, color.NRGBA{R: 1, G: 2, B: 3, A: 255}))
	if err != nil {
		t.Fatalf("save image: %v", err)
	}

	reader, newRoot := newTestMedia(t, 50, 100*1024*1024)
	if err := os.MkdirAll(newRoot, 0755); err != nil {
		t.Fatalf("create new root: %v", err)
	}
	if err := os.Rename(url, filepath.Join(newRoot, filepath.Base(url))); err != nil {
		t.Fatalf("move file: %v", err)
	}

	// the requested URL still points into the old root
	if url[:len(oldRoot)] != oldRoot {
		t.Fatalf("test setup: %s not under %s", url, oldRoot)
	}
	if img := reader.GetImage(context.Background(), url); img == nil {
		t.Fatal("stale absolute path was not re-resolved by filename")
	}
}

func TestGetImageMissingFileReturnsNil(t *testing.T) {
	m, root := newTestMedia(t, 50, 100*1024*1024)
	if img := m.GetImage(context.Background(), filepath.Join(root, "gone.png")); img != nil {
		t.Fatal("expected nil for a missing file")
	}
}

func TestCacheRetainsRecentEntriesPastCountLimit(t *testing.T) {
	m, _ := newTestMedia(t, 3, 100*1024*1024)
	ctx := context.Background()

	urls := make([]string, 5)
	for i := range urls {
		url, err := m.SaveImageToDisk(testImage(4, 4, color.NRGBA{R: uint8(i), A: 255}))
		if err != nil {
			t.Fatalf("save image %d: %v", i, err)
		}
		urls[i] = url
		if m.GetImage(ctx, url) == nil {
			t.Fatalf("image %d not readable after save", i)
		}
	}

	// strip the disk copies so only memory hits can answer
	for _, url := range urls {
		if err := os.Remove(url); err != nil {
			t.Fatalf("remove backing file: %v", err)
		}
	}

	for _, url := range urls[2:] {
		if m.GetImage(ctx, url) == nil {
			t.Errorf("recently used entry %s was evicted", filepath.Base(url))
		}
	}
	for _, url := range urls[:2] {
		if m.GetImage(ctx, url) != nil {
			t.Errorf("least recently used entry %s survived past the count limit", filepath.Base(url))
		}
	}
}

func TestCacheEvictsWhenCostLimitExceeded(t *testing.T) {
	// each 4x4 image costs 64 bytes; budget fits two
	m, _ := newTestMedia(t, 50, 150)
	ctx := context.Background()

	urls := make([]string, 3)
	for i := range urls {
		url, err := m.SaveImageToDisk(testImage(4, 4, color.NRGBA{G: uint8(i), A: 255}))
		if err != nil {
			t.Fatalf("save image %d: %v", i, err)
		}
		urls[i] = url
		if m.GetImage(ctx, url) == nil {
			t.Fatalf("image %d not readable after save", i)
		}
	}

	for _, url := range urls {
		os.Remove(url)
	}

	if m.GetImage(ctx, urls[0]) != nil {
		t.Error("oldest entry survived past the cost limit")
	}
	if m.GetImage(ctx, urls[2]) == nil {
		t.Error("newest entry evicted despite available budget")
	}
}

func TestGetImagesOmitsMissingURLs(t *testing.T) {
	m, root := newTestMedia(t, 50, 100*1024*1024)

	urlA, err := m.SaveImageToDisk(testImage(4, 4, color.NRGBA{R: 255, A: 255}))
	if err != nil {
		t.Fatalf("save image: %v", err)
	}
	urlC, err := m.SaveImageToDisk(testImage(4, 4, color.NRGBA{B: 255, A: 255}))
	if err != nil {
		t.Fatalf("save image: %v", err)
	}
	urlB := filepath.Join(root, "missing.png")

	images := m.GetImages(context.Background(), []string{urlA, urlB, urlC})
	if len(images) != 2 {
		t.Fatalf("expected 2 results, got %d", len(images))
	}
	if images[urlA] == nil || images[urlC] == nil {
		t.Error("successful fetches missing from the result map")
	}
	if _, ok := images[urlB]; ok {
		t.Error("missing url should be omitted, not mapped to nil")
	}
}

func TestGetImagesHonorsCancellation(t *testing.T) {
	m, _ := newTestMedia(t, 50, 100*1024*1024)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	url, err := m.SaveImageToDisk(testImage(4, 4, color.NRGBA{A: 255}))
	if err != nil {
		t.Fatalf("save image: %v", err)
	}
	// a cancelled batch must return, not hang; partial results are fine
	_ = m.GetImages(ctx, []string{url})
}

func TestDeleteImageRemovesFileAndCacheEntry(t *testing.T) {
	m, _ := newTestMedia(t, 50, 100*1024*1024)
	ctx := context.Background()

	url, err := m.SaveImageToDisk(testImage(4, 4, color.NRGBA{R: 9, A: 255}))
	if err != nil {
		t.Fatalf("save image: %v", err)
	}
	if m.GetImage(ctx, url) == nil {
		t.Fatal("image not readable after save")
	}

	if err := m.DeleteImage(url); err != nil {
		t.Fatalf("delete image: %v", err)
	}
	if _, err := os.Stat(url); !os.IsNotExist(err) {
		t.Error("backing file still present after delete")
	}
	if m.GetImage(ctx, url) != nil {
		t.Error("cache still serves a deleted image")
	}

	// deleting again is a no-op
	if err := m.DeleteImage(url); err != nil {
		t.Errorf("second delete errored: %v", err)
	}
}

func TestProcessImageStoresFullSizeAndThumbnail(t *testing.T) {
	m, _ := newTestMedia(t, 50, 100*1024*1024)
	ctx := context.Background()

	var buf bytes.Buffer
	if err := png.Encode(&buf, testImage(400, 300, color.NRGBA{R: 50, G: 60, B: 70, A: 255})); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}

	fullURL, thumbnailURL, err := m.ProcessImage(buf.Bytes())
	if err != nil {
		t.Fatalf("process image: %v", err)
	}

	full := m.GetImage(ctx, fullURL)
	if full == nil || full.Bounds().Dx() != 400 {
		t.Fatalf("full-size image wrong: %v", full)
	}
	thumbnail := m.GetImage(ctx, thumbnailURL)
	if thumbnail == nil {
		t.Fatal("thumbnail missing")
	}
	if thumbnail.Bounds().Dx() != thumbnailWidth {
		t.Errorf("thumbnail width = %d, want %d", thumbnail.Bounds().Dx(), thumbnailWidth)
	}
}

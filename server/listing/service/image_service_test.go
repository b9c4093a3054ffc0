package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"

	"listing_server/server/listing/domain"
)

func makeJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := imaging.New(width, height, color.NRGBA{R: 120, G: 80, B: 40, A: 255})
	buf := bytes.NewBuffer(nil)
	if err := imaging.Encode(buf, img, imaging.JPEG); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

func decodeDims(t *testing.T, data []byte) (int, int) {
	t.Helper()
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode stored object: %v", err)
	}
	return cfg.Width, cfg.Height
}

func newImageService() (*ImageService, *fakeStore) {
	store := newFakeStore()
	return NewImageService(store, NewKeyGenerator("listings")), store
}

func TestValidateRejectsDisallowedFormat(t *testing.T) {
	svc, _ := newImageService()
	err := svc.Validate(makeJPEG(t, 10, 10), "application/pdf")
	if !errors.Is(err, domain.ErrInvalidFormat) {
		t.Fatalf("expected ErrInvalidFormat, got %v", err)
	}
}

func TestValidateRejectsOversized(t *testing.T) {
	svc, _ := newImageService()
	err := svc.Validate(make([]byte, MaxUploadBytes+1), "image/jpeg")
	if !errors.Is(err, domain.ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}

func TestValidateRejectsUndecodableBytes(t *testing.T) {
	svc, _ := newImageService()
	err := svc.Validate([]byte("definitely not an image"), "image/jpeg")
	if !errors.Is(err, domain.ErrCorruptImage) {
		t.Fatalf("expected ErrCorruptImage, got %v", err)
	}
}

func TestProcessAndStorePrimaryFitsBoundingBox(t *testing.T) {
	svc, store := newImageService()

	asset, err := svc.ProcessAndStore(context.Background(), "owner-1", "big.jpg", makeJPEG(t, 4000, 3000), "image/jpeg")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if asset.Width != 2048 || asset.Height != 1536 {
		t.Fatalf("expected 2048x1536 primary, got %dx%d", asset.Width, asset.Height)
	}
	if store.count() != 4 {
		t.Fatalf("expected 4 stored objects, got %d", store.count())
	}

	w, h := decodeDims(t, store.get(asset.SourceKey))
	if w != 2048 || h != 1536 {
		t.Fatalf("stored primary is %dx%d, want 2048x1536", w, h)
	}
	if asset.MimeType != "image/jpeg" {
		t.Fatalf("expected normalized mime type, got %s", asset.MimeType)
	}
}

func TestProcessAndStoreNeverUpscalesPrimary(t *testing.T) {
	svc, store := newImageService()

	asset, err := svc.ProcessAndStore(context.Background(), "owner-1", "small.jpg", makeJPEG(t, 800, 600), "image/jpeg")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if asset.Width != 800 || asset.Height != 600 {
		t.Fatalf("primary was upscaled: %dx%d", asset.Width, asset.Height)
	}
	if store.count() != 4 {
		t.Fatalf("expected 4 stored objects, got %d", store.count())
	}
}

func TestProcessAndStoreThumbnailsCropToFill(t *testing.T) {
	svc, store := newImageService()

	// square source: a fit policy would letterbox, the fill policy must crop
	asset, err := svc.ProcessAndStore(context.Background(), "owner-1", "square.jpg", makeJPEG(t, 1000, 1000), "image/jpeg")
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	expected := map[string][2]int{
		thumbnailKey(asset.SourceKey, "_small"):  {200, 150},
		thumbnailKey(asset.SourceKey, "_medium"): {400, 300},
		thumbnailKey(asset.SourceKey, "_large"):  {800, 600},
	}
	for key, dims := range expected {
		if !store.has(key) {
			t.Fatalf("missing thumbnail object %s", key)
		}
		w, h := decodeDims(t, store.get(key))
		if w != dims[0] || h != dims[1] {
			t.Fatalf("thumbnail %s is %dx%d, want %dx%d", key, w, h, dims[0], dims[1])
		}
	}
}

func TestProcessAndStoreCleansUpOnPutFailure(t *testing.T) {
	svc, store := newImageService()
	store.failPutAt = 3

	_, err := svc.ProcessAndStore(context.Background(), "owner-1", "photo.jpg", makeJPEG(t, 600, 400), "image/jpeg")
	if err == nil {
		t.Fatal("expected error from injected put failure")
	}
	if store.count() != 0 {
		t.Fatalf("expected partial uploads to be deleted, %d objects remain", store.count())
	}
}

func TestProcessAndStoreRejectsBeforeAnyWrite(t *testing.T) {
	svc, store := newImageService()

	_, err := svc.ProcessAndStore(context.Background(), "owner-1", "note.txt", []byte("not an image"), "text/plain")
	if !errors.Is(err, domain.ErrInvalidFormat) {
		t.Fatalf("expected ErrInvalidFormat, got %v", err)
	}
	if store.putCalls != 0 {
		t.Fatalf("expected no object-store writes, got %d", store.putCalls)
	}
}

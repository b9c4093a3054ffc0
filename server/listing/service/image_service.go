package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"

	"listing_server/server/common/infra/object"
	commonlog "listing_server/server/common/log"
	"listing_server/server/listing/domain"
)

// MaxUploadBytes is the upload size ceiling. The HTTP layer enforces it
// against the declared part size before buffering anything; Validate
// re-checks it against the actual bytes.
const MaxUploadBytes = 15 << 20 // 15 MiB

const (
	primaryMaxDimension = 2048
	primaryQuality      = 85
	thumbnailQuality    = 80

	outputMimeType = "image/jpeg"
)

var allowedMimeTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
}

type thumbnailSpec struct {
	suffix string
	width  int
	height int
}

var thumbnailSpecs = []thumbnailSpec{
	{suffix: "_small", width: 200, height: 150},
	{suffix: "_medium", width: 400, height: 300},
	{suffix: "_large", width: 800, height: 600},
}

type ImageService struct {
	store object.Store
	keys  *KeyGenerator
}

func NewImageService(store object.Store, keys *KeyGenerator) *ImageService {
	return &ImageService{store: store, keys: keys}
}

// Validate rejects an upload before any resize work: disallowed declared
// type, oversized body, or bytes that do not decode to an image header.
func (s *ImageService) Validate(data []byte, declaredType string) error {
	if _, ok := allowedMimeTypes[declaredType]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrInvalidFormat, declaredType)
	}
	if len(data) > MaxUploadBytes {
		return fmt.Errorf("%w: %d bytes", domain.ErrTooLarge, len(data))
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return domain.ErrCorruptImage
	}
	return nil
}

// ProcessAndStore validates the source bytes, generates the primary rendition
// and the three thumbnails (each decoded from the original source, not from
// each other), uploads all four objects, and returns the asset descriptor.
// A put failure mid-sequence triggers a best-effort delete of the keys
// already written for this image.
func (s *ImageService) ProcessAndStore(ctx context.Context, ownerID, originalName string, data []byte, declaredType string) (domain.ImageAsset, error) {
	if err := s.Validate(data, declaredType); err != nil {
		return domain.ImageAsset{}, err
	}

	primary, width, height, err := renderPrimary(data)
	if err != nil {
		commonlog.Errorf("render primary rendition: %v", err)
		return domain.ImageAsset{}, domain.ErrDerivativeGeneration
	}

	key := s.keys.Generate(ownerID, originalName)
	written := make([]string, 0, 4)
	if err := s.store.Put(ctx, key, primary, outputMimeType); err != nil {
		return domain.ImageAsset{}, err
	}
	written = append(written, key)

	for _, spec := range thumbnailSpecs {
		thumb, err := renderThumbnail(data, spec.width, spec.height)
		if err != nil {
			commonlog.Errorf("render %s thumbnail: %v", spec.suffix, err)
			s.cleanup(ctx, written)
			return domain.ImageAsset{}, domain.ErrDerivativeGeneration
		}
		thumbKey := thumbnailKey(key, spec.suffix)
		if err := s.store.Put(ctx, thumbKey, thumb, outputMimeType); err != nil {
			s.cleanup(ctx, written)
			return domain.ImageAsset{}, err
		}
		written = append(written, thumbKey)
	}

	return domain.ImageAsset{
		SourceKey:          key,
		PrimaryURL:         s.store.ResolvePublicURL(key),
		ThumbnailSmallURL:  s.store.ResolvePublicURL(thumbnailKey(key, "_small")),
		ThumbnailMediumURL: s.store.ResolvePublicURL(thumbnailKey(key, "_medium")),
		ThumbnailLargeURL:  s.store.ResolvePublicURL(thumbnailKey(key, "_large")),
		Width:              width,
		Height:             height,
		ByteSize:           int64(len(primary)),
		MimeType:           outputMimeType,
	}, nil
}

func (s *ImageService) cleanup(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.store.Delete(ctx, key); err != nil {
			commonlog.Warnf("cleanup partial upload %s: %v", key, err)
		}
	}
}

// renderPrimary fits the source inside the bounding box preserving aspect
// ratio; sources already within the box are never upscaled.
func renderPrimary(src []byte) ([]byte, int, int, error) {
	img, err := imaging.Decode(bytes.NewReader(src), imaging.AutoOrientation(true))
	if err != nil {
		return nil, 0, 0, err
	}
	fitted := imaging.Fit(img, primaryMaxDimension, primaryMaxDimension, imaging.Lanczos)
	buf := bytes.NewBuffer(nil)
	if err := imaging.Encode(buf, fitted, imaging.JPEG, imaging.JPEGQuality(primaryQuality)); err != nil {
		return nil, 0, 0, err
	}
	bounds := fitted.Bounds()
	return buf.Bytes(), bounds.Dx(), bounds.Dy(), nil
}

// renderThumbnail crops-to-fill the target box from the center, so grid
// slots are filled edge to edge instead of letterboxed.
func renderThumbnail(src []byte, width, height int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(src), imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}
	filled := imaging.Fill(img, width, height, imaging.Center, imaging.Lanczos)
	buf := bytes.NewBuffer(nil)
	if err := imaging.Encode(buf, filled, imaging.JPEG, imaging.JPEGQuality(thumbnailQuality)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

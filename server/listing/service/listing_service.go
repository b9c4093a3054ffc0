package service

import (
	"context"
	"fmt"
	"time"

	"listing_server/server/common/infra/object"
	commonlog "listing_server/server/common/log"
	"listing_server/server/listing/domain"
	"listing_server/server/listing/repository"
)

const (
	minImagesPerListing = 1
	maxImagesPerListing = 35

	minYearBuilt = 1800

	defaultSweepLimit   = 100
	auditTimeout        = 5 * time.Second
	compensationTimeout = 30 * time.Second
)

// ListingStore is the record-store surface the coordinator writes through.
type ListingStore interface {
	InsertListing(ctx context.Context, l domain.Listing) (int64, error)
	InsertImages(ctx context.Context, listingID int64, assets []domain.ImageAsset) error
	DeleteListing(ctx context.Context, id int64) error
	GetWithImages(ctx context.Context, id int64) (domain.Listing, error)
	AddPendingDeletion(ctx context.Context, objectKey string) error
	ListPendingDeletions(ctx context.Context, limit int) ([]repository.PendingDeletion, error)
	RemovePendingDeletion(ctx context.Context, id int64) error
}

type ListingService struct {
	repo   ListingStore
	store  object.Store
	gate   SubmissionGate
	events EventPublisher
	now    func() time.Time
}

func NewListingService(repo ListingStore, store object.Store, gate SubmissionGate, events EventPublisher) *ListingService {
	return &ListingService{repo: repo, store: store, gate: gate, events: events, now: time.Now}
}

type SubmitImage struct {
	Key                string `json:"key"`
	URL                string `json:"url"`
	ThumbnailSmallURL  string `json:"thumbnail_small_url"`
	ThumbnailMediumURL string `json:"thumbnail_medium_url"`
	ThumbnailLargeURL  string `json:"thumbnail_large_url"`
	DisplayOrder       int    `json:"display_order"`
	IsPrimary          bool   `json:"is_primary"`
	Width              int    `json:"width"`
	Height             int    `json:"height"`
	ByteSize           int64  `json:"byte_size"`
	MimeType           string `json:"mime_type"`
	Caption            string `json:"caption,omitempty"`
}

// SubmitListingRequest is the structured submission. Numeric facts use the
// -1 sentinel on the wire; they are translated to domain.Fact during
// validation and never read as raw ints past that point.
type SubmitListingRequest struct {
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Address      string         `json:"address"`
	City         string         `json:"city"`
	State        string         `json:"state"`
	Zip          string         `json:"zip"`
	Price        int64          `json:"price"`
	PropertyType string         `json:"property_type"`
	ListingType  string         `json:"listing_type"`
	Status       string         `json:"status,omitempty"`
	Bedrooms     int            `json:"bedrooms"`
	Bathrooms    int            `json:"bathrooms"`
	SquareFeet   int            `json:"square_feet"`
	LotSize      int            `json:"lot_size"`
	YearBuilt    int            `json:"year_built"`
	Stories      int            `json:"stories"`
	GarageSpaces int            `json:"garage_spaces"`
	Features     map[string]any `json:"features,omitempty"`
	Images       []SubmitImage  `json:"images"`
}

// SubmitListing runs the full submission: gate check, whole-payload
// validation, two-phase write, compensation on phase-2 failure, joined
// re-read, async audit event.
func (s *ListingService) SubmitListing(ctx context.Context, ownerID string, req SubmitListingRequest) (domain.Listing, error) {
	allowed, remaining, resetAt, err := s.gate.CheckAndConsume(ctx, ownerID)
	if err != nil {
		return domain.Listing{}, fmt.Errorf("submission gate: %w", err)
	}
	if !allowed {
		return domain.Listing{}, &domain.RateLimitError{Remaining: remaining, ResetAt: resetAt}
	}

	if violations := s.validateSubmission(req); len(violations) > 0 {
		return domain.Listing{}, &domain.ValidationError{Violations: violations}
	}

	listing := buildListing(ownerID, req)
	assets := buildAssets(req.Images)
	normalizePrimary(assets)

	id, err := s.repo.InsertListing(ctx, listing)
	if err != nil {
		commonlog.Errorf("insert listing for owner %s: %v", ownerID, err)
		return domain.Listing{}, domain.ErrRecordWrite
	}

	if err := s.repo.InsertImages(ctx, id, assets); err != nil {
		commonlog.Errorf("insert images for listing %d: %v", id, err)
		// detach from the request context: phase 2 may have failed because
		// the request was cancelled, and compensation must still run
		compCtx, cancel := context.WithTimeout(context.Background(), compensationTimeout)
		s.compensate(compCtx, id, assets)
		cancel()
		return domain.Listing{}, domain.ErrRecordWrite
	}

	full, err := s.repo.GetWithImages(ctx, id)
	if err != nil {
		return domain.Listing{}, fmt.Errorf("read back listing %d: %w", id, err)
	}

	s.publishAudit("listing.created", id, ownerID)
	return full, nil
}

// compensate reverses a failed phase 2: drop the phase-1 listing row, then
// fan out deletes of every object key referenced by the submission. Failures
// here are logged and queued in the pending-deletions outbox, never surfaced.
func (s *ListingService) compensate(ctx context.Context, listingID int64, assets []domain.ImageAsset) {
	if err := s.repo.DeleteListing(ctx, listingID); err != nil {
		commonlog.Errorf("compensation: delete listing row %d: %v", listingID, err)
	}
	for _, a := range assets {
		s.deleteRenditions(ctx, a.SourceKey)
	}
}

func (s *ListingService) deleteRenditions(ctx context.Context, sourceKey string) {
	for _, key := range RenditionKeys(sourceKey) {
		if err := s.store.Delete(ctx, key); err != nil {
			commonlog.Errorf("delete object %s: %v", key, err)
			if err := s.repo.AddPendingDeletion(ctx, key); err != nil {
				commonlog.Errorf("queue pending deletion %s: %v", key, err)
			}
		}
	}
}

func (s *ListingService) GetListing(ctx context.Context, id int64) (domain.Listing, error) {
	return s.repo.GetWithImages(ctx, id)
}

// DeleteListing removes the listing, its image rows, and the stored objects.
// Only the owner or an admin may delete.
func (s *ListingService) DeleteListing(ctx context.Context, actorID, role string, id int64) error {
	listing, err := s.repo.GetWithImages(ctx, id)
	if err != nil {
		return err
	}
	if listing.OwnerID != actorID && role != "admin" {
		return domain.ErrForbidden
	}
	if err := s.repo.DeleteListing(ctx, id); err != nil {
		return fmt.Errorf("delete listing %d: %w", id, err)
	}
	for _, a := range listing.Images {
		s.deleteRenditions(ctx, a.SourceKey)
	}
	s.publishAudit("listing.deleted", id, listing.OwnerID)
	return nil
}

// SweepPendingDeletions retries queued orphan-object deletes and clears the
// rows whose delete succeeded.
func (s *ListingService) SweepPendingDeletions(ctx context.Context, limit int) (retried, cleared int, err error) {
	if limit <= 0 {
		limit = defaultSweepLimit
	}
	pending, err := s.repo.ListPendingDeletions(ctx, limit)
	if err != nil {
		return 0, 0, err
	}
	for _, p := range pending {
		retried++
		if err := s.store.Delete(ctx, p.ObjectKey); err != nil {
			commonlog.Warnf("sweep: delete object %s: %v", p.ObjectKey, err)
			continue
		}
		if err := s.repo.RemovePendingDeletion(ctx, p.ID); err != nil {
			commonlog.Warnf("sweep: clear pending deletion %d: %v", p.ID, err)
			continue
		}
		cleared++
	}
	return retried, cleared, nil
}

func (s *ListingService) publishAudit(action string, listingID int64, ownerID string) {
	if s.events == nil {
		return
	}
	event := NewAuditEvent(action, listingID, ownerID)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), auditTimeout)
		defer cancel()
		if err := s.events.Publish(ctx, action, event); err != nil {
			commonlog.Warnf("publish audit event %s for listing %d: %v", action, listingID, err)
		}
	}()
}

func buildListing(ownerID string, req SubmitListingRequest) domain.Listing {
	status := domain.ListingStatus(req.Status)
	if status == "" {
		status = domain.StatusPending
	}
	return domain.Listing{
		OwnerID:      ownerID,
		Status:       status,
		Title:        req.Title,
		Description:  req.Description,
		Address:      req.Address,
		City:         req.City,
		State:        req.State,
		Zip:          req.Zip,
		Price:        req.Price,
		PropertyType: req.PropertyType,
		ListingType:  domain.ListingType(req.ListingType),
		Bedrooms:     domain.FactFromSentinel(req.Bedrooms),
		Bathrooms:    domain.FactFromSentinel(req.Bathrooms),
		SquareFeet:   domain.FactFromSentinel(req.SquareFeet),
		LotSize:      domain.FactFromSentinel(req.LotSize),
		YearBuilt:    domain.FactFromSentinel(req.YearBuilt),
		Stories:      domain.FactFromSentinel(req.Stories),
		GarageSpaces: domain.FactFromSentinel(req.GarageSpaces),
		Features:     req.Features,
	}
}

func buildAssets(images []SubmitImage) []domain.ImageAsset {
	assets := make([]domain.ImageAsset, 0, len(images))
	for _, img := range images {
		assets = append(assets, domain.ImageAsset{
			SourceKey:          img.Key,
			PrimaryURL:         img.URL,
			ThumbnailSmallURL:  img.ThumbnailSmallURL,
			ThumbnailMediumURL: img.ThumbnailMediumURL,
			ThumbnailLargeURL:  img.ThumbnailLargeURL,
			Width:              img.Width,
			Height:             img.Height,
			ByteSize:           img.ByteSize,
			MimeType:           img.MimeType,
			DisplayOrder:       img.DisplayOrder,
			IsPrimary:          img.IsPrimary,
			Caption:            img.Caption,
		})
	}
	return assets
}

// normalizePrimary guarantees exactly one primary asset. When the client
// marks zero or several, the lowest display order wins.
func normalizePrimary(assets []domain.ImageAsset) {
	if len(assets) == 0 {
		return
	}
	primaries := 0
	for _, a := range assets {
		if a.IsPrimary {
			primaries++
		}
	}
	if primaries == 1 {
		return
	}
	lowest := 0
	for i := range assets {
		assets[i].IsPrimary = false
		if assets[i].DisplayOrder < assets[lowest].DisplayOrder {
			lowest = i
		}
	}
	assets[lowest].IsPrimary = true
}

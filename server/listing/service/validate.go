package service

import (
	"fmt"
	"unicode/utf8"

	"listing_server/server/listing/domain"
)

// factRule pairs a sentinel-eligible field with its minimum for known
// values. -1 always passes; any other value below the minimum fails.
type factRule struct {
	field string
	value int
	min   int
}

func (s *ListingService) validateSubmission(req SubmitListingRequest) []domain.FieldViolation {
	var violations []domain.FieldViolation
	add := func(field, message string) {
		violations = append(violations, domain.FieldViolation{Field: field, Message: message})
	}

	// bounds are in characters, not bytes
	if l := utf8.RuneCountInString(req.Title); l < 10 || l > 200 {
		add("title", "must be between 10 and 200 characters")
	}
	if utf8.RuneCountInString(req.Description) < 50 {
		add("description", "must be at least 50 characters")
	}
	if l := utf8.RuneCountInString(req.Address); l < 5 || l > 255 {
		add("address", "must be between 5 and 255 characters")
	}
	if l := utf8.RuneCountInString(req.City); l < 2 || l > 100 {
		add("city", "must be between 2 and 100 characters")
	}
	if utf8.RuneCountInString(req.State) != 2 {
		add("state", "must be exactly 2 characters")
	}
	if l := utf8.RuneCountInString(req.Zip); l < 5 || l > 10 {
		add("zip", "must be between 5 and 10 characters")
	}
	if req.Price < 0 {
		add("price", "must not be negative")
	}

	switch domain.ListingType(req.ListingType) {
	case domain.ListingTypeSale, domain.ListingTypeRent:
	default:
		add("listing_type", "must be sale or rent")
	}

	// Moderation-only statuses may never be set through this entry point.
	switch domain.ListingStatus(req.Status) {
	case "", domain.StatusDraft, domain.StatusPending:
	default:
		add("status", "must be draft or pending")
	}

	maxYear := s.now().Year() + 2
	rules := []factRule{
		{field: "bedrooms", value: req.Bedrooms, min: 0},
		{field: "bathrooms", value: req.Bathrooms, min: 0},
		{field: "square_feet", value: req.SquareFeet, min: 1},
		{field: "lot_size", value: req.LotSize, min: 0},
		{field: "year_built", value: req.YearBuilt, min: minYearBuilt},
		{field: "stories", value: req.Stories, min: 0},
		{field: "garage_spaces", value: req.GarageSpaces, min: 0},
	}
	for _, r := range rules {
		if r.value == domain.FactUnknown {
			continue
		}
		if r.value < r.min {
			add(r.field, fmt.Sprintf("must be -1 or at least %d", r.min))
			continue
		}
		if r.field == "year_built" && r.value > maxYear {
			add(r.field, fmt.Sprintf("must be -1 or between %d and %d", minYearBuilt, maxYear))
		}
	}

	if l := len(req.Images); l < minImagesPerListing || l > maxImagesPerListing {
		add("images", fmt.Sprintf("must contain between %d and %d entries", minImagesPerListing, maxImagesPerListing))
	} else {
		for i, img := range req.Images {
			violations = append(violations, validateImageDescriptor(i, img)...)
		}
	}
	return violations
}

func validateImageDescriptor(index int, img SubmitImage) []domain.FieldViolation {
	var violations []domain.FieldViolation
	add := func(field, message string) {
		violations = append(violations, domain.FieldViolation{
			Field:   fmt.Sprintf("images[%d].%s", index, field),
			Message: message,
		})
	}

	if img.Key == "" {
		add("key", "must not be empty")
	}
	if img.URL == "" {
		add("url", "must not be empty")
	}
	if img.ThumbnailSmallURL == "" || img.ThumbnailMediumURL == "" || img.ThumbnailLargeURL == "" {
		add("thumbnail_urls", "all thumbnail urls must be present")
	}
	if img.Width < 0 || img.Height < 0 {
		add("dimensions", "must not be negative")
	}
	if img.ByteSize < 0 {
		add("byte_size", "must not be negative")
	}
	return violations
}

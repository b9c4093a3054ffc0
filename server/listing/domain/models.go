package domain

import (
	"encoding/json"
	"time"
)

type ListingStatus string

const (
	StatusDraft    ListingStatus = "draft"
	StatusPending  ListingStatus = "pending"
	StatusApproved ListingStatus = "approved"
	StatusRejected ListingStatus = "rejected"
	StatusSold     ListingStatus = "sold"
)

type ListingType string

const (
	ListingTypeSale ListingType = "sale"
	ListingTypeRent ListingType = "rent"
)

// FactUnknown is the wire sentinel for "not applicable / unknown" numeric
// facts. It is translated to Fact at the API boundary and back when
// serializing responses; nothing past the boundary compares against it.
const FactUnknown = -1

// Fact is a numeric property fact that may be unknown. The zero value is
// unknown.
type Fact struct {
	Known bool
	Value int
}

func KnownFact(v int) Fact {
	return Fact{Known: true, Value: v}
}

func FactFromSentinel(v int) Fact {
	if v == FactUnknown {
		return Fact{}
	}
	return Fact{Known: true, Value: v}
}

func (f Fact) Sentinel() int {
	if !f.Known {
		return FactUnknown
	}
	return f.Value
}

func (f Fact) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Sentinel())
}

func (f *Fact) UnmarshalJSON(b []byte) error {
	var v int
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = FactFromSentinel(v)
	return nil
}

type ImageAsset struct {
	ID                 int64     `json:"id"`
	ListingID          int64     `json:"listing_id"`
	SourceKey          string    `json:"key"`
	PrimaryURL         string    `json:"url"`
	ThumbnailSmallURL  string    `json:"thumbnail_small_url"`
	ThumbnailMediumURL string    `json:"thumbnail_medium_url"`
	ThumbnailLargeURL  string    `json:"thumbnail_large_url"`
	Width              int       `json:"width"`
	Height             int       `json:"height"`
	ByteSize           int64     `json:"byte_size"`
	MimeType           string    `json:"mime_type"`
	DisplayOrder       int       `json:"display_order"`
	IsPrimary          bool      `json:"is_primary"`
	Caption            string    `json:"caption,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

type Listing struct {
	ID           int64          `json:"id"`
	OwnerID      string         `json:"owner_id"`
	Status       ListingStatus  `json:"status"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Address      string         `json:"address"`
	City         string         `json:"city"`
	State        string         `json:"state"`
	Zip          string         `json:"zip"`
	Price        int64          `json:"price"`
	PropertyType string         `json:"property_type"`
	ListingType  ListingType    `json:"listing_type"`
	Bedrooms     Fact           `json:"bedrooms"`
	Bathrooms    Fact           `json:"bathrooms"`
	SquareFeet   Fact           `json:"square_feet"`
	LotSize      Fact           `json:"lot_size"`
	YearBuilt    Fact           `json:"year_built"`
	Stories      Fact           `json:"stories"`
	GarageSpaces Fact           `json:"garage_spaces"`
	Features     map[string]any `json:"features,omitempty"`
	Images       []ImageAsset   `json:"images"`
	CreatedAt    time.Time      `json:"created_at"`
}

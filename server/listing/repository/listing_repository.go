package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"listing_server/server/listing/domain"
)

type ListingRepository struct {
	pool *pgxpool.Pool
}

func NewListingRepository(pool *pgxpool.Pool) *ListingRepository {
	return &ListingRepository{pool: pool}
}

func (r *ListingRepository) InsertListing(ctx context.Context, l domain.Listing) (int64, error) {
	features, err := json.Marshal(l.Features)
	if err != nil {
		return 0, err
	}
	var id int64
	err = r.pool.QueryRow(ctx, `
		INSERT INTO listings(owner_id, status, title, description, address, city, state, zip,
			price, property_type, listing_type, bedrooms, bathrooms, square_feet, lot_size,
			year_built, stories, garage_spaces, features)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING id
	`, l.OwnerID, l.Status, l.Title, l.Description, l.Address, l.City, l.State, l.Zip,
		l.Price, l.PropertyType, l.ListingType, factParam(l.Bedrooms), factParam(l.Bathrooms),
		factParam(l.SquareFeet), factParam(l.LotSize), factParam(l.YearBuilt),
		factParam(l.Stories), factParam(l.GarageSpaces), features).Scan(&id)
	return id, err
}

func (r *ListingRepository) InsertImages(ctx context.Context, listingID int64, assets []domain.ImageAsset) error {
	for _, a := range assets {
		_, err := r.pool.Exec(ctx, `
			INSERT INTO listing_images(listing_id, source_key, primary_url, thumbnail_small_url,
				thumbnail_medium_url, thumbnail_large_url, width, height, byte_size, mime_type,
				display_order, is_primary, caption)
			VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		`, listingID, a.SourceKey, a.PrimaryURL, a.ThumbnailSmallURL, a.ThumbnailMediumURL,
			a.ThumbnailLargeURL, a.Width, a.Height, a.ByteSize, a.MimeType,
			a.DisplayOrder, a.IsPrimary, a.Caption)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *ListingRepository) DeleteListing(ctx context.Context, id int64) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM listing_images WHERE listing_id=$1`, id); err != nil {
		return err
	}
	_, err := r.pool.Exec(ctx, `DELETE FROM listings WHERE id=$1`, id)
	return err
}

func (r *ListingRepository) GetWithImages(ctx context.Context, id int64) (domain.Listing, error) {
	var (
		l        domain.Listing
		features []byte
		bedrooms, bathrooms, squareFeet, lotSize,
		yearBuilt, stories, garageSpaces *int
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, owner_id, status, title, description, address, city, state, zip,
			price, property_type, listing_type, bedrooms, bathrooms, square_feet, lot_size,
			year_built, stories, garage_spaces, features, created_at
		FROM listings
		WHERE id=$1
	`, id).Scan(&l.ID, &l.OwnerID, &l.Status, &l.Title, &l.Description, &l.Address, &l.City,
		&l.State, &l.Zip, &l.Price, &l.PropertyType, &l.ListingType, &bedrooms, &bathrooms,
		&squareFeet, &lotSize, &yearBuilt, &stories, &garageSpaces, &features, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Listing{}, domain.ErrNotFound
		}
		return domain.Listing{}, err
	}

	l.Bedrooms = factFromColumn(bedrooms)
	l.Bathrooms = factFromColumn(bathrooms)
	l.SquareFeet = factFromColumn(squareFeet)
	l.LotSize = factFromColumn(lotSize)
	l.YearBuilt = factFromColumn(yearBuilt)
	l.Stories = factFromColumn(stories)
	l.GarageSpaces = factFromColumn(garageSpaces)
	if len(features) > 0 {
		if err := json.Unmarshal(features, &l.Features); err != nil {
			return domain.Listing{}, err
		}
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, listing_id, source_key, primary_url, thumbnail_small_url, thumbnail_medium_url,
			thumbnail_large_url, width, height, byte_size, mime_type, display_order, is_primary,
			caption, created_at
		FROM listing_images
		WHERE listing_id=$1
		ORDER BY display_order, id
	`, id)
	if err != nil {
		return domain.Listing{}, err
	}
	defer rows.Close()

	l.Images = make([]domain.ImageAsset, 0)
	for rows.Next() {
		var a domain.ImageAsset
		if err := rows.Scan(&a.ID, &a.ListingID, &a.SourceKey, &a.PrimaryURL, &a.ThumbnailSmallURL,
			&a.ThumbnailMediumURL, &a.ThumbnailLargeURL, &a.Width, &a.Height, &a.ByteSize,
			&a.MimeType, &a.DisplayOrder, &a.IsPrimary, &a.Caption, &a.CreatedAt); err != nil {
			return domain.Listing{}, err
		}
		l.Images = append(l.Images, a)
	}
	return l, rows.Err()
}

type PendingDeletion struct {
	ID        int64
	ObjectKey string
	CreatedAt time.Time
}

func (r *ListingRepository) AddPendingDeletion(ctx context.Context, objectKey string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO pending_deletions(object_key) VALUES($1)
	`, objectKey)
	return err
}

func (r *ListingRepository) ListPendingDeletions(ctx context.Context, limit int) ([]PendingDeletion, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, object_key, created_at
		FROM pending_deletions
		ORDER BY id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]PendingDeletion, 0)
	for rows.Next() {
		var p PendingDeletion
		if err := rows.Scan(&p.ID, &p.ObjectKey, &p.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (r *ListingRepository) RemovePendingDeletion(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM pending_deletions WHERE id=$1`, id)
	return err
}

func factParam(f domain.Fact) *int {
	if !f.Known {
		return nil
	}
	v := f.Value
	return &v
}

func factFromColumn(v *int) domain.Fact {
	if v == nil {
		return domain.Fact{}
	}
	return domain.KnownFact(*v)
}

package services

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"canteen-service/cache"
	"canteen-service/models"
)

const (
	listVendorsQuery     = `SELECT name, stall_name FROM vendors WHERE Status = 'Approved'`
	listVendorItemsQuery = "SELECT item_name, item_image, Price, vendor_username, Category FROM items WHERE vendor_username = ?"
	categoryFilter       = " AND BINARY Category = ?"
	listAllItemsQuery    = "SELECT item_name, item_image, Price, vendor_username, Category FROM items"
	searchItemsQuery     = "SELECT item_name, item_image, Price, vendor_username, Category FROM items WHERE item_name LIKE ?"
	categoryItemsQuery   = "SELECT item_name, item_image, Price, vendor_username, Category FROM items WHERE LOWER(vendor_username) = LOWER(?) AND LOWER(Category) = LOWER(?)"
)

// CatalogService serves the read-only vendor and item listings.
type CatalogService struct {
	db    *sql.DB
	cache cache.CatalogCache
}

// NewCatalogService returns a catalog backed by db. c may be nil.
func NewCatalogService(db *sql.DB, c cache.CatalogCache) *CatalogService {
	return &CatalogService{db: db, cache: c}
}

func (s *CatalogService) ListVendors(ctx context.Context) ([]models.Vendor, error) {
	vendors := make([]models.Vendor, 0)
	if s.fromCache(ctx, "vendors", &vendors) {
		return vendors, nil
	}

	rows, err := s.db.QueryContext(ctx, listVendorsQuery)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabase, err)
	}
	defer rows.Close()

	for rows.Next() {
		var v models.Vendor
		var stall sql.NullString
		if err := rows.Scan(&v.Name, &stall); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDatabase, err)
		}
		v.StallName = stall.String
		vendors = append(vendors, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabase, err)
	}

	s.toCache(ctx, "vendors", vendors)
	return vendors, nil
}

// ListItems returns a vendor's items. A non-empty category is matched case
// sensitively.
func (s *CatalogService) ListItems(ctx context.Context, vendor, category string) ([]models.Item, error) {
	key := fmt.Sprintf("items:%q|%q", vendor, category)
	items := make([]models.Item, 0)
	if s.fromCache(ctx, key, &items) {
		return items, nil
	}

	query, args := listVendorItemsQuery, []any{vendor}
	if category != "" {
		query += categoryFilter
		args = append(args, category)
	}

	items, err := s.queryItems(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	s.toCache(ctx, key, items)
	return items, nil
}

// ListCategoryItems returns a vendor's items in one category. Vendor and
// category both match regardless of case.
func (s *CatalogService) ListCategoryItems(ctx context.Context, vendor, category string) ([]models.Item, error) {
	key := fmt.Sprintf("category:%q|%q", strings.ToLower(vendor), strings.ToLower(category))
	items := make([]models.Item, 0)
	if s.fromCache(ctx, key, &items) {
		return items, nil
	}

	items, err := s.queryItems(ctx, categoryItemsQuery, vendor, category)
	if err != nil {
		return nil, err
	}
	s.toCache(ctx, key, items)
	return items, nil
}

func (s *CatalogService) ListAllItems(ctx context.Context) ([]models.Item, error) {
	items := make([]models.Item, 0)
	if s.fromCache(ctx, "items", &items) {
		return items, nil
	}

	items, err := s.queryItems(ctx, listAllItemsQuery)
	if err != nil {
		return nil, err
	}
	s.toCache(ctx, "items", items)
	return items, nil
}

// Search matches item names containing query. Results are not cached.
func (s *CatalogService) Search(ctx context.Context, query string) ([]models.Item, error) {
	return s.queryItems(ctx, searchItemsQuery, "%"+query+"%")
}

func (s *CatalogService) queryItems(ctx context.Context, query string, args ...any) ([]models.Item, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabase, err)
	}
	defer rows.Close()

	items := make([]models.Item, 0)
	for rows.Next() {
		var (
			item     models.Item
			image    []byte
			category sql.NullString
		)
		if err := rows.Scan(&item.ItemName, &image, &item.Price, &item.VendorUsername, &category); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDatabase, err)
		}
		item.ItemImage = ImageDataURI(image)
		item.Category = category.String
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabase, err)
	}
	return items, nil
}

// ImageDataURI encodes a stored JPEG blob for direct use by the client.
func ImageDataURI(image []byte) *string {
	if len(image) == 0 {
		return nil
	}
	uri := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image)
	return &uri
}

func (s *CatalogService) fromCache(ctx context.Context, key string, dest any) bool {
	if s.cache == nil {
		return false
	}
	err := s.cache.Get(ctx, key, dest)
	if err == nil {
		return true
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		slog.Warn("catalog cache read failed", "key", key, "error", err)
	}
	return false
}

func (s *CatalogService) toCache(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value); err != nil {
		slog.Warn("catalog cache write failed", "key", key, "error", err)
	}
}

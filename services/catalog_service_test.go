package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"canteen-service/cache"
	"canteen-service/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockCatalog(t *testing.T, withCache bool) (*CatalogService, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	var c cache.CatalogCache
	if withCache {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { client.Close() })
		c = cache.NewRedisCache(client, time.Minute)
	}
	return NewCatalogService(db, c), mock
}

var itemColumns = []string{"item_name", "item_image", "Price", "vendor_username", "Category"}

func TestListVendors_CachesResult(t *testing.T) {
	svc, mock := newMockCatalog(t, true)

	mock.ExpectQuery(listVendorsQuery).
		WillReturnRows(sqlmock.NewRows([]string{"name", "stall_name"}).
			AddRow("StallA", "Ate Nena's").
			AddRow("StallB", nil))

	first, err := svc.ListVendors(context.Background())
	require.NoError(t, err)
	second, err := svc.ListVendors(context.Background())
	require.NoError(t, err)

	want := []models.Vendor{{Name: "StallA", StallName: "Ate Nena's"}, {Name: "StallB"}}
	assert.Equal(t, want, first)
	assert.Equal(t, want, second)
	// second call is served from redis
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListItems_CategoryFilter(t *testing.T) {
	svc, mock := newMockCatalog(t, false)

	mock.ExpectQuery(listVendorItemsQuery+categoryFilter).WithArgs("StallA", "Drinks").
		WillReturnRows(sqlmock.NewRows(itemColumns).
			AddRow("Juice", []byte{0xff, 0xd8}, 20.0, "StallA", "Drinks"))

	items, err := svc.ListItems(context.Background(), "StallA", "Drinks")

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Juice", items[0].ItemName)
	require.NotNil(t, items[0].ItemImage)
	assert.Equal(t, "data:image/jpeg;base64,/9g=", *items[0].ItemImage)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListItems_NoCategory(t *testing.T) {
	svc, mock := newMockCatalog(t, false)

	mock.ExpectQuery(listVendorItemsQuery).WithArgs("StallA").
		WillReturnRows(sqlmock.NewRows(itemColumns).
			AddRow("Rice Meal", nil, 50.0, "StallA", nil))

	items, err := svc.ListItems(context.Background(), "StallA", "")

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Nil(t, items[0].ItemImage)
	assert.Empty(t, items[0].Category)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListItems_CacheKeysDoNotCollide(t *testing.T) {
	svc, mock := newMockCatalog(t, true)

	mock.ExpectQuery(listVendorItemsQuery).WithArgs("a:b").
		WillReturnRows(sqlmock.NewRows(itemColumns).AddRow("Turon", nil, 15.0, "a:b", nil))
	mock.ExpectQuery(listVendorItemsQuery+categoryFilter).WithArgs("a", "b:").
		WillReturnRows(sqlmock.NewRows(itemColumns))

	first, err := svc.ListItems(context.Background(), "a:b", "")
	require.NoError(t, err)
	second, err := svc.ListItems(context.Background(), "a", "b:")
	require.NoError(t, err)

	assert.Len(t, first, 1)
	assert.Empty(t, second)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListCategoryItems_IgnoresCase(t *testing.T) {
	svc, mock := newMockCatalog(t, true)

	mock.ExpectQuery(categoryItemsQuery).WithArgs("stalla", "drinks").
		WillReturnRows(sqlmock.NewRows(itemColumns).
			AddRow("Juice", nil, 20.0, "StallA", "Drinks"))

	first, err := svc.ListCategoryItems(context.Background(), "stalla", "drinks")
	require.NoError(t, err)
	// same vendor and category in other case is served from redis
	second, err := svc.ListCategoryItems(context.Background(), "StallA", "DRINKS")
	require.NoError(t, err)

	want := []models.Item{{ItemName: "Juice", Price: 20, VendorUsername: "StallA", Category: "Drinks"}}
	assert.Equal(t, want, first)
	assert.Equal(t, want, second)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSearch(t *testing.T) {
	svc, mock := newMockCatalog(t, false)

	mock.ExpectQuery(searchItemsQuery).WithArgs("%rice%").
		WillReturnRows(sqlmock.NewRows(itemColumns))

	items, err := svc.Search(context.Background(), "rice")

	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListAllItems_DatabaseError(t *testing.T) {
	svc, mock := newMockCatalog(t, false)

	mock.ExpectQuery(listAllItemsQuery).WillReturnError(errors.New("gone away"))

	_, err := svc.ListAllItems(context.Background())

	assert.ErrorIs(t, err, ErrDatabase)
	require.NoError(t, mock.ExpectationsWereMet())
}

package services

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	apperrors "github.com/yashrajoria/grocery-backend/common/errors"
	"github.com/yashrajoria/grocery-backend/models"
	"github.com/yashrajoria/grocery-backend/repository"
)

// unreachableRedis returns a client whose every command fails fast, so the
// cache always misses.
func unreachableRedis() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: "unreachable:6379",
		Dialer: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return nil, errors.New("redis disabled in tests")
		},
		MaxRetries: -1,
	})
}

func TestParseItemQuery(t *testing.T) {
	f, err := ParseItemQuery(ItemQuery{Category: "Fruit", MinPrice: "1.5", MaxPrice: "10", SortBy: "price:desc"})
	require.NoError(t, err)
	assert.Equal(t, "Fruit", f.Category)
	assert.Equal(t, 1.5, *f.MinPrice)
	assert.Equal(t, 10.0, *f.MaxPrice)
	assert.Equal(t, "price", f.SortField)
	assert.True(t, f.SortDesc)

	f, err = ParseItemQuery(ItemQuery{SortBy: "name"})
	require.NoError(t, err)
	assert.False(t, f.SortDesc)
	assert.Nil(t, f.MinPrice)

	bad := []ItemQuery{
		{Category: "Candy"},
		{MinPrice: "cheap"},
		{MaxPrice: "1,5"},
		{SortBy: "password:asc"},
		{SortBy: "price:sideways"},
	}
	for _, q := range bad {
		_, err := ParseItemQuery(q)
		assert.True(t, apperrors.HasCode(err, http.StatusBadRequest), "%+v", q)
	}
}

func TestCatalogGet(t *testing.T) {
	ctx := context.Background()
	apple := &models.Item{Name: "Apple", Category: models.CategoryFruit, StockQuantity: 3}
	svc := NewCatalogService(newMemItems(apple), nil, zap.NewNop())

	item, err := svc.Get(ctx, apple.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "Apple", item.Name)

	_, err = svc.Get(ctx, "nope")
	assert.True(t, apperrors.HasCode(err, http.StatusBadRequest))

	_, err = svc.Get(ctx, primitive.NewObjectID().Hex())
	assert.True(t, apperrors.HasCode(err, http.StatusNotFound))
}

func TestCatalogListFallsBackWhenCacheDown(t *testing.T) {
	ctx := context.Background()
	items := newMemItems(
		&models.Item{Name: "Apple", Category: models.CategoryFruit},
		&models.Item{Name: "Carrot", Category: models.CategoryVegetable},
	)
	cache := NewCacheManager(unreachableRedis(), time.Minute, zap.NewNop())
	svc := NewCatalogService(items, cache, zap.NewNop())

	list, err := svc.List(ctx, ItemQuery{Category: models.CategoryVegetable})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Carrot", list[0].Name)

	_, err = svc.List(ctx, ItemQuery{Category: "Candy"})
	assert.Error(t, err)

	assert.Error(t, svc.Invalidate(ctx))
}

func TestCatalogInvalidateWithoutCache(t *testing.T) {
	svc := NewCatalogService(newMemItems(), nil, zap.NewNop())
	assert.NoError(t, svc.Invalidate(context.Background()))
}

func TestCacheKeys(t *testing.T) {
	min := 2.5
	f := repository.ItemFilter{Category: "Fruit", MinPrice: &min, SortField: "price", SortDesc: true}

	assert.Equal(t, "items:v:3:list:c:Fruit:min:2.5:max::s:price:true", listCacheKey(3, f))
	assert.Equal(t, "items:v:3:detail:abc", itemCacheKey(3, "abc"))
	assert.NotEqual(t, listCacheKey(3, f), listCacheKey(4, f))
}

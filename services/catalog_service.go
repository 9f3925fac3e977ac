package services

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/yashrajoria/grocery-backend/common/errors"
	"github.com/yashrajoria/grocery-backend/models"
	"github.com/yashrajoria/grocery-backend/repository"
)

// sortableFields maps accepted sortBy names to stored field names.
var sortableFields = map[string]string{
	"name":          "name",
	"price":         "price",
	"stockQuantity": "stockQuantity",
	"category":      "category",
	"createdAt":     "createdAt",
	"updatedAt":     "updatedAt",
}

// ItemQuery holds the raw catalog query parameters.
type ItemQuery struct {
	Category string
	MinPrice string
	MaxPrice string
	SortBy   string
}

// ParseItemQuery validates q and turns it into a store filter.
func ParseItemQuery(q ItemQuery) (repository.ItemFilter, error) {
	var f repository.ItemFilter

	if q.Category != "" {
		if !models.IsValidCategory(q.Category) {
			return f, apperrors.Validation("Invalid category")
		}
		f.Category = q.Category
	}

	var err error
	if f.MinPrice, err = parsePrice(q.MinPrice, "minPrice"); err != nil {
		return f, err
	}
	if f.MaxPrice, err = parsePrice(q.MaxPrice, "maxPrice"); err != nil {
		return f, err
	}

	if q.SortBy != "" {
		field, dir, _ := strings.Cut(q.SortBy, ":")
		stored, ok := sortableFields[field]
		if !ok {
			return f, apperrors.Validation("Invalid sort field")
		}
		switch dir {
		case "", "asc":
		case "desc":
			f.SortDesc = true
		default:
			return f, apperrors.Validation("Invalid sort order")
		}
		f.SortField = stored
	}

	return f, nil
}

func parsePrice(raw, name string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, apperrors.Validation("Invalid " + name)
	}
	return &v, nil
}

type CatalogService struct {
	items  repository.ItemRepository
	cache  *CacheManager
	logger *zap.Logger
}

// NewCatalogService builds the catalog reader. cache may be nil.
func NewCatalogService(items repository.ItemRepository, cache *CacheManager, log *zap.Logger) *CatalogService {
	return &CatalogService{items: items, cache: cache, logger: log}
}

func (s *CatalogService) List(ctx context.Context, q ItemQuery) ([]models.Item, error) {
	f, err := ParseItemQuery(q)
	if err != nil {
		return nil, err
	}

	var version int64
	if s.cache != nil {
		var items []models.Item
		var hit bool
		if items, version, hit = s.cache.GetItemList(ctx, f); hit {
			return items, nil
		}
	}

	items, err := s.items.Find(ctx, f)
	if err != nil {
		return nil, apperrors.Internal("Error fetching items", err)
	}

	if s.cache != nil {
		s.cache.SetItemListAsync(version, f, items)
	}
	return items, nil
}

func (s *CatalogService) Get(ctx context.Context, rawID string) (*models.Item, error) {
	id, err := ParseID(rawID, "item")
	if err != nil {
		return nil, err
	}

	var version int64
	if s.cache != nil {
		var cached *models.Item
		var hit bool
		if cached, version, hit = s.cache.GetItem(ctx, rawID); hit {
			return cached, nil
		}
	}

	item, err := s.items.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("Item not found")
		}
		return nil, apperrors.Internal("Error fetching item", err)
	}

	if s.cache != nil {
		s.cache.SetItemAsync(version, rawID, item)
	}
	return item, nil
}

// Invalidate drops cached catalog reads after stock changes.
func (s *CatalogService) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx)
}

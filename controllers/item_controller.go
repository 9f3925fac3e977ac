package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yashrajoria/grocery-backend/models"
	"github.com/yashrajoria/grocery-backend/services"
)

type CatalogService interface {
	List(ctx context.Context, q services.ItemQuery) ([]models.Item, error)
	Get(ctx context.Context, rawID string) (*models.Item, error)
}

type ItemController struct {
	Catalog CatalogService
}

func NewItemController(catalog CatalogService) *ItemController {
	return &ItemController{Catalog: catalog}
}

// GetItems lists the catalog.
// GET /api/items?category=Fruit&minPrice=1&maxPrice=5&sortBy=price:desc
func (ic *ItemController) GetItems(c *gin.Context) {
	q := services.ItemQuery{
		Category: c.Query("category"),
		MinPrice: c.Query("minPrice"),
		MaxPrice: c.Query("maxPrice"),
		SortBy:   c.Query("sortBy"),
	}

	items, err := ic.Catalog.List(c.Request.Context(), q)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if items == nil {
		items = []models.Item{}
	}

	c.JSON(http.StatusOK, items)
}

func (ic *ItemController) GetItem(c *gin.Context) {
	item, err := ic.Catalog.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, item)
}

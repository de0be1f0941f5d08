package ordering

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/foodorderpro/food-bot/internal/models"
)

// NewItem is the operator input for a menu item.
type NewItem struct {
	Name        string `json:"name"`
	Price       int64  `json:"price"`
	Description string `json:"description"`
	ImagePath   string `json:"image_path"`
}

// Catalog reads the menu and lets operators edit it.
type Catalog struct {
	store Store
	now   func() time.Time
}

func NewCatalog(store Store) *Catalog {
	return &Catalog{store: store, now: time.Now}
}

func (c *Catalog) Categories(ctx context.Context) ([]models.Category, error) {
	return c.store.Categories(ctx)
}

func (c *Catalog) Category(ctx context.Context, categoryID string) (*models.Category, error) {
	categories, err := c.store.Categories(ctx)
	if err != nil {
		return nil, err
	}
	for i := range categories {
		if categories[i].ID == categoryID {
			return &categories[i], nil
		}
	}
	return nil, ErrCategoryNotFound
}

func (c *Catalog) Item(ctx context.Context, categoryID, itemID string) (*models.MenuItem, error) {
	return c.store.Item(ctx, categoryID, itemID)
}

// AddItem validates in and stores it under a fresh time-derived id.
func (c *Catalog) AddItem(ctx context.Context, categoryID string, in NewItem) (models.MenuItem, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.MenuItem{}, fmt.Errorf("%w: name is required", ErrInvalidItem)
	}
	if in.Price < 0 {
		return models.MenuItem{}, fmt.Errorf("%w: price must not be negative", ErrInvalidItem)
	}

	now := c.now()
	item := models.MenuItem{
		ID:          NewItemID(now),
		Name:        name,
		Price:       in.Price,
		Description: strings.TrimSpace(in.Description),
		ImagePath:   strings.TrimSpace(in.ImagePath),
		CreatedAt:   now,
	}
	if err := c.store.AddItem(ctx, categoryID, item); err != nil {
		return models.MenuItem{}, err
	}
	return item, nil
}

func (c *Catalog) DeleteItem(ctx context.Context, categoryID, itemID string) error {
	deleted, err := c.store.DeleteItem(ctx, categoryID, itemID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrItemNotFound
	}
	return nil
}

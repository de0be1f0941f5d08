package ordering

import (
	"context"

	"github.com/foodorderpro/food-bot/internal/models"
)

// Store is the persistence the core depends on. Implementations wrap I/O
// failures with ErrStoreUnavailable.
type Store interface {
	Settings(ctx context.Context) (models.Settings, error)

	// Categories returns every category with its items, ordered by position.
	Categories(ctx context.Context) ([]models.Category, error)
	// Item returns ErrCategoryNotFound or ErrItemNotFound when absent.
	Item(ctx context.Context, categoryID, itemID string) (*models.MenuItem, error)
	// AddItem returns ErrCategoryNotFound when the category is unknown.
	AddItem(ctx context.Context, categoryID string, item models.MenuItem) error
	DeleteItem(ctx context.Context, categoryID, itemID string) (bool, error)

	CreateOrder(ctx context.Context, order *models.Order) error
	// Order returns ErrOrderNotFound when absent.
	Order(ctx context.Context, orderID string) (*models.Order, error)
	// UpdateOrder applies fn to the current order inside one transaction and
	// persists the result unless fn fails.
	UpdateOrder(ctx context.Context, orderID string, fn func(*models.Order) error) (*models.Order, error)
	// UpdateOrders is UpdateOrder over a set in one transaction. Unknown ids
	// are skipped; the updated orders are returned in input order.
	UpdateOrders(ctx context.Context, orderIDs []string, fn func(*models.Order) error) ([]models.Order, error)
	ListOrders(ctx context.Context) ([]models.Order, error)
	UserOrders(ctx context.Context, userID int64) ([]models.Order, error)

	Favorites(ctx context.Context, userID int64) ([]models.Favorite, error)
	// AddFavorite inserts fav unless the user already has its id.
	AddFavorite(ctx context.Context, userID int64, fav models.Favorite) (bool, error)
	RemoveFavorite(ctx context.Context, userID int64, favoriteID string) (bool, error)
	ClearFavorites(ctx context.Context, userID int64) error
}

// Publisher receives order lifecycle events.
type Publisher interface {
	PublishOrderEvent(ctx context.Context, event models.OrderEvent) error
}

type nopPublisher struct{}

func (nopPublisher) PublishOrderEvent(context.Context, models.OrderEvent) error { return nil }

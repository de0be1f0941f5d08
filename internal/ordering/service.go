package ordering

import (
	"context"

	"go.uber.org/zap"

	"github.com/foodorderpro/food-bot/internal/models"
)

const defaultHistoryLimit = 10

type Config struct {
	Policy       Policy
	HistoryLimit int
}

// Service is what the presentation layer talks to. It owns the per-user
// state for the life of the process.
type Service struct {
	Cart      *Cart
	Orders    *Ledger
	Favorites *Favorites
	Catalog   *Catalog

	historyLimit int
}

// CartView is the cart as shown to the user.
type CartView struct {
	Lines       []models.CartLine
	Total       int64
	ActiveTable string
}

// CheckoutResult is a placed order plus the size of the check it joined.
type CheckoutResult struct {
	Order         *models.Order
	OrdersInCheck int
	CheckTotal    int64
}

func NewService(store Store, publisher Publisher, cfg Config, logger *zap.Logger) *Service {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	cart := NewCart()
	return &Service{
		Cart:         cart,
		Orders:       NewLedger(store, cart, publisher, cfg.Policy, logger.Named("ledger")),
		Favorites:    NewFavorites(store, cart, logger.Named("favorites")),
		Catalog:      NewCatalog(store),
		historyLimit: cfg.HistoryLimit,
	}
}

func (s *Service) CartView(userID int64) CartView {
	lines := s.Cart.Snapshot(userID)
	table, _ := s.Cart.ActiveTable(userID)
	return CartView{Lines: lines, Total: Total(lines), ActiveTable: table}
}

// AddMenuItem puts one unit of a menu item into the cart.
func (s *Service) AddMenuItem(ctx context.Context, userID int64, categoryID, itemID string) (models.CartLine, error) {
	item, err := s.Catalog.Item(ctx, categoryID, itemID)
	if err != nil {
		return models.CartLine{}, err
	}
	return s.Cart.AddLine(userID, MenuLineKey(categoryID, itemID), item.Name, item.Price), nil
}

// RemoveMenuItem takes one unit of a menu item out of the cart.
func (s *Service) RemoveMenuItem(userID int64, categoryID, itemID string) RemoveResult {
	return s.Cart.RemoveOne(userID, MenuLineKey(categoryID, itemID))
}

// KnownContact returns contact info that can be reused without asking: the
// active table of a dine-in user.
func (s *Service) KnownContact(userID int64, orderType models.OrderType) (string, bool) {
	if orderType != models.OrderTypeDineIn {
		return "", false
	}
	return s.Cart.ActiveTable(userID)
}

// Checkout places the user's cart as an order and empties the cart.
func (s *Service) Checkout(ctx context.Context, userID int64, contactInfo string, orderType models.OrderType) (CheckoutResult, error) {
	order, err := s.Orders.CreateOrder(ctx, userID, s.Cart.Snapshot(userID), contactInfo, orderType)
	if err != nil {
		return CheckoutResult{}, err
	}
	s.Cart.Clear(userID)

	result := CheckoutResult{Order: order, OrdersInCheck: 1, CheckTotal: order.Total}
	checks, err := s.Orders.OpenChecks(ctx, userID, orderType)
	if err != nil {
		return result, nil
	}
	for _, c := range checks {
		if c.ContactInfo == order.ContactInfo {
			result.OrdersInCheck = len(c.OrderIDs)
			result.CheckTotal = c.Total
		}
	}
	return result, nil
}

func (s *Service) History(ctx context.Context, userID int64) ([]models.Order, error) {
	return s.Orders.History(ctx, userID, s.historyLimit)
}

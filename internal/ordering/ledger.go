package ordering

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/foodorderpro/food-bot/internal/models"
)

const paymentMethodCash = "cash"

// Ledger turns carts into orders, groups open orders into checks and applies
// payment and status changes.
type Ledger struct {
	store     Store
	cart      *Cart
	publisher Publisher
	policy    Policy
	logger    *zap.Logger
	now       func() time.Time
}

// PaymentResult describes a batch payment.
type PaymentResult struct {
	Paid        []string
	AlreadyPaid []string
	Missing     []string
	// Total sums the totals of every order that exists, paid now or before.
	Total int64
}

// Stats aggregates all orders for the operator.
type Stats struct {
	Orders     int                   `json:"orders"`
	PaidOrders int                   `json:"paid_orders"`
	Revenue    int64                 `json:"revenue"`
	ByStatus   map[models.Status]int `json:"by_status"`
}

func NewLedger(store Store, cart *Cart, publisher Publisher, policy Policy, logger *zap.Logger) *Ledger {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	return &Ledger{
		store:     store,
		cart:      cart,
		publisher: publisher,
		policy:    policy,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateOrder persists a new order from a copy of lines. The cart itself is
// left untouched.
func (l *Ledger) CreateOrder(ctx context.Context, userID int64, lines []models.CartLine, contactInfo string, orderType models.OrderType) (*models.Order, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	if _, err := models.ParseOrderType(string(orderType)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOrderType, err)
	}
	contactInfo = strings.TrimSpace(contactInfo)
	if contactInfo == "" {
		return nil, ErrMissingContactInfo
	}

	total := Total(lines)
	if orderType == models.OrderTypeDelivery {
		settings, err := l.store.Settings(ctx)
		if err != nil {
			return nil, err
		}
		if l.policy.EnforceMinOrder && total < settings.MinOrder {
			return nil, fmt.Errorf("%w: %d < %d", ErrBelowMinOrder, total, settings.MinOrder)
		}
		total += settings.DeliveryFee
	}

	order := &models.Order{
		ID:            newOrderID(),
		UserID:        userID,
		Items:         append([]models.CartLine(nil), lines...),
		Total:         total,
		ContactInfo:   contactInfo,
		OrderType:     orderType,
		Status:        models.StatusNew,
		PaymentMethod: paymentMethodCash,
		CreatedAt:     l.now(),
	}
	if err := l.store.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	if orderType == models.OrderTypeDineIn {
		l.cart.SetActiveTable(userID, contactInfo)
	}

	l.logger.Info("Order created",
		zap.String("order_id", order.ID),
		zap.Int64("user_id", userID),
		zap.String("order_type", string(orderType)),
		zap.Int64("total", total))
	l.publish(ctx, models.EventOrderCreated, order)

	return order, nil
}

func (l *Ledger) Order(ctx context.Context, orderID string) (*models.Order, error) {
	return l.store.Order(ctx, orderID)
}

// UserOrders returns all orders of the user in no particular order.
func (l *Ledger) UserOrders(ctx context.Context, userID int64) ([]models.Order, error) {
	return l.store.UserOrders(ctx, userID)
}

// History returns at most limit of the user's orders, newest first.
func (l *Ledger) History(ctx context.Context, userID int64, limit int) ([]models.Order, error) {
	orders, err := l.store.UserOrders(ctx, userID)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(orders)
	if limit > 0 && len(orders) > limit {
		orders = orders[:limit]
	}
	return orders, nil
}

// AllOrders returns every order, newest first, optionally only those in status.
func (l *Ledger) AllOrders(ctx context.Context, status models.Status) ([]models.Order, error) {
	orders, err := l.store.ListOrders(ctx)
	if err != nil {
		return nil, err
	}
	if status != "" {
		filtered := orders[:0]
		for _, o := range orders {
			if o.Status == status {
				filtered = append(filtered, o)
			}
		}
		orders = filtered
	}
	sortNewestFirst(orders)
	return orders, nil
}

// OpenChecks groups the user's new orders of orderType by contact info.
// Checks come in the order their first order was placed.
func (l *Ledger) OpenChecks(ctx context.Context, userID int64, orderType models.OrderType) ([]models.Check, error) {
	orders, err := l.store.UserOrders(ctx, userID)
	if err != nil {
		return nil, err
	}

	open := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		if o.Status == models.StatusNew && o.OrderType == orderType {
			open = append(open, o)
		}
	}
	sort.SliceStable(open, func(i, j int) bool {
		if open[i].CreatedAt.Equal(open[j].CreatedAt) {
			return open[i].ID < open[j].ID
		}
		return open[i].CreatedAt.Before(open[j].CreatedAt)
	})

	checks := make([]models.Check, 0)
	index := make(map[string]int)
	for _, o := range open {
		i, ok := index[o.ContactInfo]
		if !ok {
			i = len(checks)
			index[o.ContactInfo] = i
			checks = append(checks, models.Check{OrderType: orderType, ContactInfo: o.ContactInfo})
		}
		addToCheck(&checks[i], o)
	}
	return checks, nil
}

func addToCheck(check *models.Check, order models.Order) {
	check.OrderIDs = append(check.OrderIDs, order.ID)
	check.Total += order.Total
	for _, line := range order.Items {
		merged := false
		for i := range check.Items {
			if check.Items[i].Name == line.Name {
				check.Items[i].Quantity += line.Quantity
				check.Items[i].Subtotal += line.Subtotal()
				merged = true
				break
			}
		}
		if !merged {
			check.Items = append(check.Items, models.CheckItem{
				Name:     line.Name,
				Price:    line.Price,
				Quantity: line.Quantity,
				Subtotal: line.Subtotal(),
			})
		}
	}
}

// PayOrder marks the order paid and confirmed. Paying a paid order changes
// nothing.
func (l *Ledger) PayOrder(ctx context.Context, orderID string) (*models.Order, error) {
	var wasPaid bool
	now := l.now()
	order, err := l.store.UpdateOrder(ctx, orderID, func(o *models.Order) error {
		wasPaid = o.IsPaid
		if !o.IsPaid {
			markPaid(o, now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !wasPaid {
		l.logger.Info("Order paid",
			zap.String("order_id", order.ID),
			zap.Int64("user_id", order.UserID),
			zap.Int64("total", order.Total))
		l.publish(ctx, models.EventOrderPaid, order)
	}
	if order.OrderType == models.OrderTypeDineIn {
		l.releaseTable(ctx, order.UserID, order.ContactInfo)
	}
	return order, nil
}

// PayOrders pays a set of orders in one store transaction. Unknown ids are
// skipped.
func (l *Ledger) PayOrders(ctx context.Context, orderIDs []string) (PaymentResult, error) {
	if len(orderIDs) == 0 {
		return PaymentResult{}, ErrNoOrders
	}
	ids := make([]string, 0, len(orderIDs))
	seen := make(map[string]bool, len(orderIDs))
	for _, id := range orderIDs {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	var alreadyPaid map[string]bool
	now := l.now()
	updated, err := l.store.UpdateOrders(ctx, ids, func(o *models.Order) error {
		if alreadyPaid == nil {
			alreadyPaid = make(map[string]bool)
		}
		alreadyPaid[o.ID] = o.IsPaid
		if !o.IsPaid {
			markPaid(o, now)
		}
		return nil
	})
	if err != nil {
		return PaymentResult{}, err
	}

	var result PaymentResult
	found := make(map[string]bool, len(updated))
	type table struct {
		userID  int64
		contact string
	}
	var tables []table
	for i := range updated {
		o := &updated[i]
		found[o.ID] = true
		result.Total += o.Total
		if alreadyPaid[o.ID] {
			result.AlreadyPaid = append(result.AlreadyPaid, o.ID)
		} else {
			result.Paid = append(result.Paid, o.ID)
			l.publish(ctx, models.EventOrderPaid, o)
		}
		if o.OrderType == models.OrderTypeDineIn {
			t := table{o.UserID, o.ContactInfo}
			known := false
			for _, existing := range tables {
				if existing == t {
					known = true
					break
				}
			}
			if !known {
				tables = append(tables, t)
			}
		}
	}
	for _, id := range ids {
		if !found[id] {
			result.Missing = append(result.Missing, id)
		}
	}
	for _, t := range tables {
		l.releaseTable(ctx, t.userID, t.contact)
	}

	l.logger.Info("Orders paid",
		zap.Strings("paid", result.Paid),
		zap.Int("already_paid", len(result.AlreadyPaid)),
		zap.Int("missing", len(result.Missing)),
		zap.Int64("total", result.Total))
	return result, nil
}

// SetStatus overwrites the order status. Under a strict policy only lifecycle
// transitions are accepted.
func (l *Ledger) SetStatus(ctx context.Context, orderID string, status models.Status) (*models.Order, error) {
	if _, err := models.ParseStatus(string(status)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStatus, err)
	}

	var previous models.Status
	order, err := l.store.UpdateOrder(ctx, orderID, func(o *models.Order) error {
		previous = o.Status
		if l.policy.StrictTransitions && o.Status != status && !o.Status.CanTransition(status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, status)
		}
		o.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}

	if previous != status {
		l.logger.Info("Order status changed",
			zap.String("order_id", order.ID),
			zap.String("from", string(previous)),
			zap.String("to", string(status)))
		l.publish(ctx, models.EventOrderStatusChanged, order)
	}
	return order, nil
}

// Stats counts orders per status and sums the totals of paid orders.
func (l *Ledger) Stats(ctx context.Context) (Stats, error) {
	orders, err := l.store.ListOrders(ctx)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{Orders: len(orders), ByStatus: make(map[models.Status]int)}
	for _, o := range orders {
		stats.ByStatus[o.Status]++
		if o.IsPaid {
			stats.PaidOrders++
			stats.Revenue += o.Total
		}
	}
	return stats, nil
}

func (l *Ledger) releaseTable(ctx context.Context, userID int64, contact string) {
	if l.policy.ClearTableOnAnyPayment {
		l.cart.ClearActiveTable(userID)
		return
	}
	if active, ok := l.cart.ActiveTable(userID); !ok || active != contact {
		return
	}
	orders, err := l.store.UserOrders(ctx, userID)
	if err != nil {
		l.logger.Warn("Failed to check open orders at table", zap.Int64("user_id", userID), zap.Error(err))
		return
	}
	for _, o := range orders {
		if o.OrderType == models.OrderTypeDineIn && o.ContactInfo == contact && o.Status == models.StatusNew && !o.IsPaid {
			return
		}
	}
	l.cart.ClearActiveTable(userID)
}

func (l *Ledger) publish(ctx context.Context, eventType models.EventType, order *models.Order) {
	err := l.publisher.PublishOrderEvent(ctx, models.OrderEvent{
		Type:      eventType,
		OrderID:   order.ID,
		UserID:    order.UserID,
		OrderType: order.OrderType,
		Status:    order.Status,
		Total:     order.Total,
		At:        l.now(),
	})
	if err != nil {
		l.logger.Warn("Failed to publish order event",
			zap.String("type", string(eventType)),
			zap.String("order_id", order.ID),
			zap.Error(err))
	}
}

func markPaid(o *models.Order, now time.Time) {
	paidAt := now
	o.IsPaid = true
	o.Status = models.StatusConfirmed
	o.PaidAt = &paidAt
}

func sortNewestFirst(orders []models.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID > orders[j].ID
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}

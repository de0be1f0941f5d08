package ordering

import (
	"context"
	"sort"
	"sync"

	"github.com/foodorderpro/food-bot/internal/models"
)

// memStore is an in-memory Store for core tests.
type memStore struct {
	mu         sync.Mutex
	settings   models.Settings
	categories []models.Category
	orders     map[string]models.Order
	favorites  map[int64][]models.Favorite
	err        error
}

func newMemStore() *memStore {
	return &memStore{
		settings: models.Settings{DeliveryFee: 50, MinOrder: 100},
		categories: []models.Category{
			{ID: "hot", Name: "Hot dishes", Position: 1, Items: []models.MenuItem{
				{ID: "1", Name: "Борщ", Price: 150},
				{ID: "2", Name: "Хліб", Price: 10},
			}},
			{ID: "salads", Name: "Salads", Position: 2},
		},
		orders:    make(map[string]models.Order),
		favorites: make(map[int64][]models.Favorite),
	}
}

func cloneOrder(o models.Order) models.Order {
	o.Items = append([]models.CartLine(nil), o.Items...)
	if o.PaidAt != nil {
		t := *o.PaidAt
		o.PaidAt = &t
	}
	return o
}

func (m *memStore) Settings(context.Context) (models.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings, m.err
}

func (m *memStore) Categories(context.Context) ([]models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]models.Category, len(m.categories))
	for i, c := range m.categories {
		c.Items = append([]models.MenuItem(nil), c.Items...)
		out[i] = c
	}
	return out, nil
}

func (m *memStore) Item(_ context.Context, categoryID, itemID string) (*models.MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.categories {
		if c.ID != categoryID {
			continue
		}
		for _, it := range c.Items {
			if it.ID == itemID {
				return &it, nil
			}
		}
		return nil, ErrItemNotFound
	}
	return nil, ErrCategoryNotFound
}

func (m *memStore) AddItem(_ context.Context, categoryID string, item models.MenuItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.categories {
		if m.categories[i].ID == categoryID {
			m.categories[i].Items = append(m.categories[i].Items, item)
			return nil
		}
	}
	return ErrCategoryNotFound
}

func (m *memStore) DeleteItem(_ context.Context, categoryID, itemID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.categories {
		if m.categories[i].ID != categoryID {
			continue
		}
		for j, it := range m.categories[i].Items {
			if it.ID == itemID {
				m.categories[i].Items = append(m.categories[i].Items[:j], m.categories[i].Items[j+1:]...)
				return true, nil
			}
		}
	}
	return false, nil
}

func (m *memStore) CreateOrder(_ context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.orders[order.ID] = cloneOrder(*order)
	return nil
}

func (m *memStore) Order(_ context.Context, orderID string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	o, ok := m.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	o = cloneOrder(o)
	return &o, nil
}

func (m *memStore) UpdateOrder(_ context.Context, orderID string, fn func(*models.Order) error) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	o, ok := m.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	o = cloneOrder(o)
	if err := fn(&o); err != nil {
		return nil, err
	}
	m.orders[orderID] = cloneOrder(o)
	return &o, nil
}

func (m *memStore) UpdateOrders(_ context.Context, orderIDs []string, fn func(*models.Order) error) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var updated []models.Order
	for _, id := range orderIDs {
		o, ok := m.orders[id]
		if !ok {
			continue
		}
		o = cloneOrder(o)
		if err := fn(&o); err != nil {
			return nil, err
		}
		updated = append(updated, o)
	}
	for _, o := range updated {
		m.orders[o.ID] = cloneOrder(o)
	}
	return updated, nil
}

func (m *memStore) ListOrders(context.Context) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]models.Order, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, cloneOrder(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) UserOrders(ctx context.Context, userID int64) ([]models.Order, error) {
	all, err := m.ListOrders(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.Order
	for _, o := range all {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memStore) Favorites(_ context.Context, userID int64) ([]models.Favorite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return append([]models.Favorite(nil), m.favorites[userID]...), nil
}

func (m *memStore) AddFavorite(_ context.Context, userID int64, fav models.Favorite) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	for _, f := range m.favorites[userID] {
		if f.ID == fav.ID {
			return false, nil
		}
	}
	m.favorites[userID] = append(m.favorites[userID], fav)
	return true, nil
}

func (m *memStore) RemoveFavorite(_ context.Context, userID int64, favoriteID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	favs := m.favorites[userID]
	for i, f := range favs {
		if f.ID == favoriteID {
			m.favorites[userID] = append(favs[:i], favs[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) ClearFavorites(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.favorites, userID)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.OrderEvent
	err    error
}

func (p *recordingPublisher) PublishOrderEvent(_ context.Context, event models.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) types() []models.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

package ordering

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/foodorderpro/food-bot/internal/models"
)

func TestService_CheckoutReusesTable(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemStore(), nil, Config{Policy: DefaultPolicy()}, zap.NewNop())

	_, ok := svc.KnownContact(1, models.OrderTypeDineIn)
	assert.False(t, ok)

	_, err := svc.AddMenuItem(ctx, 1, "hot", "1")
	require.NoError(t, err)
	_, err = svc.AddMenuItem(ctx, 1, "hot", "1")
	require.NoError(t, err)
	_, err = svc.AddMenuItem(ctx, 1, "hot", "2")
	require.NoError(t, err)

	view := svc.CartView(1)
	assert.Equal(t, int64(310), view.Total)
	assert.Len(t, view.Lines, 2)

	first, err := svc.Checkout(ctx, 1, "5", models.OrderTypeDineIn)
	require.NoError(t, err)
	assert.Equal(t, int64(310), first.Order.Total)
	assert.Equal(t, 1, first.OrdersInCheck)
	assert.Empty(t, svc.CartView(1).Lines)

	contact, ok := svc.KnownContact(1, models.OrderTypeDineIn)
	require.True(t, ok)
	assert.Equal(t, "5", contact)
	_, ok = svc.KnownContact(1, models.OrderTypeDelivery)
	assert.False(t, ok)
	assert.Equal(t, "5", svc.CartView(1).ActiveTable)

	_, err = svc.AddMenuItem(ctx, 1, "hot", "1")
	require.NoError(t, err)
	second, err := svc.Checkout(ctx, 1, contact, models.OrderTypeDineIn)
	require.NoError(t, err)
	assert.Equal(t, 2, second.OrdersInCheck)
	assert.Equal(t, int64(460), second.CheckTotal)

	history, err := svc.History(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestService_CheckoutEmptyCart(t *testing.T) {
	svc := NewService(newMemStore(), nil, Config{}, zap.NewNop())
	_, err := svc.Checkout(context.Background(), 1, "5", models.OrderTypeDineIn)
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestService_MenuItems(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemStore(), nil, Config{}, zap.NewNop())

	_, err := svc.AddMenuItem(ctx, 1, "hot", "404")
	assert.ErrorIs(t, err, ErrItemNotFound)
	_, err = svc.AddMenuItem(ctx, 1, "drinks", "1")
	assert.ErrorIs(t, err, ErrCategoryNotFound)

	added, err := svc.AddMenuItem(ctx, 1, "hot", "2")
	require.NoError(t, err)
	assert.Equal(t, "hot_2", added.Key)
	assert.Equal(t, LineRemoved, svc.RemoveMenuItem(1, "hot", "2"))
	assert.Equal(t, LineAbsent, svc.RemoveMenuItem(1, "hot", "2"))
}

func TestService_HistoryLimit(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemStore(), nil, Config{}, zap.NewNop())

	for i := 0; i < 12; i++ {
		_, err := svc.AddMenuItem(ctx, 1, "hot", "2")
		require.NoError(t, err)
		_, err = svc.Checkout(ctx, 1, "Main st 1", models.OrderTypeDelivery)
		require.NoError(t, err)
	}

	history, err := svc.History(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, history, defaultHistoryLimit)
}

func TestCatalog(t *testing.T) {
	ctx := context.Background()
	catalog := NewCatalog(newMemStore())

	_, err := catalog.AddItem(ctx, "salads", NewItem{Name: "  ", Price: 10})
	assert.ErrorIs(t, err, ErrInvalidItem)
	_, err = catalog.AddItem(ctx, "salads", NewItem{Name: "Цезар", Price: -1})
	assert.ErrorIs(t, err, ErrInvalidItem)
	_, err = catalog.AddItem(ctx, "drinks", NewItem{Name: "Узвар", Price: 30})
	assert.ErrorIs(t, err, ErrCategoryNotFound)

	item, err := catalog.AddItem(ctx, "salads", NewItem{Name: " Цезар ", Price: 120, Description: "with chicken"})
	require.NoError(t, err)
	assert.Equal(t, "Цезар", item.Name)
	assert.NotEmpty(t, item.ID)

	category, err := catalog.Category(ctx, "salads")
	require.NoError(t, err)
	require.Len(t, category.Items, 1)
	assert.Equal(t, item.ID, category.Items[0].ID)

	_, err = catalog.Category(ctx, "drinks")
	assert.ErrorIs(t, err, ErrCategoryNotFound)

	require.NoError(t, catalog.DeleteItem(ctx, "salads", item.ID))
	assert.ErrorIs(t, catalog.DeleteItem(ctx, "salads", item.ID), ErrItemNotFound)
}

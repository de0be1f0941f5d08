package format

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/foodorderpro/food-bot/internal/models"
	"github.com/foodorderpro/food-bot/internal/ordering"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		width int
		want  string
	}{
		{name: "short", in: "Борщ (2)", width: 50, want: "Борщ (2)"},
		{name: "exact", in: "abcde", width: 5, want: "abcde"},
		{name: "long ascii", in: "abcdefgh", width: 5, want: "abcde..."},
		{name: "cyrillic cut on runes", in: "Салат Цезар", width: 5, want: "Салат..."},
	}
	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			assert.Equal(t, testCase.want, Truncate(testCase.in, testCase.width))
		})
	}
}

func TestCount(t *testing.T) {
	assert.Equal(t, "", Count(0))
	assert.Equal(t, "1️⃣", Count(1))
	assert.Equal(t, "🔟", Count(10))
	assert.Equal(t, "11🛒", Count(11))
}

func TestCart(t *testing.T) {
	f := New("")
	assert.Equal(t, "🛒 Your cart is empty.", f.Cart(ordering.CartView{}))

	text := f.Cart(ordering.CartView{
		Lines: []models.CartLine{
			{Key: "hot_1", Name: "Борщ", Price: 150, Quantity: 2},
			{Key: "hot_2", Name: "Хліб", Price: 10, Quantity: 1},
		},
		Total:       310,
		ActiveTable: "5",
	})
	assert.Contains(t, text, "▫️ Борщ x2 = 300₴")
	assert.Contains(t, text, "Total: 310₴")
	assert.Contains(t, text, "📍 Table: 5")
}

func TestCheck(t *testing.T) {
	f := New("UAH")
	text := f.Check(models.Check{
		OrderType:   models.OrderTypeDineIn,
		ContactInfo: "5",
		OrderIDs:    []string{"a", "b"},
		Items: []models.CheckItem{
			{Name: "Борщ", Price: 150, Quantity: 3, Subtotal: 450},
			{Name: "Хліб", Price: 10, Quantity: 1, Subtotal: 10},
		},
		Total: 460,
	})
	assert.Contains(t, text, "📍 Table: 5")
	assert.Contains(t, text, "▫️ Борщ | 3 x 150UAH = 450UAH")
	assert.Contains(t, text, "TOTAL DUE: 460UAH")
	assert.NotContains(t, text, "Delivery included")
}

func TestHistoryTruncatesDishes(t *testing.T) {
	f := New("₴")
	created := time.Date(2026, 10, 1, 12, 30, 0, 0, time.UTC)
	text := f.History([]models.Order{{
		ID:        "0192a3b4-c5d6-7e8f-9012-3456789abcde",
		OrderType: models.OrderTypeDelivery,
		Status:    models.StatusCooking,
		Items: []models.CartLine{
			{Name: "Салат Цезар з куркою", Quantity: 2},
			{Name: "Борщ український", Quantity: 1},
			{Name: "Пампушки з часником", Quantity: 4},
		},
		Total:     560,
		CreatedAt: created,
	}})

	assert.Contains(t, text, "🚗👨‍🍳 #789abcde | 2026-10-01 12:30")
	assert.Contains(t, text, "Status: COOKING")
	assert.Contains(t, text, "Total: 560₴")

	var dishes string
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "Dishes: ") {
			dishes = strings.TrimPrefix(line, "Dishes: ")
		}
	}
	assert.True(t, strings.HasSuffix(dishes, "..."))
	assert.Equal(t, historyItemsWidth+3, len([]rune(dishes)))

	assert.Equal(t, "📜 You have no orders yet.", f.History(nil))
}

func TestFavoriteAndSelectionButtons(t *testing.T) {
	f := New("₴")
	fav := models.Favorite{ID: "x", Name: "Борщ", Price: 150}

	assert.Equal(t, "➕ Борщ · 150₴", f.FavoriteButton(ordering.FavoriteView{Favorite: fav}))
	assert.Equal(t, "2️⃣ Борщ", f.FavoriteButton(ordering.FavoriteView{Favorite: fav, InCart: 2}))

	assert.Equal(t, "☐ Борщ · 150₴", f.SelectionButton(ordering.SelectionItem{Favorite: fav}))
	assert.Equal(t, "✅ Борщ · 150₴", f.SelectionButton(ordering.SelectionItem{Favorite: fav, Selected: true}))
	assert.Contains(t, f.Selection(ordering.Selection{Items: make([]ordering.SelectionItem, 3), Selected: 1}), "Selected: 1 of 3")
}

func TestPayment(t *testing.T) {
	f := New("₴")
	assert.Equal(t, "❌ No orders found to pay.", f.Payment(ordering.PaymentResult{Missing: []string{"x"}}))

	text := f.Payment(ordering.PaymentResult{Paid: []string{"a"}, AlreadyPaid: []string{"b"}, Total: 460})
	assert.Contains(t, text, "Paid 1 order(s)")
	assert.Contains(t, text, "1 order(s) were already paid")
	assert.Contains(t, text, "Total: 460₴")
}

func TestOrderDetails(t *testing.T) {
	f := New("₴")
	paidAt := time.Date(2026, 10, 1, 13, 0, 0, 0, time.UTC)
	text := f.OrderDetails(models.Order{
		ID:            "order-1",
		UserID:        42,
		Items:         []models.CartLine{{Name: "Борщ", Price: 150, Quantity: 2}},
		Total:         300,
		ContactInfo:   "Main st 1",
		OrderType:     models.OrderTypeDelivery,
		Status:        models.StatusConfirmed,
		IsPaid:        true,
		PaymentMethod: "cash",
		PaidAt:        &paidAt,
	})
	assert.Contains(t, text, "ORDER #order-1")
	assert.Contains(t, text, "Address: Main st 1")
	assert.Contains(t, text, "💵 Paid (cash) at 2026-10-01 13:00")
	assert.Contains(t, text, "▫️ Борщ x2 = 300₴")
}

package bot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/foodorderpro/food-bot/internal/db"
	"github.com/foodorderpro/food-bot/internal/models"
	"github.com/foodorderpro/food-bot/internal/ordering"
)

const (
	customerID int64 = 101
	adminID    int64 = 900
)

type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	updates  chan tgbotapi.Update
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {}

// texts returns the texts of messages sent to chatID.
func (f *fakeAPI) texts(chatID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.sent {
		if msg, ok := c.(tgbotapi.MessageConfig); ok && msg.ChatID == chatID {
			out = append(out, msg.Text)
		}
	}
	return out
}

func (f *fakeAPI) lastText(chatID int64) string {
	texts := f.texts(chatID)
	if len(texts) == 0 {
		return ""
	}
	return texts[len(texts)-1]
}

func (f *fakeAPI) lastCallback() tgbotapi.CallbackConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.requests) - 1; i >= 0; i-- {
		if cb, ok := f.requests[i].(tgbotapi.CallbackConfig); ok {
			return cb
		}
	}
	return tgbotapi.CallbackConfig{}
}

func (f *fakeAPI) lastEditText() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.requests) - 1; i >= 0; i-- {
		if edit, ok := f.requests[i].(tgbotapi.EditMessageTextConfig); ok {
			return edit.Text
		}
	}
	return ""
}

func (f *fakeAPI) requested(match func(tgbotapi.Chattable) bool) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.requests {
		if match(c) {
			return true
		}
	}
	return false
}

type fixture struct {
	bot  *Bot
	api  *fakeAPI
	svc  *ordering.Service
	item models.MenuItem
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	ctx := context.Background()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store, err := db.NewRedis(ctx, client, "test")
	require.NoError(t, err)

	svc := ordering.NewService(store, nil, ordering.Config{Policy: ordering.DefaultPolicy()}, zap.NewNop())
	item, err := svc.Catalog.AddItem(ctx, "hot", ordering.NewItem{Name: "Борщ", Price: 150})
	require.NoError(t, err)

	api := &fakeAPI{updates: make(chan tgbotapi.Update, 1)}
	if cfg.AdminPassword == "" {
		cfg.AdminPassword = "s3cret"
	}
	b := NewWithAPI(api, "food_bot", cfg, svc, zap.NewNop())
	return &fixture{bot: b, api: api, svc: svc, item: item}
}

func textUpdate(userID int64, text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: userID},
		Chat:      &tgbotapi.Chat{ID: userID, Type: "private"},
		Text:      text,
	}
	if strings.HasPrefix(text, "/") {
		command, _, _ := strings.Cut(text, " ")
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(command)}}
	}
	return tgbotapi.Update{Message: msg}
}

func callbackUpdate(userID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:   "cb",
		From: &tgbotapi.User{ID: userID},
		Message: &tgbotapi.Message{
			MessageID: 10,
			Chat:      &tgbotapi.Chat{ID: userID, Type: "private"},
		},
		Data: data,
	}}
}

func (f *fixture) do(update tgbotapi.Update) {
	f.bot.HandleUpdate(context.Background(), update)
}

func (f *fixture) addToCart(userID int64) {
	f.do(callbackUpdate(userID, "add:hot:"+f.item.ID))
}

func (f *fixture) userOrders(t *testing.T, userID int64) []models.Order {
	t.Helper()
	orders, err := f.svc.Orders.UserOrders(context.Background(), userID)
	require.NoError(t, err)
	return orders
}

func TestBot_DeepLinkSelectsTable(t *testing.T) {
	f := newFixture(t, Config{})

	f.do(textUpdate(customerID, "/start table_7"))

	assert.Contains(t, f.api.lastText(customerID), "table 7")
	table, ok := f.svc.Cart.ActiveTable(customerID)
	assert.True(t, ok)
	assert.Equal(t, "7", table)
	assert.Equal(t, models.OrderTypeDineIn, f.bot.sessions.get(customerID).orderType)
}

func TestBot_StartWithoutTableAsksForType(t *testing.T) {
	f := newFixture(t, Config{})

	f.do(textUpdate(customerID, "/start table_abc"))

	assert.Contains(t, f.api.lastText(customerID), "How would you like to eat")
	_, ok := f.svc.Cart.ActiveTable(customerID)
	assert.False(t, ok)
}

func TestBot_AddAndRemoveMenuItem(t *testing.T) {
	f := newFixture(t, Config{})
	key := ordering.MenuLineKey("hot", f.item.ID)

	f.addToCart(customerID)
	f.addToCart(customerID)
	assert.Equal(t, 2, f.svc.Cart.Quantity(customerID, key))
	assert.Contains(t, f.api.lastCallback().Text, "Борщ")

	f.do(callbackUpdate(customerID, "rm:hot:"+f.item.ID))
	assert.Equal(t, 1, f.svc.Cart.Quantity(customerID, key))

	assert.True(t, f.api.requested(func(c tgbotapi.Chattable) bool {
		_, ok := c.(tgbotapi.EditMessageReplyMarkupConfig)
		return ok
	}))
}

func TestBot_AddUnknownItemAlerts(t *testing.T) {
	f := newFixture(t, Config{})

	f.do(callbackUpdate(customerID, "add:hot:missing"))

	cb := f.api.lastCallback()
	assert.True(t, cb.ShowAlert)
	assert.Contains(t, cb.Text, "no longer on the menu")
}

func TestBot_ShowCategoryListsDishes(t *testing.T) {
	f := newFixture(t, Config{})

	f.do(callbackUpdate(customerID, "cat:hot"))

	assert.Contains(t, f.api.lastText(customerID), "Борщ")
	assert.Contains(t, f.api.lastText(customerID), "150₴")
}

func TestBot_DineInOrderAtKnownTable(t *testing.T) {
	f := newFixture(t, Config{})

	f.do(textUpdate(customerID, "/start table_5"))
	f.addToCart(customerID)
	f.do(textUpdate(customerID, btnPlaceOrder))

	orders := f.userOrders(t, customerID)
	require.Len(t, orders, 1)
	assert.Equal(t, "5", orders[0].ContactInfo)
	assert.Equal(t, int64(150), orders[0].Total)
	assert.Contains(t, f.api.lastText(customerID), "placed")
	assert.Empty(t, f.svc.Cart.Snapshot(customerID))

	f.addToCart(customerID)
	f.do(textUpdate(customerID, btnPlaceOrder))
	assert.Contains(t, f.api.lastText(customerID), "Orders in check: 2")
	assert.Contains(t, f.api.lastText(customerID), "300₴")
}

func TestBot_DeliveryAsksForAddress(t *testing.T) {
	f := newFixture(t, Config{})

	f.do(textUpdate(customerID, btnDelivery))
	f.addToCart(customerID)
	f.do(textUpdate(customerID, btnPlaceOrder))
	assert.Contains(t, f.api.lastText(customerID), "delivery address")

	f.do(textUpdate(customerID, strings.Repeat("x", maxAddressLength+1)))
	assert.Empty(t, f.userOrders(t, customerID))

	f.do(textUpdate(customerID, "Main St 1"))
	orders := f.userOrders(t, customerID)
	require.Len(t, orders, 1)
	assert.Equal(t, models.OrderTypeDelivery, orders[0].OrderType)
	assert.Equal(t, int64(200), orders[0].Total)
	assert.Equal(t, inputNone, f.bot.sessions.get(customerID).awaiting)
}

func TestBot_TableNumberMustBeDigits(t *testing.T) {
	f := newFixture(t, Config{})

	f.do(textUpdate(customerID, btnDineIn))
	f.addToCart(customerID)
	f.do(textUpdate(customerID, btnPlaceOrder))
	f.do(textUpdate(customerID, "twelve"))

	assert.Contains(t, f.api.lastText(customerID), "digits only")
	assert.Empty(t, f.userOrders(t, customerID))

	f.do(textUpdate(customerID, "12"))
	require.Len(t, f.userOrders(t, customerID), 1)
}

func TestBot_PlaceOrderWithoutType(t *testing.T) {
	f := newFixture(t, Config{})

	f.addToCart(customerID)
	f.do(textUpdate(customerID, btnPlaceOrder))

	assert.Contains(t, f.api.lastText(customerID), "Choose")
	assert.Empty(t, f.userOrders(t, customerID))
}

func TestBot_PayCheck(t *testing.T) {
	f := newFixture(t, Config{})

	f.do(textUpdate(customerID, "/start table_3"))
	f.addToCart(customerID)
	f.do(textUpdate(customerID, btnPlaceOrder))
	f.addToCart(customerID)
	f.do(textUpdate(customerID, btnPlaceOrder))

	f.do(textUpdate(customerID, btnCheck))
	assert.Contains(t, f.api.lastText(customerID), "Борщ | 2 x 150₴ = 300₴")
	require.Len(t, f.bot.sessions.get(customerID).checks, 1)

	f.do(callbackUpdate(customerID, "paycheck:0"))
	assert.Contains(t, f.api.lastText(customerID), "Paid 2 order(s)")
	for _, o := range f.userOrders(t, customerID) {
		assert.True(t, o.IsPaid)
	}
	_, ok := f.svc.Cart.ActiveTable(customerID)
	assert.False(t, ok)

	f.do(callbackUpdate(customerID, "paycheck:5"))
	assert.True(t, f.api.lastCallback().ShowAlert)
}

func TestBot_PayOrderChecksOwner(t *testing.T) {
	f := newFixture(t, Config{})

	f.do(textUpdate(customerID, "/start table_3"))
	f.addToCart(customerID)
	f.do(textUpdate(customerID, btnPlaceOrder))
	orderID := f.userOrders(t, customerID)[0].ID

	f.do(callbackUpdate(customerID+1, "pay:"+orderID))
	assert.True(t, f.api.lastCallback().ShowAlert)
	assert.False(t, f.userOrders(t, customerID)[0].IsPaid)

	f.do(callbackUpdate(customerID, "pay:"+orderID))
	assert.True(t, f.userOrders(t, customerID)[0].IsPaid)

	f.do(callbackUpdate(customerID, "pay:"+orderID))
	assert.Equal(t, "Already paid", f.api.lastCallback().Text)
}

func TestBot_SaveFavoritesFromCheck(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	f.do(textUpdate(customerID, "/start table_3"))
	f.addToCart(customerID)
	f.do(textUpdate(customerID, btnPlaceOrder))
	f.do(textUpdate(customerID, btnCheck))
	f.do(callbackUpdate(customerID, "paycheck:0"))

	f.do(textUpdate(customerID, btnSaveFavorites))
	assert.Contains(t, f.api.lastText(customerID), "Selected: 0 of 1")

	f.do(callbackUpdate(customerID, "fav:save"))
	assert.True(t, f.api.lastCallback().ShowAlert)

	f.do(callbackUpdate(customerID, "fav:selall"))
	assert.Contains(t, f.api.lastEditText(), "Selected: 1 of 1")

	f.do(callbackUpdate(customerID, "fav:save"))
	assert.Contains(t, f.api.lastEditText(), "Saved to favorites: 1")

	favs, err := f.svc.Favorites.List(ctx, customerID)
	require.NoError(t, err)
	require.Len(t, favs, 1)
	assert.Equal(t, "Борщ", favs[0].Name)

	f.do(callbackUpdate(customerID, "fav:add:"+favs[0].ID))
	assert.Equal(t, 1, f.svc.Cart.Quantity(customerID, ordering.FavoriteLineKey(favs[0].ID)))

	f.do(callbackUpdate(customerID, "fav:clear"))
	favs, err = f.svc.Favorites.List(ctx, customerID)
	require.NoError(t, err)
	assert.Empty(t, favs)
}

func TestBot_SaveFavoritesNeedsCheck(t *testing.T) {
	f := newFixture(t, Config{})

	f.do(textUpdate(customerID, btnSaveFavorites))

	assert.Contains(t, f.api.lastText(customerID), "Open 🧾 Check first")
}

func TestBot_AdminLogin(t *testing.T) {
	f := newFixture(t, Config{})

	f.do(callbackUpdate(adminID, "adm:stats"))
	assert.True(t, f.api.lastCallback().ShowAlert)

	f.do(textUpdate(adminID, "/admin"))
	f.do(textUpdate(adminID, "wrong"))
	assert.Contains(t, f.api.lastText(adminID), "Wrong password")
	assert.False(t, f.bot.sessions.get(adminID).isAdmin)

	f.do(textUpdate(adminID, "/admin"))
	f.do(textUpdate(adminID, "s3cret"))
	assert.True(t, f.bot.sessions.get(adminID).isAdmin)
	assert.Contains(t, f.api.lastText(adminID), "ADMIN PANEL")
	assert.True(t, f.api.requested(func(c tgbotapi.Chattable) bool {
		_, ok := c.(tgbotapi.DeleteMessageConfig)
		return ok
	}))

	f.do(callbackUpdate(adminID, "adm:logout"))
	assert.False(t, f.bot.sessions.get(adminID).isAdmin)
}

func (f *fixture) login() {
	f.do(textUpdate(adminID, "/admin"))
	f.do(textUpdate(adminID, "s3cret"))
}

func TestBot_AdminChangesStatus(t *testing.T) {
	f := newFixture(t, Config{})
	f.login()

	f.do(textUpdate(customerID, "/start table_3"))
	f.addToCart(customerID)
	f.do(textUpdate(customerID, btnPlaceOrder))
	orderID := f.userOrders(t, customerID)[0].ID

	f.do(callbackUpdate(adminID, "adm:new"))
	assert.Contains(t, f.api.lastEditText(), "NEW ORDERS")

	f.do(callbackUpdate(adminID, "adm:st:confirmed:"+orderID))
	assert.Equal(t, models.StatusConfirmed, f.userOrders(t, customerID)[0].Status)
	assert.Contains(t, f.api.lastText(customerID), "is now")

	f.do(callbackUpdate(adminID, "adm:pay:"+orderID))
	assert.True(t, f.userOrders(t, customerID)[0].IsPaid)
	assert.Contains(t, f.api.lastEditText(), "Paid")
}

func TestBot_AdminAddsAndDeletesDish(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	f.login()

	f.do(callbackUpdate(adminID, "adm:add"))
	f.do(callbackUpdate(adminID, "adm:cat:salads"))
	f.do(textUpdate(adminID, "Олів'є"))
	f.do(textUpdate(adminID, "abc"))
	assert.Contains(t, f.api.lastText(adminID), "positive whole number")
	f.do(textUpdate(adminID, "120"))
	f.do(textUpdate(adminID, "-"))
	assert.Contains(t, f.api.lastText(adminID), "Dish added")

	category, err := f.svc.Catalog.Category(ctx, "salads")
	require.NoError(t, err)
	require.Len(t, category.Items, 1)
	item := category.Items[0]
	assert.Equal(t, "Олів'є", item.Name)
	assert.Equal(t, int64(120), item.Price)
	assert.Empty(t, item.Description)

	f.do(callbackUpdate(adminID, "adm:rm:salads:"+item.ID))
	category, err = f.svc.Catalog.Category(ctx, "salads")
	require.NoError(t, err)
	assert.Empty(t, category.Items)
}

func TestBot_HistoryAndCancel(t *testing.T) {
	f := newFixture(t, Config{})

	f.do(textUpdate(customerID, "/history"))
	assert.Contains(t, f.api.lastText(customerID), "no orders yet")

	f.do(textUpdate(customerID, btnDelivery))
	f.addToCart(customerID)
	f.do(textUpdate(customerID, btnPlaceOrder))
	f.do(textUpdate(customerID, "/cancel"))
	assert.Equal(t, inputNone, f.bot.sessions.get(customerID).awaiting)
}

func TestBot_WebhookHandler(t *testing.T) {
	f := newFixture(t, Config{WebhookSecret: "abc"})
	assert.Equal(t, "/telegram/webhook/abc", f.bot.WebhookPath())

	body := `{"update_id":1,"message":{"message_id":1,"from":{"id":101},"chat":{"id":101,"type":"private"},` +
		`"text":"/help","entities":[{"type":"bot_command","offset":0,"length":5}]}}`
	rec := httptest.NewRecorder()
	f.bot.WebhookHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, f.api.lastText(customerID), "Commands:")

	rec = httptest.NewRecorder()
	f.bot.WebhookHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBot_RunPolling(t *testing.T) {
	f := newFixture(t, Config{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.bot.Run(ctx) }()

	f.api.updates <- textUpdate(customerID, "/help")
	require.Eventually(t, func() bool {
		return strings.Contains(f.api.lastText(customerID), "Commands:")
	}, time.Second, 10*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestBot_RunWebhookRegistersAndDeletes(t *testing.T) {
	f := newFixture(t, Config{WebhookURL: "https://bot.example.com/"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, f.bot.Run(ctx))
	assert.True(t, f.api.requested(func(c tgbotapi.Chattable) bool {
		_, ok := c.(tgbotapi.WebhookConfig)
		return ok
	}))
	assert.True(t, f.api.requested(func(c tgbotapi.Chattable) bool {
		_, ok := c.(tgbotapi.DeleteWebhookConfig)
		return ok
	}))
}

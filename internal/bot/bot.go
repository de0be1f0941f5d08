package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/foodorderpro/food-bot/internal/format"
	"github.com/foodorderpro/food-bot/internal/models"
	"github.com/foodorderpro/food-bot/internal/ordering"
)

// API is the part of *tgbotapi.BotAPI the bot uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type Config struct {
	Token         string
	WebhookURL    string
	WebhookPath   string
	WebhookSecret string
	PollTimeout   time.Duration
	Debug         bool
	AdminPassword string
	Currency      string
}

type Bot struct {
	api      API
	username string
	svc      *ordering.Service
	format   *format.Formatter
	logger   *zap.Logger
	sessions *sessions

	adminPassword string
	webhookURL    string
	webhookPath   string
	pollTimeout   time.Duration
}

var deepLinkTable = regexp.MustCompile(`^table_(\d{1,4})$`)

func New(cfg Config, svc *ordering.Service, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	api.Debug = cfg.Debug

	logger.Info("Authorized on account", zap.String("username", api.Self.UserName))

	return NewWithAPI(api, api.Self.UserName, cfg, svc, logger), nil
}

// NewWithAPI builds a bot on an already authorized API client.
func NewWithAPI(api API, username string, cfg Config, svc *ordering.Service, logger *zap.Logger) *Bot {
	b := &Bot{
		api:           api,
		username:      username,
		svc:           svc,
		format:        format.New(cfg.Currency),
		logger:        logger,
		sessions:      newSessions(),
		adminPassword: cfg.AdminPassword,
		webhookURL:    strings.TrimRight(cfg.WebhookURL, "/"),
		webhookPath:   cfg.WebhookPath,
		pollTimeout:   cfg.PollTimeout,
	}
	if b.webhookPath == "" {
		b.webhookPath = "/telegram/webhook"
	}
	if cfg.WebhookSecret != "" {
		b.webhookPath = strings.TrimRight(b.webhookPath, "/") + "/" + cfg.WebhookSecret
	}
	if b.pollTimeout <= 0 {
		b.pollTimeout = 60 * time.Second
	}
	return b
}

func (b *Bot) Username() string {
	return b.username
}

// WebhookPath is where the webhook handler expects Telegram to post updates.
func (b *Bot) WebhookPath() string {
	return b.webhookPath
}

// Run receives updates until ctx is done. In webhook mode updates arrive
// through WebhookHandler and Run only registers and removes the webhook.
func (b *Bot) Run(ctx context.Context) error {
	if b.webhookURL != "" {
		return b.runWebhook(ctx)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = int(b.pollTimeout.Seconds())

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.HandleUpdate(ctx, update)
		}
	}
}

func (b *Bot) runWebhook(ctx context.Context) error {
	wh, err := tgbotapi.NewWebhook(b.webhookURL + b.webhookPath)
	if err != nil {
		return fmt.Errorf("invalid webhook url: %w", err)
	}
	if _, err := b.api.Request(wh); err != nil {
		return fmt.Errorf("failed to set webhook: %w", err)
	}
	b.logger.Info("Webhook registered", zap.String("url", b.webhookURL))

	<-ctx.Done()

	if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		b.logger.Warn("Failed to delete webhook", zap.Error(err))
	}
	return nil
}

// WebhookHandler decodes updates posted by Telegram and handles them.
func (b *Bot) WebhookHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var update tgbotapi.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			http.Error(w, "invalid update", http.StatusBadRequest)
			return
		}
		b.HandleUpdate(r.Context(), update)
		w.WriteHeader(http.StatusOK)
	})
}

// HandleUpdate processes one update. Updates of the same user are handled
// one at a time.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		q := update.CallbackQuery
		s := b.sessions.get(q.From.ID)
		s.mu.Lock()
		defer s.mu.Unlock()
		b.handleCallback(ctx, s, q)

	case update.Message != nil && update.Message.From != nil:
		msg := update.Message
		s := b.sessions.get(msg.From.ID)
		s.mu.Lock()
		defer s.mu.Unlock()
		if msg.IsCommand() {
			b.handleCommand(ctx, s, msg)
		} else {
			b.handleMessage(ctx, s, msg)
		}
	}
}

func (b *Bot) handleCommand(ctx context.Context, s *session, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	userID := msg.From.ID

	switch msg.Command() {
	case "start":
		s.awaiting = inputNone
		if m := deepLinkTable.FindStringSubmatch(strings.TrimSpace(msg.CommandArguments())); m != nil {
			s.orderType = models.OrderTypeDineIn
			b.svc.Cart.SetActiveTable(userID, m[1])
			b.sendWithKeyboard(chatID, fmt.Sprintf("👋 Welcome! You are at table %s.\n\nOpen 📋 Menu to order.", m[1]), mainKeyboard())
			return
		}
		s.orderType = ""
		b.sendWithKeyboard(chatID, "👋 Welcome!\n\nHow would you like to eat today?", typeKeyboard())

	case "help":
		b.sendMessage(chatID, "Commands:\n"+
			"/start - Choose delivery or dine-in\n"+
			"/menu - Show the menu\n"+
			"/cart - Show your cart\n"+
			"/check - Show open checks\n"+
			"/favorites - Show your favorites\n"+
			"/history - Show your last orders\n"+
			"/cancel - Cancel the current input\n"+
			"/admin - Admin panel")

	case "menu":
		b.showMenu(ctx, chatID)

	case "cart":
		b.showCart(chatID, userID)

	case "check":
		b.showChecks(ctx, s, chatID, userID)

	case "favorites":
		b.showFavorites(ctx, chatID, userID)

	case "history":
		b.showHistory(ctx, chatID, userID)

	case "cancel":
		s.awaiting = inputNone
		b.svc.Favorites.Cancel(userID)
		b.sendMessage(chatID, "OK, cancelled.")

	case "admin":
		b.handleAdminCommand(ctx, s, chatID)

	default:
		b.sendMessage(chatID, "Unknown command. Use /help to see available commands.")
	}
}

func (b *Bot) handleMessage(ctx context.Context, s *session, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	userID := msg.From.ID
	text := strings.TrimSpace(msg.Text)

	switch text {
	case btnDelivery:
		s.orderType = models.OrderTypeDelivery
		s.awaiting = inputNone
		b.sendWithKeyboard(chatID, "🚗 Delivery selected. Open 📋 Menu to order.", mainKeyboard())
		return
	case btnDineIn:
		s.orderType = models.OrderTypeDineIn
		s.awaiting = inputNone
		reply := "🏠 Dine-in selected. Open 📋 Menu to order."
		if table, ok := b.svc.Cart.ActiveTable(userID); ok {
			reply += "\n📍 Table: " + table
		}
		b.sendWithKeyboard(chatID, reply, mainKeyboard())
		return
	case btnMainMenu:
		s.awaiting = inputNone
		b.sendWithKeyboard(chatID, "How would you like to eat today?", typeKeyboard())
		return
	case btnMenu:
		s.awaiting = inputNone
		b.showMenu(ctx, chatID)
		return
	case btnCart:
		s.awaiting = inputNone
		b.showCart(chatID, userID)
		return
	case btnClearCart:
		s.awaiting = inputNone
		b.svc.Cart.Clear(userID)
		b.sendMessage(chatID, "🗑 Cart cleared!")
		return
	case btnPlaceOrder:
		s.awaiting = inputNone
		b.placeOrder(ctx, s, chatID, userID)
		return
	case btnCheck:
		s.awaiting = inputNone
		b.showChecks(ctx, s, chatID, userID)
		return
	case btnFavorites:
		s.awaiting = inputNone
		b.showFavorites(ctx, chatID, userID)
		return
	case btnHistory:
		s.awaiting = inputNone
		b.showHistory(ctx, chatID, userID)
		return
	case btnSaveFavorites:
		s.awaiting = inputNone
		b.startSelection(ctx, s, chatID, userID)
		return
	}

	switch s.awaiting {
	case inputContact:
		b.handleContactInput(ctx, s, chatID, userID, text)
	case inputAdminPassword:
		b.handlePasswordInput(s, msg)
	case inputItemName, inputItemPrice, inputItemDescription:
		b.handleItemInput(ctx, s, chatID, text)
	default:
		b.sendMessage(chatID, "Use the buttons below or /help to see available commands.")
	}
}

func (b *Bot) handleCallback(ctx context.Context, s *session, q *tgbotapi.CallbackQuery) {
	if q.Message == nil {
		b.answer(q.ID, "")
		return
	}
	prefix, rest, _ := strings.Cut(q.Data, ":")

	switch prefix {
	case cbCategory:
		b.answer(q.ID, "")
		b.showCategory(ctx, q.Message.Chat.ID, q.From.ID, rest)
	case cbAdd, cbRemove:
		b.handleItemCallback(ctx, q, prefix, rest)
	case cbPay:
		b.handlePayOrder(ctx, q, rest)
	case cbPayCheck:
		b.handlePayCheck(ctx, s, q, rest)
	case cbFavorites:
		b.handleFavoritesCallback(ctx, s, q, rest)
	case cbAdmin:
		b.handleAdminCallback(ctx, s, q, rest)
	default:
		b.answer(q.ID, "")
	}
}

func (b *Bot) sendMessage(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) sendWithKeyboard(chatID int64, text string, markup interface{}) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = markup
	b.send(msg)
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		b.logger.Warn("Error sending message", zap.Error(err))
	}
}

func (b *Bot) editMessage(chatID int64, messageID int, text string, markup *tgbotapi.InlineKeyboardMarkup) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ReplyMarkup = markup
	b.request(edit)
}

func (b *Bot) editMarkup(chatID int64, messageID int, markup tgbotapi.InlineKeyboardMarkup) {
	b.request(tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, markup))
}

func (b *Bot) answer(callbackID, text string) {
	b.request(tgbotapi.NewCallback(callbackID, text))
}

func (b *Bot) alert(callbackID, text string) {
	b.request(tgbotapi.NewCallbackWithAlert(callbackID, text))
}

func (b *Bot) request(c tgbotapi.Chattable) {
	if _, err := b.api.Request(c); err != nil {
		b.logger.Warn("Error calling Telegram", zap.Error(err))
	}
}

// userError turns a core error into a short notice. Unexpected errors are
// logged.
func (b *Bot) userError(err error, userID int64) string {
	switch {
	case errors.Is(err, ordering.ErrEmptyCart):
		return "🛒 Your cart is empty."
	case errors.Is(err, ordering.ErrOrderNotFound):
		return "❌ Order not found."
	case errors.Is(err, ordering.ErrNoOrders):
		return "❌ No orders to pay."
	case errors.Is(err, ordering.ErrFavoriteNotFound):
		return "❌ Favorite not found."
	case errors.Is(err, ordering.ErrNothingSelected):
		return "Select at least one dish."
	case errors.Is(err, ordering.ErrDuplicateFavorite):
		return "Already in favorites."
	case errors.Is(err, ordering.ErrItemNotFound), errors.Is(err, ordering.ErrCategoryNotFound):
		return "❌ This dish is no longer on the menu."
	case errors.Is(err, ordering.ErrBelowMinOrder):
		return "❌ Your order is below the minimum for delivery."
	case errors.Is(err, ordering.ErrMissingContactInfo):
		return "❌ Please enter your table number or address."
	case errors.Is(err, ordering.ErrInvalidTransition):
		return "❌ This status change is not allowed."
	case errors.Is(err, ordering.ErrInvalidItem):
		return "❌ " + err.Error()
	case errors.Is(err, ordering.ErrStoreUnavailable):
		b.logger.Error("Store unavailable", zap.Int64("user_id", userID), zap.Error(err))
		return "⚠️ Service is temporarily unavailable. Please try again."
	default:
		b.logger.Error("Unexpected error", zap.Int64("user_id", userID), zap.Error(err))
		return "⚠️ Something went wrong. Please try again."
	}
}

package bot

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/foodorderpro/food-bot/internal/format"
	"github.com/foodorderpro/food-bot/internal/models"
	"github.com/foodorderpro/food-bot/internal/ordering"
)

const adminListLimit = 15

func (b *Bot) handleAdminCommand(ctx context.Context, s *session, chatID int64) {
	if s.isAdmin {
		b.sendWithKeyboard(chatID, "🛠 ADMIN PANEL", adminKeyboard())
		return
	}
	if b.adminPassword == "" {
		b.sendMessage(chatID, "The admin panel is disabled.")
		return
	}
	s.awaiting = inputAdminPassword
	b.sendMessage(chatID, "🔑 Enter the admin password:")
}

func (b *Bot) handlePasswordInput(s *session, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	s.awaiting = inputNone

	// The password should not stay in the chat history.
	b.request(tgbotapi.NewDeleteMessage(chatID, msg.MessageID))

	if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(msg.Text)), []byte(b.adminPassword)) != 1 {
		b.logger.Warn("Failed admin login", zap.Int64("user_id", msg.From.ID))
		b.sendMessage(chatID, "❌ Wrong password.")
		return
	}
	s.isAdmin = true
	b.logger.Info("Admin logged in", zap.Int64("user_id", msg.From.ID))
	b.sendWithKeyboard(chatID, "🛠 ADMIN PANEL", adminKeyboard())
}

func (b *Bot) handleItemInput(ctx context.Context, s *session, chatID int64, text string) {
	if !s.isAdmin {
		s.awaiting = inputNone
		return
	}

	switch s.awaiting {
	case inputItemName:
		if text == "" {
			b.sendMessage(chatID, "❌ The name must not be empty. Enter the dish name:")
			return
		}
		s.draft.name = text
		s.awaiting = inputItemPrice
		b.sendMessage(chatID, "💸 Enter the price:")

	case inputItemPrice:
		price, err := strconv.ParseInt(text, 10, 64)
		if err != nil || price <= 0 {
			b.sendMessage(chatID, "❌ The price must be a positive whole number. Enter the price:")
			return
		}
		s.draft.price = price
		s.awaiting = inputItemDescription
		b.sendMessage(chatID, "📝 Enter a description, or - to skip:")

	case inputItemDescription:
		description := text
		if description == "-" {
			description = ""
		}
		draft := s.draft
		s.awaiting = inputNone
		s.draft = itemDraft{}

		item, err := b.svc.Catalog.AddItem(ctx, draft.categoryID, ordering.NewItem{
			Name:        draft.name,
			Price:       draft.price,
			Description: description,
		})
		if err != nil {
			b.sendMessage(chatID, b.userError(err, chatID))
			return
		}
		b.logger.Info("Menu item added",
			zap.String("category_id", draft.categoryID),
			zap.String("item_id", item.ID))
		b.sendWithKeyboard(chatID, "✅ Dish added:\n\n"+b.format.MenuItem(item), adminKeyboard())
	}
}

func (b *Bot) handleAdminCallback(ctx context.Context, s *session, q *tgbotapi.CallbackQuery, data string) {
	if !s.isAdmin {
		b.alert(q.ID, "🔒 Log in with /admin first.")
		return
	}
	chatID := q.Message.Chat.ID
	messageID := q.Message.MessageID
	action, arg, _ := strings.Cut(data, ":")

	switch action {
	case "panel":
		b.answer(q.ID, "")
		markup := adminKeyboard()
		b.editMessage(chatID, messageID, "🛠 ADMIN PANEL", &markup)

	case "new", "orders":
		var status models.Status
		title := "📋 ALL ORDERS"
		if action == "new" {
			status = models.StatusNew
			title = "🆕 NEW ORDERS"
		}
		orders, err := b.svc.Orders.AllOrders(ctx, status)
		if err != nil {
			b.alert(q.ID, b.userError(err, q.From.ID))
			return
		}
		b.answer(q.ID, "")
		if len(orders) > adminListLimit {
			orders = orders[:adminListLimit]
		}
		if len(orders) == 0 {
			title += "\n\nNo orders."
		}
		markup := ordersKeyboard(orders, b.format)
		b.editMessage(chatID, messageID, title, &markup)

	case "o":
		order, err := b.svc.Orders.Order(ctx, arg)
		if err != nil {
			b.alert(q.ID, b.userError(err, q.From.ID))
			return
		}
		b.answer(q.ID, "")
		b.showAdminOrder(chatID, messageID, *order)

	case "st":
		rawStatus, orderID, _ := strings.Cut(arg, ":")
		status, err := models.ParseStatus(rawStatus)
		if err != nil {
			b.answer(q.ID, "")
			return
		}
		order, err := b.svc.Orders.SetStatus(ctx, orderID, status)
		if err != nil {
			b.alert(q.ID, b.userError(err, q.From.ID))
			return
		}
		b.answer(q.ID, "Status updated")
		b.showAdminOrder(chatID, messageID, *order)
		b.notifyStatus(*order)

	case "pay":
		order, err := b.svc.Orders.PayOrder(ctx, arg)
		if err != nil {
			b.alert(q.ID, b.userError(err, q.From.ID))
			return
		}
		b.answer(q.ID, "💵 Marked paid")
		b.showAdminOrder(chatID, messageID, *order)

	case "add", "del":
		categories, err := b.svc.Catalog.Categories(ctx)
		if err != nil {
			b.alert(q.ID, b.userError(err, q.From.ID))
			return
		}
		b.answer(q.ID, "")
		prefix := cbAdmin + ":cat:"
		if action == "del" {
			prefix = cbAdmin + ":dc:"
		}
		markup := categoriesKeyboard(categories, prefix)
		b.editMessage(chatID, messageID, "Choose a category:", &markup)

	case "cat":
		if _, err := b.svc.Catalog.Category(ctx, arg); err != nil {
			b.alert(q.ID, b.userError(err, q.From.ID))
			return
		}
		b.answer(q.ID, "")
		s.draft = itemDraft{categoryID: arg}
		s.awaiting = inputItemName
		b.sendMessage(chatID, "🍽 Enter the dish name (/cancel to stop):")

	case "dc":
		category, err := b.svc.Catalog.Category(ctx, arg)
		if err != nil {
			b.alert(q.ID, b.userError(err, q.From.ID))
			return
		}
		b.answer(q.ID, "")
		b.showDeleteItems(chatID, messageID, *category)

	case "rm":
		categoryID, itemID, _ := strings.Cut(arg, ":")
		if err := b.svc.Catalog.DeleteItem(ctx, categoryID, itemID); err != nil {
			b.alert(q.ID, b.userError(err, q.From.ID))
			return
		}
		b.logger.Info("Menu item deleted",
			zap.String("category_id", categoryID),
			zap.String("item_id", itemID))
		b.answer(q.ID, "🗑 Deleted")
		category, err := b.svc.Catalog.Category(ctx, categoryID)
		if err != nil {
			b.userError(err, q.From.ID)
			return
		}
		b.showDeleteItems(chatID, messageID, *category)

	case "stats":
		stats, err := b.svc.Orders.Stats(ctx)
		if err != nil {
			b.alert(q.ID, b.userError(err, q.From.ID))
			return
		}
		b.answer(q.ID, "")
		markup := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Admin panel", cbAdmin+":panel"),
		))
		b.editMessage(chatID, messageID, b.format.Stats(stats), &markup)

	case "logout":
		s.isAdmin = false
		s.awaiting = inputNone
		s.draft = itemDraft{}
		b.answer(q.ID, "Logged out")
		b.editMessage(chatID, messageID, "🚪 You left the admin panel.", nil)

	default:
		b.answer(q.ID, "")
	}
}

func (b *Bot) showAdminOrder(chatID int64, messageID int, order models.Order) {
	markup := orderAdminKeyboard(order)
	b.editMessage(chatID, messageID, b.format.OrderDetails(order), &markup)
}

func (b *Bot) showDeleteItems(chatID int64, messageID int, category models.Category) {
	text := fmt.Sprintf("🗑 %s: tap a dish to delete it.", category.Name)
	if len(category.Items) == 0 {
		text = fmt.Sprintf("%s: no dishes yet.", category.Name)
	}
	markup := deleteItemsKeyboard(category)
	b.editMessage(chatID, messageID, text, &markup)
}

// notifyStatus tells the customer their order moved on. Users chat with the
// bot privately, so the user id is the chat id.
func (b *Bot) notifyStatus(order models.Order) {
	b.sendMessage(order.UserID, fmt.Sprintf("%s Your order #%s is now: %s",
		format.StatusIcon(order.Status), format.ShortID(order.ID), format.StatusLabel(order.Status)))
}

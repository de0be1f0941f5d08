package bot

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/foodorderpro/food-bot/internal/models"
	"github.com/foodorderpro/food-bot/internal/ordering"
)

const maxAddressLength = 200

var tableNumber = regexp.MustCompile(`^\d{1,4}$`)

func (b *Bot) showMenu(ctx context.Context, chatID int64) {
	categories, err := b.svc.Catalog.Categories(ctx)
	if err != nil {
		b.sendMessage(chatID, b.userError(err, chatID))
		return
	}
	if len(categories) == 0 {
		b.sendMessage(chatID, "The menu is empty for now.")
		return
	}
	b.sendWithKeyboard(chatID, "📋 MENU\n\nChoose a category:", categoriesKeyboard(categories, cbCategory+":"))
}

func (b *Bot) showCategory(ctx context.Context, chatID, userID int64, categoryID string) {
	category, err := b.svc.Catalog.Category(ctx, categoryID)
	if err != nil {
		b.sendMessage(chatID, b.userError(err, userID))
		return
	}
	if len(category.Items) == 0 {
		b.sendMessage(chatID, fmt.Sprintf("%s: no dishes yet.", category.Name))
		return
	}

	for _, item := range category.Items {
		qty := b.svc.Cart.Quantity(userID, ordering.MenuLineKey(category.ID, item.ID))
		markup := itemKeyboard(category.ID, item.ID, qty)
		text := b.format.MenuItem(item)

		if item.ImagePath != "" {
			if _, err := os.Stat(item.ImagePath); err == nil {
				photo := tgbotapi.NewPhoto(chatID, tgbotapi.FilePath(item.ImagePath))
				photo.Caption = text
				photo.ReplyMarkup = markup
				if _, err := b.api.Send(photo); err == nil {
					continue
				}
				b.logger.Warn("Failed to send dish photo", zap.String("item_id", item.ID))
			}
		}
		b.sendWithKeyboard(chatID, text, markup)
	}
}

func (b *Bot) handleItemCallback(ctx context.Context, q *tgbotapi.CallbackQuery, action, data string) {
	categoryID, itemID, ok := strings.Cut(data, ":")
	if !ok {
		b.answer(q.ID, "")
		return
	}
	userID := q.From.ID

	if action == cbAdd {
		line, err := b.svc.AddMenuItem(ctx, userID, categoryID, itemID)
		if err != nil {
			b.alert(q.ID, b.userError(err, userID))
			return
		}
		b.answer(q.ID, fmt.Sprintf("✅ %s added to cart", line.Name))
	} else {
		switch b.svc.RemoveMenuItem(userID, categoryID, itemID) {
		case ordering.LineAbsent:
			b.answer(q.ID, "Not in cart")
		case ordering.LineRemoved:
			b.answer(q.ID, "Removed from cart")
		default:
			b.answer(q.ID, "➖ One less")
		}
	}

	qty := b.svc.Cart.Quantity(userID, ordering.MenuLineKey(categoryID, itemID))
	b.editMarkup(q.Message.Chat.ID, q.Message.MessageID, itemKeyboard(categoryID, itemID, qty))
}

func (b *Bot) showCart(chatID, userID int64) {
	b.sendMessage(chatID, b.format.Cart(b.svc.CartView(userID)))
}

func (b *Bot) placeOrder(ctx context.Context, s *session, chatID, userID int64) {
	if s.orderType == "" {
		b.sendWithKeyboard(chatID, "Choose 🚗 Delivery or 🏠 Dine-in first.", typeKeyboard())
		return
	}
	if len(b.svc.Cart.Snapshot(userID)) == 0 {
		b.sendMessage(chatID, "🛒 Your cart is empty. Open 📋 Menu to add dishes.")
		return
	}

	if contact, ok := b.svc.KnownContact(userID, s.orderType); ok {
		b.checkout(ctx, s, chatID, userID, contact)
		return
	}

	s.awaiting = inputContact
	if s.orderType == models.OrderTypeDineIn {
		b.sendMessage(chatID, "🔢 Enter your table number:")
	} else {
		b.sendMessage(chatID, "📍 Enter the delivery address:")
	}
}

func (b *Bot) handleContactInput(ctx context.Context, s *session, chatID, userID int64, text string) {
	if s.orderType == models.OrderTypeDineIn {
		if !tableNumber.MatchString(text) {
			b.sendMessage(chatID, "❌ The table number must contain digits only. Try again:")
			return
		}
	} else {
		if text == "" || utf8.RuneCountInString(text) > maxAddressLength {
			b.sendMessage(chatID, fmt.Sprintf("❌ Enter an address of up to %d characters:", maxAddressLength))
			return
		}
	}
	s.awaiting = inputNone
	b.checkout(ctx, s, chatID, userID, text)
}

func (b *Bot) checkout(ctx context.Context, s *session, chatID, userID int64, contact string) {
	result, err := b.svc.Checkout(ctx, userID, contact, s.orderType)
	if err != nil {
		b.sendMessage(chatID, b.userError(err, userID))
		return
	}
	b.sendWithKeyboard(chatID, b.format.OrderPlaced(result), payOrderKeyboard(result.Order.ID))
}

func (b *Bot) showChecks(ctx context.Context, s *session, chatID, userID int64) {
	if s.orderType == "" {
		b.sendWithKeyboard(chatID, "Choose 🚗 Delivery or 🏠 Dine-in first.", typeKeyboard())
		return
	}
	checks, err := b.svc.Orders.OpenChecks(ctx, userID, s.orderType)
	if err != nil {
		b.sendMessage(chatID, b.userError(err, userID))
		return
	}
	s.checks = checks
	if len(checks) == 0 {
		b.sendMessage(chatID, "🧾 You have no open checks.")
		return
	}
	for i, check := range checks {
		b.sendWithKeyboard(chatID, b.format.Check(check), payCheckKeyboard(i, b.format, check.Total))
	}
}

func (b *Bot) handlePayCheck(ctx context.Context, s *session, q *tgbotapi.CallbackQuery, data string) {
	index, err := strconv.Atoi(data)
	if err != nil || index < 0 || index >= len(s.checks) {
		b.alert(q.ID, "This check is outdated. Open 🧾 Check again.")
		return
	}
	userID := q.From.ID

	result, err := b.svc.Orders.PayOrders(ctx, s.checks[index].OrderIDs)
	if err != nil {
		b.alert(q.ID, b.userError(err, userID))
		return
	}
	b.answer(q.ID, "✅ Paid")
	b.editMarkup(q.Message.Chat.ID, q.Message.MessageID, noKeyboard())
	b.sendMessage(q.Message.Chat.ID, b.format.Payment(result)+"\n\nTap ⭐ Save to favorites to keep these dishes.")
}

func (b *Bot) handlePayOrder(ctx context.Context, q *tgbotapi.CallbackQuery, orderID string) {
	userID := q.From.ID

	order, err := b.svc.Orders.Order(ctx, orderID)
	if err != nil || order.UserID != userID {
		if err == nil {
			err = ordering.ErrOrderNotFound
		}
		b.alert(q.ID, b.userError(err, userID))
		return
	}

	wasPaid := order.IsPaid
	order, err = b.svc.Orders.PayOrder(ctx, orderID)
	if err != nil {
		b.alert(q.ID, b.userError(err, userID))
		return
	}
	if wasPaid {
		b.answer(q.ID, "Already paid")
	} else {
		b.answer(q.ID, "✅ Paid")
	}
	result := ordering.PaymentResult{Total: order.Total}
	if wasPaid {
		result.AlreadyPaid = []string{order.ID}
	} else {
		result.Paid = []string{order.ID}
	}
	b.editMarkup(q.Message.Chat.ID, q.Message.MessageID, noKeyboard())
	b.sendMessage(q.Message.Chat.ID, b.format.Payment(result))
}

func (b *Bot) showHistory(ctx context.Context, chatID, userID int64) {
	orders, err := b.svc.History(ctx, userID)
	if err != nil {
		b.sendMessage(chatID, b.userError(err, userID))
		return
	}
	b.sendMessage(chatID, b.format.History(orders))
}

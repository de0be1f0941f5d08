package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/foodorderpro/food-bot/internal/ordering"
)

func (b *Bot) showFavorites(ctx context.Context, chatID, userID int64) {
	views, err := b.svc.Favorites.View(ctx, userID)
	if err != nil {
		b.sendMessage(chatID, b.userError(err, userID))
		return
	}
	if len(views) == 0 {
		b.sendMessage(chatID, b.format.Favorites(views))
		return
	}
	b.sendWithKeyboard(chatID, b.format.Favorites(views), favoritesKeyboard(views, b.format))
}

// refreshFavorites redraws the favorites message in place.
func (b *Bot) refreshFavorites(ctx context.Context, q *tgbotapi.CallbackQuery) {
	views, err := b.svc.Favorites.View(ctx, q.From.ID)
	if err != nil {
		b.userError(err, q.From.ID)
		return
	}
	if len(views) == 0 {
		b.editMessage(q.Message.Chat.ID, q.Message.MessageID, b.format.Favorites(views), nil)
		return
	}
	markup := favoritesKeyboard(views, b.format)
	b.editMessage(q.Message.Chat.ID, q.Message.MessageID, b.format.Favorites(views), &markup)
}

func (b *Bot) startSelection(ctx context.Context, s *session, chatID, userID int64) {
	orderIDs := s.checkOrderIDs()
	if len(orderIDs) == 0 {
		b.sendMessage(chatID, "Open 🧾 Check first, then save dishes from it.")
		return
	}
	candidates, err := b.svc.Favorites.Propose(ctx, userID, orderIDs)
	if err != nil {
		b.sendMessage(chatID, b.userError(err, userID))
		return
	}
	if len(candidates) == 0 {
		b.sendMessage(chatID, "There are no dishes to save.")
		return
	}
	sel := b.svc.Favorites.BeginSelection(userID, candidates)
	b.sendWithKeyboard(chatID, b.format.Selection(sel), selectionKeyboard(sel, b.format))
}

func (b *Bot) handleFavoritesCallback(ctx context.Context, s *session, q *tgbotapi.CallbackQuery, data string) {
	userID := q.From.ID
	action, arg, _ := strings.Cut(data, ":")

	switch action {
	case "add":
		line, err := b.svc.Favorites.AddToCart(ctx, userID, arg)
		if err != nil {
			b.alert(q.ID, b.userError(err, userID))
			return
		}
		b.answer(q.ID, fmt.Sprintf("✅ %s added to cart", line.Name))
		b.refreshFavorites(ctx, q)

	case "rm":
		if b.svc.Favorites.RemoveFromCart(userID, arg) == ordering.LineAbsent {
			b.answer(q.ID, "Not in cart")
			return
		}
		b.answer(q.ID, "➖ Removed one")
		b.refreshFavorites(ctx, q)

	case "all":
		added, err := b.svc.Favorites.AddAllToCart(ctx, userID)
		if err != nil {
			b.alert(q.ID, b.userError(err, userID))
			return
		}
		b.answer(q.ID, fmt.Sprintf("✅ %d dish(es) added to cart", added))
		b.refreshFavorites(ctx, q)

	case "clear":
		if err := b.svc.Favorites.ClearAll(ctx, userID); err != nil {
			b.alert(q.ID, b.userError(err, userID))
			return
		}
		b.answer(q.ID, "🗑 Favorites cleared")
		b.refreshFavorites(ctx, q)

	case "sel", "selall", "selnone":
		var sel ordering.Selection
		var ok bool
		switch action {
		case "sel":
			sel, ok = b.svc.Favorites.Toggle(userID, arg)
		case "selall":
			sel, ok = b.svc.Favorites.SelectAll(userID)
		default:
			sel, ok = b.svc.Favorites.DeselectAll(userID)
		}
		if !ok {
			b.alert(q.ID, "This selection is closed. Tap ⭐ Save to favorites again.")
			return
		}
		b.answer(q.ID, "")
		markup := selectionKeyboard(sel, b.format)
		b.editMessage(q.Message.Chat.ID, q.Message.MessageID, b.format.Selection(sel), &markup)

	case "save":
		if sel, ok := b.svc.Favorites.Current(userID); ok && sel.Selected == 0 {
			b.alert(q.ID, b.userError(ordering.ErrNothingSelected, userID))
			return
		}
		result, err := b.svc.Favorites.Commit(ctx, userID)
		if err != nil {
			b.alert(q.ID, b.userError(err, userID))
			return
		}
		s.checks = nil
		b.answer(q.ID, "⭐ Saved")
		b.editMessage(q.Message.Chat.ID, q.Message.MessageID, b.format.Commit(result), nil)

	case "cancel":
		b.svc.Favorites.Cancel(userID)
		b.answer(q.ID, "Cancelled")
		b.editMessage(q.Message.Chat.ID, q.Message.MessageID, "OK, nothing was saved.", nil)

	default:
		b.answer(q.ID, "")
	}
}

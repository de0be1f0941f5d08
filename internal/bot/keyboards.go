package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/foodorderpro/food-bot/internal/format"
	"github.com/foodorderpro/food-bot/internal/models"
	"github.com/foodorderpro/food-bot/internal/ordering"
)

// Reply keyboard labels.
const (
	btnDelivery      = "🚗 Delivery"
	btnDineIn        = "🏠 Dine-in"
	btnMenu          = "📋 Menu"
	btnCart          = "🛒 Cart"
	btnCheck         = "🧾 Check"
	btnFavorites     = "❤️ Favorites"
	btnHistory       = "📜 History"
	btnPlaceOrder    = "✅ Place order"
	btnClearCart     = "🗑 Clear cart"
	btnSaveFavorites = "⭐ Save to favorites"
	btnMainMenu      = "⬅️ Main menu"
)

// Callback data prefixes. Telegram limits callback data to 64 bytes.
const (
	cbCategory  = "cat"
	cbAdd       = "add"
	cbRemove    = "rm"
	cbPay       = "pay"
	cbPayCheck  = "paycheck"
	cbFavorites = "fav"
	cbAdmin     = "adm"
)

func typeKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnDelivery),
			tgbotapi.NewKeyboardButton(btnDineIn),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

func mainKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnMenu),
			tgbotapi.NewKeyboardButton(btnCart),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnPlaceOrder),
			tgbotapi.NewKeyboardButton(btnCheck),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnFavorites),
			tgbotapi.NewKeyboardButton(btnHistory),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSaveFavorites),
			tgbotapi.NewKeyboardButton(btnClearCart),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnMainMenu),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

func categoriesKeyboard(categories []models.Category, prefix string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, c := range categories {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(c.Name, prefix+c.ID),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func itemKeyboard(categoryID, itemID string, qty int) tgbotapi.InlineKeyboardMarkup {
	row := tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(format.AddButton(qty), fmt.Sprintf("%s:%s:%s", cbAdd, categoryID, itemID)),
	)
	if qty > 0 {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("➖", fmt.Sprintf("%s:%s:%s", cbRemove, categoryID, itemID)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

func payCheckKeyboard(index int, f *format.Formatter, total int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("💳 Pay "+f.Money(total), fmt.Sprintf("%s:%d", cbPayCheck, index)),
	))
}

func payOrderKeyboard(orderID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("💳 Pay this order", cbPay+":"+orderID),
	))
}

func favoritesKeyboard(views []ordering.FavoriteView, f *format.Formatter) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, v := range views {
		if i == format.MaxFavorites {
			break
		}
		row := tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(f.FavoriteButton(v), cbFavorites+":add:"+v.ID),
		)
		if v.InCart > 0 {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData("➖", cbFavorites+":rm:"+v.ID))
		}
		rows = append(rows, row)
	}
	if len(views) > 1 {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🛒 Add all to cart", cbFavorites+":all"),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🗑 Clear favorites", cbFavorites+":clear"),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func selectionKeyboard(sel ordering.Selection, f *format.Formatter) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, item := range sel.Items {
		if i == format.MaxSelection {
			break
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(f.SelectionButton(item), cbFavorites+":sel:"+item.ID),
		))
	}
	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Select all", cbFavorites+":selall"),
			tgbotapi.NewInlineKeyboardButtonData("☐ Deselect all", cbFavorites+":selnone"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💾 Save", cbFavorites+":save"),
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", cbFavorites+":cancel"),
		),
	)
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func adminKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🆕 New orders", cbAdmin+":new"),
			tgbotapi.NewInlineKeyboardButtonData("📋 All orders", cbAdmin+":orders"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ Add dish", cbAdmin+":add"),
			tgbotapi.NewInlineKeyboardButtonData("➖ Delete dish", cbAdmin+":del"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 Stats", cbAdmin+":stats"),
			tgbotapi.NewInlineKeyboardButtonData("🚪 Log out", cbAdmin+":logout"),
		),
	)
}

func ordersKeyboard(orders []models.Order, f *format.Formatter) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, o := range orders {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(f.OrderLine(o), cbAdmin+":o:"+o.ID),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⬅️ Admin panel", cbAdmin+":panel"),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func orderAdminKeyboard(o models.Order) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, s := range models.Statuses {
		if s == o.Status {
			continue
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(
			format.StatusIcon(s)+" "+format.StatusLabel(s),
			fmt.Sprintf("%s:st:%s:%s", cbAdmin, s, o.ID),
		))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	if !o.IsPaid {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💵 Mark paid", cbAdmin+":pay:"+o.ID),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⬅️ Orders", cbAdmin+":orders"),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func deleteItemsKeyboard(c models.Category) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, item := range c.Items {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 "+item.Name, fmt.Sprintf("%s:rm:%s:%s", cbAdmin, c.ID, item.ID)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⬅️ Admin panel", cbAdmin+":panel"),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// noKeyboard removes the inline buttons of an edited message.
func noKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}}
}

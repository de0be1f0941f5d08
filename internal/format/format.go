package format

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/foodorderpro/food-bot/internal/models"
	"github.com/foodorderpro/food-bot/internal/ordering"
)

const (
	separator = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"
	divider   = "──────────────────"

	// MaxFavorites is how many favorites the favorites menu shows.
	MaxFavorites = 10
	// MaxSelection is how many candidates a selection shows.
	MaxSelection = 15

	historyItemsWidth = 50
	timeLayout        = "2006-01-02 15:04"
)

var countEmoji = []string{"", "1️⃣", "2️⃣", "3️⃣", "4️⃣", "5️⃣", "6️⃣", "7️⃣", "8️⃣", "9️⃣", "🔟"}

var statusIcons = map[models.Status]string{
	models.StatusNew:       "🆕",
	models.StatusConfirmed: "✅",
	models.StatusCooking:   "👨‍🍳",
	models.StatusDelivery:  "🚗",
	models.StatusDelivered: "📦",
	models.StatusCancelled: "❌",
}

var statusLabels = map[models.Status]string{
	models.StatusNew:       "NEW",
	models.StatusConfirmed: "CONFIRMED",
	models.StatusCooking:   "COOKING",
	models.StatusDelivery:  "ON THE WAY",
	models.StatusDelivered: "DELIVERED",
	models.StatusCancelled: "CANCELLED",
}

// Formatter renders view models as plain chat text.
type Formatter struct {
	Currency string
}

func New(currency string) *Formatter {
	if currency == "" {
		currency = "₴"
	}
	return &Formatter{Currency: currency}
}

func (f *Formatter) Money(amount int64) string {
	return strconv.FormatInt(amount, 10) + f.Currency
}

// Count renders a cart quantity as a keycap emoji, falling back to digits
// above ten.
func Count(n int) string {
	if n <= 0 {
		return ""
	}
	if n < len(countEmoji) {
		return countEmoji[n]
	}
	return fmt.Sprintf("%d🛒", n)
}

// Truncate shortens s to at most width runes, marking the cut with an
// ellipsis.
func Truncate(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	runes := []rune(s)
	return string(runes[:width]) + "..."
}

func StatusIcon(s models.Status) string {
	if icon, ok := statusIcons[s]; ok {
		return icon
	}
	return "📝"
}

func StatusLabel(s models.Status) string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return strings.ToUpper(string(s))
}

func TypeIcon(t models.OrderType) string {
	if t == models.OrderTypeDelivery {
		return "🚗"
	}
	return "🏠"
}

func TypeLabel(t models.OrderType) string {
	if t == models.OrderTypeDelivery {
		return "Delivery"
	}
	return "Dine-in"
}

// ContactLabel names the contact info of an order type.
func ContactLabel(t models.OrderType) string {
	if t == models.OrderTypeDelivery {
		return "Address"
	}
	return "Table"
}

// ShortID is the tail of an order id, enough for a human to tell orders apart.
func ShortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[len(id)-8:]
}

// MenuItem renders one dish card.
func (f *Formatter) MenuItem(item models.MenuItem) string {
	var sb strings.Builder
	sb.WriteString(item.Name)
	sb.WriteString("\n")
	if item.Description != "" {
		sb.WriteString(item.Description)
		sb.WriteString("\n")
	}
	sb.WriteString("💸 " + f.Money(item.Price))
	return sb.String()
}

// AddButton labels the add-to-cart button of a dish already in the cart qty
// times.
func AddButton(qty int) string {
	if qty > 0 {
		return "🛒 " + Count(qty) + " In cart"
	}
	return "🛒 Add to cart"
}

func (f *Formatter) Cart(view ordering.CartView) string {
	if len(view.Lines) == 0 {
		return "🛒 Your cart is empty."
	}

	var sb strings.Builder
	sb.WriteString("🛒 YOUR CART\n")
	sb.WriteString(separator + "\n")
	for _, line := range view.Lines {
		sb.WriteString(fmt.Sprintf("▫️ %s x%d = %s\n", line.Name, line.Quantity, f.Money(line.Subtotal())))
	}
	sb.WriteString(separator + "\n")
	sb.WriteString("Total: " + f.Money(view.Total))
	if view.ActiveTable != "" {
		sb.WriteString("\n\n📌 This order will be added to your open check")
		sb.WriteString("\n📍 Table: " + view.ActiveTable)
	}
	return sb.String()
}

func (f *Formatter) OrderPlaced(result ordering.CheckoutResult) string {
	o := result.Order
	var sb strings.Builder
	if result.OrdersInCheck > 1 {
		sb.WriteString(fmt.Sprintf("✅ Order #%s added to your open check!\n", ShortID(o.ID)))
		sb.WriteString(fmt.Sprintf("📋 Orders in check: %d\n", result.OrdersInCheck))
	} else {
		sb.WriteString(fmt.Sprintf("✅ Order #%s placed!\n", ShortID(o.ID)))
	}
	sb.WriteString(fmt.Sprintf("📍 %s: %s\n", ContactLabel(o.OrderType), o.ContactInfo))
	sb.WriteString("💰 Order total: " + f.Money(o.Total) + "\n")
	if result.OrdersInCheck > 1 {
		sb.WriteString("💰 Check total: " + f.Money(result.CheckTotal) + "\n")
	}
	sb.WriteString("\nOpen 🧾 Check to pay.")
	return sb.String()
}

// Check renders one open check.
func (f *Formatter) Check(check models.Check) string {
	var sb strings.Builder
	sb.WriteString(TypeIcon(check.OrderType) + " CHECK\n")
	sb.WriteString(fmt.Sprintf("📍 %s: %s\n", ContactLabel(check.OrderType), check.ContactInfo))
	sb.WriteString(fmt.Sprintf("📋 Orders: %d\n", len(check.OrderIDs)))
	sb.WriteString(separator + "\n")
	for _, item := range check.Items {
		sb.WriteString(fmt.Sprintf("▫️ %s | %d x %s = %s\n", item.Name, item.Quantity, f.Money(item.Price), f.Money(item.Subtotal)))
	}
	sb.WriteString(separator + "\n")
	if check.OrderType == models.OrderTypeDelivery {
		sb.WriteString("🚚 Delivery included\n")
	}
	sb.WriteString("💰 TOTAL DUE: " + f.Money(check.Total))
	return sb.String()
}

func (f *Formatter) Payment(result ordering.PaymentResult) string {
	if len(result.Paid) == 0 && len(result.AlreadyPaid) == 0 {
		return "❌ No orders found to pay."
	}
	var sb strings.Builder
	if len(result.Paid) > 0 {
		sb.WriteString(fmt.Sprintf("✅ Paid %d order(s). Thank you!\n", len(result.Paid)))
	}
	if len(result.AlreadyPaid) > 0 {
		sb.WriteString(fmt.Sprintf("ℹ️ %d order(s) were already paid.\n", len(result.AlreadyPaid)))
	}
	sb.WriteString("💰 Total: " + f.Money(result.Total))
	return sb.String()
}

// History renders the order history, newest first as given.
func (f *Formatter) History(orders []models.Order) string {
	if len(orders) == 0 {
		return "📜 You have no orders yet."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📜 YOUR LAST ORDERS (%d)\n\n", len(orders)))
	for _, o := range orders {
		sb.WriteString(fmt.Sprintf("%s%s #%s | %s\n", TypeIcon(o.OrderType), StatusIcon(o.Status),
			ShortID(o.ID), o.CreatedAt.Format(timeLayout)))
		sb.WriteString("Type: " + TypeLabel(o.OrderType) + "\n")
		sb.WriteString("Status: " + StatusLabel(o.Status) + "\n")
		sb.WriteString("Dishes: " + Truncate(ItemSummary(o.Items), historyItemsWidth) + "\n")
		sb.WriteString("Total: " + f.Money(o.Total) + "\n")
		sb.WriteString(divider + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// ItemSummary lists the lines as "name (qty)".
func ItemSummary(lines []models.CartLine) string {
	parts := make([]string, len(lines))
	for i, line := range lines {
		parts[i] = fmt.Sprintf("%s (%d)", line.Name, line.Quantity)
	}
	return strings.Join(parts, ", ")
}

func (f *Formatter) Favorites(views []ordering.FavoriteView) string {
	if len(views) == 0 {
		return "❤️ You have no favorites yet.\n\nPay a check and tap ⭐ Save to favorites."
	}
	var sb strings.Builder
	sb.WriteString("❤️ YOUR FAVORITES")
	if len(views) > MaxFavorites {
		sb.WriteString(fmt.Sprintf(" (showing %d of %d)", MaxFavorites, len(views)))
	}
	return sb.String()
}

// FavoriteButton labels one favorite: its cart counter or a plus.
func (f *Formatter) FavoriteButton(view ordering.FavoriteView) string {
	if view.InCart > 0 {
		return Count(view.InCart) + " " + view.Name
	}
	return "➕ " + view.Name + " · " + f.Money(view.Price)
}

func (f *Formatter) Selection(sel ordering.Selection) string {
	var sb strings.Builder
	sb.WriteString("⭐ CHOOSE DISHES FOR FAVORITES\n")
	sb.WriteString(fmt.Sprintf("Selected: %d of %d", sel.Selected, len(sel.Items)))
	if len(sel.Items) > MaxSelection {
		sb.WriteString(fmt.Sprintf("\nShowing the first %d.", MaxSelection))
	}
	return sb.String()
}

func (f *Formatter) SelectionButton(item ordering.SelectionItem) string {
	mark := "☐"
	if item.Selected {
		mark = "✅"
	}
	return fmt.Sprintf("%s %s · %s", mark, item.Name, f.Money(item.Price))
}

func (f *Formatter) Commit(result ordering.CommitResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("⭐ Saved to favorites: %d", result.Saved))
	if result.Duplicates > 0 {
		sb.WriteString(fmt.Sprintf("\nAlready in favorites: %d", result.Duplicates))
	}
	if result.Failed > 0 {
		sb.WriteString(fmt.Sprintf("\n⚠️ Could not save: %d", result.Failed))
	}
	return sb.String()
}

// OrderLine is one row of the admin order list.
func (f *Formatter) OrderLine(o models.Order) string {
	paid := ""
	if o.IsPaid {
		paid = " 💵"
	}
	return fmt.Sprintf("%s%s #%s · %s · %s%s", TypeIcon(o.OrderType), StatusIcon(o.Status),
		ShortID(o.ID), o.ContactInfo, f.Money(o.Total), paid)
}

// OrderDetails renders a full order for operators.
func (f *Formatter) OrderDetails(o models.Order) string {
	var sb strings.Builder
	sb.WriteString(separator + "\n")
	sb.WriteString(fmt.Sprintf("📋 ORDER #%s\n", ShortID(o.ID)))
	sb.WriteString(separator + "\n")
	sb.WriteString(fmt.Sprintf("🆔 %s\n", o.ID))
	sb.WriteString(fmt.Sprintf("👤 User: %d\n", o.UserID))
	sb.WriteString(fmt.Sprintf("%s %s · %s: %s\n", TypeIcon(o.OrderType), TypeLabel(o.OrderType),
		ContactLabel(o.OrderType), o.ContactInfo))
	sb.WriteString(fmt.Sprintf("%s Status: %s\n", StatusIcon(o.Status), StatusLabel(o.Status)))
	sb.WriteString("🕒 " + o.CreatedAt.Format(timeLayout) + "\n")
	if o.IsPaid {
		paid := "💵 Paid (" + o.PaymentMethod + ")"
		if o.PaidAt != nil {
			paid += " at " + o.PaidAt.Format(timeLayout)
		}
		sb.WriteString(paid + "\n")
	} else {
		sb.WriteString("⏳ Not paid\n")
	}
	sb.WriteString("\n")
	for _, line := range o.Items {
		sb.WriteString(fmt.Sprintf("▫️ %s x%d = %s\n", line.Name, line.Quantity, f.Money(line.Subtotal())))
	}
	sb.WriteString("\n💰 Total: " + f.Money(o.Total))
	return sb.String()
}

func (f *Formatter) Stats(stats ordering.Stats) string {
	var sb strings.Builder
	sb.WriteString("📊 STATS\n\n")
	sb.WriteString(fmt.Sprintf("Orders: %d\n", stats.Orders))
	sb.WriteString(fmt.Sprintf("Paid: %d\n", stats.PaidOrders))
	sb.WriteString("Revenue: " + f.Money(stats.Revenue) + "\n\n")
	for _, s := range models.Statuses {
		sb.WriteString(fmt.Sprintf("%s %s: %d\n", StatusIcon(s), StatusLabel(s), stats.ByStatus[s]))
	}
	return strings.TrimRight(sb.String(), "\n")
}

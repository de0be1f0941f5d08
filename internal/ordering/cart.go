package ordering

import (
	"sync"

	"github.com/foodorderpro/food-bot/internal/models"
)

// RemoveResult says what RemoveOne did to a line.
type RemoveResult int

const (
	LineAbsent RemoveResult = iota
	LineDecremented
	LineRemoved
)

type userCart struct {
	lines map[string]*models.CartLine
	keys  []string
}

// Cart keeps every user's cart and remembered dine-in table in memory for the
// life of the process. It is not shared between instances.
type Cart struct {
	mu     sync.Mutex
	carts  map[int64]*userCart
	tables map[int64]string
}

func NewCart() *Cart {
	return &Cart{
		carts:  make(map[int64]*userCart),
		tables: make(map[int64]string),
	}
}

func (c *Cart) cart(userID int64) *userCart {
	uc, ok := c.carts[userID]
	if !ok {
		uc = &userCart{lines: make(map[string]*models.CartLine)}
		c.carts[userID] = uc
	}
	return uc
}

// AddLine adds one unit of key, creating the line when missing.
func (c *Cart) AddLine(userID int64, key, name string, price int64) models.CartLine {
	c.mu.Lock()
	defer c.mu.Unlock()

	uc := c.cart(userID)
	line, ok := uc.lines[key]
	if ok {
		line.Quantity++
		return *line
	}
	line = &models.CartLine{Key: key, Name: name, Price: price, Quantity: 1}
	uc.lines[key] = line
	uc.keys = append(uc.keys, key)
	return *line
}

// RemoveOne takes one unit of key away and drops the line at zero.
func (c *Cart) RemoveOne(userID int64, key string) RemoveResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	uc, ok := c.carts[userID]
	if !ok {
		return LineAbsent
	}
	line, ok := uc.lines[key]
	if !ok {
		return LineAbsent
	}
	if line.Quantity > 1 {
		line.Quantity--
		return LineDecremented
	}
	delete(uc.lines, key)
	for i, k := range uc.keys {
		if k == key {
			uc.keys = append(uc.keys[:i], uc.keys[i+1:]...)
			break
		}
	}
	return LineRemoved
}

// Snapshot copies the user's lines in the order they were first added.
func (c *Cart) Snapshot(userID int64) []models.CartLine {
	c.mu.Lock()
	defer c.mu.Unlock()

	uc, ok := c.carts[userID]
	if !ok {
		return []models.CartLine{}
	}
	lines := make([]models.CartLine, 0, len(uc.keys))
	for _, k := range uc.keys {
		lines = append(lines, *uc.lines[k])
	}
	return lines
}

// Quantity returns how many units of key the user has.
func (c *Cart) Quantity(userID int64, key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if uc, ok := c.carts[userID]; ok {
		if line, ok := uc.lines[key]; ok {
			return line.Quantity
		}
	}
	return 0
}

func (c *Cart) Clear(userID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.carts, userID)
}

func (c *Cart) ActiveTable(userID int64) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	table, ok := c.tables[userID]
	return table, ok
}

func (c *Cart) SetActiveTable(userID int64, table string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables[userID] = table
}

func (c *Cart) ClearActiveTable(userID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tables, userID)
}

// Total sums price times quantity over lines.
func Total(lines []models.CartLine) int64 {
	var total int64
	for _, l := range lines {
		total += l.Subtotal()
	}
	return total
}

package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/foodorderpro/food-bot/internal/models"
	"github.com/foodorderpro/food-bot/internal/ordering"
)

// DefaultCategories are created on first start.
var DefaultCategories = []models.Category{
	{ID: "breakfast", Name: "Breakfast", Position: 1},
	{ID: "hot", Name: "Hot dishes", Position: 2},
	{ID: "salads", Name: "Salads", Position: 3},
	{ID: "meat", Name: "Meat", Position: 4},
	{ID: "cold", Name: "Cold dishes", Position: 5},
}

// DefaultSettings are used until an operator changes them.
var DefaultSettings = models.Settings{DeliveryFee: 50, MinOrder: 100}

const (
	settingDeliveryFee = "delivery_fee"
	settingMinOrder    = "min_order"
)

// DB is the SQLite Store.
type DB struct {
	conn *sql.DB
}

var _ ordering.Store = (*DB)(nil)

// New opens the SQLite database at dbPath, creating the schema and default
// data when missing.
func New(dbPath string) (*DB, error) {
	// Immediate transactions take the write lock up front so read-modify-write
	// cycles never interleave.
	connStr := fmt.Sprintf("file:%s?_txlock=immediate&_busy_timeout=5000&_foreign_keys=on", dbPath)

	conn, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	if err := db.seed(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to seed database: %w", err)
	}

	return db, nil
}

func newWithConn(conn *sql.DB) *DB {
	return &DB{conn: conn}
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS categories (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		position INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS menu_items (
		category_id TEXT NOT NULL,
		id TEXT NOT NULL,
		name TEXT NOT NULL,
		price INTEGER NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		image_path TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		PRIMARY KEY (category_id, id),
		FOREIGN KEY (category_id) REFERENCES categories(id)
	);

	CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		items TEXT NOT NULL,
		total INTEGER NOT NULL,
		contact_info TEXT NOT NULL,
		order_type TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'new',
		is_paid INTEGER NOT NULL DEFAULT 0,
		payment_method TEXT NOT NULL DEFAULT 'cash',
		created_at INTEGER NOT NULL,
		paid_at INTEGER
	);

	CREATE TABLE IF NOT EXISTS favorites (
		user_id INTEGER NOT NULL,
		id TEXT NOT NULL,
		name TEXT NOT NULL,
		price INTEGER NOT NULL,
		quantity INTEGER NOT NULL DEFAULT 1,
		added_at INTEGER NOT NULL,
		PRIMARY KEY (user_id, id)
	);

	CREATE INDEX IF NOT EXISTS idx_orders_user_id ON orders(user_id);
	CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);
	`

	_, err := db.conn.Exec(schema)
	return err
}

func (db *DB) seed() error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for key, value := range map[string]int64{
		settingDeliveryFee: DefaultSettings.DeliveryFee,
		settingMinOrder:    DefaultSettings.MinOrder,
	} {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO settings (key, value) VALUES (?, ?)`, key, value); err != nil {
			return err
		}
	}
	for _, c := range DefaultCategories {
		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO categories (id, name, position) VALUES (?, ?, ?)`,
			c.ID, c.Name, c.Position,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ordering.ErrStoreUnavailable, err)
}

// withTx runs fn in one immediate transaction. Errors returned by fn are
// passed through unchanged.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("begin transaction", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return unavailable("commit transaction", err)
	}
	return nil
}

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func (db *DB) Settings(ctx context.Context) (models.Settings, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return models.Settings{}, unavailable("get settings", err)
	}
	defer rows.Close()

	settings := DefaultSettings
	for rows.Next() {
		var key string
		var value int64
		if err := rows.Scan(&key, &value); err != nil {
			return models.Settings{}, unavailable("scan settings", err)
		}
		switch key {
		case settingDeliveryFee:
			settings.DeliveryFee = value
		case settingMinOrder:
			settings.MinOrder = value
		}
	}
	if err := rows.Err(); err != nil {
		return models.Settings{}, unavailable("get settings", err)
	}
	return settings, nil
}

// UpdateSettings overwrites both settings.
func (db *DB) UpdateSettings(ctx context.Context, settings models.Settings) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		for key, value := range map[string]int64{
			settingDeliveryFee: settings.DeliveryFee,
			settingMinOrder:    settings.MinOrder,
		} {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO settings (key, value) VALUES (?, ?)
				 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
				key, value,
			); err != nil {
				return unavailable("update settings", err)
			}
		}
		return nil
	})
}

// Categories returns all categories ordered by position with their items in
// creation order.
func (db *DB) Categories(ctx context.Context) ([]models.Category, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id, name, position FROM categories ORDER BY position, id`)
	if err != nil {
		return nil, unavailable("get categories", err)
	}
	defer rows.Close()

	var categories []models.Category
	index := make(map[string]int)
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Position); err != nil {
			return nil, unavailable("scan category", err)
		}
		index[c.ID] = len(categories)
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("get categories", err)
	}
	rows.Close()

	itemRows, err := db.conn.QueryContext(ctx,
		`SELECT category_id, id, name, price, description, image_path, created_at
		 FROM menu_items ORDER BY created_at, id`)
	if err != nil {
		return nil, unavailable("get menu items", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var categoryID string
		var item models.MenuItem
		var createdAt int64
		if err := itemRows.Scan(&categoryID, &item.ID, &item.Name, &item.Price,
			&item.Description, &item.ImagePath, &createdAt); err != nil {
			return nil, unavailable("scan menu item", err)
		}
		item.CreatedAt = time.Unix(0, createdAt)
		if i, ok := index[categoryID]; ok {
			categories[i].Items = append(categories[i].Items, item)
		}
	}
	if err := itemRows.Err(); err != nil {
		return nil, unavailable("get menu items", err)
	}
	return categories, nil
}

func categoryExists(ctx context.Context, q queryer, categoryID string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories WHERE id = ?`, categoryID).Scan(&n)
	if err != nil {
		return false, unavailable("get category", err)
	}
	return n > 0, nil
}

func (db *DB) Item(ctx context.Context, categoryID, itemID string) (*models.MenuItem, error) {
	var item models.MenuItem
	var createdAt int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, price, description, image_path, created_at
		 FROM menu_items WHERE category_id = ? AND id = ?`,
		categoryID, itemID,
	).Scan(&item.ID, &item.Name, &item.Price, &item.Description, &item.ImagePath, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		exists, err := categoryExists(ctx, db.conn, categoryID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, ordering.ErrCategoryNotFound
		}
		return nil, ordering.ErrItemNotFound
	}
	if err != nil {
		return nil, unavailable("get menu item", err)
	}
	item.CreatedAt = time.Unix(0, createdAt)
	return &item, nil
}

func (db *DB) AddItem(ctx context.Context, categoryID string, item models.MenuItem) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		exists, err := categoryExists(ctx, tx, categoryID)
		if err != nil {
			return err
		}
		if !exists {
			return ordering.ErrCategoryNotFound
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO menu_items (category_id, id, name, price, description, image_path, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			categoryID, item.ID, item.Name, item.Price, item.Description, item.ImagePath, item.CreatedAt.UnixNano(),
		)
		if err != nil {
			return unavailable("add menu item", err)
		}
		return nil
	})
}

func (db *DB) DeleteItem(ctx context.Context, categoryID, itemID string) (bool, error) {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM menu_items WHERE category_id = ? AND id = ?`, categoryID, itemID)
	if err != nil {
		return false, unavailable("delete menu item", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, unavailable("delete menu item", err)
	}
	return rows > 0, nil
}

const orderColumns = `id, user_id, items, total, contact_info, order_type, status, is_paid, payment_method, created_at, paid_at`

func scanOrder(s scanner) (models.Order, error) {
	var o models.Order
	var items string
	var createdAt int64
	var paidAt sql.NullInt64
	err := s.Scan(&o.ID, &o.UserID, &items, &o.Total, &o.ContactInfo, &o.OrderType,
		&o.Status, &o.IsPaid, &o.PaymentMethod, &createdAt, &paidAt)
	if err != nil {
		return models.Order{}, err
	}
	if err := json.Unmarshal([]byte(items), &o.Items); err != nil {
		return models.Order{}, fmt.Errorf("decode items of order %s: %w", o.ID, err)
	}
	o.CreatedAt = time.Unix(0, createdAt)
	if paidAt.Valid {
		t := time.Unix(0, paidAt.Int64)
		o.PaidAt = &t
	}
	return o, nil
}

func orderArgs(o *models.Order) ([]any, error) {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return nil, fmt.Errorf("encode items of order %s: %w", o.ID, err)
	}
	var paidAt sql.NullInt64
	if o.PaidAt != nil {
		paidAt = sql.NullInt64{Int64: o.PaidAt.UnixNano(), Valid: true}
	}
	return []any{o.ID, o.UserID, string(items), o.Total, o.ContactInfo, o.OrderType,
		o.Status, o.IsPaid, o.PaymentMethod, o.CreatedAt.UnixNano(), paidAt}, nil
}

func (db *DB) CreateOrder(ctx context.Context, order *models.Order) error {
	args, err := orderArgs(order)
	if err != nil {
		return err
	}
	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO orders (`+orderColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
	if err != nil {
		return unavailable("create order", err)
	}
	return nil
}

func getOrder(ctx context.Context, q queryer, orderID string) (*models.Order, error) {
	o, err := scanOrder(q.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, orderID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ordering.ErrOrderNotFound
	}
	if err != nil {
		return nil, unavailable("get order", err)
	}
	return &o, nil
}

func saveOrder(ctx context.Context, q queryer, o *models.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("encode items of order %s: %w", o.ID, err)
	}
	var paidAt sql.NullInt64
	if o.PaidAt != nil {
		paidAt = sql.NullInt64{Int64: o.PaidAt.UnixNano(), Valid: true}
	}
	_, err = q.ExecContext(ctx,
		`UPDATE orders SET items = ?, total = ?, contact_info = ?, order_type = ?, status = ?,
		 is_paid = ?, payment_method = ?, paid_at = ? WHERE id = ?`,
		string(items), o.Total, o.ContactInfo, o.OrderType, o.Status, o.IsPaid, o.PaymentMethod, paidAt, o.ID,
	)
	if err != nil {
		return unavailable("update order", err)
	}
	return nil
}

func (db *DB) Order(ctx context.Context, orderID string) (*models.Order, error) {
	return getOrder(ctx, db.conn, orderID)
}

func (db *DB) UpdateOrder(ctx context.Context, orderID string, fn func(*models.Order) error) (*models.Order, error) {
	var updated *models.Order
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		o, err := getOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if err := fn(o); err != nil {
			return err
		}
		o.ID = orderID
		if err := saveOrder(ctx, tx, o); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (db *DB) UpdateOrders(ctx context.Context, orderIDs []string, fn func(*models.Order) error) ([]models.Order, error) {
	var updated []models.Order
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		updated = updated[:0]
		for _, id := range orderIDs {
			o, err := getOrder(ctx, tx, id)
			if errors.Is(err, ordering.ErrOrderNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if err := fn(o); err != nil {
				return err
			}
			o.ID = id
			if err := saveOrder(ctx, tx, o); err != nil {
				return err
			}
			updated = append(updated, *o)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (db *DB) listOrders(ctx context.Context, query string, args ...any) ([]models.Order, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("list orders", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, unavailable("scan order", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list orders", err)
	}
	return orders, nil
}

func (db *DB) ListOrders(ctx context.Context) ([]models.Order, error) {
	return db.listOrders(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at, id`)
}

func (db *DB) UserOrders(ctx context.Context, userID int64) ([]models.Order, error) {
	return db.listOrders(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = ? ORDER BY created_at, id`, userID)
}

// Favorites returns the user's favorites in the order they were saved.
func (db *DB) Favorites(ctx context.Context, userID int64) ([]models.Favorite, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, price, quantity, added_at FROM favorites
		 WHERE user_id = ? ORDER BY added_at, rowid`, userID)
	if err != nil {
		return nil, unavailable("get favorites", err)
	}
	defer rows.Close()

	var favs []models.Favorite
	for rows.Next() {
		var f models.Favorite
		var addedAt int64
		if err := rows.Scan(&f.ID, &f.Name, &f.Price, &f.Quantity, &addedAt); err != nil {
			return nil, unavailable("scan favorite", err)
		}
		f.AddedAt = time.Unix(0, addedAt)
		favs = append(favs, f)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("get favorites", err)
	}
	return favs, nil
}

func (db *DB) AddFavorite(ctx context.Context, userID int64, fav models.Favorite) (bool, error) {
	result, err := db.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO favorites (user_id, id, name, price, quantity, added_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		userID, fav.ID, fav.Name, fav.Price, fav.Quantity, fav.AddedAt.UnixNano(),
	)
	if err != nil {
		return false, unavailable("add favorite", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, unavailable("add favorite", err)
	}
	return rows > 0, nil
}

func (db *DB) RemoveFavorite(ctx context.Context, userID int64, favoriteID string) (bool, error) {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM favorites WHERE user_id = ? AND id = ?`, userID, favoriteID)
	if err != nil {
		return false, unavailable("remove favorite", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, unavailable("remove favorite", err)
	}
	return rows > 0, nil
}

func (db *DB) ClearFavorites(ctx context.Context, userID int64) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM favorites WHERE user_id = ?`, userID); err != nil {
		return unavailable("clear favorites", err)
	}
	return nil
}

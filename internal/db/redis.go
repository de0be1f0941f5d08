package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/foodorderpro/food-bot/internal/models"
	"github.com/foodorderpro/food-bot/internal/ordering"
)

const maxTxRetries = 10

var errTxConflict = errors.New("transaction kept conflicting")

// getter is satisfied by both the client and a watched transaction.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// Redis is the Store backed by a Redis server. Orders and categories are
// JSON documents; updates go through WATCH/MULTI and are retried on conflict.
type Redis struct {
	client *redis.Client
	prefix string
}

var _ ordering.Store = (*Redis)(nil)

// NewRedis wraps client and seeds default categories and settings when the
// keyspace under prefix is empty.
func NewRedis(ctx context.Context, client *redis.Client, prefix string) (*Redis, error) {
	r := &Redis{client: client, prefix: prefix}
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	if err := r.seed(ctx); err != nil {
		return nil, fmt.Errorf("failed to seed redis: %w", err)
	}
	return r, nil
}

func (r *Redis) key(parts ...string) string {
	k := r.prefix
	for _, p := range parts {
		if k != "" {
			k += ":"
		}
		k += p
	}
	return k
}

func (r *Redis) settingsKey() string { return r.key("settings") }
func (r *Redis) categoriesKey() string { return r.key("categories") }
func (r *Redis) categoryKey(id string) string { return r.key("category", id) }
func (r *Redis) orderKey(id string) string { return r.key("order", id) }
func (r *Redis) ordersKey() string { return r.key("orders") }
func (r *Redis) userOrdersKey(uid int64) string {
	return r.key("user", strconv.FormatInt(uid, 10), "orders")
}
func (r *Redis) favoritesKey(uid int64) string {
	return r.key("favorites", strconv.FormatInt(uid, 10))
}

func (r *Redis) seed(ctx context.Context) error {
	pipe := r.client.TxPipeline()
	pipe.HSetNX(ctx, r.settingsKey(), settingDeliveryFee, DefaultSettings.DeliveryFee)
	pipe.HSetNX(ctx, r.settingsKey(), settingMinOrder, DefaultSettings.MinOrder)
	for _, c := range DefaultCategories {
		data, err := json.Marshal(c)
		if err != nil {
			return err
		}
		pipe.SetNX(ctx, r.categoryKey(c.ID), data, 0)
		pipe.ZAddNX(ctx, r.categoriesKey(), redis.Z{Score: float64(c.Position), Member: c.ID})
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Close closes the client.
func (r *Redis) Close() error {
	return r.client.Close()
}

// watch runs fn under WATCH on keys and retries when another client touched
// them first.
func (r *Redis) watch(ctx context.Context, op string, fn func(tx *redis.Tx) error, keys ...string) error {
	for i := 0; i < maxTxRetries; i++ {
		var fnErr error
		err := r.client.Watch(ctx, func(tx *redis.Tx) error {
			fnErr = fn(tx)
			return fnErr
		}, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil && fnErr == nil {
			return unavailable(op, err)
		}
		return err
	}
	return unavailable(op, errTxConflict)
}

func (r *Redis) Settings(ctx context.Context) (models.Settings, error) {
	values, err := r.client.HGetAll(ctx, r.settingsKey()).Result()
	if err != nil {
		return models.Settings{}, unavailable("get settings", err)
	}
	settings := DefaultSettings
	if v, err := strconv.ParseInt(values[settingDeliveryFee], 10, 64); err == nil {
		settings.DeliveryFee = v
	}
	if v, err := strconv.ParseInt(values[settingMinOrder], 10, 64); err == nil {
		settings.MinOrder = v
	}
	return settings, nil
}

// UpdateSettings overwrites both settings.
func (r *Redis) UpdateSettings(ctx context.Context, settings models.Settings) error {
	err := r.client.HSet(ctx, r.settingsKey(),
		settingDeliveryFee, settings.DeliveryFee,
		settingMinOrder, settings.MinOrder,
	).Err()
	if err != nil {
		return unavailable("update settings", err)
	}
	return nil
}

func (r *Redis) Categories(ctx context.Context) ([]models.Category, error) {
	ids, err := r.client.ZRange(ctx, r.categoriesKey(), 0, -1).Result()
	if err != nil {
		return nil, unavailable("get categories", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.categoryKey(id)
	}
	docs, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, unavailable("get categories", err)
	}

	categories := make([]models.Category, 0, len(docs))
	for i, doc := range docs {
		s, ok := doc.(string)
		if !ok {
			continue
		}
		var c models.Category
		if err := json.Unmarshal([]byte(s), &c); err != nil {
			return nil, fmt.Errorf("decode category %s: %w", ids[i], err)
		}
		categories = append(categories, c)
	}
	return categories, nil
}

func (r *Redis) category(ctx context.Context, cmd getter, categoryID string) (*models.Category, error) {
	data, err := cmd.Get(ctx, r.categoryKey(categoryID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ordering.ErrCategoryNotFound
	}
	if err != nil {
		return nil, unavailable("get category", err)
	}
	var c models.Category
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode category %s: %w", categoryID, err)
	}
	return &c, nil
}

func (r *Redis) Item(ctx context.Context, categoryID, itemID string) (*models.MenuItem, error) {
	c, err := r.category(ctx, r.client, categoryID)
	if err != nil {
		return nil, err
	}
	for _, item := range c.Items {
		if item.ID == itemID {
			return &item, nil
		}
	}
	return nil, ordering.ErrItemNotFound
}

// updateCategory applies fn to the category document under optimistic locking.
func (r *Redis) updateCategory(ctx context.Context, categoryID string, fn func(*models.Category) (bool, error)) error {
	key := r.categoryKey(categoryID)
	return r.watch(ctx, "update category", func(tx *redis.Tx) error {
		c, err := r.category(ctx, tx, categoryID)
		if err != nil {
			return err
		}
		changed, err := fn(c)
		if err != nil || !changed {
			return err
		}
		data, err := json.Marshal(c)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		if err != nil && !errors.Is(err, redis.TxFailedErr) {
			return unavailable("update category", err)
		}
		return err
	}, key)
}

func (r *Redis) AddItem(ctx context.Context, categoryID string, item models.MenuItem) error {
	return r.updateCategory(ctx, categoryID, func(c *models.Category) (bool, error) {
		c.Items = append(c.Items, item)
		return true, nil
	})
}

func (r *Redis) DeleteItem(ctx context.Context, categoryID, itemID string) (bool, error) {
	var deleted bool
	err := r.updateCategory(ctx, categoryID, func(c *models.Category) (bool, error) {
		deleted = false
		for i, item := range c.Items {
			if item.ID == itemID {
				c.Items = append(c.Items[:i], c.Items[i+1:]...)
				deleted = true
				break
			}
		}
		return deleted, nil
	})
	if errors.Is(err, ordering.ErrCategoryNotFound) {
		return false, nil
	}
	return deleted, err
}

func (r *Redis) CreateOrder(ctx context.Context, order *models.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("encode order %s: %w", order.ID, err)
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.orderKey(order.ID), data, 0)
		pipe.SAdd(ctx, r.ordersKey(), order.ID)
		pipe.SAdd(ctx, r.userOrdersKey(order.UserID), order.ID)
		return nil
	})
	if err != nil {
		return unavailable("create order", err)
	}
	return nil
}

func (r *Redis) order(ctx context.Context, cmd getter, orderID string) (*models.Order, error) {
	data, err := cmd.Get(ctx, r.orderKey(orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ordering.ErrOrderNotFound
	}
	if err != nil {
		return nil, unavailable("get order", err)
	}
	var o models.Order
	if err := json.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("decode order %s: %w", orderID, err)
	}
	return &o, nil
}

func (r *Redis) Order(ctx context.Context, orderID string) (*models.Order, error) {
	return r.order(ctx, r.client, orderID)
}

func (r *Redis) UpdateOrder(ctx context.Context, orderID string, fn func(*models.Order) error) (*models.Order, error) {
	updated, err := r.UpdateOrders(ctx, []string{orderID}, fn)
	if err != nil {
		return nil, err
	}
	if len(updated) == 0 {
		return nil, ordering.ErrOrderNotFound
	}
	return &updated[0], nil
}

func (r *Redis) UpdateOrders(ctx context.Context, orderIDs []string, fn func(*models.Order) error) ([]models.Order, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}
	keys := make([]string, len(orderIDs))
	for i, id := range orderIDs {
		keys[i] = r.orderKey(id)
	}

	var updated []models.Order
	err := r.watch(ctx, "update orders", func(tx *redis.Tx) error {
		updated = updated[:0]
		for _, id := range orderIDs {
			o, err := r.order(ctx, tx, id)
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
			updated = append(updated, *o)
		}
		if len(updated) == 0 {
			return nil
		}

		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for i := range updated {
				data, err := json.Marshal(&updated[i])
				if err != nil {
					return err
				}
				pipe.Set(ctx, r.orderKey(updated[i].ID), data, 0)
			}
			return nil
		})
		if err != nil && !errors.Is(err, redis.TxFailedErr) {
			return unavailable("update orders", err)
		}
		return err
	}, keys...)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *Redis) ordersByIDs(ctx context.Context, ids []string) ([]models.Order, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	sort.Strings(ids)
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.orderKey(id)
	}
	docs, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, unavailable("list orders", err)
	}

	orders := make([]models.Order, 0, len(docs))
	for i, doc := range docs {
		s, ok := doc.(string)
		if !ok {
			continue
		}
		var o models.Order
		if err := json.Unmarshal([]byte(s), &o); err != nil {
			return nil, fmt.Errorf("decode order %s: %w", ids[i], err)
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func (r *Redis) ListOrders(ctx context.Context) ([]models.Order, error) {
	ids, err := r.client.SMembers(ctx, r.ordersKey()).Result()
	if err != nil {
		return nil, unavailable("list orders", err)
	}
	return r.ordersByIDs(ctx, ids)
}

func (r *Redis) UserOrders(ctx context.Context, userID int64) ([]models.Order, error) {
	ids, err := r.client.SMembers(ctx, r.userOrdersKey(userID)).Result()
	if err != nil {
		return nil, unavailable("list user orders", err)
	}
	return r.ordersByIDs(ctx, ids)
}

// Favorites returns the user's favorites in the order they were saved.
func (r *Redis) Favorites(ctx context.Context, userID int64) ([]models.Favorite, error) {
	values, err := r.client.HGetAll(ctx, r.favoritesKey(userID)).Result()
	if err != nil {
		return nil, unavailable("get favorites", err)
	}
	favs := make([]models.Favorite, 0, len(values))
	for id, v := range values {
		var f models.Favorite
		if err := json.Unmarshal([]byte(v), &f); err != nil {
			return nil, fmt.Errorf("decode favorite %s: %w", id, err)
		}
		favs = append(favs, f)
	}
	sort.SliceStable(favs, func(i, j int) bool {
		if favs[i].AddedAt.Equal(favs[j].AddedAt) {
			return favs[i].ID < favs[j].ID
		}
		return favs[i].AddedAt.Before(favs[j].AddedAt)
	})
	return favs, nil
}

func (r *Redis) AddFavorite(ctx context.Context, userID int64, fav models.Favorite) (bool, error) {
	data, err := json.Marshal(fav)
	if err != nil {
		return false, fmt.Errorf("encode favorite %s: %w", fav.ID, err)
	}
	added, err := r.client.HSetNX(ctx, r.favoritesKey(userID), fav.ID, data).Result()
	if err != nil {
		return false, unavailable("add favorite", err)
	}
	return added, nil
}

func (r *Redis) RemoveFavorite(ctx context.Context, userID int64, favoriteID string) (bool, error) {
	n, err := r.client.HDel(ctx, r.favoritesKey(userID), favoriteID).Result()
	if err != nil {
		return false, unavailable("remove favorite", err)
	}
	return n > 0, nil
}

func (r *Redis) ClearFavorites(ctx context.Context, userID int64) error {
	if err := r.client.Del(ctx, r.favoritesKey(userID)).Err(); err != nil {
		return unavailable("clear favorites", err)
	}
	return nil
}

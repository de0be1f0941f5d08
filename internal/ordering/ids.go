package ordering

import (
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

const favoriteKeyPrefix = "fav_"

// FavoriteID derives the favorite id of a dish from its name alone, so the
// same dish ordered at different times maps to one favorite. A renamed dish
// gets a new id.
func FavoriteID(name string) string {
	return strconv.FormatUint(xxhash.Sum64String(strings.TrimSpace(name)), 36)
}

// MenuLineKey is the cart key of a menu item.
func MenuLineKey(categoryID, itemID string) string {
	return categoryID + "_" + itemID
}

// FavoriteLineKey is the cart key of a favorite.
func FavoriteLineKey(favoriteID string) string {
	return favoriteKeyPrefix + favoriteID
}

func newOrderID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// NewItemID returns a time-derived menu item id.
func NewItemID(now time.Time) string {
	return strconv.FormatInt(now.UnixNano(), 36)
}

package ordering

import "errors"

var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrOrderNotFound      = errors.New("order not found")
	ErrNoOrders           = errors.New("no orders given")
	ErrFavoriteNotFound   = errors.New("favorite not found")
	ErrNothingSelected    = errors.New("nothing selected")
	ErrDuplicateFavorite  = errors.New("favorite already saved")
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrItemNotFound       = errors.New("menu item not found")
	ErrCategoryNotFound   = errors.New("category not found")
	ErrInvalidItem        = errors.New("invalid menu item")
	ErrInvalidStatus      = errors.New("invalid order status")
	ErrInvalidOrderType   = errors.New("invalid order type")
	ErrInvalidTransition  = errors.New("status transition not allowed")
	ErrBelowMinOrder      = errors.New("order is below the minimum amount")
	ErrMissingContactInfo = errors.New("contact info is required")
)

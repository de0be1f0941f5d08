package models

import (
	"fmt"
	"time"
)

// OrderType tells whether an order is eaten in the venue or delivered.
type OrderType string

const (
	OrderTypeDineIn   OrderType = "dine_in"
	OrderTypeDelivery OrderType = "delivery"
)

// ParseOrderType accepts only the two known order types.
func ParseOrderType(s string) (OrderType, error) {
	switch t := OrderType(s); t {
	case OrderTypeDineIn, OrderTypeDelivery:
		return t, nil
	}
	return "", fmt.Errorf("unknown order type %q", s)
}

type Status string

const (
	StatusNew       Status = "new"
	StatusConfirmed Status = "confirmed"
	StatusCooking   Status = "cooking"
	StatusDelivery  Status = "delivery"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusNew, StatusConfirmed, StatusCooking, StatusDelivery, StatusDelivered, StatusCancelled}

var transitions = map[Status][]Status{
	StatusNew:       {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCooking, StatusCancelled},
	StatusCooking:   {StatusDelivery, StatusCancelled},
	StatusDelivery:  {StatusDelivered, StatusCancelled},
}

func ParseStatus(s string) (Status, error) {
	for _, st := range Statuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// CanTransition reports whether the lifecycle allows moving from s to next.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Settings are shop-wide values kept by the store.
type Settings struct {
	DeliveryFee int64 `json:"delivery_fee"`
	MinOrder    int64 `json:"min_order"`
}

// MenuItem is a dish of a category. Price is in minor currency units.
type MenuItem struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Price       int64     `json:"price"`
	Description string    `json:"description,omitempty"`
	ImagePath   string    `json:"image_path,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type Category struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Position int        `json:"position"`
	Items    []MenuItem `json:"items"`
}

// CartLine is one line of a cart or an order. Key is "{category}_{itemID}"
// for menu items and "fav_{favoriteID}" for favorites.
type CartLine struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
}

func (l CartLine) Subtotal() int64 {
	return l.Price * int64(l.Quantity)
}

// Order is a placed cart. Only Status, IsPaid and PaidAt change after creation.
type Order struct {
	ID            string     `json:"id"`
	UserID        int64      `json:"user_id"`
	Items         []CartLine `json:"items"`
	Total         int64      `json:"total"`
	ContactInfo   string     `json:"contact_info"`
	OrderType     OrderType  `json:"order_type"`
	Status        Status     `json:"status"`
	IsPaid        bool       `json:"is_paid"`
	PaymentMethod string     `json:"payment_method"`
	CreatedAt     time.Time  `json:"created_at"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
}

// CheckItem is a dish merged by name across the orders of a check.
type CheckItem struct {
	Name     string
	Price    int64
	Quantity int
	Subtotal int64
}

// Check groups a user's open orders sharing an order type and contact info.
// It is derived and never stored.
type Check struct {
	OrderType   OrderType
	ContactInfo string
	OrderIDs    []string
	Items       []CheckItem
	Total       int64
}

// Favorite is a dish a user saved. ID is derived from Name.
type Favorite struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Price    int64     `json:"price"`
	Quantity int       `json:"quantity"`
	AddedAt  time.Time `json:"added_at"`
}

type EventType string

const (
	EventOrderCreated       EventType = "order_created"
	EventOrderPaid          EventType = "order_paid"
	EventOrderStatusChanged EventType = "order_status_changed"
)

// OrderEvent is published after every order lifecycle change.
type OrderEvent struct {
	Type      EventType `json:"type"`
	OrderID   string    `json:"order_id"`
	UserID    int64     `json:"user_id"`
	OrderType OrderType `json:"order_type"`
	Status    Status    `json:"status"`
	Total     int64     `json:"total"`
	At        time.Time `json:"at"`
}

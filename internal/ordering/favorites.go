package ordering

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/foodorderpro/food-bot/internal/models"
)

type selection struct {
	candidates []models.Favorite
	selected   map[string]bool
}

// SelectionItem is one candidate of an open selection.
type SelectionItem struct {
	models.Favorite
	Selected bool
}

// Selection is the state of a user's open selection session.
type Selection struct {
	Items    []SelectionItem
	Selected int
}

// CommitResult counts the outcome of saving a selection, per candidate.
type CommitResult struct {
	Saved      int
	Duplicates int
	Failed     int
}

// FavoriteView is a saved favorite with its quantity in the live cart.
type FavoriteView struct {
	models.Favorite
	InCart int
}

// Favorites derives favorites from past orders, runs the selection workflow
// and moves favorites into the cart.
type Favorites struct {
	store  Store
	cart   *Cart
	logger *zap.Logger
	now    func() time.Time

	mu       sync.Mutex
	sessions map[int64]*selection
}

func NewFavorites(store Store, cart *Cart, logger *zap.Logger) *Favorites {
	return &Favorites{
		store:    store,
		cart:     cart,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[int64]*selection),
	}
}

// List returns the user's favorites, never nil.
func (f *Favorites) List(ctx context.Context, userID int64) ([]models.Favorite, error) {
	favs, err := f.store.Favorites(ctx, userID)
	if err != nil {
		return nil, err
	}
	if favs == nil {
		favs = []models.Favorite{}
	}
	return favs, nil
}

// View lists favorites together with how many of each sit in the cart.
func (f *Favorites) View(ctx context.Context, userID int64) ([]FavoriteView, error) {
	favs, err := f.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := make([]FavoriteView, 0, len(favs))
	for _, fav := range favs {
		views = append(views, FavoriteView{
			Favorite: fav,
			InCart:   f.cart.Quantity(userID, FavoriteLineKey(fav.ID)),
		})
	}
	return views, nil
}

// Propose collects the distinct dishes of the user's orders among orderIDs.
// The first occurrence of a name fixes its price and quantity.
func (f *Favorites) Propose(ctx context.Context, userID int64, orderIDs []string) ([]models.Favorite, error) {
	candidates := []models.Favorite{}
	seen := make(map[string]bool)
	for _, id := range orderIDs {
		order, err := f.store.Order(ctx, id)
		if errors.Is(err, ErrOrderNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if order.UserID != userID {
			continue
		}
		for _, line := range order.Items {
			if line.Name == "" || seen[line.Name] {
				continue
			}
			seen[line.Name] = true
			candidates = append(candidates, models.Favorite{
				ID:       FavoriteID(line.Name),
				Name:     line.Name,
				Price:    line.Price,
				Quantity: line.Quantity,
			})
		}
	}
	return candidates, nil
}

// BeginSelection opens a selection over candidates with nothing selected,
// replacing any open one.
func (f *Favorites) BeginSelection(userID int64, candidates []models.Favorite) Selection {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := &selection{
		candidates: append([]models.Favorite(nil), candidates...),
		selected:   make(map[string]bool),
	}
	f.sessions[userID] = s
	return s.view()
}

// Current returns the open selection, if any.
func (f *Favorites) Current(userID int64) (Selection, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.sessions[userID]
	if !ok {
		return Selection{}, false
	}
	return s.view(), true
}

// Toggle flips one candidate. Unknown ids and missing sessions are ignored.
func (f *Favorites) Toggle(userID int64, candidateID string) (Selection, bool) {
	return f.mutate(userID, func(s *selection) {
		for _, c := range s.candidates {
			if c.ID == candidateID {
				if s.selected[candidateID] {
					delete(s.selected, candidateID)
				} else {
					s.selected[candidateID] = true
				}
				return
			}
		}
	})
}

func (f *Favorites) SelectAll(userID int64) (Selection, bool) {
	return f.mutate(userID, func(s *selection) {
		for _, c := range s.candidates {
			s.selected[c.ID] = true
		}
	})
}

func (f *Favorites) DeselectAll(userID int64) (Selection, bool) {
	return f.mutate(userID, func(s *selection) {
		s.selected = make(map[string]bool)
	})
}

func (f *Favorites) mutate(userID int64, fn func(*selection)) (Selection, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.sessions[userID]
	if !ok {
		return Selection{}, false
	}
	fn(s)
	return s.view(), true
}

// Commit saves every selected candidate and closes the session whatever the
// outcome. A failing candidate does not stop the others.
func (f *Favorites) Commit(ctx context.Context, userID int64) (CommitResult, error) {
	f.mu.Lock()
	s, ok := f.sessions[userID]
	delete(f.sessions, userID)
	f.mu.Unlock()

	if !ok || len(s.selected) == 0 {
		return CommitResult{}, ErrNothingSelected
	}

	var result CommitResult
	for _, c := range s.candidates {
		if !s.selected[c.ID] {
			continue
		}
		err := f.Add(ctx, userID, c)
		switch {
		case err == nil:
			result.Saved++
		case errors.Is(err, ErrDuplicateFavorite):
			result.Duplicates++
		default:
			result.Failed++
			f.logger.Warn("Failed to save favorite",
				zap.Int64("user_id", userID),
				zap.String("favorite_id", c.ID),
				zap.Error(err))
		}
	}
	return result, nil
}

// Cancel drops the open selection without saving.
func (f *Favorites) Cancel(userID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, userID)
}

// Add saves one favorite. The id is always derived from the name.
func (f *Favorites) Add(ctx context.Context, userID int64, fav models.Favorite) error {
	fav.ID = FavoriteID(fav.Name)
	if fav.Quantity < 1 {
		fav.Quantity = 1
	}
	fav.AddedAt = f.now()
	added, err := f.store.AddFavorite(ctx, userID, fav)
	if err != nil {
		return err
	}
	if !added {
		return ErrDuplicateFavorite
	}
	return nil
}

func (f *Favorites) Remove(ctx context.Context, userID int64, favoriteID string) error {
	removed, err := f.store.RemoveFavorite(ctx, userID, favoriteID)
	if err != nil {
		return err
	}
	if !removed {
		return ErrFavoriteNotFound
	}
	return nil
}

// AddToCart adds one unit of the favorite to the cart under its fav_ key.
func (f *Favorites) AddToCart(ctx context.Context, userID int64, favoriteID string) (models.CartLine, error) {
	favs, err := f.List(ctx, userID)
	if err != nil {
		return models.CartLine{}, err
	}
	for _, fav := range favs {
		if fav.ID == favoriteID {
			return f.cart.AddLine(userID, FavoriteLineKey(fav.ID), fav.Name, fav.Price), nil
		}
	}
	return models.CartLine{}, ErrFavoriteNotFound
}

// RemoveFromCart takes one unit of the favorite out of the cart. An absent
// line is not an error.
func (f *Favorites) RemoveFromCart(userID int64, favoriteID string) RemoveResult {
	return f.cart.RemoveOne(userID, FavoriteLineKey(favoriteID))
}

// AddAllToCart adds one unit of every favorite and returns how many were added.
func (f *Favorites) AddAllToCart(ctx context.Context, userID int64) (int, error) {
	favs, err := f.List(ctx, userID)
	if err != nil {
		return 0, err
	}
	added := 0
	for _, fav := range favs {
		if fav.ID == "" {
			continue
		}
		f.cart.AddLine(userID, FavoriteLineKey(fav.ID), fav.Name, fav.Price)
		added++
	}
	return added, nil
}

func (f *Favorites) ClearAll(ctx context.Context, userID int64) error {
	return f.store.ClearFavorites(ctx, userID)
}

func (s *selection) view() Selection {
	v := Selection{Items: make([]SelectionItem, 0, len(s.candidates))}
	for _, c := range s.candidates {
		selected := s.selected[c.ID]
		if selected {
			v.Selected++
		}
		v.Items = append(v.Items, SelectionItem{Favorite: c, Selected: selected})
	}
	return v
}

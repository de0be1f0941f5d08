package bot

import (
	"sync"

	"github.com/foodorderpro/food-bot/internal/models"
)

type inputState int

const (
	inputNone inputState = iota
	inputContact
	inputAdminPassword
	inputItemName
	inputItemPrice
	inputItemDescription
)

type itemDraft struct {
	categoryID string
	name       string
	price      int64
}

// session is the chat state of one user. Its mutex serializes that user's
// updates, so handlers may use it freely while holding it.
type session struct {
	mu sync.Mutex

	orderType models.OrderType
	awaiting  inputState
	// checks are the checks last shown, addressed by index from callbacks.
	checks  []models.Check
	isAdmin bool
	draft   itemDraft
}

func (s *session) checkOrderIDs() []string {
	var ids []string
	for _, c := range s.checks {
		ids = append(ids, c.OrderIDs...)
	}
	return ids
}

type sessions struct {
	mu    sync.Mutex
	users map[int64]*session
}

func newSessions() *sessions {
	return &sessions{users: make(map[int64]*session)}
}

func (s *sessions) get(userID int64) *session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.users[userID]
	if !ok {
		sess = &session{}
		s.users[userID] = sess
	}
	return sess
}

package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/Aashish23092/runlog-ocr/dto"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// Session is the explicit per-user context: which month sheet is open,
// the roster snapshot read when the session started, and the chosen user.
type Session struct {
	ID      string
	SheetID string
	Roster  dto.UserRoster
	UserID  string

	mu          sync.Mutex
	submissions map[string]*Submission
}

func newSession(sheetID string, roster dto.UserRoster, userID string) *Session {
	return &Session{
		ID:          uuid.NewString(),
		SheetID:     sheetID,
		Roster:      roster,
		UserID:      userID,
		submissions: make(map[string]*Submission),
	}
}

// Response renders the session for API clients.
func (s *Session) Response() dto.SessionResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	resp := dto.SessionResponse{
		SessionID: s.ID,
		Sheet:     s.SheetID,
		UserID:    s.UserID,
		Users:     s.Roster.Users(),
	}
	if s.Roster.Empty() {
		resp.Warning = fmt.Sprintf("no users found in column %d of sheet %s", s.Roster.Column, s.SheetID)
	}
	return resp
}

func (s *Session) submission(id string) (*Submission, error) {
	sub, ok := s.submissions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", dto.ErrSubmissionNotFound, id)
	}
	return sub, nil
}

// SessionStore keeps sessions in memory and forgets them after ttl of
// inactivity.
type SessionStore struct {
	cache *cache.Cache
	ttl   time.Duration
}

// NewSessionStore creates a store; a cleanup interval of zero disables
// the background janitor.
func NewSessionStore(ttl, cleanup time.Duration) *SessionStore {
	return &SessionStore{cache: cache.New(ttl, cleanup), ttl: ttl}
}

func (st *SessionStore) Put(s *Session) {
	st.cache.Set(s.ID, s, st.ttl)
}

// Get returns the session and refreshes its expiry.
func (st *SessionStore) Get(id string) (*Session, error) {
	v, ok := st.cache.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", dto.ErrSessionNotFound, id)
	}
	s := v.(*Session)
	st.cache.Set(id, s, st.ttl)
	return s, nil
}

func (st *SessionStore) Delete(id string) {
	st.cache.Delete(id)
}

func (st *SessionStore) Len() int {
	return st.cache.ItemCount()
}

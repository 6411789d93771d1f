// Package session holds per-chat ephemeral state: the active search,
// its result set, the pagination cursor and the admin dialog phase.
// State lives for the life of the process only; the registry itself is
// external and re-fetchable.
package session

import (
	"sync"

	"github.com/shohabbosdev/registrybot/internal/registry"
)

// Admin dialog phases.
const (
	AdminActionNone    = ""
	AdminActionEditRow = "edit_row"
)

// Session is one chat's state. Handlers for the same chat may run on
// different goroutines, so all access goes through the methods.
type Session struct {
	mu          sync.Mutex
	query       string
	results     []registry.Record
	page        int
	pageMsgID   int
	adminAction string
}

// SetSearch replaces the active search: new query, new result set,
// cursor back to page 1. The previous rendered-message handle is kept
// until the transport confirms deletion.
func (s *Session) SetSearch(query string, results []registry.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query = query
	s.results = results
	s.page = 1
}

// Results returns the active result set, or nil when no search has
// been made since the last reset. An empty non-nil set means the last
// search matched nothing.
func (s *Session) Results() []registry.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results
}

func (s *Session) Query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

func (s *Session) Page() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

func (s *Session) SetPage(page int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.page = page
}

// SetPageMsgID records the message that renders the current page.
func (s *Session) SetPageMsgID(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageMsgID = id
}

// TakePageMsgID returns the last rendered message ID and clears it.
// Zero means there is nothing to delete.
func (s *Session) TakePageMsgID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.pageMsgID
	s.pageMsgID = 0
	return id
}

func (s *Session) AdminAction() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adminAction
}

func (s *Session) SetAdminAction(action string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adminAction = action
}

func (s *Session) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query = ""
	s.results = nil
	s.page = 0
	s.pageMsgID = 0
	s.adminAction = AdminActionNone
}

// Store maps chat IDs to sessions. Sessions are created lazily and
// never expire; per-chat partitioning means no cross-chat locking
// beyond the map itself.
type Store struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

func NewStore() *Store {
	return &Store{sessions: make(map[int64]*Session)}
}

// Get returns the chat's session, creating an empty one on first use.
func (st *Store) Get(chatID int64) *Session {
	st.mu.RLock()
	s, ok := st.sessions[chatID]
	st.mu.RUnlock()
	if ok {
		return s
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok := st.sessions[chatID]; ok {
		return s
	}
	s = &Session{}
	st.sessions[chatID] = s
	return s
}

// Clear wipes the chat's state (the /start reset).
func (st *Store) Clear(chatID int64) {
	st.mu.RLock()
	s, ok := st.sessions[chatID]
	st.mu.RUnlock()
	if ok {
		s.reset()
	}
}

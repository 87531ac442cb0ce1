// Package session holds the per-visitor storefront state: the login, the
// cart and the checkout in progress.
package session

import (
	"sync"
	"time"

	"campusshop/internal/cart"
	"campusshop/internal/checkout"
	"campusshop/internal/models"
)

// State is the state container of one visitor. Handlers receive it by
// reference from the session middleware.
type State struct {
	ID   string
	Cart *cart.Store

	mu       sync.Mutex
	login    *models.Session
	checkout *checkout.Workflow
	lastSeen time.Time
}

func newState(id string, login *models.Session) *State {
	return &State{
		ID:       id,
		Cart:     cart.NewStore(),
		login:    login,
		lastSeen: time.Now(),
	}
}

// Login returns a copy of the current login, or nil for anonymous visitors.
func (s *State) Login() *models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.login == nil {
		return nil
	}
	login := *s.login
	return &login
}

// Authenticated reports whether the visitor is logged in.
func (s *State) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.login != nil
}

// Checkout returns the active checkout, if any. A workflow that finished
// or was closed elsewhere is dropped.
func (s *State) Checkout() (*checkout.Workflow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.checkout == nil {
		return nil, false
	}
	if s.checkout.Closed() {
		s.checkout = nil
		return nil, false
	}
	return s.checkout, true
}

// SetCheckout makes w the active checkout and closes the previous one.
func (s *State) SetCheckout(w *checkout.Workflow) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.checkout != nil && s.checkout != w {
		s.checkout.Close()
	}
	s.checkout = w
}

// EndCheckout closes and forgets the active checkout.
func (s *State) EndCheckout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endCheckoutLocked()
}

func (s *State) endCheckoutLocked() {
	if s.checkout != nil {
		s.checkout.Close()
		s.checkout = nil
	}
}

func (s *State) setLogin(login *models.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// A checkout started for another identity must not survive the switch.
	s.endCheckoutLocked()
	s.login = login
}

func (s *State) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *State) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

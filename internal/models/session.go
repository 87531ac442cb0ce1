package models

import "time"

// UserProfile is the customer profile returned alongside a remote token.
type UserProfile struct {
	ID    int64  `json:"id,omitempty"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// DisplayName returns the name used on orders, falling back to the email.
func (p UserProfile) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Email
}

// Session is the authenticated login as returned by the remote auth endpoints.
type Session struct {
	Token string `json:"token"`
	UserProfile
}

// StoredSession is the persisted form of a visitor session. Carts and
// checkouts are never stored; only the login survives a restart.
type StoredSession struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Token     string    `json:"-" gorm:"type:text"`
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name" gorm:"type:varchar(255)"`
	Email     string    `json:"email" gorm:"index;type:varchar(255)"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Authenticated reports whether the stored session carries a remote login.
func (s *StoredSession) Authenticated() bool {
	return s != nil && s.Token != ""
}

// Login rebuilds the remote session from the stored record.
func (s *StoredSession) Login() *Session {
	if !s.Authenticated() {
		return nil
	}
	return &Session{
		Token:       s.Token,
		UserProfile: UserProfile{ID: s.UserID, Name: s.Name, Email: s.Email},
	}
}

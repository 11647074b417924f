package shared

import "strings"

// Session identifies the signed-in user whose documents an operation touches.
// It is passed explicitly to every service constructor.
type Session struct {
	UserID string
}

// NewSession creates a session for the given user id
func NewSession(userID string) (Session, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Session{}, ErrUnauthorized
	}
	if strings.Contains(userID, "/") {
		return Session{}, NewValidationError("user_id", "User id cannot contain '/'")
	}
	return Session{UserID: userID}, nil
}

// Valid reports whether the session carries a user id
func (s Session) Valid() bool {
	return s.UserID != ""
}

package auth

import "strings"

// Claims are the fields read from a verified provider ID token.
type Claims struct {
	Subject       string `json:"sub"`
	UserID        string `json:"user_id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// UID returns the stable user id, preferring the user_id claim.
func (c Claims) UID() string {
	if uid := strings.TrimSpace(c.UserID); uid != "" {
		return uid
	}
	return c.Subject
}

package models

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/foliohq/folio/internal/domain"
)

// User represents a registered account. Passwords are stored only as
// bcrypt hashes.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	Role         string    `json:"role"`
	Following    []string  `json:"following,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	ModifiedAt   time.Time `json:"modified_at"`
}

// IsFollowing reports whether the user follows the given portfolio.
func (u *User) IsFollowing(portfolioID string) bool {
	for _, id := range u.Following {
		if id == portfolioID {
			return true
		}
	}
	return false
}

// ToggleFollow adds or removes the portfolio from the user's following
// list and returns true when the user is now following it.
func (u *User) ToggleFollow(portfolioID string) bool {
	for i, id := range u.Following {
		if id == portfolioID {
			u.Following = append(u.Following[:i], u.Following[i+1:]...)
			return false
		}
	}
	u.Following = append(u.Following, portfolioID)
	return true
}

// Validate checks the account's field constraints.
func (u *User) Validate() error {
	if strings.TrimSpace(u.Username) == "" {
		return domain.Validation("username is required")
	}
	if !strings.Contains(u.Email, "@") {
		return domain.Validation("email is invalid")
	}
	return nil
}

// SetPassword hashes and stores the given plaintext password.
func (u *User) SetPassword(plaintext string) error {
	if len(plaintext) < 8 {
		return domain.Validation("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword reports whether the plaintext matches the stored hash.
func (u *User) CheckPassword(plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(plaintext)) == nil
}

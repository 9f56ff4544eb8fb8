package session

import "time"

// UserProfile is the server-issued identity projection. It is treated as an
// immutable value once received: every identity-bearing response replaces the
// stored profile wholesale, never field by field.
type UserProfile struct {
	ID               int64     `json:"id"`
	Username         string    `json:"username"`
	Email            string    `json:"email"`
	DisplayName      string    `json:"displayName"`
	Bio              string    `json:"bio,omitempty"`
	AvatarURL        string    `json:"avatarUrl,omitempty"`
	IsVerified       bool      `json:"isVerified"`
	IsAdmin          bool      `json:"isAdmin"`
	TwoFactorEnabled bool      `json:"twoFactorEnabled"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents a registered account.
type User struct {
	ID           uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	Name         string    `json:"name" gorm:"size:255;not null"`
	Email        string    `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string    `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	Age          int       `json:"age" gorm:"not null;default:0"`
	Avatar       []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Relations
	Tokens []SessionToken `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`

	// token ids removed since the user was loaded, flushed by the repository on save
	revoked []string
}

// SessionToken is one entry of a user's token set. Only the token id (the
// JWT "jti") is stored; the auto-increment ID preserves insertion order.
type SessionToken struct {
	ID        uint      `json:"-" gorm:"primaryKey"`
	UserID    uuid.UUID `json:"-" gorm:"type:char(36);not null;index"`
	TokenID   string    `json:"-" gorm:"size:36;not null;uniqueIndex"`
	CreatedAt time.Time `json:"-"`
}

// BeforeCreate sets UUID before creating the record.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// AppendToken adds a newly issued token id at the end of the set.
func (u *User) AppendToken(tokenID string) {
	u.Tokens = append(u.Tokens, SessionToken{UserID: u.ID, TokenID: tokenID})
}

// HasToken reports whether tokenID is in the current set.
func (u *User) HasToken(tokenID string) bool {
	for _, t := range u.Tokens {
		if t.TokenID == tokenID {
			return true
		}
	}
	return false
}

// RevokeToken removes exactly the matching token id. It is a no-op if the
// id is absent.
func (u *User) RevokeToken(tokenID string) {
	for i, t := range u.Tokens {
		if t.TokenID != tokenID {
			continue
		}
		u.Tokens = append(u.Tokens[:i:i], u.Tokens[i+1:]...)
		if t.ID != 0 {
			u.revoked = append(u.revoked, tokenID)
		}
		return
	}
}

// RevokeAllTokens empties the set.
func (u *User) RevokeAllTokens() {
	for _, t := range u.Tokens {
		if t.ID != 0 {
			u.revoked = append(u.revoked, t.TokenID)
		}
	}
	u.Tokens = nil
}

// TokenIDs returns the current token ids in issue order.
func (u *User) TokenIDs() []string {
	ids := make([]string, 0, len(u.Tokens))
	for _, t := range u.Tokens {
		ids = append(ids, t.TokenID)
	}
	return ids
}

// RevokedTokenIDs returns the persisted token ids removed since load.
func (u *User) RevokedTokenIDs() []string {
	return u.revoked
}

// MarkTokensSaved clears the pending removals after a successful save.
func (u *User) MarkTokensSaved() {
	u.revoked = nil
}

// Redacted returns a copy safe to hand out of the service layer: no
// password hash, avatar or token set.
func (u *User) Redacted() *User {
	if u == nil {
		return nil
	}
	return &User{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Age:       u.Age,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// HasAvatar reports whether an avatar image is stored.
func (u *User) HasAvatar() bool {
	return len(u.Avatar) > 0
}

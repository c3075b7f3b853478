//go:build !wasm
// +build !wasm

package gorm

import (
	"time"

	"github.com/panyam/secrets"
)

// UserModel is the GORM model for users
type UserModel struct {
	ID        string  `gorm:"primaryKey;size:64"`
	Username  string  `gorm:"size:255;not null;uniqueIndex"`
	Password  string  `gorm:"size:1024"`
	GoogleID  *string `gorm:"size:255;uniqueIndex"`
	CreatedAt time.Time
	Secrets   []SecretModel `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (UserModel) TableName() string {
	return "users"
}

// SecretModel is the GORM model for a single submitted secret
type SecretModel struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	UserID    string `gorm:"size:64;not null;index"`
	Text      string `gorm:"type:text;not null"`
	CreatedAt time.Time
}

func (SecretModel) TableName() string {
	return "secrets"
}

func (m *UserModel) ToUser() *secrets.User {
	out := &secrets.User{
		ID:        m.ID,
		Username:  m.Username,
		Password:  m.Password,
		CreatedAt: m.CreatedAt.UTC(),
	}
	if m.GoogleID != nil {
		out.GoogleID = *m.GoogleID
	}
	for _, s := range m.Secrets {
		out.Secrets = append(out.Secrets, s.Text)
	}
	return out
}

func UserToModel(u *secrets.User) *UserModel {
	out := &UserModel{
		ID:        u.ID,
		Username:  u.Username,
		Password:  u.Password,
		CreatedAt: u.CreatedAt,
	}
	if u.GoogleID != "" {
		googleId := u.GoogleID
		out.GoogleID = &googleId
	}
	return out
}

package models

import (
	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"
)

// User is an account stored in PostgreSQL. Posts and comments only ever
// expose its UserCompact projection.
type User struct {
	gorm.Model  `json:"-"`
	ID          uint   `json:"id" gorm:"primaryKey"`
	Name        string `json:"name"`
	Email       string `json:"email" gorm:"uniqueIndex"`
	AvatarURL   string `json:"avatar_url"`
	Verified    bool   `json:"verified"`
	Password    string `json:"-"`
	FirebaseUID string `json:"firebase_uid,omitempty" gorm:"index"`
}

// UserCompact is the read-only author reference embedded in posts and comments.
type UserCompact struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
	Verified  bool   `json:"verified"`
}

// ToCompact projects a user to the author reference shape.
func (u *User) ToCompact() UserCompact {
	return UserCompact{
		ID:        u.ID,
		Name:      u.Name,
		AvatarURL: u.AvatarURL,
		Verified:  u.Verified,
	}
}

type CreateLocalUserRequest struct {
	Name      string `json:"name" validate:"required,min=2,max=50"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	AvatarURL string `json:"avatar_url,omitempty" validate:"omitempty,url"`
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// FirebaseLoginRequest exchanges a Firebase ID token for a local JWT.
type FirebaseLoginRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

// TokenResponse is returned by every auth endpoint.
type TokenResponse struct {
	Token string `json:"token"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

package model

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// User is a survey creator account
type User struct {
	ID           string    `json:"id" bson:"_id,omitempty"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"passwordHash"`
	Role         string    `json:"role,omitempty" bson:"role,omitempty"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
}

// UserClaims are JWT claims for creator sessions
type UserClaims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// CredentialsRequest is the body of register and login
type CredentialsRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// AuthResponse is returned after register or login
type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// AuthCheck is returned by GET /auth/check
type AuthCheck struct {
	Authenticated bool  `json:"authenticated"`
	User          *User `json:"user,omitempty"`
}

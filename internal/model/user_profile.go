package model

import "time"

// Role distinguishes students from course staff.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

// UserProfile is a platform account.
type UserProfile struct {
	ID           int       `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	IsExternal   bool      `json:"is_external"`
	CreatedAt    time.Time `json:"created_at"`
}

// Identity is the caller as seen by the admission engine.
type Identity struct {
	UserID        int
	Authenticated bool
	External      bool
}

// LoginRequest is the payload for password login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

// LoginResponse is returned after successful login.
type LoginResponse struct {
	Token   string      `json:"token"`
	Profile UserProfile `json:"profile"`
}

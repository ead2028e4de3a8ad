package models

import (
	"time"

	"github.com/google/uuid"
)

// Role controls access to admin endpoints.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// User represents a registered customer or administrator.
type User struct {
	BaseModel
	Email        string `gorm:"size:255;uniqueIndex" json:"email"`
	PhoneNumber  string `gorm:"size:32;uniqueIndex" json:"phone_number"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	PasswordHash string `json:"-"`
	Role         Role   `gorm:"size:16" json:"role"`
	OtpVerified  bool   `json:"otp_verified"`
}

// Otp keeps the email and SMS confirmation codes of a user.
// The two channels expire and confirm independently.
type Otp struct {
	BaseModel
	UserID         uuid.UUID  `gorm:"type:char(36);uniqueIndex" json:"user_id"`
	Email          string     `gorm:"size:255;index" json:"email"`
	PhoneNumber    string     `gorm:"size:32;index" json:"phone_number"`
	EmailCode      string     `gorm:"size:6" json:"-"`
	SmsCode        string     `gorm:"size:6" json:"-"`
	EmailExpiresAt time.Time  `json:"email_expires_at"`
	SmsExpiresAt   time.Time  `json:"sms_expires_at"`
	EmailConfirmed bool       `json:"email_confirmed"`
	PhoneConfirmed bool       `json:"phone_confirmed"`
	ResendCount    int        `json:"resend_count"`
	LastResendAt   *time.Time `json:"last_resend_at"`
}

// RevokedToken records a JWT id invalidated by logout.
type RevokedToken struct {
	BaseModel
	TokenID   string    `gorm:"size:64;uniqueIndex" json:"token_id"`
	UserID    uuid.UUID `gorm:"type:char(36);index" json:"user_id"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
}

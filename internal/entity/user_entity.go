package entity

import (
	"time"

	"github.com/google/uuid"
)

type UserRole string

const (
	UserRoleProfessional UserRole = "professional"
	UserRoleAdmin        UserRole = "admin"
)

type UserStatus string

const (
	UserStatusPending UserStatus = "pending"
	UserStatusActive  UserStatus = "active"
	UserStatusBlocked UserStatus = "blocked"
)

type User struct {
	Id            uuid.UUID
	Email         string
	FullName      string
	PasswordHash  *string
	Role          UserRole
	Status        UserStatus
	EmailVerified bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CanApprove reports whether this user may flip a note to user-approved.
// Only active professionals (or admins) gate content into the index.
func (u *User) CanApprove() bool {
	if u.Status != UserStatusActive {
		return false
	}
	return u.Role == UserRoleProfessional || u.Role == UserRoleAdmin
}

type UserRefreshToken struct {
	Id        uuid.UUID
	UserId    uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
	IpAddress string
	UserAgent string
}

type EmailVerificationToken struct {
	Id        uuid.UUID
	UserId    uuid.UUID
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

type PasswordResetToken struct {
	Id        uuid.UUID
	UserId    uuid.UUID
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	Used      bool
}

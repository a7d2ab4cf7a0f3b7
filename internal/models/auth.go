package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// UserRole narrows what a caller may touch.
type UserRole string

const (
	// RoleAdmin may act across organizations.
	RoleAdmin UserRole = "ADMIN"
	// RoleOrgAdmin is scoped to its own organization.
	RoleOrgAdmin UserRole = "ORG_ADMIN"
)

// User is an API account.
type User struct {
	ID             int64     `db:"id" json:"-"`
	PublicID       string    `db:"public_id" json:"id"`
	OrganizationID int64     `db:"organization_id" json:"-"`
	Email          string    `db:"email" json:"email"`
	FullName       string    `db:"full_name" json:"full_name"`
	PasswordHash   string    `db:"password_hash" json:"-"`
	Role           UserRole  `db:"role" json:"role"`
	Active         bool      `db:"active" json:"active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the issued token and user info.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	User        User      `json:"user"`
	IssuedAt    time.Time `json:"issued_at"`
}

// JWTClaims is the token payload carried through the request context.
type JWTClaims struct {
	UserID         string   `json:"user_id"`
	Role           UserRole `json:"role"`
	Email          string   `json:"email"`
	OrganizationID int64    `json:"organization_id"`
	jwt.RegisteredClaims
}

// Actor is the caller identity the mutation engine authorizes against.
type Actor struct {
	UserID         string
	Role           UserRole
	OrganizationID int64
}

// IsAdmin reports whether the actor may cross organization boundaries.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// CanAccessOrganization reports whether the actor may touch resources of the
// given organization.
func (a Actor) CanAccessOrganization(orgID int64) bool {
	return a.IsAdmin() || a.OrganizationID == orgID
}

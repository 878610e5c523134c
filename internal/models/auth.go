package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	RegNumber string `json:"regNumber" validate:"required"`
	Password  string `json:"password" validate:"required"`
}

// LoginResponse returns the issued token and user info.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	User        UserInfo  `json:"user"`
	IssuedAt    time.Time `json:"issued_at"`
}

// RegisterRequest creates a new portal account.
type RegisterRequest struct {
	RegNumber    string   `json:"regNumber" validate:"required"`
	FullName     string   `json:"fullName" validate:"required"`
	Password     string   `json:"password" validate:"required,min=6"`
	Role         UserRole `json:"role" validate:"required,oneof=STUDENT LECTURER HOD"`
	Intake       string   `json:"intake"`
	CohortYear   string   `json:"cohortYear"`
	AcademicYear string   `json:"academicYear"`
	Program      string   `json:"program"`
	Department   string   `json:"department"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID        string   `json:"id"`
	RegNumber string   `json:"regNumber"`
	FullName  string   `json:"fullName"`
	Role      UserRole `json:"role"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID    string   `json:"user_id"`
	Role      UserRole `json:"role"`
	RegNumber string   `json:"reg_number"`
	FullName  string   `json:"full_name"`
	jwt.RegisteredClaims
}

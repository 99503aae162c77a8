package model

import "github.com/google/uuid"

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID uuid.UUID
	Role   Role
}

func (p Principal) IsDoctor() bool {
	return p.Role == RoleDoctor
}

type RequestOTPRequest struct {
	Phone string `json:"phone" binding:"required,il_mobile"`
}

type VerifyOTPRequest struct {
	Phone string `json:"phone" binding:"required,il_mobile"`
	OTP   string `json:"otp" binding:"required,otp_code"`
	Name  string `json:"name"`
}

type RequestOTPResponse struct {
	Message           string `json:"message"`
	AlreadyRegistered bool   `json:"alreadyRegistered"`
}

type TokenResponse struct {
	Token string `json:"token"`
	Role  Role   `json:"role"`
}

package model

import "time"

// Role is the privilege level stored on a user.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User represents a registered account. ID is the identity-provider uid.
type User struct {
	ID             string     `json:"uid"`
	Email          string     `json:"email"`
	DisplayName    string     `json:"displayName"`
	PhotoURL       string     `json:"photoURL,omitempty"`
	Role           Role       `json:"role"`
	ReferralCount  int        `json:"referralCount"`
	RewardsClaimed int        `json:"rewardsClaimed"`
	CreatedAt      time.Time  `json:"createdAt"`
	LastLoginAt    *time.Time `json:"lastLogin,omitempty"`
}

// UserSummary is a user row enriched with derived reward numbers for admin views.
type UserSummary struct {
	User
	RewardsEarned  int `json:"rewardsEarned"`
	PendingRewards int `json:"pendingRewards"`
}

// PromotionResult is the response of the create-admin endpoint.
type PromotionResult struct {
	Success         bool   `json:"success"`
	Message         string `json:"message"`
	UserID          string `json:"userId"`
	RequiresRelogin bool   `json:"requiresRelogin"`
}

// CreateSessionRequest is the DTO for POST /api/auth/session.
type CreateSessionRequest struct {
	IDToken string `json:"idToken" validate:"required,notblank"`
}

// CreateAdminRequest is the DTO for POST /api/create-admin.
type CreateAdminRequest struct {
	Email string `json:"email" validate:"required,notblank,email,max=255"`
}

// UpdateSettingsRequest is the DTO for PATCH /dashboard/settings.
type UpdateSettingsRequest struct {
	DisplayName string `json:"displayName" validate:"required,notblank,max=100"`
}

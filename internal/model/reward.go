package model

import "time"

// RewardKind discriminates the two record types stored in the rewards table.
type RewardKind string

const (
	RewardKindTemplate RewardKind = "template"
	RewardKindClaim    RewardKind = "claim"
)

// TemplateStatus controls whether a template can be picked when claiming.
type TemplateStatus string

const (
	TemplateStatusActive   TemplateStatus = "active"
	TemplateStatusInactive TemplateStatus = "inactive"
)

// ClaimStatus is the review state of a reward claim.
type ClaimStatus string

const (
	ClaimStatusPending  ClaimStatus = "pending"
	ClaimStatusApproved ClaimStatus = "approved"
	ClaimStatusRejected ClaimStatus = "rejected"
)

// Valid reports whether s is a known claim status.
func (s ClaimStatus) Valid() bool {
	switch s {
	case ClaimStatusPending, ClaimStatusApproved, ClaimStatusRejected:
		return true
	}
	return false
}

// RewardTemplate is a redeemable catalog entry owned by no user.
type RewardTemplate struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	PointsRequired int            `json:"pointsRequired"`
	Status         TemplateStatus `json:"status"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// RewardClaim is a redemption request owned by a user.
// Template fields are copied at claim time and stay nil for default claims.
type RewardClaim struct {
	ID             string      `json:"id"`
	UserID         string      `json:"userId"`
	Status         ClaimStatus `json:"status"`
	TemplateID     *string     `json:"templateId,omitempty"`
	Name           *string     `json:"name,omitempty"`
	Description    *string     `json:"description,omitempty"`
	PointsRequired *int        `json:"pointsRequired,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
	ProcessedAt    *time.Time  `json:"processedAt,omitempty"`
}

// CatalogTemplate is an entry of the seed-only reward_templates catalog.
type CatalogTemplate struct {
	ID             string         `json:"id"`
	Slug           string         `json:"slug"`
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	PointsRequired int            `json:"pointsRequired"`
	Status         TemplateStatus `json:"status"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// Eligibility is the reward position derived from a user's counters.
type Eligibility struct {
	ReferralCount  int  `json:"referralCount"`
	RewardsEarned  int  `json:"rewardsEarned"`
	RewardsClaimed int  `json:"rewardsClaimed"`
	PendingRewards int  `json:"pendingRewards"`
	Mismatch       bool `json:"mismatch"`
}

// RewardsOverview is the GET /api/user/rewards response.
type RewardsOverview struct {
	Eligibility
	Rewards []RewardClaim `json:"rewards"`
}

// ClaimRewardRequest is the DTO for POST /api/user/rewards.
// An empty RewardID or "default" claims the generic reward.
type ClaimRewardRequest struct {
	RewardID string `json:"rewardId" validate:"max=128"`
}

// ClaimRewardResponse is returned on a successful claim.
type ClaimRewardResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	RewardID string `json:"rewardId"`
}

// TemplateRequest is the DTO for creating or replacing a reward template.
type TemplateRequest struct {
	Name           string         `json:"name" validate:"required,notblank,max=255"`
	Description    string         `json:"description" validate:"max=2000"`
	PointsRequired *int           `json:"pointsRequired" validate:"required,gte=0"`
	Status         TemplateStatus `json:"status" validate:"required,oneof=active inactive"`
}

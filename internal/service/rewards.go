package service

import (
	"fmt"

	"github.com/aurorallabs/referral-portal/internal/model"
)

// ReferralsPerReward is the number of credited referrals that earn one reward.
const ReferralsPerReward = 10

// DefaultRewardID claims the generic reward instead of a template.
const DefaultRewardID = "default"

// Eligibility derives the reward position from the stored counters.
// PendingRewards never goes negative; Mismatch flags counters that were
// corrected below what has already been claimed.
func Eligibility(referralCount, rewardsClaimed int) model.Eligibility {
	earned := referralCount / ReferralsPerReward
	pending := earned - rewardsClaimed
	if pending < 0 {
		pending = 0
	}
	return model.Eligibility{
		ReferralCount:  referralCount,
		RewardsEarned:  earned,
		RewardsClaimed: rewardsClaimed,
		PendingRewards: pending,
		Mismatch:       rewardsClaimed > earned,
	}
}

// EligibilityNotice is the dashboard hint shown when claims exceed earnings.
func EligibilityNotice(e model.Eligibility) string {
	if !e.Mismatch {
		return ""
	}
	return fmt.Sprintf("You've claimed %d rewards. Earn more referrals to unlock additional rewards.", e.RewardsClaimed)
}

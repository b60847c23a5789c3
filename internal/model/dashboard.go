package model

// DashboardOverview is the GET /dashboard view.
type DashboardOverview struct {
	User         User        `json:"user"`
	Eligibility  Eligibility `json:"eligibility"`
	Notice       string      `json:"notice,omitempty"`
	ReferralLink string      `json:"referralLink"`
}

// RewardsView is the GET /dashboard/rewards view.
type RewardsView struct {
	Eligibility Eligibility      `json:"eligibility"`
	Notice      string           `json:"notice,omitempty"`
	History     []RewardClaim    `json:"history"`
	Templates   []RewardTemplate `json:"templates"`
}

// AdminStats backs the admin stat cards.
type AdminStats struct {
	TotalUsers       int `json:"totalUsers"`
	TotalSubmissions int `json:"totalSubmissions"`
	PendingRewards   int `json:"pendingRewards"`
}

// Analytics backs the admin analytics dashboard.
type Analytics struct {
	TotalUsers           int                `json:"totalUsers"`
	ActiveUsers          int                `json:"activeUsers"`
	InactiveUsers        int                `json:"inactiveUsers"`
	TotalSubmissions     int                `json:"totalSubmissions"`
	SubmissionsByBudget  map[string]int     `json:"submissionsByBudget"`
	AverageFeatureRating map[string]float64 `json:"averageFeatureRating"`
}

// SurveyFeatures are the rated features of the pet survey.
var SurveyFeatures = []string{
	"healthMonitoring",
	"locationTracking",
	"activityTracking",
	"feedingReminders",
	"environmentalSensors",
	"smartAlerts",
	"mobileAppIntegration",
}

// BudgetBuckets are the budget answers of the pet survey.
var BudgetBuckets = []string{
	"less-than-6000",
	"6000-8000",
	"8000-10000",
	"more-than-10000",
}
